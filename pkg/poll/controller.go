package poll

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/observability"
)

const (
	// DefaultInterval is the time between fetches.
	DefaultInterval = 5 * time.Second
	// DefaultTimeout bounds a single fetch. It is shorter than the interval
	// so a hung source cannot hold the single flight for several ticks.
	DefaultTimeout = 4 * time.Second
)

// Fetcher supplies agent lists. Every source.Source is a Fetcher.
type Fetcher interface {
	Name() string
	Agents(ctx context.Context) ([]governance.Agent, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the polling interval used by Run.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source for snapshot and status timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithName overrides the source name reported in Status and hooks.
func WithName(name string) Option {
	return func(c *Controller) { c.name = name }
}

// WithLayout sets the canvas the scene is laid out on.
func WithLayout(cfg graph.Config) Option {
	return func(c *Controller) { c.layout = cfg }
}

// WithFallback sets the demo network shown, flagged as demo, while the
// source has never answered.
func WithFallback(agents []governance.Agent) Option {
	return func(c *Controller) { c.fallback = unique(agents) }
}

// WithSeed starts the controller with a previously stored snapshot, so a
// restart shows the last known network before the first fetch completes.
func WithSeed(s *governance.Snapshot) Option {
	return func(c *Controller) { c.seed = s }
}

// Controller polls a Fetcher and owns the dashboard State. It is safe for
// concurrent use.
type Controller struct {
	src      Fetcher
	name     string
	interval time.Duration
	timeout  time.Duration
	layout   graph.Config
	logger   *log.Logger
	now      func() time.Time
	fallback []governance.Agent
	seed     *governance.Snapshot

	// inflight is the single-flight guard around fetches.
	inflight *semaphore.Weighted

	// base is cancelled by Close and aborts in-flight fetches.
	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	state   State
	closed  bool
	subs    map[int]chan State
	nextSub int
}

// New creates a controller for src. Nothing is fetched until Tick or Run.
func New(src Fetcher, opts ...Option) *Controller {
	c := &Controller{
		src:      src,
		name:     src.Name(),
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		layout:   graph.DefaultConfig(),
		logger:   log.Default(),
		now:      time.Now,
		inflight: semaphore.NewWeighted(1),
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.layout = c.layout.Normalize()
	c.base, c.stop = context.WithCancel(context.Background())

	c.state = State{Status: Status{Source: c.name}}
	if c.seed != nil {
		c.state.Snapshot = c.seed
		c.state.scene = graph.Build(c.seed.Agents, c.layout)
	}
	return c
}

// Interval returns the polling interval.
func (c *Controller) Interval() time.Duration { return c.interval }

// Layout returns the canvas configuration scenes are built with.
func (c *Controller) Layout() graph.Config { return c.layout }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick runs one fetch cycle. It reports whether a fetch ran: false means
// another fetch was in flight and this tick was dropped. The returned error
// is the fetch error, which is also recorded in the state.
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	if c.isClosed() {
		return false, errClosed()
	}
	if !c.inflight.TryAcquire(1) {
		c.update(func(s *State) { s.Status.Skipped++ })
		observability.Poll().OnFetchSkipped(ctx, c.name)
		return false, nil
	}
	defer c.inflight.Release(1)

	if !c.update(func(s *State) {
		s.Status.Phase = Fetching
		s.Status.LastAttempt = c.now()
	}) {
		return false, errClosed()
	}
	observability.Poll().OnFetchStart(ctx, c.name)

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer context.AfterFunc(c.base, cancel)()

	start := time.Now()
	agents, err := c.src.Agents(fetchCtx)
	took := time.Since(start)

	var shown int
	applied := c.update(func(s *State) {
		s.Status.Phase = Idle
		if err != nil {
			c.fail(s, err)
		} else {
			c.succeed(s, agents)
		}
		shown = s.Snapshot.Len()
	})
	observability.Poll().OnFetchComplete(ctx, c.name, shown, took, err)
	if !applied {
		return true, errClosed()
	}
	return true, err
}

// succeed swaps in a new snapshot. The scene is rebuilt only when the
// content changed.
func (c *Controller) succeed(s *State, agents []governance.Agent) {
	snap := governance.NewSnapshot(unique(agents), c.now())
	if s.scene == nil || s.Status.Demo || s.Snapshot.Version != snap.Version {
		s.scene = graph.Build(snap.Agents, c.layout)
	}
	s.Snapshot = snap
	if s.Selection != "" && !snap.Has(s.Selection) {
		c.logger.Debug("selection cleared, agent left the snapshot", "agent", s.Selection)
		s.Selection = ""
	}
	if s.Status.Failures > 0 || s.Status.Demo {
		c.logger.Info("source recovered", "source", c.name, "failures", s.Status.Failures)
	}
	s.Status.Failures = 0
	s.Status.LastError = ""
	s.Status.Err = nil
	s.Status.LastSuccess = snap.FetchedAt
	s.Status.Demo = false
}

// fail records err and keeps the shown snapshot. Without one, the fallback
// network is shown in demo mode.
func (c *Controller) fail(s *State, err error) {
	s.Status.Failures++
	s.Status.Err = err
	s.Status.LastError = errors.UserMessage(err)
	if s.Snapshot == nil && c.fallback != nil {
		c.logger.Warn("source unavailable, showing demo network", "source", c.name, "err", err)
		s.Snapshot = governance.NewSnapshot(c.fallback, c.now())
		s.scene = graph.Build(s.Snapshot.Agents, c.layout)
		s.Status.Demo = true
	}
}

// Run fetches immediately and then on every interval until ctx is done or
// the controller is closed. Each tick runs in its own goroutine, so a slow
// fetch makes later ticks skip rather than queue. Run waits for outstanding
// fetches before returning.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer c.wg.Wait()

	c.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.base.Done():
			return nil
		case <-ticker.C:
			c.spawn(ctx)
		}
	}
}

func (c *Controller) spawn(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		_, _ = c.Tick(ctx)
	}()
}

// Select marks the agent with id as selected. An id that is not part of the
// current snapshot clears the selection and returns AGENT_NOT_FOUND.
func (c *Controller) Select(id string) error {
	var err error
	if !c.update(func(s *State) {
		if id != "" && s.Snapshot.Has(id) {
			s.Selection = id
			return
		}
		s.Selection = ""
		err = errors.New(errors.ErrCodeAgentNotFound, "agent %q is not in the current snapshot", id)
	}) {
		return errClosed()
	}
	return err
}

// Deselect clears the selection.
func (c *Controller) Deselect() {
	c.update(func(s *State) { s.Selection = "" })
}

// Click hit-tests p against the current scene and selects the topmost agent
// under it. A miss clears the selection.
func (c *Controller) Click(p graph.Point) (string, bool) {
	var (
		id string
		ok bool
	)
	c.update(func(s *State) {
		if s.scene != nil {
			id, ok = s.scene.HitTest(p)
		}
		if ok && !s.Snapshot.Has(id) {
			c.logger.Warn("hit agent missing from snapshot", "agent", id)
			id, ok = "", false
		}
		s.Selection = id
	})
	return id, ok
}

// Subscribe returns a channel that receives the current state and then
// every new one. Slow readers only see the latest state. The channel is
// closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ch, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// Close stops polling, aborts in-flight fetches and closes subscriber
// channels. Results of fetches that finish afterwards are discarded.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
	return nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// update applies fn to a copy of the state and swaps the copy in. It
// reports false, changing nothing, once the controller is closed.
func (c *Controller) update(fn func(*State)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	next := c.state
	fn(&next)
	c.state = next
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
	return true
}

func errClosed() error {
	return errors.New(errors.ErrCodeClosed, "poll controller is closed")
}

// unique drops later agents that repeat an id.
func unique(agents []governance.Agent) []governance.Agent {
	seen := make(map[string]bool, len(agents))
	out := make([]governance.Agent, 0, len(agents))
	for _, a := range agents {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out
}

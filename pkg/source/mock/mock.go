// Package mock provides an in-memory governance source seeded with demo
// data.
//
// The default fixture is embedded in the binary. Votes and simulation starts
// mutate the in-memory state, so the dashboard behaves like it would against
// a live backend.
package mock

import (
	"context"
	_ "embed"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/source"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Name is the backend name.
const Name = "mock"

type fixture struct {
	Agents    []governance.Record `yaml:"agents"`
	Proposals []governance.Record `yaml:"proposals"`
	Rules     []governance.Record `yaml:"rules"`
	Conflicts []governance.Record `yaml:"conflicts"`
	Metrics   governance.Record   `yaml:"metrics"`
}

// relative maps duration keys of the fixture to the timestamp keys the
// normalizers read. Durations ending in "_ago" lie in the past.
var relative = map[string]struct {
	key  string
	sign time.Duration
}{
	"created_ago":  {"created_at", -1},
	"resolved_ago": {"resolved_at", -1},
	"ago":          {"timestamp", -1},
	"ends_in":      {"ends_at", 1},
}

// Option configures a Source.
type Option func(*Source)

// WithClock sets the time fixture durations are resolved against.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithAgents replaces the fixture agents.
func WithAgents(agents []governance.Agent) Option {
	return func(s *Source) { s.agents = slices.Clone(agents) }
}

// Source serves demo data from memory. It is safe for concurrent use.
type Source struct {
	mu        sync.RWMutex
	now       func() time.Time
	agents    []governance.Agent
	proposals []governance.Proposal
	rules     []governance.RuleChange
	conflicts []governance.Conflict
	metrics   governance.Metrics
	runs      []governance.SimulationRun
	closed    bool
}

// New returns a source seeded from the embedded fixture.
func New(opts ...Option) (*Source, error) {
	return Load(defaultFixture, opts...)
}

// Load returns a source seeded from a YAML fixture in the format of the
// embedded one.
func Load(data []byte, opts ...Option) (*Source, error) {
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse fixture")
	}

	s := &Source{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	now := s.now()
	if s.agents == nil {
		s.agents = governance.NormalizeAgents(resolveAll(fx.Agents, now))
	}
	for _, rec := range resolveAll(fx.Proposals, now) {
		s.proposals = append(s.proposals, governance.NormalizeProposal(rec))
	}
	for _, rec := range resolveAll(fx.Rules, now) {
		s.rules = append(s.rules, governance.NormalizeRuleChange(rec))
	}
	for _, rec := range resolveAll(fx.Conflicts, now) {
		s.conflicts = append(s.conflicts, governance.NormalizeConflict(rec))
	}
	s.metrics = governance.NormalizeMetrics(fx.Metrics)
	return s, nil
}

func resolveAll(records []governance.Record, now time.Time) []governance.Record {
	out := make([]governance.Record, len(records))
	for i, rec := range records {
		out[i] = resolve(rec, now)
	}
	return out
}

// resolve replaces relative durations with absolute timestamps, descending
// into nested lists and objects.
func resolve(rec governance.Record, now time.Time) governance.Record {
	out := make(governance.Record, len(rec))
	for k, v := range rec {
		if rel, ok := relative[k]; ok {
			if s, isString := v.(string); isString {
				if d, err := time.ParseDuration(s); err == nil {
					out[rel.key] = now.Add(rel.sign * d)
					continue
				}
			}
		}
		out[k] = resolveValue(v, now)
	}
	return out
}

func resolveValue(v any, now time.Time) any {
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(resolve(x, now))
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = resolveValue(item, now)
		}
		return items
	}
	return v
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

func (s *Source) check() error {
	if s.closed {
		return errors.New(errors.ErrCodeClosed, "mock source is closed")
	}
	return nil
}

// Agents returns a copy of the current agents.
func (s *Source) Agents(context.Context) ([]governance.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	out := make([]governance.Agent, len(s.agents))
	for i, a := range s.agents {
		a.Connections = slices.Clone(a.Connections)
		out[i] = a
	}
	return out, nil
}

// SetAgents replaces the agent list returned by later calls to Agents.
func (s *Source) SetAgents(agents []governance.Agent) {
	s.mu.Lock()
	s.agents = slices.Clone(agents)
	s.mu.Unlock()
}

// Proposals returns the proposals, newest first.
func (s *Source) Proposals(context.Context) ([]governance.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	out := slices.Clone(s.proposals)
	slices.SortStableFunc(out, func(a, b governance.Proposal) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Rules returns the rule timeline, oldest first.
func (s *Source) Rules(context.Context) ([]governance.RuleChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	out := slices.Clone(s.rules)
	slices.SortStableFunc(out, func(a, b governance.RuleChange) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

// Conflicts returns the conflicts, newest first.
func (s *Source) Conflicts(context.Context) ([]governance.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	out := slices.Clone(s.conflicts)
	slices.SortStableFunc(out, func(a, b governance.Conflict) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Metrics returns the fixture metrics with agent counters derived from the
// current agents.
func (s *Source) Metrics(context.Context) (governance.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return governance.Metrics{}, err
	}
	m := s.metrics
	m.TotalAgents, m.ActiveAgents, m.AverageReputation = 0, 0, 0
	return m.Merge(governance.Summarize(s.agents)), nil
}

// CastVote counts a vote on an in-memory proposal.
func (s *Source) CastVote(_ context.Context, proposalID string, vote governance.VoteType) (governance.Proposal, error) {
	if err := source.ValidateVote(proposalID, vote); err != nil {
		return governance.Proposal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return governance.Proposal{}, err
	}
	for i, p := range s.proposals {
		if p.ID == proposalID {
			s.proposals[i] = vote.Apply(p)
			return s.proposals[i], nil
		}
	}
	return governance.Proposal{}, errors.New(errors.ErrCodeProposalNotFound, "proposal %q not found", proposalID)
}

// StartSimulation records a run with a fresh id.
func (s *Source) StartSimulation(_ context.Context, params governance.SimulationParams) (governance.SimulationRun, error) {
	if err := params.Validate(); err != nil {
		return governance.SimulationRun{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return governance.SimulationRun{}, err
	}
	run := governance.SimulationRun{
		ID:        uuid.NewString(),
		Params:    params,
		StartedAt: s.now().UTC(),
	}
	s.runs = append(s.runs, run)
	return run, nil
}

// Runs returns the simulation runs started so far.
func (s *Source) Runs() []governance.SimulationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.runs)
}

// Health reports the in-memory store as always connected.
func (s *Source) Health(context.Context) (source.Health, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return source.Health{}, err
	}
	return source.Health{
		Status:   "ok",
		Message:  "mock source is serving demo data",
		Database: "memory",
		Time:     s.now().UTC(),
	}, nil
}

// CheckTables reports the in-memory collections under the SQL table names.
func (s *Source) CheckTables(context.Context) (map[string]source.TableStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	return map[string]source.TableStatus{
		"transactions":    {Exists: true, Count: int64(len(s.conflicts))},
		"agent_states":    {Exists: true, Count: int64(len(s.agents))},
		"governance_log":  {Exists: true, Count: int64(len(s.proposals) + len(s.rules))},
		"simulation_runs": {Exists: true, Count: int64(len(s.runs))},
	}, nil
}

// Columns is not meaningful for memory-backed data.
func (s *Source) Columns(_ context.Context, table string) ([]source.Column, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "mock source has no columns for %q", table)
}

// Close marks the source closed. Later calls fail.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Inspector = (*Source)(nil)
)

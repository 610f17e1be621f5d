package source

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/govdash/pkg/cache"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/observability"
)

// Cached wraps a Source and remembers the last agent list it returned.
//
// Fetch errors are passed through unchanged. The remembered list is only
// read back through LastGood, so a restarted dashboard can show the network
// before its first successful poll.
type Cached struct {
	Source

	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// NewCached wraps src. A nil cache disables remembering.
func NewCached(src Source, c cache.Cache, keyer cache.Keyer, ttl time.Duration) *Cached {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl <= 0 {
		ttl = cache.SnapshotTTL
	}
	return &Cached{Source: src, cache: c, keyer: keyer, ttl: ttl}
}

type cachedSnapshot struct {
	Agents    []governance.Agent `json:"agents"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Agents fetches from the wrapped source and stores a successful result.
func (c *Cached) Agents(ctx context.Context) ([]governance.Agent, error) {
	agents, err := c.Source.Agents(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(cachedSnapshot{Agents: agents, FetchedAt: time.Now().UTC()})
	if err == nil {
		if err := c.cache.Set(ctx, c.keyer.SnapshotKey(c.Name()), data, c.ttl); err == nil {
			observability.Cache().OnCacheSet(ctx, "snapshot", len(data))
		}
	}
	return agents, nil
}

// LastGood returns the most recently stored agent list as a snapshot.
func (c *Cached) LastGood(ctx context.Context) (*governance.Snapshot, bool) {
	data, ok, err := c.cache.Get(ctx, c.keyer.SnapshotKey(c.Name()))
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, "snapshot")
		return nil, false
	}
	var cs cachedSnapshot
	if err := json.Unmarshal(data, &cs); err != nil {
		observability.Cache().OnCacheMiss(ctx, "snapshot")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "snapshot")
	return governance.NewSnapshot(cs.Agents, cs.FetchedAt), true
}

// Close closes the wrapped source. The cache is owned by the caller.
func (c *Cached) Close() error {
	return c.Source.Close()
}

// Unwrap returns the wrapped source.
func (c *Cached) Unwrap() Source { return c.Source }

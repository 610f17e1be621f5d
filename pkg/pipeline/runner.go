package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/govdash/pkg/cache"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/observability"
)

// Runner renders snapshots with an artifact cache.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    cache.ArtifactTTL,
	}
}

// Execute lays out snap and renders it, consulting the cache first.
func (r *Runner) Execute(ctx context.Context, snap *governance.Snapshot, opts Options) (*Artifact, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = governance.NewSnapshot(nil, time.Time{})
	}
	return r.render(ctx, snap.Version, func() *graph.Scene { return graph.Build(snap.Agents, opts.Layout) }, opts)
}

// RenderScene renders an already laid-out scene of the snapshot with the
// given version. The scene's canvas must match opts.Layout for cached
// artifacts to be interchangeable with Execute's.
func (r *Runner) RenderScene(ctx context.Context, scene *graph.Scene, version string, opts Options) (*Artifact, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return r.render(ctx, version, func() *graph.Scene { return scene }, opts)
}

func (r *Runner) render(ctx context.Context, version string, scene func() *graph.Scene, opts Options) (*Artifact, error) {
	art := &Artifact{
		Format:      opts.Format,
		ContentType: opts.Format.ContentType(),
		Version:     version,
	}

	key := r.Keyer.ArtifactKey(version, opts.ArtifactKeyOpts())
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "artifact")
		art.Data, art.CacheHit = data, true
		return art, nil
	} else if err != nil {
		r.Logger.Debug("artifact cache read failed", "err", err)
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	s := scene()
	start := time.Now()
	observability.Render().OnRenderStart(ctx, string(opts.Format), len(s.Nodes))
	data, err := Render(ctx, s, version, opts)
	observability.Render().OnRenderComplete(ctx, string(opts.Format), len(data), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", opts.Format, err)
	}
	art.Data = data

	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		r.Logger.Debug("artifact cache write failed", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return art, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

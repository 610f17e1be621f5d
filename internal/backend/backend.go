// Package backend turns a configuration into an opened data source and
// cache.
package backend

import (
	"context"
	"os"

	"github.com/matzehuels/govdash/internal/config"
	"github.com/matzehuels/govdash/pkg/cache"
	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/source"
	"github.com/matzehuels/govdash/pkg/source/mock"
	"github.com/matzehuels/govdash/pkg/source/mongo"
	"github.com/matzehuels/govdash/pkg/source/postgres"
	"github.com/matzehuels/govdash/pkg/source/rest"
	"github.com/matzehuels/govdash/pkg/source/supabase"
)

// Backend bundles the opened source with the cache behind it.
type Backend struct {
	Source *source.Cached
	Cache  cache.Cache
	Keyer  cache.Keyer
}

// Open opens the configured cache and source. The returned backend owns
// both and releases them on Close.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	c, err := OpenCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	src, err := OpenSource(ctx, cfg.Source)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	keyer := cache.NewScopedKeyer(nil, cfg.Cache.Prefix+":")
	if cfg.Cache.Prefix == "" {
		keyer = cache.NewDefaultKeyer()
	}
	return &Backend{
		Source: source.NewCached(src, c, keyer, cfg.Cache.SnapshotTTL),
		Cache:  c,
		Keyer:  keyer,
	}, nil
}

// Close closes the source and then the cache.
func (b *Backend) Close() error {
	srcErr := b.Source.Close()
	cacheErr := b.Cache.Close()
	if srcErr != nil {
		return srcErr
	}
	return cacheErr
}

// OpenSource connects to the backend named by cfg.Kind.
func OpenSource(ctx context.Context, cfg config.SourceConfig) (source.Source, error) {
	switch cfg.Kind {
	case config.SourceMock, "":
		if cfg.Fixture == "" {
			return mock.New()
		}
		data, err := os.ReadFile(cfg.Fixture)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read fixture %s", cfg.Fixture)
		}
		return mock.Load(data)
	case config.SourcePostgres:
		return postgres.Open(ctx, cfg.PostgresURL())
	case config.SourceREST:
		return rest.New(cfg.APIURL, rest.Options{Timeout: cfg.Timeout})
	case config.SourceSupabase:
		return supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Timeout)
	case config.SourceMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, errors.New(errors.ErrCodeInvalidSource, "unknown source kind %q", cfg.Kind)
}

// OpenCache opens the configured cache backend. A file cache without a
// directory uses the per-user cache directory.
func OpenCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return cache.NewNullCache(), nil
	case config.CacheFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := cache.DefaultDir()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolve cache dir")
			}
			dir = d
		}
		c, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open file cache")
		}
		return c, nil
	case config.CacheRedis:
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "open redis cache")
		}
		return c, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Backend)
}

// Package cache stores rendered graph artifacts and fetched snapshots.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: shared cache for several dashboard servers
//
// Keys come from a [Keyer] so every backend lays out its keyspace the same
// way. Artifact keys include the snapshot version, which changes whenever
// the agent set does, so stale renders are never served.
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	// ArtifactTTL bounds how long a rendered graph is kept.
	ArtifactTTL = 10 * time.Minute
	// SnapshotTTL bounds how long a fetched agent list is kept as a
	// fallback for a failing source.
	SnapshotTTL = 24 * time.Hour
)

// Cache is a byte-oriented key value store with expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

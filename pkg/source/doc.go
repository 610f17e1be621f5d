// Package source defines the contract between the dashboard and its data
// backends.
//
// A [Source] lists agents, proposals, rule changes, conflicts and metrics,
// and forwards votes and simulation starts. Values come back normalized
// through the governance package, so a backend never has to fill defaults
// itself.
//
// # Backends
//
// Implementations live in subpackages:
//
//   - mock: in-memory demo data seeded from an embedded fixture
//   - postgres: direct SQL against the governance tables
//   - rest: the dashboard's own /api endpoints on another host
//   - supabase: PostgREST tables and RPCs
//   - mongo: collections named like the SQL tables
//
// Sources that can describe their storage also implement [Inspector].
//
// # Caching
//
// [Cached] remembers the last agent list a source returned so a restarted
// dashboard has something to draw before the first poll completes.
package source

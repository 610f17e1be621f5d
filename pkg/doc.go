// Package pkg provides the core libraries of govdash, a live dashboard for an
// agent governance network.
//
// # Overview
//
// govdash polls a governance backend for its agents, proposals, rules and
// conflicts, lays the agents out on a circle, and renders the network as an
// interactive graph. The pkg directory is organized into three areas:
//
//  1. Domain: [governance] records and [source] backends
//  2. Visualization: [graph] layout and hit testing, [render] output formats
//  3. Orchestration: [poll] refresh loop and [pipeline] cached rendering
//
// # Architecture
//
// The typical data flow through govdash:
//
//	Postgres / Supabase / MongoDB / REST / mock
//	         ↓
//	    [source] package (fetch records, normalize)
//	         ↓
//	    [poll] package (single-flight refresh, selection, snapshots)
//	         ↓
//	    [graph] package (circular layout + hit testing)
//	         ↓
//	    [render] package (SVG/PNG/JSON/DOT)
//
// # Quick Start
//
// Fetch agents and render the network:
//
//	import (
//	    "github.com/matzehuels/govdash/pkg/graph"
//	    "github.com/matzehuels/govdash/pkg/render/sink"
//	    "github.com/matzehuels/govdash/pkg/source/mock"
//	)
//
//	src, _ := mock.New()
//	agents, _ := src.Agents(ctx)
//
//	scene := graph.Build(agents, graph.DefaultConfig())
//	svg := sink.RenderSVG(scene, sink.WithTitles())
//
// Find the agent under a pointer:
//
//	if id, ok := scene.HitTest(graph.Point{X: 300, Y: 70}); ok {
//	    fmt.Println("clicked", id)
//	}
//
// # Main Packages
//
// [governance] - Agents, proposals, rules, conflicts, metrics and simulation
// parameters, with the normalization every backend shares.
//
// [source] - The Source interface and its backends. [source.Cached] keeps the
// last good snapshot per kind so a flaky backend degrades to stale data.
//
// [graph] - Deterministic circular layout, scene building and hit testing.
//
// [render] - Status palette and format registry. [render/sink] writes SVG,
// PNG and JSON; [render/nodelink] writes Graphviz DOT.
//
// [poll] - The refresh controller. At most one fetch runs at a time, extra
// ticks are skipped, and subscribers receive every published state.
//
// [pipeline] - Render orchestration with an artifact cache keyed by snapshot
// version and render options.
//
// [cache] - File, Redis and null caches with content-addressed keys.
//
// [errors] - Coded errors shared by the CLI and the HTTP API.
//
// [httputil] - Retrying HTTP client used by the REST and Supabase sources.
//
// [observability] - Structured logging hooks around fetches and renders.
//
// [governance]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/governance
// [source]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/source
// [source.Cached]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/source#Cached
// [graph]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/graph
// [render]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/render
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/render/sink
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/render/nodelink
// [poll]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/poll
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/govdash/pkg/observability
package pkg

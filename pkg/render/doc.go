// Package render holds the visual vocabulary of the network graph and the
// output formats it can be rendered to.
//
// # Overview
//
// Rendering is a pure function of a [graph.Scene] and the current
// selection. The scene fixes the draw order; renderers only decide how a
// node or edge looks:
//
//   - Edges: 1.5px lines in [EdgeColor]
//   - Nodes: radial gradient keyed by status (see [NodeGradient])
//   - Every node: 2px white outline
//   - Selected node: 3px ring in [SelectionColor], 4px outside the node
//
// # Output Formats
//
// The [sink] subpackage writes SVG, PNG and JSON; [nodelink] emits Graphviz
// DOT with pinned positions and renders it through go-graphviz.
//
//	scene := graph.Build(agents, graph.DefaultConfig())
//	svg := sink.RenderSVG(scene, sink.WithSelection("a"))
//	png, err := sink.RenderPNG(scene, sink.WithPNGScale(2))
//
// [sink]: github.com/matzehuels/govdash/pkg/render/sink
// [nodelink]: github.com/matzehuels/govdash/pkg/render/nodelink
// [graph.Scene]: github.com/matzehuels/govdash/pkg/graph.Scene
package render

// Package sink writes a network graph scene to its output formats.
//
// # Overview
//
// Every renderer takes a [graph.Scene] and draws it in the scene's own
// order: all edges, then the nodes in [graph.Scene.Nodes] order, so that
// the node [graph.Scene.HitTest] reports for an overlap is the one drawn on
// top.
//
//   - [RenderSVG]: standalone SVG with one radial gradient per status
//   - [RenderPNG]: raster image drawn in-process with fogleman/gg
//   - [RenderJSON]: resolved geometry and fills for external front ends
//
// # Selection
//
// Each renderer accepts the id of the selected agent. The selection ring is
// drawn only when the id is part of the scene; a stale id renders nothing.
//
// [graph.Scene]: github.com/matzehuels/govdash/pkg/graph.Scene
// [graph.Scene.Nodes]: github.com/matzehuels/govdash/pkg/graph.Scene
// [graph.Scene.HitTest]: github.com/matzehuels/govdash/pkg/graph.Scene.HitTest
package sink

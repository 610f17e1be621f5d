// Package nodelink exports the network graph as Graphviz DOT.
//
// # Overview
//
// [ToDOT] writes an undirected graph whose nodes are pinned (pos="x,y!") to
// the circular layout computed by the graph package, so Graphviz draws the
// same picture as the native renderers instead of laying it out again.
// Fills use Graphviz radial gradients with the same color pairs.
//
//	dot := nodelink.ToDOT(scene, nodelink.Options{Selected: "a"})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process
// rendering with the neato engine.
package nodelink

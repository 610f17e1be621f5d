// Package graph lays out the governance network and maps pointer
// coordinates back to agents.
//
// # Layout
//
// Agents are placed on a circle in snapshot order, starting at 12 o'clock
// and proceeding clockwise:
//
//	θ_i = (i/N)·2π − π/2
//	pos = (C.x + R·cos θ_i, C.y + R·sin θ_i)
//
// The result depends only on the ordered ids and the [Config], so repeated
// layouts of an unchanged snapshot are bit-identical and the graph does not
// jitter between polls.
//
// # Draw Order
//
// A [Scene] carries the single ordering shared by every renderer and by
// [Scene.HitTest]: edges first, then nodes in [Scene.Nodes] order. Hit
// testing walks Nodes backwards so the node drawn last wins an overlap.
// Renderers must draw Nodes front to back in slice order for that to hold.
//
// # Dangling Connections
//
// Connections are weak references. Targets that are not in the snapshot
// produce no edge and no error.
//
// # Concurrency
//
// A Scene is immutable after [Build] and safe for concurrent readers.
package graph

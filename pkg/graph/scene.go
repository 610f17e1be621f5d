package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/govdash/pkg/governance"
)

// Node is an agent placed on the canvas.
type Node struct {
	Agent  governance.Agent `json:"agent"`
	Pos    Point            `json:"pos"`
	Radius float64          `json:"radius"`
}

// Contains reports whether p lies on or inside the node's circle.
func (n Node) Contains(p Point) bool {
	dx, dy := p.X-n.Pos.X, p.Y-n.Pos.Y
	return dx*dx+dy*dy <= n.Radius*n.Radius
}

// Edge is a drawn connection between two placed agents.
type Edge struct {
	From    string `json:"from"`
	To      string `json:"to"`
	FromPos Point  `json:"from_pos"`
	ToPos   Point  `json:"to_pos"`
}

// Scene is everything a renderer needs for one frame: the canvas, the
// resolved edges and the nodes in draw order.
type Scene struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Edges  []Edge  `json:"edges"`
	Nodes  []Node  `json:"nodes"`
}

// Build lays out agents and resolves their connections. Edges are emitted
// for every agent and every connection whose target has a position, in
// agent then connection order; unresolvable targets are skipped.
func Build(agents []governance.Agent, cfg Config) *Scene {
	cfg = cfg.Normalize()
	pos := Layout(agents, cfg)

	s := &Scene{
		Width:  cfg.Width,
		Height: cfg.Height,
		Edges:  []Edge{},
		Nodes:  make([]Node, 0, len(pos)),
	}
	placed := make(map[string]bool, len(pos))
	for _, a := range agents {
		if placed[a.ID] {
			continue
		}
		placed[a.ID] = true
		s.Nodes = append(s.Nodes, Node{Agent: a, Pos: pos[a.ID], Radius: NodeRadius(a.Reputation)})
	}
	for _, n := range s.Nodes {
		for _, target := range n.Agent.Connections {
			to, ok := pos[target]
			if !ok {
				continue
			}
			s.Edges = append(s.Edges, Edge{From: n.Agent.ID, To: target, FromPos: n.Pos, ToPos: to})
		}
	}
	return s
}

// Positions returns the id to coordinate mapping of the scene.
func (s *Scene) Positions() Positions {
	pos := make(Positions, len(s.Nodes))
	for _, n := range s.Nodes {
		pos[n.Agent.ID] = n.Pos
	}
	return pos
}

// Node looks up a placed node by agent id.
func (s *Scene) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.Agent.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HitTest returns the id of the topmost node containing p. Nodes are
// visited in reverse draw order, so of two overlapping nodes the one drawn
// later wins. ok is false when p misses every node.
func (s *Scene) HitTest(p Point) (id string, ok bool) {
	if s == nil {
		return "", false
	}
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if s.Nodes[i].Contains(p) {
			return s.Nodes[i].Agent.ID, true
		}
	}
	return "", false
}

// =============================================================================
// Serialization
// =============================================================================

// MarshalScene serializes a Scene to pretty-printed JSON bytes.
func MarshalScene(s *Scene) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// WriteScene writes a Scene as JSON to w.
func WriteScene(s *Scene, w io.Writer) error {
	data, err := MarshalScene(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadScene decodes a Scene previously written by [WriteScene].
func ReadScene(r io.Reader) (*Scene, error) {
	var s Scene
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	if s.Edges == nil {
		s.Edges = []Edge{}
	}
	return &s, nil
}

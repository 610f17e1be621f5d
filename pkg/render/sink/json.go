package sink

import (
	"encoding/json"

	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/render"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	selected string
	version  string
}

// WithJSONSelection marks the agent with the given id as selected.
func WithJSONSelection(id string) JSONOption { return func(r *jsonRenderer) { r.selected = id } }

// WithJSONVersion records the snapshot version the scene was built from.
func WithJSONVersion(v string) JSONOption { return func(r *jsonRenderer) { r.version = v } }

type jsonOutput struct {
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Version  string     `json:"version,omitempty"`
	Selected string     `json:"selected,omitempty"`
	Edges    []jsonEdge `json:"edges"`
	Nodes    []jsonNode `json:"nodes"`
}

type jsonEdge struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
}

type jsonNode struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Role        string            `json:"role"`
	Status      governance.Status `json:"status"`
	Reputation  float64           `json:"reputation"`
	VotingPower float64           `json:"voting_power"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
	Radius      float64           `json:"radius"`
	Fill        [2]string         `json:"fill"`
	Selected    bool              `json:"selected,omitempty"`
}

// RenderJSON exports the scene geometry with resolved fills. Nodes are
// listed in draw order.
func RenderJSON(s *graph.Scene, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Width:   s.Width,
		Height:  s.Height,
		Version: r.version,
		Edges:   make([]jsonEdge, 0, len(s.Edges)),
		Nodes:   make([]jsonNode, 0, len(s.Nodes)),
	}
	for _, e := range s.Edges {
		out.Edges = append(out.Edges, jsonEdge{
			From: e.From, To: e.To,
			X1: e.FromPos.X, Y1: e.FromPos.Y,
			X2: e.ToPos.X, Y2: e.ToPos.Y,
		})
	}
	for _, n := range s.Nodes {
		fill := render.NodeGradient(n.Agent.Status)
		selected := n.Agent.ID == r.selected
		if selected {
			out.Selected = r.selected
		}
		out.Nodes = append(out.Nodes, jsonNode{
			ID:          n.Agent.ID,
			Name:        n.Agent.Name,
			Role:        n.Agent.Role,
			Status:      n.Agent.Status,
			Reputation:  n.Agent.Reputation,
			VotingPower: n.Agent.VotingPower,
			X:           n.Pos.X,
			Y:           n.Pos.Y,
			Radius:      n.Radius,
			Fill:        [2]string{fill.Inner, fill.Outer},
			Selected:    selected,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

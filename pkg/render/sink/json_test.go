package sink

import (
	"encoding/json"
	"testing"
)

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(testScene(), WithJSONSelection("b"), WithJSONVersion("v1"))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Version != "v1" || out.Selected != "b" {
		t.Errorf("Version, Selected = %q, %q", out.Version, out.Selected)
	}
	if len(out.Nodes) != 3 || out.Nodes[0].ID != "a" || out.Nodes[2].ID != "c" {
		t.Fatalf("nodes = %+v", out.Nodes)
	}
	if out.Nodes[0].Fill != [2]string{"#10b981", "#059669"} {
		t.Errorf("fill = %v", out.Nodes[0].Fill)
	}
	if !out.Nodes[1].Selected || out.Nodes[0].Selected {
		t.Error("selection flag on wrong node")
	}
	if len(out.Edges) != 1 || out.Edges[0].To != "b" {
		t.Errorf("edges = %+v", out.Edges)
	}
}

func TestRenderJSONStaleSelection(t *testing.T) {
	data, err := RenderJSON(testScene(), WithJSONSelection("gone"))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Selected != "" {
		t.Errorf("Selected = %q, want empty", out.Selected)
	}
}

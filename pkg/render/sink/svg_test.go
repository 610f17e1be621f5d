package sink

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
)

func testScene() *graph.Scene {
	return graph.Build([]governance.Agent{
		{ID: "a", Name: "Alice", Status: governance.StatusActive, Reputation: 100, Connections: []string{"b", "ghost"}},
		{ID: "b", Name: "Bob & Co", Status: governance.StatusSuspended, Connections: []string{}},
		{ID: "c", Status: governance.StatusUnknown},
	}, graph.DefaultConfig())
}

func TestRenderSVGWellFormed(t *testing.T) {
	svg := RenderSVG(testScene(), WithTitles(), WithSelection("a"), WithBackground("#f8fafc"))
	dec := xml.NewDecoder(strings.NewReader(string(svg)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("invalid XML: %v\n%s", err, svg)
		}
	}
}

func TestRenderSVGDrawsEdgesThenNodesInOrder(t *testing.T) {
	svg := string(RenderSVG(testScene()))

	if got := strings.Count(svg, "<line "); got != 1 {
		t.Errorf("lines = %d, want 1 (dangling connection skipped)", got)
	}
	if strings.Contains(svg, "ghost") {
		t.Error("dangling id rendered")
	}
	lastEdge := strings.LastIndex(svg, "<line ")
	firstNode := strings.Index(svg, `class="node"`)
	if lastEdge > firstNode {
		t.Error("edge drawn after a node")
	}
	ia := strings.Index(svg, `id="node-a"`)
	ib := strings.Index(svg, `id="node-b"`)
	ic := strings.Index(svg, `id="node-c"`)
	if !(ia < ib && ib < ic) {
		t.Errorf("node order a=%d b=%d c=%d, want increasing", ia, ib, ic)
	}
}

func TestRenderSVGFills(t *testing.T) {
	svg := string(RenderSVG(testScene()))
	for _, want := range []string{
		`<stop offset="0" stop-color="#10b981"/><stop offset="1" stop-color="#059669"/>`,
		`<stop offset="0" stop-color="#94a3b8"/><stop offset="1" stop-color="#64748b"/>`,
		`<stop offset="0" stop-color="#ef4444"/><stop offset="1" stop-color="#dc2626"/>`,
		`r="16.00" fill="url(#node-fill-active)"`,
		`r="8.00" fill="url(#node-fill-alert)"`,
		`stroke="#ffffff" stroke-width="2"`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %s", want)
		}
	}
	if got := strings.Count(svg, `fill="url(#node-fill-alert)"`); got != 2 {
		t.Errorf("alert fills = %d, want 2 (suspended and unknown)", got)
	}
}

func TestRenderSVGSelection(t *testing.T) {
	plain := string(RenderSVG(testScene()))
	if strings.Contains(plain, `class="selection"`) {
		t.Error("selection ring without selection")
	}

	selected := string(RenderSVG(testScene(), WithSelection("a")))
	if got := strings.Count(selected, `class="selection"`); got != 1 {
		t.Fatalf("selection rings = %d, want 1", got)
	}
	if !strings.Contains(selected, `r="20.00" fill="none" stroke="#3b82f6" stroke-width="3"`) {
		t.Error("selection ring not 4px outside a 16px node")
	}

	stale := string(RenderSVG(testScene(), WithSelection("gone")))
	if strings.Contains(stale, `class="selection"`) {
		t.Error("selection ring drawn for id absent from scene")
	}
}

func TestRenderSVGEscapes(t *testing.T) {
	svg := string(RenderSVG(testScene(), WithTitles()))
	if !strings.Contains(svg, "Bob &amp; Co") {
		t.Error("name not escaped")
	}
}

package sink

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/render"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	selected   string
	scale      float64
	background string
}

// WithPNGSelection highlights the agent with the given id.
func WithPNGSelection(id string) PNGOption {
	return func(r *pngRenderer) { r.selected = id }
}

// WithPNGScale sets the resolution multiplier (default 1).
func WithPNGScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// WithPNGBackground fills the canvas before drawing. The default is
// transparent.
func WithPNGBackground(hex string) PNGOption {
	return func(r *pngRenderer) { r.background = hex }
}

// RenderPNG rasterizes the scene.
func RenderPNG(s *graph.Scene, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 1}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 || math.IsNaN(r.scale) || math.IsInf(r.scale, 0) {
		return nil, fmt.Errorf("invalid png scale %v", r.scale)
	}
	px := func(v float64) float64 { return v * r.scale }

	dc := gg.NewContext(int(math.Ceil(px(s.Width))), int(math.Ceil(px(s.Height))))
	if r.background != "" {
		bg, err := render.ParseHex(r.background)
		if err != nil {
			return nil, err
		}
		dc.SetColor(bg)
		dc.Clear()
	}

	dc.SetColor(render.MustParseHex(render.EdgeColor))
	dc.SetLineWidth(px(render.EdgeWidth))
	for _, e := range s.Edges {
		dc.DrawLine(px(e.FromPos.X), px(e.FromPos.Y), px(e.ToPos.X), px(e.ToPos.Y))
		dc.Stroke()
	}

	for _, n := range s.Nodes {
		x, y, rad := px(n.Pos.X), px(n.Pos.Y), px(n.Radius)

		fill := render.NodeGradient(n.Agent.Status)
		grad := gg.NewRadialGradient(x, y, 0, x, y, rad)
		grad.AddColorStop(0, render.MustParseHex(fill.Inner))
		grad.AddColorStop(1, render.MustParseHex(fill.Outer))
		dc.SetFillStyle(grad)
		dc.DrawCircle(x, y, rad)
		dc.Fill()

		if n.Agent.ID == r.selected {
			dc.SetColor(render.MustParseHex(render.SelectionColor))
			dc.SetLineWidth(px(render.SelectionWidth))
			dc.DrawCircle(x, y, rad+px(render.SelectionGap))
			dc.Stroke()
		}

		dc.SetColor(render.MustParseHex(render.NodeStroke))
		dc.SetLineWidth(px(render.NodeStrokeWidth))
		dc.DrawCircle(x, y, rad)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

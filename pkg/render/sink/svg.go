package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/render"
)

const nodeInteractionCSS = `
    .node { cursor: pointer; }
    .node:hover .outline { stroke-width: 3; }`

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	selected   string
	titles     bool
	background string
}

func WithSelection(id string) SVGOption { return func(r *svgRenderer) { r.selected = id } }
func WithTitles() SVGOption             { return func(r *svgRenderer) { r.titles = true } }
func WithBackground(hex string) SVGOption {
	return func(r *svgRenderer) { r.background = hex }
}

// RenderSVG draws the scene as a standalone SVG document.
func RenderSVG(s *graph.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		s.Width, s.Height, s.Width, s.Height)

	renderDefs(&buf)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", nodeInteractionCSS)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", escapeXML(r.background))
	}

	buf.WriteString("  <g class=\"edges\">\n")
	for _, e := range s.Edges {
		fmt.Fprintf(&buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.1f" data-from="%s" data-to="%s"/>`+"\n",
			e.FromPos.X, e.FromPos.Y, e.ToPos.X, e.ToPos.Y,
			render.EdgeColor, render.EdgeWidth, escapeXML(e.From), escapeXML(e.To))
	}
	buf.WriteString("  </g>\n")

	buf.WriteString("  <g class=\"nodes\">\n")
	for _, n := range s.Nodes {
		renderNode(&buf, n, n.Agent.ID == r.selected, r.titles)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	for _, g := range render.Gradients() {
		fmt.Fprintf(buf, `    <radialGradient id="%s">`, gradientID(g))
		fmt.Fprintf(buf, `<stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s"/>`, g.Inner, g.Outer)
		buf.WriteString("</radialGradient>\n")
	}
	buf.WriteString("  </defs>\n")
}

func renderNode(buf *bytes.Buffer, n graph.Node, selected, title bool) {
	id := escapeXML(n.Agent.ID)
	fmt.Fprintf(buf, `    <g class="node" id="node-%s" data-id="%s" data-status="%s">`+"\n", id, id, n.Agent.Status)
	if title {
		fmt.Fprintf(buf, "      <title>%s (%s)</title>\n", escapeXML(n.Agent.Name), escapeXML(n.Agent.Role))
	}
	fmt.Fprintf(buf, `      <circle cx="%.2f" cy="%.2f" r="%.2f" fill="url(#%s)"/>`+"\n",
		n.Pos.X, n.Pos.Y, n.Radius, gradientID(render.NodeGradient(n.Agent.Status)))
	if selected {
		fmt.Fprintf(buf, `      <circle class="selection" cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="%.0f"/>`+"\n",
			n.Pos.X, n.Pos.Y, n.Radius+render.SelectionGap, render.SelectionColor, render.SelectionWidth)
	}
	fmt.Fprintf(buf, `      <circle class="outline" cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="%.0f"/>`+"\n",
		n.Pos.X, n.Pos.Y, n.Radius, render.NodeStroke, render.NodeStrokeWidth)
	buf.WriteString("    </g>\n")
}

func gradientID(g render.Gradient) string { return "node-fill-" + g.Name }

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/render"
)

// pointsPerInch converts canvas pixels to Graphviz inches.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Selected is the id of the highlighted agent, if any.
	Selected string
	// Labels shows agent names next to the nodes.
	Labels bool
}

// ToDOT converts a scene to Graphviz DOT with every node pinned to its
// layout position. Graphviz puts the origin bottom-left, so y is flipped
// against the scene height.
func ToDOT(s *graph.Scene, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph agents {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  bb=\"0,0,%.2f,%.2f\";\n", s.Width, s.Height)
	buf.WriteString("  node [shape=circle, fixedsize=true, style=\"radial\", fontsize=10];\n")
	fmt.Fprintf(&buf, "  edge [color=%q, penwidth=%.1f];\n", render.EdgeColor, render.EdgeWidth)
	buf.WriteString("\n")

	for _, n := range s.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Agent.ID, fmtAttrs(n, s.Height, opts))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		fmt.Fprintf(&buf, "  %q -- %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n graph.Node, height float64, opts Options) string {
	fill := render.NodeGradient(n.Agent.Status)
	diameter := 2 * n.Radius / pointsPerInch
	pen, width := render.NodeStroke, render.NodeStrokeWidth
	if opts.Selected != "" && n.Agent.ID == opts.Selected {
		pen, width = render.SelectionColor, render.SelectionWidth
	}
	label := ""
	if opts.Labels {
		label = n.Agent.Name
	}
	return fmt.Sprintf("pos=\"%.4f,%.4f!\", width=%.4f, height=%.4f, fillcolor=\"%s:%s\", color=%q, penwidth=%.1f, label=%q, xlabel=%q",
		n.Pos.X/pointsPerInch, (height-n.Pos.Y)/pointsPerInch,
		diameter, diameter,
		fill.Inner, fill.Outer,
		pen, width,
		"", label)
}

// RenderSVG renders DOT produced by [ToDOT] to SVG using the neato engine,
// which honours the pinned positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

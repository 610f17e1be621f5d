package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/render"
	"github.com/matzehuels/govdash/pkg/render/nodelink"
	"github.com/matzehuels/govdash/pkg/render/sink"
)

// Render draws scene in the requested format. version is recorded in JSON
// output. opts must have passed ValidateAndSetDefaults.
func Render(ctx context.Context, scene *graph.Scene, version string, opts Options) ([]byte, error) {
	switch opts.Format {
	case render.FormatSVG:
		if opts.Graphviz {
			return nodelink.RenderSVG(ctx, toDOT(scene, opts))
		}
		return sink.RenderSVG(scene, buildSVGOptions(opts)...), nil
	case render.FormatPNG:
		return sink.RenderPNG(scene, buildPNGOptions(opts)...)
	case render.FormatJSON:
		return sink.RenderJSON(scene,
			sink.WithJSONSelection(opts.Selected),
			sink.WithJSONVersion(version))
	case render.FormatDOT:
		return []byte(toDOT(scene, opts)), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", opts.Format)
}

func toDOT(scene *graph.Scene, opts Options) string {
	return nodelink.ToDOT(scene, nodelink.Options{Selected: opts.Selected, Labels: opts.Titles})
}

func buildSVGOptions(opts Options) []sink.SVGOption {
	var out []sink.SVGOption
	if opts.Selected != "" {
		out = append(out, sink.WithSelection(opts.Selected))
	}
	if opts.Titles {
		out = append(out, sink.WithTitles())
	}
	if opts.Background != "" {
		out = append(out, sink.WithBackground(opts.Background))
	}
	return out
}

func buildPNGOptions(opts Options) []sink.PNGOption {
	out := []sink.PNGOption{sink.WithPNGScale(opts.Scale)}
	if opts.Selected != "" {
		out = append(out, sink.WithPNGSelection(opts.Selected))
	}
	if opts.Background != "" {
		out = append(out, sink.WithPNGBackground(opts.Background))
	}
	return out
}

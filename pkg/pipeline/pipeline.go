// Package pipeline turns agent snapshots into rendered artifacts.
//
// This package implements the layout → render path shared by the CLI and
// the HTTP server, so both produce identical output for identical input.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Layout: place the snapshot on the canvas ([graph.Build])
//  2. Render: draw the scene as SVG, PNG, JSON or DOT
//
// A [Runner] adds an artifact cache in front of the render stage. Keys are
// derived from the snapshot version and the render options, so a poll that
// returns unchanged data is served from the cache.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	art, err := runner.Execute(ctx, snapshot, pipeline.Options{
//	    Format:   render.FormatSVG,
//	    Selected: "agent-7",
//	})
//	if err != nil {
//	    return err
//	}
//	w.Write(art.Data)
package pipeline

import (
	"github.com/matzehuels/govdash/pkg/cache"
	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/render"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultFormat is used when Options.Format is empty.
	DefaultFormat = render.FormatSVG

	// MaxScale caps the PNG resolution multiplier.
	MaxScale = 8.0
)

// =============================================================================
// Options
// =============================================================================

// Options configures one render. The zero value renders SVG on the default
// canvas.
type Options struct {
	Format render.Format `json:"format"`
	Layout graph.Config  `json:"layout"`

	// Selected highlights an agent. Unknown ids draw no highlight.
	Selected string `json:"selected,omitempty"`

	// Scale is the PNG resolution multiplier.
	Scale float64 `json:"scale,omitempty"`
	// Background fills the canvas (SVG and PNG). Empty is transparent.
	Background string `json:"background,omitempty"`
	// Titles adds hover titles to SVG nodes and labels to DOT nodes.
	Titles bool `json:"titles,omitempty"`
	// Graphviz renders SVG through Graphviz instead of the native writer.
	Graphviz bool `json:"graphviz,omitempty"`
}

// ValidateAndSetDefaults checks the options and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	f, err := render.ParseFormat(string(o.Format))
	if err != nil {
		return err
	}
	o.Format = f
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Scale < 0 || o.Scale > MaxScale {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be in (0, %g], got %g", MaxScale, o.Scale)
	}
	if o.Background != "" {
		if _, err := render.ParseHex(o.Background); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "background")
		}
	}
	o.Layout = o.Layout.Normalize()
	return nil
}

// ArtifactKeyOpts returns the cache key inputs of these options.
func (o Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Format:   string(o.Format),
		Selected: o.Selected,
		Width:    o.Layout.Width,
		Height:   o.Layout.Height,
		Radius:   o.Layout.Radius,
		Scale:    o.Scale,
	}
	if o.Layout.Center != nil {
		k.CenterX, k.CenterY = o.Layout.Center.X, o.Layout.Center.Y
	}
	if o.Graphviz {
		k.Format += "+graphviz"
	}
	if o.Titles {
		k.Format += "+titles"
	}
	if o.Background != "" {
		k.Format += "+bg" + o.Background
	}
	return k
}

// Artifact is a rendered scene.
type Artifact struct {
	Format      render.Format
	ContentType string
	Version     string
	Data        []byte
	CacheHit    bool
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/govdash/internal/config"
	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/pipeline"
	"github.com/matzehuels/govdash/pkg/render"
)

// defaultOutputBase names output files when neither -o nor --from is given.
const defaultOutputBase = "agents"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string   // output file (single format) or base path (multiple)
	formats    []string // svg, png, json, dot
	from       string   // agents or snapshot JSON file instead of the source
	selected   string   // agent to highlight
	scale      float64  // png resolution multiplier
	background string   // canvas fill
	titles     bool     // node titles (svg) and labels (dot)
	graphviz   bool     // svg through graphviz
	width      float64  // canvas width
	height     float64  // canvas height
	radius     float64  // layout circle radius
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the agent network to SVG, PNG, JSON or DOT",
		Long: `Render fetches the agents from the configured source, lays them out on a
circle and writes the network graph. Use --from to render a saved agent
list or snapshot instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format, - for stdout) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, json, dot (comma-separated)")
	cmd.Flags().StringVar(&opts.from, "from", "", "render agents from a JSON file instead of the source")
	cmd.Flags().StringVarP(&opts.selected, "selected", "s", "", "highlight the agent with this id")
	cmd.Flags().Float64Var(&opts.scale, "scale", 1, "png resolution multiplier")
	cmd.Flags().StringVar(&opts.background, "bg", "", "background color as #rrggbb (default transparent)")
	cmd.Flags().BoolVar(&opts.titles, "titles", false, "add agent titles")
	cmd.Flags().BoolVar(&opts.graphviz, "graphviz", false, "render svg through graphviz")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "canvas width (default from config)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "canvas height (default from config)")
	cmd.Flags().Float64Var(&opts.radius, "radius", 0, "layout radius (default from config)")

	return cmd
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{string(pipeline.DefaultFormat)}
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// validateFormats checks that all requested formats are known.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if _, err := render.ParseFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// basePath derives the base output path. A known format extension on
// output is stripped so multiple formats land next to each other.
func basePath(output, input string) string {
	if output == "" {
		if input == "" {
			return defaultOutputBase
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(ext); err == nil && ext != "" {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// layoutFor applies the canvas flags over the configured layout.
func (o *renderOpts) layoutFor(cfg graph.Config) graph.Config {
	if o.width > 0 || o.height > 0 {
		// A resized canvas is recentered.
		cfg.Center = nil
	}
	if o.width > 0 {
		cfg.Width = o.width
	}
	if o.height > 0 {
		cfg.Height = o.height
	}
	if o.radius > 0 {
		cfg.Radius = o.radius
	}
	return cfg.Normalize()
}

func (o *renderOpts) pipelineOptions(format string, layout graph.Config) pipeline.Options {
	return pipeline.Options{
		Format:     render.Format(format),
		Layout:     layout,
		Selected:   o.selected,
		Scale:      o.scale,
		Background: o.background,
		Titles:     o.titles,
		Graphviz:   o.graphviz,
	}
}

// runRender loads the agents and renders every requested format.
func (c *CLI) runRender(ctx context.Context, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	sw := startStopwatch(logger, "render")

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	snap, runner, closeFn, err := c.renderInput(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	layout := opts.layoutFor(cfg.Layout)
	if opts.selected != "" && !snap.Has(opts.selected) {
		logger.Warn("selected agent not in snapshot", "id", opts.selected)
	}

	base := basePath(opts.output, opts.from)
	quiet := opts.output == "-"
	cached := true
	for _, format := range opts.formats {
		art, err := runner.Execute(ctx, snap, opts.pipelineOptions(format, layout))
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		path := opts.output
		if (len(opts.formats) > 1 && !quiet) || path == "" {
			path = base + art.Format.Ext()
		}
		if err := writeOutput(path, art.Data, c.out); err != nil {
			return err
		}
		cached = cached && art.CacheHit
		logger.Debug("wrote artifact", "format", art.Format, "bytes", len(art.Data), "cached", art.CacheHit)
		if !quiet {
			c.ui.file(path)
		}
	}
	if !quiet {
		scene := graph.Build(snap.Agents, layout)
		c.ui.stats(len(scene.Nodes), len(scene.Edges), cached)
	}
	sw.done("rendered network", "agents", snap.Len(), "formats", len(opts.formats))
	return nil
}

// renderInput returns the snapshot to render and a runner for it. Renders
// of --from files bypass the backend and its cache.
func (c *CLI) renderInput(ctx context.Context, cfg config.Config, opts *renderOpts) (*governance.Snapshot, *pipeline.Runner, func(), error) {
	if opts.from != "" {
		snap, err := readSnapshot(opts.from)
		if err != nil {
			return nil, nil, nil, err
		}
		return snap, pipeline.NewRunner(nil, nil, c.Logger), func() {}, nil
	}

	_, b, err := c.openBackend(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.Poll.Timeout)
	defer cancel()
	agents, err := b.Source.Agents(fetchCtx)
	if err != nil {
		_ = b.Close()
		return nil, nil, nil, err
	}
	return governance.NewSnapshot(agents, time.Now()), c.newRunner(cfg, b), func() { _ = b.Close() }, nil
}

// readSnapshot reads agents from a JSON file holding either an agent list
// or a snapshot object with an "agents" field.
func readSnapshot(path string) (*governance.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var agents []governance.Agent
	if err := json.Unmarshal(data, &agents); err != nil {
		var wrapped struct {
			Agents    []governance.Agent `json:"agents"`
			FetchedAt time.Time          `json:"fetched_at"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
		}
		return governance.NewSnapshot(wrapped.Agents, wrapped.FetchedAt), nil
	}
	return governance.NewSnapshot(agents, time.Time{}), nil
}

// writeOutput writes data to path, or to stdout for "-".
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

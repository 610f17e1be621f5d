package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/source"
)

// =============================================================================
// hit
// =============================================================================

// hitCommand creates the hit command.
func (c *CLI) hitCommand() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "hit X Y",
		Short: "Print the agent under a canvas point",
		Long: `Hit lays out the current agents and prints the id of the agent drawn at
(X, Y). Nodes drawn later win where circles overlap. It exits with an error
when the point is empty.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePoint(args[0], args[1])
			if err != nil {
				return err
			}
			return c.runHit(cmd.Context(), from, p)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "use agents from a JSON file instead of the source")
	return cmd
}

func parsePoint(xs, ys string) (graph.Point, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return graph.Point{}, errors.New(errors.ErrCodeInvalidInput, "invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return graph.Point{}, errors.New(errors.ErrCodeInvalidInput, "invalid y %q", ys)
	}
	return graph.Point{X: x, Y: y}, nil
}

func (c *CLI) runHit(ctx context.Context, from string, p graph.Point) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	snap, _, closeFn, err := c.renderInput(ctx, cfg, &renderOpts{from: from})
	if err != nil {
		return err
	}
	defer closeFn()

	scene := graph.Build(snap.Agents, cfg.Layout)
	id, ok := scene.HitTest(p)
	if !ok {
		return errors.New(errors.ErrCodeAgentNotFound, "no agent at (%g, %g)", p.X, p.Y)
	}
	node, _ := scene.Node(id)
	fmt.Fprintln(c.out, id)
	c.ui.detail("%s at (%.1f, %.1f), radius %.1f", node.Agent.Name, node.Pos.X, node.Pos.Y, node.Radius)
	return nil
}

// =============================================================================
// list
// =============================================================================

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:               "list KIND",
		Short:             "Print agents, proposals, rules, conflicts or metrics",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := source.ParseKind(args[0])
			if err != nil {
				return err
			}
			return c.runList(cmd.Context(), kind, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output encoding: json or yaml")
	return cmd
}

func (c *CLI) runList(ctx context.Context, kind source.Kind, output string) error {
	if output != "json" && output != "yaml" {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown output %q (want json or yaml)", output)
	}
	_, b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	v, err := source.ListEntities(ctx, b.Source, kind)
	if err != nil {
		return err
	}
	return c.encode(v, output)
}

// encode writes v to the command output as indented JSON or YAML.
func (c *CLI) encode(v any, output string) error {
	if output == "yaml" {
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

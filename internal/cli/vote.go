package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/source"
)

// voteCommand creates the vote command.
func (c *CLI) voteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "vote PROPOSAL for|against|abstain",
		Short:             "Cast a vote on a proposal",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: c.completeVote,
		RunE: func(cmd *cobra.Command, args []string) error {
			vote, ok := governance.ParseVoteType(args[1])
			if !ok {
				return errors.New(errors.ErrCodeInvalidVote, "unknown vote type %q (want for, against or abstain)", args[1])
			}
			if err := source.ValidateVote(args[0], vote); err != nil {
				return err
			}
			return c.runVote(cmd.Context(), args[0], vote)
		},
	}
}

func (c *CLI) runVote(ctx context.Context, proposalID string, vote governance.VoteType) error {
	_, b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	spin := c.ui.spin(ctx, "Casting vote...")
	p, err := b.Source.CastVote(ctx, proposalID, vote)
	if err != nil {
		spin.failed("Vote failed")
		return err
	}
	spin.done("Voted %s on %s", vote, proposalID)

	forPct, againstPct, abstainPct := p.Percentages()
	c.ui.keyValue("Proposal", p.Title)
	c.ui.keyValue("For", fmt.Sprintf("%s (%.1f%%)", governance.FormatNumber(p.VotesFor), forPct))
	c.ui.keyValue("Against", fmt.Sprintf("%s (%.1f%%)", governance.FormatNumber(p.VotesAgainst), againstPct))
	c.ui.keyValue("Abstain", fmt.Sprintf("%s (%.1f%%)", governance.FormatNumber(p.VotesAbstain), abstainPct))
	return nil
}

// simulateCommand creates the simulate command.
func (c *CLI) simulateCommand() *cobra.Command {
	var (
		scenario string
		list     bool
	)
	params := governance.DefaultSimulationParams()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Start a simulation run",
		Long: `Simulate records a simulation run with the given parameters. A --scenario
preset replaces the defaults; flags given explicitly override the preset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				c.printScenarios()
				return nil
			}
			p, err := simulationParams(cmd, scenario, params)
			if err != nil {
				return err
			}
			return c.runSimulate(cmd.Context(), p)
		},
	}

	f := cmd.Flags()
	f.StringVar(&scenario, "scenario", "", "start from a preset (see --list)")
	f.BoolVar(&list, "list", false, "list the scenario presets")
	f.Float64Var(&params.Speed, "speed", params.Speed, "simulation speed multiplier")
	f.IntVar(&params.AgentCount, "agents", params.AgentCount, "number of agents")
	f.IntVar(&params.TransactionRate, "tx-rate", params.TransactionRate, "transactions per second")
	f.IntVar(&params.ProposalFrequency, "proposal-frequency", params.ProposalFrequency, "proposals per hour")
	f.IntVar(&params.ConflictProbability, "conflict-probability", params.ConflictProbability, "conflict probability in percent")
	_ = cmd.RegisterFlagCompletionFunc("scenario", completeScenarios)
	return cmd
}

// simulationParams resolves the preset and applies explicitly set flags
// over it.
func simulationParams(cmd *cobra.Command, scenario string, flags governance.SimulationParams) (governance.SimulationParams, error) {
	if scenario == "" {
		return flags, flags.Validate()
	}
	sc, ok := governance.LookupScenario(scenario)
	if !ok {
		return flags, errors.New(errors.ErrCodeNotFound, "unknown scenario %q", scenario)
	}
	p := sc.Params
	set := cmd.Flags().Changed
	if set("speed") {
		p.Speed = flags.Speed
	}
	if set("agents") {
		p.AgentCount = flags.AgentCount
	}
	if set("tx-rate") {
		p.TransactionRate = flags.TransactionRate
	}
	if set("proposal-frequency") {
		p.ProposalFrequency = flags.ProposalFrequency
	}
	if set("conflict-probability") {
		p.ConflictProbability = flags.ConflictProbability
	}
	return p, p.Validate()
}

func (c *CLI) runSimulate(ctx context.Context, p governance.SimulationParams) error {
	_, b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	run, err := b.Source.StartSimulation(ctx, p)
	if err != nil {
		c.ui.fail("Simulation failed to start")
		return err
	}
	c.ui.success("Simulation started")
	c.ui.keyValue("Run", run.ID)
	c.ui.keyValue("Speed", fmt.Sprintf("%gx", p.Speed))
	c.ui.keyValue("Agents", fmt.Sprint(p.AgentCount))
	c.ui.keyValue("Tx rate", fmt.Sprintf("%d/s", p.TransactionRate))
	c.ui.keyValue("Proposals", fmt.Sprintf("%d/h", p.ProposalFrequency))
	c.ui.keyValue("Conflicts", fmt.Sprintf("%d%%", p.ConflictProbability))
	return nil
}

func (c *CLI) printScenarios() {
	for _, sc := range governance.Scenarios {
		c.ui.line(StyleHighlight.Render(sc.Name) + StyleDim.Render(" · "+sc.Description))
		c.ui.detail("speed %gx, %d agents, %d tx/s, %d proposals/h, %d%% conflicts",
			sc.Params.Speed, sc.Params.AgentCount, sc.Params.TransactionRate,
			sc.Params.ProposalFrequency, sc.Params.ConflictProbability)
	}
	c.ui.nextStep("Start one", appName+" simulate --scenario "+`"`+strings.ToLower(governance.Scenarios[0].Name)+`"`)
}

package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/source"
)

// completionCommand writes a shell completion script.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion bash|zsh|fish|powershell",
		Short: "Generate a shell completion script",
		Long: `Completion writes a completion script for the given shell to stdout.

  bash:        source <(govdash completion bash)
  zsh:         govdash completion zsh > "${fpath[1]}/_govdash"
  fish:        govdash completion fish > ~/.config/fish/completions/govdash.fish
  powershell:  govdash completion powershell | Out-String | Invoke-Expression

Besides commands and flags, the scripts complete collection kinds, vote
types, scenario names, table names and the ids of open proposals.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(c.out, true)
			case "zsh":
				return root.GenZshCompletion(c.out)
			case "fish":
				return root.GenFishCompletion(c.out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(c.out)
			}
		},
	}
}

// completeKinds completes the KIND argument of list.
func completeKinds(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	kinds := make([]string, 0, len(source.Kinds()))
	for _, k := range source.Kinds() {
		kinds = append(kinds, string(k))
	}
	return kinds, cobra.ShellCompDirectiveNoFileComp
}

// completeVote completes the proposal id from the source, then the vote
// type.
func (c *CLI) completeVote(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return c.openProposals(cmd.Context()), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return []string{
			string(governance.VoteFor) + "\tsupport the proposal",
			string(governance.VoteAgainst) + "\treject the proposal",
			string(governance.VoteAbstain) + "\trecord presence only",
		}, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// openProposals lists active proposal ids with their titles. Failures
// yield no suggestions rather than noise in the shell.
func (c *CLI) openProposals(ctx context.Context) []string {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, b, err := c.openBackend(ctx)
	if err != nil {
		return nil
	}
	defer b.Close()
	proposals, err := b.Source.Proposals(ctx)
	if err != nil {
		return nil
	}
	var ids []string
	for _, p := range proposals {
		if p.Status == governance.ProposalActive {
			ids = append(ids, p.ID+"\t"+p.Title)
		}
	}
	return ids
}

func completeScenarios(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(governance.Scenarios))
	for _, sc := range governance.Scenarios {
		names = append(names, strings.ToLower(sc.Name)+"\t"+sc.Description)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func completeTables(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return source.Tables, cobra.ShellCompDirectiveNoFileComp
}

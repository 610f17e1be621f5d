package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/govdash/internal/backend"
	"github.com/matzehuels/govdash/internal/config"
	"github.com/matzehuels/govdash/pkg/buildinfo"
	"github.com/matzehuels/govdash/pkg/pipeline"
	"github.com/matzehuels/govdash/pkg/poll"
	"github.com/matzehuels/govdash/pkg/source/mock"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "govdash"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the --config flag.
	configPath string
	// out receives command results. Defaults to stdout.
	out io.Writer
	// ui receives status lines, on the same writer as the logger.
	ui *printer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		out:    os.Stdout,
		ui:     newPrinter(w),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command output.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "govdash monitors a multi-agent governance network",
		Long: `govdash polls a governance data source and shows its agents as a circular
network graph, alongside proposals, rule changes, conflicts and global metrics.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./govdash.toml or the user config dir)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.hitCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.voteCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Backend Factory
// =============================================================================

// loadConfig reads the configuration selected by --config.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	if cfg.File != "" {
		c.Logger.Debug("loaded config", "file", cfg.File)
	}
	return cfg, nil
}

// openBackend loads the configuration and opens its source and cache.
func (c *CLI) openBackend(ctx context.Context) (config.Config, *backend.Backend, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return cfg, nil, err
	}
	c.Logger.Debug("opened source", "source", cfg.Source.Kind, "cache", cfg.Cache.Backend)
	return cfg, b, nil
}

// newController builds a poll controller over b. The last stored snapshot
// seeds it; with poll.demo set, the demo network is shown until the source
// first answers.
func (c *CLI) newController(ctx context.Context, cfg config.Config, b *backend.Backend) *poll.Controller {
	opts := []poll.Option{
		poll.WithInterval(cfg.Poll.Interval),
		poll.WithTimeout(cfg.Poll.Timeout),
		poll.WithLayout(cfg.Layout),
		poll.WithLogger(c.Logger),
	}
	if snap, ok := b.Source.LastGood(ctx); ok {
		c.Logger.Debug("seeding from stored snapshot", "agents", snap.Len(), "fetched", snap.FetchedAt)
		opts = append(opts, poll.WithSeed(snap))
	}
	if cfg.Poll.Demo {
		if demo, err := mock.New(); err == nil {
			agents, _ := demo.Agents(ctx)
			opts = append(opts, poll.WithFallback(agents))
		}
	}
	return poll.New(b.Source, opts...)
}

// newRunner creates a pipeline runner sharing the backend's cache.
func (c *CLI) newRunner(cfg config.Config, b *backend.Backend) *pipeline.Runner {
	r := pipeline.NewRunner(b.Cache, b.Keyer, c.Logger)
	if cfg.Cache.ArtifactTTL > 0 {
		r.TTL = cfg.Cache.ArtifactTTL
	}
	return r
}

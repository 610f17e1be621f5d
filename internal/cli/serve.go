package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/govdash/internal/server"
	"github.com/matzehuels/govdash/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and poll the source",
		Long: `Serve starts the HTTP API on the configured address (PORT overrides it) and
polls the source in the background. Clients can follow every poll through
the /api/ws websocket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	logger := loggerFromContext(ctx)

	cfg, b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if addr == "" {
		addr = cfg.Server.Addr
	}

	observability.NewLogHooks(logger).Install()

	ctrl := c.newController(ctx, cfg, b)
	defer ctrl.Close()

	srv := server.New(b.Source, ctrl, c.newRunner(cfg, b), logger, server.Options{
		CORSOrigin:      cfg.Server.CORSOrigin,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	logger.Info("polling source", "source", cfg.Source.Kind, "interval", ctrl.Interval())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := ctrl.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	return g.Wait()
}

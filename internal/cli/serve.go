package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cem/pkg/proxy"
)

type serveOpts struct {
	addr    string
	noCache bool
}

// serveCommand creates the serve command, which exposes the runner over
// HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve solve, optimize and render over HTTP",
		Long: `Start an HTTP server that solves, optimizes and renders JSON requests.

The cache backend comes from the config file; with backend "redis" several
servers share one cache. Optimization runs are recorded in MongoDB when
store.mongo_uri is set and in memory otherwise.`,
		Example: `  cem serve
  cem serve --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	addr := opts.addr
	if addr == "" {
		addr = c.Config.Server.Addr
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	runs, err := c.openStore(ctx, true)
	if err != nil {
		runner.Close(ctx)
		return err
	}
	runner.Store = runs
	defer runner.Close(context.WithoutCancel(ctx))

	logger.Info("starting server",
		"cache", c.Config.Cache.Backend,
		"store", storeKind(c.Config.Store.MongoURI))
	return proxy.ListenAndServe(ctx, addr, proxy.NewServer(runner, logger, proxy.ServerOptions{}), logger)
}

func storeKind(uri string) string {
	if uri == "" {
		return "memory"
	}
	return "mongo"
}

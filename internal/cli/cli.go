// Package cli implements the cem command-line interface.
//
// Commands read topology, form and request files in JSON or TOML (chosen by
// extension), run them through a [pipeline.Runner] or a remote `cem serve`
// instance, and print results with lipgloss styling. Settings come from the
// config file (see package config) and are overridden by flags.
//
// [pipeline.Runner]: github.com/matzehuels/cem/pkg/pipeline
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cem/pkg/buildinfo"
	"github.com/matzehuels/cem/pkg/cache"
	"github.com/matzehuels/cem/pkg/config"
	"github.com/matzehuels/cem/pkg/httputil"
	"github.com/matzehuels/cem/pkg/pipeline"
	"github.com/matzehuels/cem/pkg/proxy"
	"github.com/matzehuels/cem/pkg/store"
)

const appName = "cem"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
}

// New creates a CLI that logs to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Combinatorial equilibrium modeling for pin-jointed structures",
		Long: `cem finds the equilibrium form of a network of trails and deviation edges
under external loads, and optimizes trail lengths, deviation forces and
support positions to meet geometric and force constraints.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/cem/config.toml)")

	root.AddCommand(c.trailsCommand())
	root.AddCommand(c.solveCommand())
	root.AddCommand(c.optimizeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	registerCompletions(root)

	return root
}

// newRunner creates a pipeline runner with the configured cache backend.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if scope := c.Config.Cache.Scope; scope != "" {
		keyer = cache.NewScopedKeyer(nil, scope)
	}
	r := pipeline.NewRunner(ch, keyer, loggerFromContext(ctx))
	r.TTL = c.Config.Cache.TTL.Duration
	return r, nil
}

func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	opts := cache.Options{Backend: c.Config.Cache.Backend, RedisAddr: c.Config.Cache.RedisAddr}
	if opts.Backend == cache.BackendFile {
		dir, err := c.Config.CacheDir()
		if err != nil {
			loggerFromContext(ctx).Warn("no cache directory, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		opts.Dir = dir
	}
	return cache.Open(ctx, opts)
}

// openStore connects to the configured run store. Without a Mongo URI it
// falls back to an in-process store when fallback is set, and returns nil
// otherwise.
func (c *CLI) openStore(ctx context.Context, fallback bool) (store.Store, error) {
	if c.Config.Store.MongoURI == "" {
		if fallback {
			return store.NewMemoryStore(), nil
		}
		return nil, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s, err := store.NewMongoStore(connectCtx, c.Config.Store.MongoURI, c.Config.Store.Database)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newClient creates a client for a remote `cem serve` instance.
func newClient(remote string) (*proxy.Client, error) {
	return proxy.NewClient(remote, proxy.WithRetryPolicy(httputil.DefaultPolicy))
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/optimization"
	"github.com/matzehuels/cem/pkg/pipeline"
)

type optimizeOpts struct {
	output     string
	algorithm  string
	iters      int
	eps        float64
	concurrent int
	tui        bool
	noCache    bool
	refresh    bool
	remote     string
}

// optimizeCommand creates the optimize command.
func (c *CLI) optimizeCommand() *cobra.Command {
	opts := optimizeOpts{}

	cmd := &cobra.Command{
		Use:   "optimize <request>",
		Short: "Optimize a topology against constraints",
		Long: `Search trail lengths, deviation forces and support positions that bring the
equilibrium form closest to a set of constraints.

The request file holds the topology, constraints, parameters and optional
solver settings. Flags override the settings in the file, which override the
config file.`,
		Example: `  cem optimize arch.toml
  cem optimize arch.json --algorithm lbfgs --iters 200 -o result.json
  cem optimize arch.json --tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOptimize(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to a .json or .toml file (- for stdout)")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", "", "SLSQP, LBFGS, AUGLAG, MMA or TNEWTON")
	cmd.Flags().IntVar(&opts.iters, "iters", 0, "maximum number of iterations")
	cmd.Flags().Float64Var(&opts.eps, "eps", 0, "stop once the objective or its change drops below this")
	cmd.Flags().IntVar(&opts.concurrent, "concurrent", 0, "parallel gradient evaluations (0 = all CPUs)")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show live progress")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "optimize on a cem server at this URL")

	return cmd
}

// applyOptions fills unset request options from the config, then applies
// the flags.
func (c *CLI) applyOptions(o *cemio.OptionsDoc, opts optimizeOpts) {
	cfg := c.Config
	if o.Algorithm == "" {
		o.Algorithm = cfg.Optimizer.Algorithm
	}
	if o.Iters == 0 {
		o.Iters = cfg.Optimizer.Iters
	}
	if o.Eps == nil {
		o.Eps = cfg.Optimizer.Eps
	}
	if o.Concurrent == 0 {
		o.Concurrent = cfg.Optimizer.Concurrent
	}
	if o.Eta == 0 {
		o.Eta = cfg.Solver.Eta
	}
	if o.Tmax == 0 {
		o.Tmax = cfg.Solver.Tmax
	}

	if opts.algorithm != "" {
		o.Algorithm = opts.algorithm
	}
	if opts.iters != 0 {
		o.Iters = opts.iters
	}
	if opts.eps != 0 {
		o.Eps = optimization.Tolerance(opts.eps)
	}
	if opts.concurrent != 0 {
		o.Concurrent = opts.concurrent
	}
}

func (c *CLI) runOptimize(cmd *cobra.Command, path string, opts optimizeOpts) error {
	ctx := cmd.Context()

	var req cemio.OptimizeRequest
	if err := readDoc(path, &req); err != nil {
		return err
	}
	c.applyOptions(&req.Options, opts)
	algo, err := optimization.ParseAlgorithm(req.Options.Algorithm)
	if err != nil {
		return err
	}

	job := c.optimizeJob(cmd, req, opts)
	var (
		doc    cemio.ResultDoc
		cached bool
	)
	if opts.tui {
		title := fmt.Sprintf("Optimizing %s with %s", path, algo)
		doc, cached, err = runOptimizeTUI(ctx, title, req.Options.Iters, job)
	} else {
		spinner := newSpinner(ctx, fmt.Sprintf("Optimizing with %s...", algo))
		spinner.Start()
		doc, cached, err = job(ctx, func(p optimization.Progress) {
			spinner.Update(fmt.Sprintf("Optimizing with %s: iteration %d, objective %s", algo, p.Iteration, fmtFloat(p.Objective)))
		})
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if opts.output == "-" {
		return writeDoc("-", doc)
	}
	printResult(doc, req.Parameters, cached)
	if opts.output != "" {
		if err := writeDoc(opts.output, doc); err != nil {
			return err
		}
		printFile(opts.output)
		printNextStep("Render it", "cem render "+opts.output+" --input result -o result.svg")
	}
	return nil
}

func (c *CLI) optimizeJob(cmd *cobra.Command, req cemio.OptimizeRequest, opts optimizeOpts) optimizeJob {
	return func(ctx context.Context, cb func(optimization.Progress)) (cemio.ResultDoc, bool, error) {
		if opts.remote != "" {
			client, err := newClient(opts.remote)
			if err != nil {
				return cemio.ResultDoc{}, false, err
			}
			resp, err := client.Optimize(ctx, req)
			if err != nil {
				return cemio.ResultDoc{}, false, err
			}
			return resp.Result, resp.Cached, nil
		}

		runner, err := c.newRunner(cmd.Context(), opts.noCache)
		if err != nil {
			return cemio.ResultDoc{}, false, err
		}
		defer runner.Close(context.WithoutCancel(ctx))
		runs, err := c.openStore(ctx, false)
		if err != nil {
			loggerFromContext(cmd.Context()).Warn("run store unavailable", "error", err)
		} else {
			runner.Store = runs
		}
		return runner.OptimizeWithCacheInfo(ctx, req, pipeline.OptimizeOptions{
			Refresh:  opts.refresh,
			Callback: cb,
		})
	}
}

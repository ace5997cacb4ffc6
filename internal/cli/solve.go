package cli

import (
	"github.com/spf13/cobra"

	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/pipeline"
)

type solveOpts struct {
	output  string
	eta     float64
	tmax    int
	noCache bool
	refresh bool
	remote  string
}

// solveCommand creates the solve command, which computes the static
// equilibrium of a topology.
func (c *CLI) solveCommand() *cobra.Command {
	opts := solveOpts{}

	cmd := &cobra.Command{
		Use:   "solve <topology>",
		Short: "Compute the equilibrium form of a topology",
		Long: `Compute the equilibrium form of a topology and print its edge forces and
support reactions.

Forms are cached by topology and solver settings. Use --refresh to recompute
or --remote to solve on a cem server.`,
		Example: `  cem solve bridge.toml
  cem solve bridge.json -o form.json --tmax 500
  cem solve bridge.json --remote http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the form to a .json or .toml file (- for stdout)")
	cmd.Flags().Float64Var(&opts.eta, "eta", 0, "convergence threshold on node displacement (default from config)")
	cmd.Flags().IntVar(&opts.tmax, "tmax", 0, "maximum number of solver iterations (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached forms")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "solve on a cem server at this URL")

	return cmd
}

func (c *CLI) solverDoc(opts solveOpts) cemio.SolverDoc {
	doc := cemio.SolverDoc{Eta: c.Config.Solver.Eta, Tmax: c.Config.Solver.Tmax}
	if opts.eta != 0 {
		doc.Eta = opts.eta
	}
	if opts.tmax != 0 {
		doc.Tmax = opts.tmax
	}
	return doc
}

func (c *CLI) runSolve(cmd *cobra.Command, path string, opts solveOpts) error {
	ctx := cmd.Context()

	var doc cemio.TopologyDoc
	if err := readDoc(path, &doc); err != nil {
		return err
	}
	req := cemio.SolveRequest{Topology: doc, Solver: c.solverDoc(opts)}

	spinner := newSpinner(ctx, "Solving...")
	spinner.Start()
	form, cached, err := c.solve(cmd, req, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	if opts.output == "-" {
		return writeDoc("-", form)
	}
	printForm(form, cached)
	if opts.output != "" {
		if err := writeDoc(opts.output, form); err != nil {
			return err
		}
		printFile(opts.output)
	} else {
		printNextStep("Render it", "cem solve "+path+" -o form.json && cem render form.json -o form.svg")
	}
	return nil
}

func (c *CLI) solve(cmd *cobra.Command, req cemio.SolveRequest, opts solveOpts) (cemio.FormDoc, bool, error) {
	ctx := cmd.Context()

	if opts.remote != "" {
		client, err := newClient(opts.remote)
		if err != nil {
			return cemio.FormDoc{}, false, err
		}
		resp, err := client.Solve(ctx, req)
		if err != nil {
			return cemio.FormDoc{}, false, err
		}
		return resp.Form, resp.Cached, nil
	}

	topo, err := req.Topology.Diagram()
	if err != nil {
		return cemio.FormDoc{}, false, err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return cemio.FormDoc{}, false, err
	}
	defer runner.Close(ctx)

	f, cached, err := runner.SolveWithCacheInfo(ctx, topo, pipeline.SolveOptions{
		Solver:  req.Solver.Options(),
		Refresh: opts.refresh,
	})
	if err != nil {
		return cemio.FormDoc{}, false, err
	}
	return cemio.EncodeForm(f), cached, nil
}

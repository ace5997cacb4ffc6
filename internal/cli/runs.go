package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/store"
)

type runsOpts struct {
	limit  int
	output string
	remote string
}

// runsCommand creates the runs command, which lists recorded optimization
// runs or shows one of them.
func (c *CLI) runsCommand() *cobra.Command {
	opts := runsOpts{limit: 20}

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded optimization runs",
		Long: `List recorded optimization runs, newest first, or show a single run.

Runs are read from MongoDB (store.mongo_uri in the config file) or from a
cem server with --remote.`,
		Example: `  cem runs --limit 5
  cem runs 2f1c... -o run.json
  cem runs --remote http://localhost:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.runShowRun(cmd, args[0], opts)
			}
			return c.runListRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", opts.limit, "maximum number of runs to list (0 = all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the run to a .json or .toml file (- for stdout)")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "read runs from a cem server at this URL")

	return cmd
}

// runSource abstracts over a local store and a remote server.
type runSource interface {
	List(ctx context.Context, limit int) ([]store.Run, error)
	Get(ctx context.Context, id string) (*store.Run, error)
	Close(ctx context.Context) error
}

type remoteRuns struct{ remote string }

func (r remoteRuns) List(ctx context.Context, limit int) ([]store.Run, error) {
	client, err := newClient(r.remote)
	if err != nil {
		return nil, err
	}
	return client.Runs(ctx, limit)
}

func (r remoteRuns) Get(ctx context.Context, id string) (*store.Run, error) {
	client, err := newClient(r.remote)
	if err != nil {
		return nil, err
	}
	return client.Run(ctx, id)
}

func (remoteRuns) Close(context.Context) error { return nil }

func (c *CLI) runSource(ctx context.Context, remote string) (runSource, error) {
	if remote != "" {
		return remoteRuns{remote: remote}, nil
	}
	s, err := c.openStore(ctx, false)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, cemerrors.New(cemerrors.ErrCodeNotFound, "no run store configured (set store.mongo_uri or use --remote)")
	}
	return s, nil
}

func (c *CLI) runListRuns(cmd *cobra.Command, opts runsOpts) error {
	ctx := cmd.Context()
	src, err := c.runSource(ctx, opts.remote)
	if err != nil {
		return err
	}
	defer src.Close(ctx)

	runs, err := src.List(ctx, opts.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No runs recorded")
		return nil
	}

	t := newTable("ID", "Created", "Algorithm", "Status", "Objective", "Iters", "Duration")
	for _, r := range runs {
		t.Row(shortID(r.ID),
			r.CreatedAt.Local().Format(time.DateTime),
			r.Algorithm,
			r.Status,
			fmtFloat(r.Objective),
			strconv.Itoa(r.Iterations),
			(time.Duration(r.DurationMS) * time.Millisecond).String())
	}
	fmt.Println(t)
	printNextStep("Show a run", "cem runs <id> -o run.json")
	return nil
}

func (c *CLI) runShowRun(cmd *cobra.Command, id string, opts runsOpts) error {
	ctx := cmd.Context()
	src, err := c.runSource(ctx, opts.remote)
	if err != nil {
		return err
	}
	defer src.Close(ctx)

	run, err := src.Get(ctx, id)
	if err != nil {
		return err
	}
	if opts.output == "-" {
		return writeDoc("-", run)
	}

	printKeyValue("id", run.ID)
	printKeyValue("created", run.CreatedAt.Local().Format(time.DateTime))
	printKeyValue("algorithm", run.Algorithm)
	printResult(run.Result, run.Request.Parameters, false)
	if opts.output != "" {
		if err := writeDoc(opts.output, run); err != nil {
			return err
		}
		printFile(opts.output)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

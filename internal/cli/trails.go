package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/topology"
)

type trailsOpts struct {
	auxiliary bool
	output    string
}

// trailsCommand creates the trails command, which decomposes a topology
// into trails without solving it.
func (c *CLI) trailsCommand() *cobra.Command {
	opts := trailsOpts{}

	cmd := &cobra.Command{
		Use:   "trails <topology>",
		Short: "Decompose a topology into trails",
		Long: `Decompose a topology into trails rooted at its supports and print them.

With --auxiliary, nodes that are only reached by deviation edges get an
auxiliary support and a zero-length trail instead of failing.`,
		Example: `  cem trails bridge.toml
  cem trails bridge.json --auxiliary -o built.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTrails(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.auxiliary, "auxiliary", false, "add auxiliary trails for nodes without one")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the built topology to a .json or .toml file")

	return cmd
}

func (c *CLI) runTrails(cmd *cobra.Command, path string, opts trailsOpts) error {
	logger := loggerFromContext(cmd.Context())

	var doc cemio.TopologyDoc
	if err := readDoc(path, &doc); err != nil {
		return err
	}
	if opts.auxiliary {
		doc.Auxiliary = true
	}
	prog := newProgress(logger)
	topo, err := doc.Diagram()
	if err != nil {
		return err
	}
	prog.done("Built trails")

	printSuccess("%s trails over %s nodes",
		StyleNumber.Render(strconv.Itoa(topo.TrailCount())),
		StyleNumber.Render(strconv.Itoa(topo.NodeCount())))
	fmt.Println(trailTable(topo))

	if opts.output != "" {
		if err := writeDoc(opts.output, cemio.EncodeTopology(topo)); err != nil {
			return err
		}
		printFile(opts.output)
	}
	return nil
}

func trailTable(topo *topology.Diagram) fmt.Stringer {
	closing := map[int]bool{}
	for _, s := range topo.ClosingSupports() {
		closing[s] = true
	}

	t := newTable("Trail", "Root", "Nodes", "End")
	for i, trail := range topo.Trails() {
		nodes := make([]string, len(trail))
		for j, id := range trail {
			nodes[j] = strconv.Itoa(id)
			if n, ok := topo.Node(id); ok && n.IsAuxiliary() {
				nodes[j] += "*"
			}
		}
		end := "free"
		if last := trail[len(trail)-1]; closing[last] {
			end = "support " + strconv.Itoa(last)
		}
		t.Row(strconv.Itoa(i), strconv.Itoa(trail[0]), strings.Join(nodes, " → "), end)
	}
	return t
}

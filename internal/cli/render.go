package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/pipeline"
	"github.com/matzehuels/cem/pkg/proxy"
	"github.com/matzehuels/cem/pkg/render/nodelink"
)

// Input kinds accepted by the render command.
const (
	inputForm     = "form"
	inputTopology = "topology"
	inputResult   = "result"
)

type renderOpts struct {
	output  string
	input   string
	format  string
	view    string
	labels  bool
	scale   float64
	noCache bool
	refresh bool
	remote  string
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{input: inputForm}

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Draw a form, topology or optimization result",
		Long: `Draw a solved form, a topology at its input positions, or the form of an
optimization result as SVG, PNG or Graphviz DOT.

Form edges are red in tension and blue in compression. Topology trail edges
are green and deviation edges dashed grey.`,
		Example: `  cem render form.json -o form.svg
  cem render bridge.toml --input topology -o bridge.png --view xz
  cem render result.json --input result -o result.dot --labels`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (- for stdout)")
	cmd.Flags().StringVar(&opts.input, "input", opts.input, "input kind: form, topology or result")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "svg, png or dot (default from the output extension)")
	cmd.Flags().StringVar(&opts.view, "view", "", "projection plane: xy, xz or yz")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label edges with forces and lengths")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "points per model unit")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached drawings")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "render on a cem server at this URL")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// renderFormat picks the explicit format, else the one matching the output
// extension, else svg.
func renderFormat(format, output string) string {
	if format != "" {
		return format
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	if pipeline.ValidFormats[ext] {
		return ext
	}
	return pipeline.FormatSVG
}

func (c *CLI) runRender(cmd *cobra.Command, path string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	ropts := pipeline.RenderOptions{
		Options: nodelink.Options{View: nodelink.View(opts.view), Scale: opts.scale, Labels: opts.labels},
		Format:  renderFormat(opts.format, opts.output),
		Refresh: opts.refresh,
	}
	if err := ropts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	var (
		form cemio.FormDoc
		topo *cemio.TopologyDoc
	)
	switch opts.input {
	case inputForm:
		if err := readDoc(path, &form); err != nil {
			return err
		}
	case inputResult:
		var res cemio.ResultDoc
		if err := readDoc(path, &res); err != nil {
			return err
		}
		form = res.Form
	case inputTopology:
		topo = &cemio.TopologyDoc{}
		if err := readDoc(path, topo); err != nil {
			return err
		}
	default:
		return cemerrors.New(cemerrors.ErrCodeInvalidInput, "unknown input kind %q (want form, topology or result)", opts.input)
	}

	prog := newProgress(logger)
	var (
		data   []byte
		cached bool
		err    error
	)
	switch {
	case topo != nil && opts.remote != "":
		return cemerrors.New(cemerrors.ErrCodeUnsupported, "topologies are rendered locally; drop --remote")
	case opts.remote != "":
		data, err = renderRemote(cmd, opts.remote, form, ropts)
	default:
		data, cached, err = c.renderLocal(cmd, form, topo, ropts, opts.noCache)
	}
	if err != nil {
		return err
	}
	prog.done("Rendered " + ropts.Format)

	if err := writeArtifact(opts.output, data); err != nil {
		return err
	}
	if opts.output != "-" {
		status := iconFresh
		if cached {
			status = iconCached
		}
		printSuccess("Rendered %s %s", ropts.Format, StyleDim.Render("("+status+")"))
		printFile(opts.output)
	}
	return nil
}

func (c *CLI) renderLocal(cmd *cobra.Command, form cemio.FormDoc, topo *cemio.TopologyDoc, opts pipeline.RenderOptions, noCache bool) ([]byte, bool, error) {
	ctx := cmd.Context()
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return nil, false, err
	}
	defer runner.Close(ctx)

	if topo != nil {
		d, err := topo.Diagram()
		if err != nil {
			return nil, false, err
		}
		data, err := runner.RenderTopology(ctx, d, opts)
		return data, false, err
	}
	f, err := form.Diagram()
	if err != nil {
		return nil, false, err
	}
	return runner.RenderWithCacheInfo(ctx, f, opts)
}

func renderRemote(cmd *cobra.Command, remote string, form cemio.FormDoc, opts pipeline.RenderOptions) ([]byte, error) {
	client, err := newClient(remote)
	if err != nil {
		return nil, err
	}
	return client.Render(cmd.Context(), proxy.RenderRequest{
		Form:   form,
		Format: opts.Format,
		View:   string(opts.View),
		Labels: opts.Labels,
		Scale:  opts.Scale,
	})
}

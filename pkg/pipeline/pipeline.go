// Package pipeline runs form-finding jobs with caching.
//
// The CLI and the proxy server share one [Runner] so that both take the same
// path through the cache:
//
//  1. Solve: topology → form diagram, keyed by the topology and solver options
//  2. Optimize: request → result, keyed by the request; runs are recorded in
//     an optional [store.Store]
//  3. Render: form diagram → SVG, PNG or DOT, keyed by the form and render
//     options
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	f, hit, err := runner.SolveWithCacheInfo(ctx, topo, pipeline.SolveOptions{
//	    Solver: equilibrium.DefaultOptions(),
//	})
//	svg, err := runner.Render(ctx, f, pipeline.RenderOptions{Format: "svg"})
//
// Cache failures never fail a job: a broken entry is treated as a miss and a
// failed write is logged and ignored.
//
// [store.Store]: github.com/matzehuels/cem/pkg/store
package pipeline

import (
	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/optimization"
	"github.com/matzehuels/cem/pkg/render/nodelink"
)

// Format constants for rendered outputs.
const (
	FormatSVG = nodelink.FormatSVG
	FormatPNG = nodelink.FormatPNG
	FormatDOT = nodelink.FormatDOT
)

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatDOT: true,
}

// ValidateFormat checks that a render format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return cemerrors.New(cemerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, dot)", format)
	}
	return nil
}

// SolveOptions configures [Runner.SolveWithCacheInfo].
type SolveOptions struct {
	Solver equilibrium.Options
	// Refresh skips the cache lookup. The new form is still stored.
	Refresh bool
}

// OptimizeOptions configures [Runner.OptimizeWithCacheInfo]. Algorithm and
// limits come from the request itself.
type OptimizeOptions struct {
	Refresh  bool
	Callback func(optimization.Progress)
}

// RenderOptions configures [Runner.RenderWithCacheInfo].
type RenderOptions struct {
	nodelink.Options

	// Format is one of svg, png or dot. Empty means svg.
	Format  string
	Refresh bool
}

// ValidateAndSetDefaults fills in the default format and checks the
// options.
func (o *RenderOptions) ValidateAndSetDefaults() error {
	if o.Format == "" {
		o.Format = FormatSVG
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.Scale == 0 {
		o.Scale = nodelink.DefaultScale
	}
	if o.View == "" {
		o.View = nodelink.ViewXY
	}
	return o.Options.Validate()
}

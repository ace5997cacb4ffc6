package optimization

import (
	"context"
	"io"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/observability"
	"github.com/matzehuels/cem/pkg/topology"
)

// Progress is passed to [Options.Callback] after every major iteration.
type Progress struct {
	Iteration int
	Objective float64
	Evals     int
}

// Options configures an optimization run.
type Options struct {
	Algorithm Algorithm

	// Iters caps the number of major iterations.
	Iters int

	// Eps stops the run once the objective, or its change between two
	// iterations, drops below it. Nil runs until Iters is exhausted.
	Eps *float64

	// Tmax and Eta are passed to every equilibrium solve.
	Tmax int
	Eta  float64

	// Concurrent limits parallel finite-difference evaluations.
	// Zero means GOMAXPROCS.
	Concurrent int

	Logger   *log.Logger
	Callback func(Progress)
}

// DefaultOptions returns SLSQP with 100 iterations, no Eps, and the solver
// defaults.
func DefaultOptions() Options {
	return Options{
		Algorithm: SLSQP,
		Iters:     100,
		Tmax:      equilibrium.DefaultTmax,
		Eta:       equilibrium.DefaultEta,
	}
}

// Tolerance returns a pointer to v, for use as [Options.Eps].
func Tolerance(v float64) *float64 { return &v }

// Validate checks the options.
func (o Options) Validate() error {
	if !o.Algorithm.Valid() {
		return cemerrors.New(cemerrors.ErrCodeInvalidAlgorithm, "unknown algorithm %d", int(o.Algorithm))
	}
	if err := cemerrors.ValidateIterations("iters", o.Iters); err != nil {
		return err
	}
	if o.Eps != nil && (math.IsNaN(*o.Eps) || *o.Eps < 0) {
		return cemerrors.New(cemerrors.ErrCodeInvalidInput, "eps must be non-negative, got %v", *o.Eps)
	}
	if o.Concurrent < 0 {
		return cemerrors.New(cemerrors.ErrCodeInvalidInput, "concurrent must not be negative")
	}
	return equilibrium.Options{Eta: o.Eta, Tmax: o.Tmax}.Validate()
}

// Result is the outcome of [Optimizer.Solve].
type Result struct {
	// Form is the equilibrium of the optimized topology.
	Form *form.Diagram
	// Topology is a copy of the input with the optimized values applied.
	Topology *topology.Diagram

	Objective  float64
	GradNorm   float64 // norm of the last gradient evaluated
	Evals      int
	Iterations int
	Duration   time.Duration
	Status     Status

	// Converged reports whether the equilibrium solve of Form met Eta
	// within Tmax. Status only describes the search and can be a success
	// on forms that did not settle.
	Converged bool

	// Values holds the optimized parameters in the order they were added,
	// with Lower and Upper the absolute bounds they were searched in.
	Values       []float64
	Lower, Upper []float64
}

// Optimizer searches parameter values that minimize the penalty of its
// constraints. The zero value is ready to use.
type Optimizer struct {
	constraints []Constraint
	parameters  []Parameter
}

// New returns an empty optimizer.
func New() *Optimizer { return &Optimizer{} }

// AddConstraint adds a constraint to the penalty function.
func (o *Optimizer) AddConstraint(c Constraint) { o.constraints = append(o.constraints, c) }

// AddParameter adds a parameter to the search vector.
func (o *Optimizer) AddParameter(p Parameter) { o.parameters = append(o.parameters, p) }

// Constraints returns the registered constraints.
func (o *Optimizer) Constraints() []Constraint { return append([]Constraint(nil), o.constraints...) }

// Parameters returns the registered parameters in search-vector order.
func (o *Optimizer) Parameters() []Parameter { return append([]Parameter(nil), o.parameters...) }

// NumConstraints returns the number of constraints.
func (o *Optimizer) NumConstraints() int { return len(o.constraints) }

// NumParameters returns the number of parameters.
func (o *Optimizer) NumParameters() int { return len(o.parameters) }

// Solve runs the optimization on a copy of topo; topo itself is never
// modified. Setup problems are returned as OPTIMIZATION errors wrapping a
// PARAMETER error before any solve runs. Numerical trouble during the run
// is reported through Result.Status, not as an error; only cancellation of
// ctx aborts a run with an error.
func (o *Optimizer) Solve(ctx context.Context, topo *topology.Diagram, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, cemerrors.Wrap(cemerrors.ErrCodeOptimization, err, "invalid options")
	}
	work, x0, lower, upper, err := o.setup(topo)
	if err != nil {
		return nil, cemerrors.Wrap(cemerrors.ErrCodeOptimization, err, "setup")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ev, err := newEvaluator(ctx, work, o, lower, upper, opts)
	if err != nil {
		return nil, cemerrors.Wrap(cemerrors.ErrCodeOptimization, err, "solver")
	}

	hooks := observability.Optimizer()
	hooks.OnOptimizeStart(ctx, opts.Algorithm.String(), len(o.parameters), len(o.constraints))
	logger.Info("optimization started",
		"algorithm", opts.Algorithm, "parameters", len(o.parameters), "constraints", len(o.constraints))

	res, err := o.run(ev, x0, lower, upper, opts, logger)
	if res != nil {
		res.Duration = time.Since(start)
	}
	status := ""
	if res != nil {
		status = res.Status.String()
	}
	hooks.OnOptimizeComplete(ctx, status, int(ev.evals.Load()), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logger.Info("optimization finished",
		"status", res.Status, "objective", res.Objective, "iterations", res.Iterations,
		"evals", res.Evals, "duration", res.Duration)
	if !res.Converged {
		st := res.Form.Status()
		logger.Warn("final form did not converge",
			"iterations", st.Iterations, "displacement", st.Displacement, "tmax", opts.Tmax)
	}
	return res, nil
}

func (o *Optimizer) run(ev *evaluator, x0, lower, upper []float64, opts Options, logger *log.Logger) (*Result, error) {
	f0 := ev.objective(x0)
	if err := ev.failed(); err != nil {
		return nil, err
	}

	p := &problem{
		ev:     ev,
		x0:     x0,
		f0:     f0,
		lower:  lower,
		upper:  upper,
		iters:  opts.Iters,
		eps:    opts.Eps,
		logger: logger,
		report: func(iter int, f float64) {
			logger.Debug("iteration", "iter", iter, "objective", f)
			if opts.Callback != nil {
				opts.Callback(Progress{Iteration: iter, Objective: f, Evals: int(ev.evals.Load())})
			}
		},
	}

	var out outcome
	if p.reached(f0) {
		out = outcome{x: x0, f: f0, status: StatusObjectiveReached}
	} else {
		var err error
		out, err = newStrategy(opts.Algorithm).minimize(p)
		if err != nil {
			return nil, err
		}
	}

	x := clamp(out.x, lower, upper)
	if best, fb, ok := ev.bestPoint(); ok && fb < out.f && !out.status.Converged() {
		x = best
	}

	f, final, err := ev.solve(x)
	if err != nil {
		return nil, err
	}
	return &Result{
		Form:       f,
		Topology:   final,
		Objective:  ev.penalty(f),
		GradNorm:   ev.lastGradNorm(),
		Evals:      int(ev.evals.Load()),
		Iterations: out.iterations,
		Status:     out.status,
		Converged:  f.Status().Converged,
		Values:     x,
		Lower:      lower,
		Upper:      upper,
	}, nil
}

func newEvaluator(ctx context.Context, work *topology.Diagram, o *Optimizer, lower, upper []float64, opts Options) (*evaluator, error) {
	solver, err := equilibrium.NewSolver(equilibrium.Options{Eta: opts.Eta, Tmax: opts.Tmax})
	if err != nil {
		return nil, err
	}
	concurrent := opts.Concurrent
	if concurrent == 0 {
		concurrent = runtime.GOMAXPROCS(0)
	}
	return &evaluator{
		ctx:         ctx,
		base:        work,
		params:      o.parameters,
		constraints: o.constraints,
		solver:      solver,
		lower:       lower,
		upper:       upper,
		step:        math.Sqrt(opts.Eta),
		concurrent:  concurrent,
	}, nil
}

// setup validates every reference against a working copy of topo and
// returns the copy, the start vector and the absolute bounds.
func (o *Optimizer) setup(topo *topology.Diagram) (*topology.Diagram, []float64, []float64, []float64, error) {
	if len(o.constraints) == 0 {
		return nil, nil, nil, nil, cemerrors.New(cemerrors.ErrCodeParameter, "no constraints")
	}
	if len(o.parameters) == 0 {
		return nil, nil, nil, nil, cemerrors.New(cemerrors.ErrCodeParameter, "no parameters")
	}
	if topo == nil || !topo.Built() {
		return nil, nil, nil, nil, cemerrors.New(cemerrors.ErrCodeParameter, "topology has no trails")
	}

	work := topo.Clone()
	for _, c := range o.constraints {
		if err := c.Validate(work); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	n := len(o.parameters)
	x0, lower, upper := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, p := range o.parameters {
		if err := p.Validate(work); err != nil {
			return nil, nil, nil, nil, err
		}
		v := p.Value(work)
		low, up := p.Bounds()
		x0[i], lower[i], upper[i] = v, v-low, v+up
	}
	return work, x0, lower, upper, nil
}

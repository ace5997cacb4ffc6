package optimization

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/cem/pkg/equilibrium"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/observability"
	"github.com/matzehuels/cem/pkg/topology"
)

// evaluator turns a search vector into a penalty value. Every evaluation
// works on its own clone of base, so evaluations may run concurrently.
type evaluator struct {
	ctx         context.Context
	base        *topology.Diagram
	params      []Parameter
	constraints []Constraint
	solver      *equilibrium.Solver
	lower       []float64
	upper       []float64
	step        float64 // relative finite-difference step
	concurrent  int

	evals atomic.Int64

	mu       sync.Mutex
	err      error
	best     []float64
	bestF    float64
	gradNorm float64
}

func (ev *evaluator) fail(err error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.err == nil {
		ev.err = err
	}
}

func (ev *evaluator) failed() error {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.err
}

// apply writes x onto a fresh clone of the working topology.
func (ev *evaluator) apply(x []float64) (*topology.Diagram, error) {
	topo := ev.base.Clone()
	for i, p := range ev.params {
		if err := p.Apply(topo, x[i]); err != nil {
			return nil, err
		}
	}
	return topo, nil
}

func (ev *evaluator) solve(x []float64) (*form.Diagram, *topology.Diagram, error) {
	topo, err := ev.apply(x)
	if err != nil {
		return nil, nil, err
	}
	f, err := ev.solver.Solve(ev.ctx, topo)
	if err != nil {
		return nil, nil, err
	}
	return f, topo, nil
}

func (ev *evaluator) penalty(f *form.Diagram) float64 {
	var sum float64
	for _, c := range ev.constraints {
		sum += c.Penalty(f)
	}
	return sum
}

// objective returns the penalty at x. Errors are recorded and reported as
// +Inf so line searches back off; callers check failed() afterwards.
func (ev *evaluator) objective(x []float64) float64 {
	ev.evals.Add(1)
	f, _, err := ev.solve(x)
	if err != nil {
		ev.fail(err)
		return math.Inf(1)
	}
	v := ev.penalty(f)
	observability.Optimizer().OnEvaluation(ev.ctx, v)

	if !inBounds(x, ev.lower, ev.upper) {
		return v
	}
	ev.mu.Lock()
	if ev.best == nil || v < ev.bestF {
		ev.best = append(ev.best[:0], x...)
		ev.bestF = v
	}
	ev.mu.Unlock()
	return v
}

// gradient fills dst with a finite-difference gradient at x, where fx is
// the objective at x. Components use central differences when both offsets
// stay inside [lower, upper] and one-sided differences otherwise. Pass nil
// bounds for an unbounded stencil.
func (ev *evaluator) gradient(dst, x []float64, fx float64, lower, upper []float64) error {
	g, ctx := errgroup.WithContext(ev.ctx)
	g.SetLimit(ev.concurrent)

	for i := range x {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst[i] = ev.partial(x, i, fx, lower, upper)
			return ev.failed()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ev.mu.Lock()
	ev.gradNorm = floats.Norm(dst, 2)
	ev.mu.Unlock()
	return nil
}

func (ev *evaluator) partial(x []float64, i int, fx float64, lower, upper []float64) float64 {
	lo, up := math.Inf(-1), math.Inf(1)
	if lower != nil {
		lo, up = lower[i], upper[i]
	}
	if up-lo <= 0 {
		return 0
	}

	h := ev.step * math.Max(1, math.Abs(x[i]))
	h = math.Min(h, (up-lo)/2)

	at := func(v float64) float64 {
		xp := make([]float64, len(x))
		copy(xp, x)
		xp[i] = v
		return ev.objective(xp)
	}

	canUp, canDown := x[i]+h <= up, x[i]-h >= lo
	switch {
	case canUp && canDown:
		return (at(x[i]+h) - at(x[i]-h)) / (2 * h)
	case canUp:
		return (at(x[i]+h) - fx) / h
	default:
		return (fx - at(x[i]-h)) / h
	}
}

func (ev *evaluator) lastGradNorm() float64 {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.gradNorm
}

// bestPoint returns the lowest in-bounds evaluation so far.
func (ev *evaluator) bestPoint() ([]float64, float64, bool) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.best == nil {
		return nil, 0, false
	}
	return append([]float64(nil), ev.best...), ev.bestF, true
}

func inBounds(x, lower, upper []float64) bool {
	for i, v := range x {
		if v < lower[i] || v > upper[i] {
			return false
		}
	}
	return true
}

func clamp(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(math.Max(v, lower[i]), upper[i])
	}
	return out
}

package optimization

import (
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// problem is what a strategy sees of a run: an evaluator, a start point
// inside [lower, upper], and the stopping rules.
type problem struct {
	ev           *evaluator
	x0           []float64
	f0           float64
	lower, upper []float64
	iters        int
	eps          *float64
	logger       *log.Logger
	report       func(iter int, f float64)
}

type outcome struct {
	x          []float64
	f          float64
	iterations int
	status     Status
}

type strategy interface {
	minimize(p *problem) (outcome, error)
}

func newStrategy(a Algorithm) strategy {
	switch a {
	case LBFGS:
		return gonumStrategy{method: func() optimize.Method { return &optimize.LBFGS{Store: 10} }}
	case TNEWTON:
		return gonumStrategy{method: func() optimize.Method { return &optimize.Newton{} }, hessian: true}
	case AUGLAG:
		return auglag{}
	case MMA:
		return mma{}
	default:
		return slsqp{}
	}
}

func (p *problem) reached(f float64) bool { return p.eps != nil && f <= *p.eps }

func (p *problem) stalled(prev, f float64) bool {
	return p.eps != nil && math.Abs(prev-f) < *p.eps
}

func (p *problem) progress(iter int, f float64) {
	if p.report != nil {
		p.report(iter, f)
	}
}

func (p *problem) converger() optimize.Converger {
	if p.eps == nil {
		return optimize.NeverTerminate{}
	}
	return &optimize.FunctionConverge{Absolute: *p.eps, Iterations: 2}
}

// sineMap maps an unbounded z onto the box: x = lo + (up-lo)(1+sin z)/2.
type sineMap struct{ lower, upper []float64 }

func (m sineMap) x(z []float64) []float64 {
	x := make([]float64, len(z))
	for i, zi := range z {
		x[i] = m.lower[i] + (m.upper[i]-m.lower[i])*(1+math.Sin(zi))/2
	}
	return clamp(x, m.lower, m.upper)
}

// z inverts x. Points on a bound are nudged inwards so the chain rule
// factor cos(z) is not zero at the start.
func (m sineMap) z(x []float64) []float64 {
	const edge = math.Pi/2 - 1e-3
	z := make([]float64, len(x))
	for i, xi := range x {
		span := m.upper[i] - m.lower[i]
		if span <= 0 {
			continue
		}
		t := math.Max(-1, math.Min(1, 2*(xi-m.lower[i])/span-1))
		z[i] = math.Max(-edge, math.Min(edge, math.Asin(t)))
	}
	return z
}

func (m sineMap) dxdz(z []float64, i int) float64 {
	return (m.upper[i] - m.lower[i]) / 2 * math.Cos(z[i])
}

// gonumStrategy runs a gonum/optimize method on the sine
// reparameterization, which keeps every iterate inside the bounds.
type gonumStrategy struct {
	method  func() optimize.Method
	hessian bool
}

func (s gonumStrategy) minimize(p *problem) (outcome, error) {
	m := sineMap{p.lower, p.upper}
	ev := p.ev
	memo := newMemo(ev)

	fz := func(z []float64) float64 { return memo.eval(m.x(z)) }
	prob := optimize.Problem{
		Func: fz,
		Grad: func(grad, z []float64) {
			x := m.x(z)
			gx := make([]float64, len(x))
			if err := ev.gradient(gx, x, memo.eval(x), p.lower, p.upper); err != nil {
				ev.fail(err)
			}
			for i := range grad {
				grad[i] = gx[i] * m.dxdz(z, i)
			}
		},
		Status: func() (optimize.Status, error) {
			if err := ev.failed(); err != nil {
				return optimize.Failure, err
			}
			if _, f, ok := ev.bestPoint(); ok && p.reached(f) {
				return optimize.FunctionThreshold, nil
			}
			return optimize.NotTerminated, nil
		},
	}
	if s.hessian {
		prob.Hess = func(hess *mat.SymDense, z []float64) {
			// fd may evaluate concurrently; skip the memo
			direct := func(z []float64) float64 { return ev.objective(m.x(z)) }
			fd.Hessian(hess, direct, z, &fd.Settings{Concurrent: ev.concurrent > 1})
		}
	}

	settings := &optimize.Settings{
		MajorIterations:   p.iters,
		GradientThreshold: 1e-12,
		Converger:         p.converger(),
		Recorder:          recorder{p.report},
	}
	res, err := optimize.Minimize(prob, m.z(p.x0), settings, s.method())
	if ferr := ev.failed(); ferr != nil {
		return outcome{}, ferr
	}
	if res == nil {
		p.logger.Warn("optimizer stopped without a result", "err", err)
		return outcome{x: p.x0, f: p.f0, status: StatusFailure}, nil
	}

	out := outcome{
		x:          m.x(res.X),
		f:          res.F,
		iterations: res.Stats.MajorIterations,
		status:     fromGonum(res.Status),
	}
	if err != nil {
		p.logger.Debug("optimizer terminated", "status", res.Status, "err", err)
		out.status = StatusFailure
	}
	if p.reached(out.f) {
		out.status = StatusObjectiveReached
	}
	return out, nil
}

func fromGonum(s optimize.Status) Status {
	switch s {
	case optimize.FunctionThreshold:
		return StatusObjectiveReached
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.GradientEvaluationLimit,
		optimize.HessianEvaluationLimit, optimize.RuntimeLimit:
		return StatusIterationLimit
	case optimize.Failure, optimize.FunctionNegativeInfinity, optimize.NotTerminated:
		return StatusFailure
	default:
		return StatusSuccess
	}
}

type recorder struct{ report func(int, float64) }

func (recorder) Init() error { return nil }

func (r recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if r.report != nil && op == optimize.MajorIteration {
		r.report(stats.MajorIterations, loc.F)
	}
	return nil
}

// memo caches the last objective value, since gonum asks for the value and
// the gradient at the same point separately.
type memo struct {
	ev *evaluator
	x  []float64
	f  float64
}

func newMemo(ev *evaluator) *memo { return &memo{ev: ev} }

func (m *memo) eval(x []float64) float64 {
	if m.x != nil && slices.Equal(m.x, x) {
		return m.f
	}
	f := m.ev.objective(x)
	m.x = append(m.x[:0], x...)
	m.f = f
	return f
}

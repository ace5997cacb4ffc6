package optimization

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// auglag treats the bounds as inequality constraints lo-x ≤ 0 and x-up ≤ 0
// and minimizes the Powell-Hestenes-Rockafellar augmented Lagrangian with
// unconstrained gonum LBFGS, updating multipliers between rounds.
type auglag struct{}

const (
	auglagRounds    = 8
	auglagFeasible  = 1e-9
	auglagRhoGrowth = 10
)

func (auglag) minimize(p *problem) (outcome, error) {
	ev := p.ev
	n := len(p.x0)
	x := append([]float64(nil), p.x0...)
	lamLo, lamUp := make([]float64, n), make([]float64, n)
	rho := 10.0

	budget := max(1, p.iters/auglagRounds)
	remaining := p.iters
	iterations := 0
	prevViol := math.Inf(1)
	prevF := p.f0
	failures := 0
	status := StatusIterationLimit

	for remaining > 0 {
		memo := newMemo(ev)
		lagrangian := func(x []float64) float64 {
			f := memo.eval(x)
			var pen float64
			for i := range x {
				pen += phr(lamLo[i], rho, p.lower[i]-x[i])
				pen += phr(lamUp[i], rho, x[i]-p.upper[i])
			}
			return f + pen
		}
		prob := optimize.Problem{
			Func: lagrangian,
			Grad: func(grad, x []float64) {
				if err := ev.gradient(grad, x, memo.eval(x), nil, nil); err != nil {
					ev.fail(err)
					return
				}
				for i := range x {
					grad[i] -= math.Max(0, lamLo[i]+rho*(p.lower[i]-x[i]))
					grad[i] += math.Max(0, lamUp[i]+rho*(x[i]-p.upper[i]))
				}
			},
			Status: func() (optimize.Status, error) {
				if err := ev.failed(); err != nil {
					return optimize.Failure, err
				}
				return optimize.NotTerminated, nil
			},
		}
		iters := min(budget, remaining)
		res, err := optimize.Minimize(prob, x, &optimize.Settings{
			MajorIterations:   iters,
			GradientThreshold: 1e-12,
			Converger:         p.converger(),
		}, &optimize.LBFGS{Store: 10})
		if ferr := ev.failed(); ferr != nil {
			return outcome{}, ferr
		}

		used := iters
		if res != nil {
			x = res.X
			used = max(1, res.Stats.MajorIterations)
		}
		iterations += used
		remaining -= used
		if err != nil {
			failures++
			p.logger.Debug("augmented lagrangian round stopped", "err", err)
		} else {
			failures = 0
		}

		var viol float64
		for i := range x {
			cLo, cUp := p.lower[i]-x[i], x[i]-p.upper[i]
			viol = math.Max(viol, math.Max(cLo, cUp))
			lamLo[i] = math.Max(0, lamLo[i]+rho*cLo)
			lamUp[i] = math.Max(0, lamUp[i]+rho*cUp)
		}
		if viol > 0.25*prevViol {
			rho *= auglagRhoGrowth
		}
		prevViol = viol

		xc := clamp(x, p.lower, p.upper)
		fc := ev.objective(xc)
		if err := ev.failed(); err != nil {
			return outcome{}, err
		}
		p.progress(iterations, fc)

		if p.reached(fc) {
			status = StatusObjectiveReached
			break
		}
		if viol <= auglagFeasible && p.stalled(prevF, fc) {
			status = StatusSuccess
			break
		}
		if failures >= 2 {
			status = StatusFailure
			break
		}
		prevF = fc
	}

	xc := clamp(x, p.lower, p.upper)
	return outcome{x: xc, f: ev.objective(xc), iterations: iterations, status: status}, nil
}

// phr is the augmented Lagrangian term of one inequality c ≤ 0.
func phr(lambda, rho, c float64) float64 {
	t := math.Max(0, lambda+rho*c)
	return (t*t - lambda*lambda) / (2 * rho)
}

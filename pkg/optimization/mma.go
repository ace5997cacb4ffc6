package optimization

import (
	"math"
)

// mma is Svanberg's method of moving asymptotes for a box-constrained
// objective. Without general constraints the convex subproblem separates
// per variable and has a closed-form minimizer.
type mma struct{}

const (
	mmaInit     = 0.5
	mmaShrink   = 0.7
	mmaGrow     = 1.2
	mmaRetries  = 5
	mmaMinShift = 1e-12
)

func (mma) minimize(p *problem) (outcome, error) {
	ev := p.ev
	n := len(p.x0)
	x := append([]float64(nil), p.x0...)
	f := p.f0
	g := make([]float64, n)
	if err := ev.gradient(g, x, f, p.lower, p.upper); err != nil {
		return outcome{}, err
	}

	low, upp := make([]float64, n), make([]float64, n)
	var xold1, xold2 []float64
	status := StatusIterationLimit
	iter := 0

	for iter < p.iters {
		iter++
		for i := range x {
			span := p.upper[i] - p.lower[i]
			if span <= 0 {
				continue
			}
			if xold2 == nil {
				low[i] = x[i] - mmaInit*span
				upp[i] = x[i] + mmaInit*span
				continue
			}
			gamma := 1.0
			switch osc := (x[i] - xold1[i]) * (xold1[i] - xold2[i]); {
			case osc < 0:
				gamma = mmaShrink
			case osc > 0:
				gamma = mmaGrow
			}
			low[i] = x[i] - gamma*(xold1[i]-low[i])
			upp[i] = x[i] + gamma*(upp[i]-xold1[i])
			low[i] = math.Min(math.Max(low[i], x[i]-10*span), x[i]-0.01*span)
			upp[i] = math.Max(math.Min(upp[i], x[i]+10*span), x[i]+0.01*span)
		}

		var xn []float64
		var fn float64
		accepted := false
		for try := 0; try < mmaRetries; try++ {
			xn = mmaStep(x, g, low, upp, p.lower, p.upper)
			fn = ev.objective(xn)
			if err := ev.failed(); err != nil {
				return outcome{}, err
			}
			if fn <= f {
				accepted = true
				break
			}
			// too aggressive: pull the asymptotes in
			for i := range x {
				low[i] = x[i] - 0.5*(x[i]-low[i])
				upp[i] = x[i] + 0.5*(upp[i]-x[i])
			}
		}
		if !accepted {
			status = StatusFailure
			break
		}

		var shift float64
		for i := range x {
			shift = math.Max(shift, math.Abs(xn[i]-x[i]))
		}
		gn := make([]float64, n)
		if err := ev.gradient(gn, xn, fn, p.lower, p.upper); err != nil {
			return outcome{}, err
		}

		prev := f
		xold2, xold1 = xold1, x
		x, f, g = xn, fn, gn
		p.progress(iter, f)
		if p.reached(f) {
			status = StatusObjectiveReached
			break
		}
		if shift < mmaMinShift || p.stalled(prev, f) {
			status = StatusSuccess
			break
		}
	}
	return outcome{x: x, f: f, iterations: iter, status: status}, nil
}

// mmaStep minimizes the separable MMA approximation around x.
func mmaStep(x, g, low, upp, lower, upper []float64) []float64 {
	xn := make([]float64, len(x))
	for i := range x {
		span := upper[i] - lower[i]
		if span <= 0 {
			xn[i] = x[i]
			continue
		}
		gp, gm := math.Max(g[i], 0), math.Max(-g[i], 0)
		reg := 1e-5 / span
		pi := (upp[i] - x[i]) * (upp[i] - x[i]) * (1.001*gp + 0.001*gm + reg)
		qi := (x[i] - low[i]) * (x[i] - low[i]) * (0.001*gp + 1.001*gm + reg)

		alpha := math.Max(lower[i], low[i]+0.1*(x[i]-low[i]))
		beta := math.Min(upper[i], upp[i]-0.1*(upp[i]-x[i]))

		sp, sq := math.Sqrt(pi), math.Sqrt(qi)
		y := (sp*low[i] + sq*upp[i]) / (sp + sq)
		xn[i] = math.Min(math.Max(y, alpha), beta)
	}
	return xn
}

package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	armijo       = 1e-4
	maxBacktrack = 30
)

// slsqp takes bounded quadratic steps: each iteration minimizes the local
// model g·d + ½dᵀBd over the box, then backtracks along d until the Armijo
// condition holds. B is a damped BFGS approximation of the Hessian.
type slsqp struct{}

func (slsqp) minimize(p *problem) (outcome, error) {
	ev := p.ev
	n := len(p.x0)
	x := append([]float64(nil), p.x0...)
	f := p.f0
	g := make([]float64, n)
	if err := ev.gradient(g, x, f, p.lower, p.upper); err != nil {
		return outcome{}, err
	}

	B := identity(n)
	l, u := make([]float64, n), make([]float64, n)
	status := StatusIterationLimit
	iter := 0
	for iter < p.iters {
		iter++
		floats.SubTo(l, p.lower, x)
		floats.SubTo(u, p.upper, x)

		d := boxQP(B, g, l, u)
		slope := floats.Dot(g, d)
		if slope >= 0 {
			// model lost curvature information: restart from steepest descent
			B = identity(n)
			d = boxQP(B, g, l, u)
			slope = floats.Dot(g, d)
		}
		if floats.Norm(d, math.Inf(1)) < 1e-12 || slope >= 0 {
			status = StatusSuccess
			break
		}

		xn := make([]float64, n)
		var fn float64
		accepted := false
		for a, k := 1.0, 0; k < maxBacktrack; a, k = a/2, k+1 {
			floats.AddScaledTo(xn, x, a, d)
			xn = clamp(xn, p.lower, p.upper)
			fn = ev.objective(xn)
			if err := ev.failed(); err != nil {
				return outcome{}, err
			}
			if fn <= f+armijo*a*slope {
				accepted = true
				break
			}
		}
		if !accepted {
			status = StatusFailure
			break
		}

		gn := make([]float64, n)
		if err := ev.gradient(gn, xn, fn, p.lower, p.upper); err != nil {
			return outcome{}, err
		}
		s := make([]float64, n)
		y := make([]float64, n)
		floats.SubTo(s, xn, x)
		floats.SubTo(y, gn, g)
		dampedBFGS(B, s, y)

		prev := f
		x, f, g = xn, fn, gn
		p.progress(iter, f)
		if p.reached(f) {
			status = StatusObjectiveReached
			break
		}
		if p.stalled(prev, f) {
			status = StatusSuccess
			break
		}
	}
	return outcome{x: x, f: f, iterations: iter, status: status}, nil
}

func identity(n int) *mat.SymDense {
	B := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		B.SetSym(i, i, 1)
	}
	return B
}

// dampedBFGS applies Powell's damped BFGS update to B in place, which keeps
// B positive definite even when sᵀy is small or negative.
func dampedBFGS(B *mat.SymDense, s, y []float64) {
	sv := mat.NewVecDense(len(s), s)
	var Bs mat.VecDense
	Bs.MulVec(B, sv)
	sBs := mat.Dot(sv, &Bs)
	if sBs <= 1e-16 {
		return
	}
	yv := mat.NewVecDense(len(y), y)
	sy := mat.Dot(sv, yv)

	r := mat.NewVecDense(len(y), nil)
	if sy >= 0.2*sBs {
		r.CopyVec(yv)
	} else {
		theta := 0.8 * sBs / (sBs - sy)
		r.AddScaledVec(r, theta, yv)
		r.AddScaledVec(r, 1-theta, &Bs)
	}
	sr := mat.Dot(sv, r)
	if sr <= 1e-16 {
		return
	}
	B.SymRankOne(B, -1/sBs, &Bs)
	B.SymRankOne(B, 1/sr, r)
}

// boxQP minimizes g·d + ½dᵀBd subject to l ≤ d ≤ u with a primal active
// set method. B must be positive definite.
func boxQP(B *mat.SymDense, g, l, u []float64) []float64 {
	n := len(g)
	d := make([]float64, n)
	state := make([]int, n) // 0 free, -1 on lower bound, +1 on upper bound
	for i := range state {
		if u[i]-l[i] <= 0 {
			state[i] = -1
		}
	}

	for round := 0; round < 3*n+10; round++ {
		var free []int
		for i := range d {
			switch state[i] {
			case -1:
				d[i] = l[i]
			case 1:
				d[i] = u[i]
			default:
				free = append(free, i)
			}
		}

		if len(free) > 0 {
			k := len(free)
			Bff := mat.NewSymDense(k, nil)
			rhs := mat.NewVecDense(k, nil)
			for a, i := range free {
				v := -g[i]
				for j := range d {
					if state[j] != 0 {
						v -= B.At(i, j) * d[j]
					}
				}
				rhs.SetVec(a, v)
				for b := a; b < k; b++ {
					Bff.SetSym(a, b, B.At(i, free[b]))
				}
			}
			var chol mat.Cholesky
			var sol mat.VecDense
			if !chol.Factorize(Bff) || chol.SolveVecTo(&sol, rhs) != nil {
				return projectedDescent(g, l, u)
			}
			for a, i := range free {
				d[i] = sol.AtVec(a)
			}
		}

		violated := false
		for _, i := range free {
			if d[i] < l[i] {
				state[i], d[i], violated = -1, l[i], true
			} else if d[i] > u[i] {
				state[i], d[i], violated = 1, u[i], true
			}
		}
		if violated {
			continue
		}

		// release the bound whose multiplier has the wrong sign
		var q mat.VecDense
		q.MulVec(B, mat.NewVecDense(n, d))
		worst, worstVal := -1, 1e-12
		for i := range d {
			if u[i]-l[i] <= 0 {
				continue
			}
			qi := g[i] + q.AtVec(i)
			switch {
			case state[i] == -1 && -qi > worstVal:
				worst, worstVal = i, -qi
			case state[i] == 1 && qi > worstVal:
				worst, worstVal = i, qi
			}
		}
		if worst < 0 {
			return d
		}
		state[worst] = 0
	}
	return clampStep(d, l, u)
}

func projectedDescent(g, l, u []float64) []float64 {
	d := make([]float64, len(g))
	for i := range g {
		d[i] = math.Min(math.Max(-g[i], l[i]), u[i])
	}
	return d
}

func clampStep(d, l, u []float64) []float64 {
	for i := range d {
		d[i] = math.Min(math.Max(d[i], l[i]), u[i])
	}
	return d
}

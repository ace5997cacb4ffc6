// Package optimization wraps the equilibrium solver in a bounded nonlinear
// program.
//
// An [Optimizer] collects [Constraint] values, whose weighted squared
// residuals add up to the penalty, and [Parameter] values, which form the
// search vector. [Optimizer.Solve] then searches the box spanned by the
// parameter bounds with the selected [Algorithm]:
//
//	opt := optimization.New()
//	opt.AddConstraint(optimization.PointConstraint{Node: 3, Target: geom.V(2, 0, -1)})
//	opt.AddParameter(optimization.DeviationEdgeParameter{Edge: 4, Low: 1, Up: 1})
//
//	opts := optimization.DefaultOptions()
//	opts.Algorithm = optimization.LBFGS
//	opts.Eps = optimization.Tolerance(1e-6)
//	res, err := opt.Solve(ctx, topo, opts)
//
// Every objective evaluation writes the candidate vector onto its own clone
// of the topology and runs a full equilibrium solve, so the caller's
// topology is never modified. Gradients are finite differences; the stencil
// evaluations run concurrently, bounded by Options.Concurrent.
//
// # Algorithms
//
// LBFGS and TNEWTON delegate to gonum/optimize on a sine reparameterization
// of the box, so every iterate stays in bounds. SLSQP, AUGLAG and MMA are
// implemented here on top of gonum/mat and handle the bounds themselves.
package optimization

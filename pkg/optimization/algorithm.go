package optimization

import (
	"fmt"
	"strings"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
)

// Algorithm selects the local gradient-based method that takes steps.
type Algorithm int

const (
	// SLSQP is a bounded sequential quadratic method with a BFGS Hessian.
	SLSQP Algorithm = iota
	// LBFGS is limited-memory BFGS on a bound-preserving reparameterization.
	LBFGS
	// AUGLAG is an augmented Lagrangian over the bound constraints.
	AUGLAG
	// MMA is the method of moving asymptotes.
	MMA
	// TNEWTON is a Newton method with a finite-difference Hessian on the
	// same reparameterization as LBFGS.
	TNEWTON
)

var algorithmNames = [...]string{
	SLSQP:   "SLSQP",
	LBFGS:   "LBFGS",
	AUGLAG:  "AUGLAG",
	MMA:     "MMA",
	TNEWTON: "TNEWTON",
}

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm { return []Algorithm{SLSQP, LBFGS, AUGLAG, MMA, TNEWTON} }

func (a Algorithm) String() string {
	if a.Valid() {
		return algorithmNames[a]
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Valid reports whether a is one of the defined algorithms.
func (a Algorithm) Valid() bool { return a >= SLSQP && a <= TNEWTON }

// ParseAlgorithm parses an algorithm name case-insensitively. Hyphens and
// underscores are ignored, so "l-bfgs" and "L_BFGS" both give [LBFGS].
func ParseAlgorithm(name string) (Algorithm, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	for a, n := range algorithmNames {
		if n == norm {
			return Algorithm(a), nil
		}
	}
	return 0, cemerrors.New(cemerrors.ErrCodeInvalidAlgorithm,
		"unknown algorithm %q (want one of SLSQP, LBFGS, AUGLAG, MMA, TNEWTON)", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(b []byte) error {
	v, err := ParseAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Status is the terminal state of an optimization run.
type Status int

const (
	// StatusSuccess means the method converged (objective change below Eps
	// or a stationary point was found).
	StatusSuccess Status = iota
	// StatusObjectiveReached means the objective dropped to Eps or below.
	StatusObjectiveReached
	// StatusIterationLimit means Iters was exhausted first.
	StatusIterationLimit
	// StatusFailure means the method broke down numerically. The best point
	// seen so far is still returned.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusObjectiveReached:
		return "objective reached"
	case StatusIterationLimit:
		return "iteration limit"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Converged reports whether s is one of the successful states.
func (s Status) Converged() bool { return s == StatusSuccess || s == StatusObjectiveReached }

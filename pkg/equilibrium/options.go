package equilibrium

import (
	"io"

	"github.com/charmbracelet/log"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
)

const (
	// DefaultEta is the default convergence tolerance on node displacement.
	DefaultEta = 1e-6
	// DefaultTmax is the default iteration cap.
	DefaultTmax = 100
)

// Iteration is passed to [Options.Callback] after every solver iteration.
type Iteration struct {
	Step         int
	Displacement float64
}

// Options configures a solve.
type Options struct {
	// Eta is the absolute tolerance on the maximum node displacement between
	// two iterations. It is also the threshold below which a residual force
	// is treated as zero.
	Eta float64

	// Tmax caps the number of iterations.
	Tmax int

	// Verbose logs every iteration at debug level.
	Verbose bool

	// Logger receives solver logs. Nil discards them.
	Logger *log.Logger

	// Callback, when set, is invoked after every iteration.
	Callback func(Iteration)
}

// DefaultOptions returns Eta=1e-6 and Tmax=100.
func DefaultOptions() Options {
	return Options{Eta: DefaultEta, Tmax: DefaultTmax}
}

// Validate checks that Eta and Tmax are usable.
func (o Options) Validate() error {
	if err := cemerrors.ValidateTolerance("eta", o.Eta); err != nil {
		return err
	}
	return cemerrors.ValidateIterations("tmax", o.Tmax)
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}

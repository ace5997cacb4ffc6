package io

import (
	"time"

	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/optimization"
	"github.com/matzehuels/cem/pkg/topology"
)

// SolverDoc holds equilibrium solver settings. Zero fields keep the
// defaults.
type SolverDoc struct {
	Eta  float64 `json:"eta,omitempty" toml:"eta,omitempty"`
	Tmax int     `json:"tmax,omitempty" toml:"tmax,omitempty"`
}

// Options returns the solver options described by doc.
func (doc SolverDoc) Options() equilibrium.Options {
	o := equilibrium.DefaultOptions()
	if doc.Eta != 0 {
		o.Eta = doc.Eta
	}
	if doc.Tmax != 0 {
		o.Tmax = doc.Tmax
	}
	return o
}

// SolveRequest asks for the static equilibrium of a topology.
type SolveRequest struct {
	Topology TopologyDoc `json:"topology" toml:"topology"`
	Solver   SolverDoc   `json:"solver,omitzero" toml:"solver,omitempty"`
}

// ConstraintDoc is a tagged constraint. Type selects which fields apply:
//
//	point             node, target
//	plane             node, plane
//	line              node, line
//	trail_force       edge, force
//	deviation_length  edge, length
//	reaction          node, reaction
type ConstraintDoc struct {
	Type     string      `json:"type" toml:"type"`
	Node     int         `json:"node,omitempty" toml:"node,omitempty"`
	Edge     int         `json:"edge,omitempty" toml:"edge,omitempty"`
	Target   *[3]float64 `json:"target,omitempty" toml:"target,omitempty"`
	Plane    *PlaneDoc   `json:"plane,omitempty" toml:"plane,omitempty"`
	Line     *LineDoc    `json:"line,omitempty" toml:"line,omitempty"`
	Force    *float64    `json:"force,omitempty" toml:"force,omitempty"`
	Length   *float64    `json:"length,omitempty" toml:"length,omitempty"`
	Reaction *[3]float64 `json:"reaction,omitempty" toml:"reaction,omitempty"`
	Weight   float64     `json:"weight,omitempty" toml:"weight,omitempty"`
}

// ParameterDoc is a tagged parameter. Type is trail_length, deviation_force
// or support; support parameters use node and axis, the others edge.
type ParameterDoc struct {
	Type string  `json:"type" toml:"type"`
	Edge int     `json:"edge,omitempty" toml:"edge,omitempty"`
	Node int     `json:"node,omitempty" toml:"node,omitempty"`
	Axis int     `json:"axis,omitempty" toml:"axis,omitempty"`
	Low  float64 `json:"low" toml:"low"`
	Up   float64 `json:"up" toml:"up"`
}

// OptionsDoc holds optimizer settings. Zero fields keep the defaults.
type OptionsDoc struct {
	Algorithm  string   `json:"algorithm,omitempty" toml:"algorithm,omitempty"`
	Iters      int      `json:"iters,omitempty" toml:"iters,omitempty"`
	Eps        *float64 `json:"eps,omitempty" toml:"eps,omitempty"`
	Tmax       int      `json:"tmax,omitempty" toml:"tmax,omitempty"`
	Eta        float64  `json:"eta,omitempty" toml:"eta,omitempty"`
	Concurrent int      `json:"concurrent,omitempty" toml:"concurrent,omitempty"`
}

// OptimizeRequest is a complete optimization problem.
type OptimizeRequest struct {
	Topology    TopologyDoc     `json:"topology" toml:"topology"`
	Constraints []ConstraintDoc `json:"constraints" toml:"constraints"`
	Parameters  []ParameterDoc  `json:"parameters" toml:"parameters"`
	Options     OptionsDoc      `json:"options,omitzero" toml:"options,omitempty"`
}

func missing(kind, field string) error {
	return cemerrors.New(cemerrors.ErrCodeParameter, "%s constraint needs %q", kind, field)
}

// Constraint converts doc into an optimization constraint.
func (doc ConstraintDoc) Constraint() (optimization.Constraint, error) {
	switch doc.Type {
	case "point":
		if doc.Target == nil {
			return nil, missing(doc.Type, "target")
		}
		return optimization.PointConstraint{Node: doc.Node, Target: vec(*doc.Target), Weight: doc.Weight}, nil
	case "plane":
		if doc.Plane == nil {
			return nil, missing(doc.Type, "plane")
		}
		return optimization.PlaneConstraint{Node: doc.Node, Plane: doc.Plane.plane(), Weight: doc.Weight}, nil
	case "line":
		if doc.Line == nil {
			return nil, missing(doc.Type, "line")
		}
		l := geom.Line{A: vec(doc.Line.A), B: vec(doc.Line.B)}
		return optimization.LineConstraint{Node: doc.Node, Line: l, Weight: doc.Weight}, nil
	case "trail_force":
		if doc.Force == nil {
			return nil, missing(doc.Type, "force")
		}
		return optimization.TrailEdgeForceConstraint{Edge: doc.Edge, Force: *doc.Force, Weight: doc.Weight}, nil
	case "deviation_length":
		if doc.Length == nil {
			return nil, missing(doc.Type, "length")
		}
		return optimization.DeviationEdgeLengthConstraint{Edge: doc.Edge, Length: *doc.Length, Weight: doc.Weight}, nil
	case "reaction":
		if doc.Reaction == nil {
			return nil, missing(doc.Type, "reaction")
		}
		return optimization.ReactionForceConstraint{Node: doc.Node, Force: vec(*doc.Reaction), Weight: doc.Weight}, nil
	default:
		return nil, cemerrors.New(cemerrors.ErrCodeParameter, "unknown constraint type %q", doc.Type)
	}
}

// Parameter converts doc into an optimization parameter.
func (doc ParameterDoc) Parameter() (optimization.Parameter, error) {
	switch doc.Type {
	case "trail_length":
		return optimization.TrailEdgeParameter{Edge: doc.Edge, Low: doc.Low, Up: doc.Up}, nil
	case "deviation_force":
		return optimization.DeviationEdgeParameter{Edge: doc.Edge, Low: doc.Low, Up: doc.Up}, nil
	case "support":
		return optimization.SupportParameter{Node: doc.Node, Axis: doc.Axis, Low: doc.Low, Up: doc.Up}, nil
	default:
		return nil, cemerrors.New(cemerrors.ErrCodeParameter, "unknown parameter type %q", doc.Type)
	}
}

// Options returns the optimizer options described by doc.
func (doc OptionsDoc) Options() (optimization.Options, error) {
	o := optimization.DefaultOptions()
	if doc.Algorithm != "" {
		a, err := optimization.ParseAlgorithm(doc.Algorithm)
		if err != nil {
			return o, err
		}
		o.Algorithm = a
	}
	if doc.Iters != 0 {
		o.Iters = doc.Iters
	}
	if doc.Tmax != 0 {
		o.Tmax = doc.Tmax
	}
	if doc.Eta != 0 {
		o.Eta = doc.Eta
	}
	o.Eps = doc.Eps
	o.Concurrent = doc.Concurrent
	return o, nil
}

// Problem builds the topology, the optimizer and its options.
func (req OptimizeRequest) Problem() (*topology.Diagram, *optimization.Optimizer, optimization.Options, error) {
	opts, err := req.Options.Options()
	if err != nil {
		return nil, nil, optimization.Options{}, err
	}
	topo, err := req.Topology.Diagram()
	if err != nil {
		return nil, nil, optimization.Options{}, err
	}
	opt := optimization.New()
	for i, c := range req.Constraints {
		cc, err := c.Constraint()
		if err != nil {
			return nil, nil, optimization.Options{}, cemerrors.Wrap(cemerrors.ErrCodeParameter, err, "constraint %d", i)
		}
		opt.AddConstraint(cc)
	}
	for i, p := range req.Parameters {
		pp, err := p.Parameter()
		if err != nil {
			return nil, nil, optimization.Options{}, cemerrors.Wrap(cemerrors.ErrCodeParameter, err, "parameter %d", i)
		}
		opt.AddParameter(pp)
	}
	return topo, opt, opts, nil
}

// EncodeConstraint converts a built-in constraint into a document. Unknown
// implementations report false.
func EncodeConstraint(c optimization.Constraint) (ConstraintDoc, bool) {
	switch c := c.(type) {
	case optimization.PointConstraint:
		return ConstraintDoc{Type: "point", Node: c.Node, Target: ptr(array(c.Target)), Weight: c.Weight}, true
	case optimization.PlaneConstraint:
		return ConstraintDoc{Type: "plane", Node: c.Node, Plane: planeDoc(c.Plane), Weight: c.Weight}, true
	case optimization.LineConstraint:
		return ConstraintDoc{Type: "line", Node: c.Node, Line: &LineDoc{A: array(c.Line.A), B: array(c.Line.B)}, Weight: c.Weight}, true
	case optimization.TrailEdgeForceConstraint:
		return ConstraintDoc{Type: "trail_force", Edge: c.Edge, Force: ptr(c.Force), Weight: c.Weight}, true
	case optimization.DeviationEdgeLengthConstraint:
		return ConstraintDoc{Type: "deviation_length", Edge: c.Edge, Length: ptr(c.Length), Weight: c.Weight}, true
	case optimization.ReactionForceConstraint:
		return ConstraintDoc{Type: "reaction", Node: c.Node, Reaction: ptr(array(c.Force)), Weight: c.Weight}, true
	default:
		return ConstraintDoc{}, false
	}
}

// EncodeParameter converts a built-in parameter into a document.
func EncodeParameter(p optimization.Parameter) (ParameterDoc, bool) {
	switch p := p.(type) {
	case optimization.TrailEdgeParameter:
		return ParameterDoc{Type: "trail_length", Edge: p.Edge, Low: p.Low, Up: p.Up}, true
	case optimization.DeviationEdgeParameter:
		return ParameterDoc{Type: "deviation_force", Edge: p.Edge, Low: p.Low, Up: p.Up}, true
	case optimization.SupportParameter:
		return ParameterDoc{Type: "support", Node: p.Node, Axis: p.Axis, Low: p.Low, Up: p.Up}, true
	default:
		return ParameterDoc{}, false
	}
}

// ResultDoc is the serialized outcome of an optimization run.
type ResultDoc struct {
	Form       FormDoc     `json:"form" toml:"form"`
	Topology   TopologyDoc `json:"topology" toml:"topology"`
	Objective  float64     `json:"objective" toml:"objective"`
	GradNorm   float64     `json:"grad_norm" toml:"grad_norm"`
	Evals      int         `json:"evals" toml:"evals"`
	Iterations int         `json:"iterations" toml:"iterations"`
	DurationMS int64       `json:"duration_ms" toml:"duration_ms"`
	Status     string      `json:"status" toml:"status"`
	Converged  bool        `json:"converged" toml:"converged"`
	Values     []float64   `json:"values" toml:"values"`
	Lower      []float64   `json:"lower" toml:"lower"`
	Upper      []float64   `json:"upper" toml:"upper"`
}

// EncodeResult converts r into a document.
func EncodeResult(r *optimization.Result) ResultDoc {
	return ResultDoc{
		Form:       EncodeForm(r.Form),
		Topology:   EncodeTopology(r.Topology),
		Objective:  r.Objective,
		GradNorm:   r.GradNorm,
		Evals:      r.Evals,
		Iterations: r.Iterations,
		DurationMS: r.Duration.Milliseconds(),
		Status:     r.Status.String(),
		Converged:  r.Converged,
		Values:     r.Values,
		Lower:      r.Lower,
		Upper:      r.Upper,
	}
}

// Duration returns the run time recorded in doc.
func (doc ResultDoc) Duration() time.Duration { return time.Duration(doc.DurationMS) * time.Millisecond }

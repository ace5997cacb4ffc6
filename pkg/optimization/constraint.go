package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

// Constraint contributes a non-negative residual to the penalty function.
// All built-in constraints return a weighted squared error; a zero Weight
// counts as 1.
type Constraint interface {
	// Validate checks the references of the constraint against topo.
	Validate(topo *topology.Diagram) error
	// Penalty evaluates the weighted residual on a solved form.
	Penalty(f *form.Diagram) float64
	fmt.Stringer
}

func weight(w float64) float64 {
	if w == 0 {
		return 1
	}
	return w
}

func checkNode(topo *topology.Diagram, node int) error {
	if _, ok := topo.Node(node); !ok {
		return cemerrors.New(cemerrors.ErrCodeParameter, "node %d does not exist", node)
	}
	return nil
}

func checkEdge(topo *topology.Diagram, edge int, kind topology.EdgeKind, attr string) error {
	e, ok := topo.Edge(edge)
	if !ok {
		return cemerrors.New(cemerrors.ErrCodeParameter, "edge %d does not exist", edge)
	}
	if e.Kind() != kind {
		return cemerrors.New(cemerrors.ErrCodeParameter,
			"%s is not an attribute of %s edge %d", attr, e.Kind(), edge)
	}
	return nil
}

// PointConstraint pulls a node towards a target point.
type PointConstraint struct {
	Node   int
	Target geom.Vec
	Weight float64
}

func (c PointConstraint) Validate(topo *topology.Diagram) error { return checkNode(topo, c.Node) }

func (c PointConstraint) Penalty(f *form.Diagram) float64 {
	p, _ := f.Position(c.Node)
	return weight(c.Weight) * r3.Norm2(r3.Sub(p, c.Target))
}

func (c PointConstraint) String() string {
	return fmt.Sprintf("point(node=%d, target=%v)", c.Node, c.Target)
}

// PlaneConstraint pulls a node onto a plane.
type PlaneConstraint struct {
	Node   int
	Plane  geom.Plane
	Weight float64
}

func (c PlaneConstraint) Validate(topo *topology.Diagram) error {
	if _, ok := geom.Unit(c.Plane.Normal, 0); !ok {
		return cemerrors.New(cemerrors.ErrCodeParameter, "plane constraint on node %d has a zero normal", c.Node)
	}
	return checkNode(topo, c.Node)
}

func (c PlaneConstraint) Penalty(f *form.Diagram) float64 {
	p, _ := f.Position(c.Node)
	d := c.Plane.Distance(p)
	return weight(c.Weight) * d * d
}

func (c PlaneConstraint) String() string { return fmt.Sprintf("plane(node=%d)", c.Node) }

// LineConstraint pulls a node onto the infinite line through two points.
type LineConstraint struct {
	Node   int
	Line   geom.Line
	Weight float64
}

func (c LineConstraint) Validate(topo *topology.Diagram) error { return checkNode(topo, c.Node) }

func (c LineConstraint) Penalty(f *form.Diagram) float64 {
	p, _ := f.Position(c.Node)
	d := c.Line.Distance(p)
	return weight(c.Weight) * d * d
}

func (c LineConstraint) String() string { return fmt.Sprintf("line(node=%d)", c.Node) }

// TrailEdgeForceConstraint targets the signed force of a trail edge.
type TrailEdgeForceConstraint struct {
	Edge   int
	Force  float64
	Weight float64
}

func (c TrailEdgeForceConstraint) Validate(topo *topology.Diagram) error {
	return checkEdge(topo, c.Edge, topology.EdgeKindTrail, "force constraint")
}

func (c TrailEdgeForceConstraint) Penalty(f *form.Diagram) float64 {
	e, _ := f.Edge(c.Edge)
	d := e.Force - c.Force
	return weight(c.Weight) * d * d
}

func (c TrailEdgeForceConstraint) String() string {
	return fmt.Sprintf("trail-force(edge=%d, force=%g)", c.Edge, c.Force)
}

// DeviationEdgeLengthConstraint targets the solved length of a deviation edge.
type DeviationEdgeLengthConstraint struct {
	Edge   int
	Length float64
	Weight float64
}

func (c DeviationEdgeLengthConstraint) Validate(topo *topology.Diagram) error {
	return checkEdge(topo, c.Edge, topology.EdgeKindDeviation, "length constraint")
}

func (c DeviationEdgeLengthConstraint) Penalty(f *form.Diagram) float64 {
	e, _ := f.Edge(c.Edge)
	d := e.Length - c.Length
	return weight(c.Weight) * d * d
}

func (c DeviationEdgeLengthConstraint) String() string {
	return fmt.Sprintf("deviation-length(edge=%d, length=%g)", c.Edge, c.Length)
}

// ReactionForceConstraint targets the reaction vector at a support.
type ReactionForceConstraint struct {
	Node   int
	Force  geom.Vec
	Weight float64
}

func (c ReactionForceConstraint) Validate(topo *topology.Diagram) error {
	if err := checkNode(topo, c.Node); err != nil {
		return err
	}
	if !topo.IsSupport(c.Node) {
		return cemerrors.New(cemerrors.ErrCodeParameter, "reaction constraint on unsupported node %d", c.Node)
	}
	return nil
}

func (c ReactionForceConstraint) Penalty(f *form.Diagram) float64 {
	r, _ := f.Reaction(c.Node)
	return weight(c.Weight) * r3.Norm2(r3.Sub(r, c.Force))
}

func (c ReactionForceConstraint) String() string {
	return fmt.Sprintf("reaction(node=%d, force=%v)", c.Node, c.Force)
}

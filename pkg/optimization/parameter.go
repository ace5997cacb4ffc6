package optimization

import (
	"fmt"
	"math"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

// Parameter is one tunable scalar of the search vector. Low and Up are
// relative to the value the parameter has when the run starts, so the
// search interval is [v-Low, v+Up].
type Parameter interface {
	Validate(topo *topology.Diagram) error
	Value(topo *topology.Diagram) float64
	Apply(topo *topology.Diagram, v float64) error
	Bounds() (low, up float64)
	fmt.Stringer
}

func checkBounds(p Parameter) error {
	low, up := p.Bounds()
	for _, b := range [2]float64{low, up} {
		if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			return cemerrors.New(cemerrors.ErrCodeParameter,
				"%s: bounds must be finite and non-negative, got [%g, %g]", p, low, up)
		}
	}
	return nil
}

// TrailEdgeParameter tunes the signed length of a trail edge.
type TrailEdgeParameter struct {
	Edge    int
	Low, Up float64
}

func (p TrailEdgeParameter) Validate(topo *topology.Diagram) error {
	if err := checkEdge(topo, p.Edge, topology.EdgeKindTrail, "length"); err != nil {
		return err
	}
	return checkBounds(p)
}

func (p TrailEdgeParameter) Value(topo *topology.Diagram) float64 {
	e, _ := topo.Edge(p.Edge)
	return e.(topology.TrailEdge).Length
}

func (p TrailEdgeParameter) Apply(topo *topology.Diagram, v float64) error {
	return topo.SetTrailLength(p.Edge, v)
}

func (p TrailEdgeParameter) Bounds() (float64, float64) { return p.Low, p.Up }
func (p TrailEdgeParameter) String() string              { return fmt.Sprintf("length(edge=%d)", p.Edge) }

// DeviationEdgeParameter tunes the signed force of a deviation edge.
type DeviationEdgeParameter struct {
	Edge    int
	Low, Up float64
}

func (p DeviationEdgeParameter) Validate(topo *topology.Diagram) error {
	if err := checkEdge(topo, p.Edge, topology.EdgeKindDeviation, "force"); err != nil {
		return err
	}
	return checkBounds(p)
}

func (p DeviationEdgeParameter) Value(topo *topology.Diagram) float64 {
	e, _ := topo.Edge(p.Edge)
	return e.(topology.DeviationEdge).Force
}

func (p DeviationEdgeParameter) Apply(topo *topology.Diagram, v float64) error {
	return topo.SetDeviationForce(p.Edge, v)
}

func (p DeviationEdgeParameter) Bounds() (float64, float64) { return p.Low, p.Up }
func (p DeviationEdgeParameter) String() string              { return fmt.Sprintf("force(edge=%d)", p.Edge) }

// SupportParameter tunes one coordinate (0=X, 1=Y, 2=Z) of a support.
type SupportParameter struct {
	Node    int
	Axis    int
	Low, Up float64
}

func (p SupportParameter) Validate(topo *topology.Diagram) error {
	if err := checkNode(topo, p.Node); err != nil {
		return err
	}
	if !topo.IsSupport(p.Node) {
		return cemerrors.New(cemerrors.ErrCodeParameter, "node %d is not a support", p.Node)
	}
	if p.Axis < 0 || p.Axis > 2 {
		return cemerrors.New(cemerrors.ErrCodeParameter, "axis %d out of range [0, 2]", p.Axis)
	}
	return checkBounds(p)
}

func (p SupportParameter) Value(topo *topology.Diagram) float64 {
	n, _ := topo.Node(p.Node)
	return geom.Component(n.Position, p.Axis)
}

func (p SupportParameter) Apply(topo *topology.Diagram, v float64) error {
	n, ok := topo.Node(p.Node)
	if !ok {
		return cemerrors.New(cemerrors.ErrCodeParameter, "node %d does not exist", p.Node)
	}
	return topo.SetNodePosition(p.Node, geom.WithComponent(n.Position, p.Axis, v))
}

func (p SupportParameter) Bounds() (float64, float64) { return p.Low, p.Up }
func (p SupportParameter) String() string {
	return fmt.Sprintf("support(node=%d, axis=%c)", p.Node, "xyz"[min(max(p.Axis, 0), 2)])
}

package topology

import "github.com/matzehuels/cem/pkg/geom"

// EdgeKind is the immutable type tag of an edge.
type EdgeKind int

const (
	EdgeKindTrail EdgeKind = iota
	EdgeKindDeviation
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeKindTrail:
		return "trail"
	case EdgeKindDeviation:
		return "deviation"
	default:
		return "unknown"
	}
}

// Edge is implemented by [TrailEdge] and [DeviationEdge] only.
type Edge interface {
	Endpoints() (u, v int)
	Kind() EdgeKind
	edge()
}

// TrailEdge is a member along a trail. Length is signed: positive places the
// next node along the force carried by the edge (tension), negative against
// it (compression). When Plane is set, the next node lands on the plane and
// only the sign of Length is used.
type TrailEdge struct {
	U, V   int
	Length float64
	Plane  *geom.Plane
}

func (e TrailEdge) Endpoints() (int, int) { return e.U, e.V }
func (TrailEdge) Kind() EdgeKind          { return EdgeKindTrail }
func (TrailEdge) edge()                   {}

// DeviationEdge connects two nodes with a force of fixed magnitude whose
// direction follows the geometry. Positive is tension.
type DeviationEdge struct {
	U, V  int
	Force float64
}

func (e DeviationEdge) Endpoints() (int, int) { return e.U, e.V }
func (DeviationEdge) Kind() EdgeKind          { return EdgeKindDeviation }
func (DeviationEdge) edge()                   {}

// Other returns the endpoint of e opposite to node.
func Other(e Edge, node int) int {
	u, v := e.Endpoints()
	if u == node {
		return v
	}
	return u
}

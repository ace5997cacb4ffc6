// Package form holds the result of a static equilibrium solve.
//
// A [Diagram] is an immutable snapshot: solved node positions, the signed
// force and resolved length of every edge, support reactions and the solver
// status. Accessors return copies, so a Diagram can be shared freely between
// goroutines once created.
package form

import (
	"slices"

	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

// Node is a solved node.
type Node struct {
	ID       int
	Position geom.Vec
	Load     geom.Vec
	Kind     topology.NodeKind

	// Support data. Reaction is zero for unsupported nodes.
	Support  bool
	Fixed    [3]bool
	Reaction geom.Vec
}

// RestrainedReaction returns the reaction with the components of free
// degrees of freedom zeroed.
func (n Node) RestrainedReaction() geom.Vec {
	r := n.Reaction
	for axis, fixed := range n.Fixed {
		if !fixed {
			r = geom.WithComponent(r, axis, 0)
		}
	}
	return r
}

// Edge is a solved edge. Force is signed (positive is tension). Length is
// the distance between the solved endpoints, carrying the sign of the
// trail length for trail edges.
type Edge struct {
	ID     int
	U, V   int
	Kind   topology.EdgeKind
	Force  float64
	Length float64
}

// Status reports how the solve terminated. A solve that hits its iteration
// cap is still returned, with Converged set to false.
type Status struct {
	Converged    bool
	Iterations   int
	Displacement float64 // max node displacement in the last iteration
}

// Diagram is a form diagram. Create one with [New].
type Diagram struct {
	nodes  []Node
	index  map[int]int
	edges  []Edge
	trails [][]int
	status Status
}

// New creates a form diagram. Edges must be indexed by their edge ID.
// The slices are copied.
func New(nodes []Node, edges []Edge, trails [][]int, status Status) *Diagram {
	d := &Diagram{
		nodes:  slices.Clone(nodes),
		index:  make(map[int]int, len(nodes)),
		edges:  slices.Clone(edges),
		trails: make([][]int, len(trails)),
		status: status,
	}
	for i, n := range d.nodes {
		d.index[n.ID] = i
	}
	for i, t := range trails {
		d.trails[i] = slices.Clone(t)
	}
	return d
}

// Node returns the solved node with the given ID.
func (d *Diagram) Node(id int) (Node, bool) {
	i, ok := d.index[id]
	if !ok {
		return Node{}, false
	}
	return d.nodes[i], true
}

// Position returns the solved position of node.
func (d *Diagram) Position(id int) (geom.Vec, bool) {
	n, ok := d.Node(id)
	return n.Position, ok
}

// Nodes returns all nodes in topology order.
func (d *Diagram) Nodes() []Node { return slices.Clone(d.nodes) }

// NodeIDs returns all node IDs in topology order.
func (d *Diagram) NodeIDs() []int {
	ids := make([]int, len(d.nodes))
	for i, n := range d.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Edge returns the solved edge with the given ID.
func (d *Diagram) Edge(id int) (Edge, bool) {
	if id < 0 || id >= len(d.edges) {
		return Edge{}, false
	}
	return d.edges[id], true
}

// Edges returns all edges indexed by edge ID.
func (d *Diagram) Edges() []Edge { return slices.Clone(d.edges) }

// Reaction returns the reaction at a support. It returns false for nodes
// that are not supported.
func (d *Diagram) Reaction(id int) (geom.Vec, bool) {
	n, ok := d.Node(id)
	if !ok || !n.Support {
		return geom.Zero, false
	}
	return n.Reaction, true
}

// Supports returns the IDs of supported nodes in topology order.
func (d *Diagram) Supports() []int {
	var ids []int
	for _, n := range d.nodes {
		if n.Support {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Load returns the load applied to node.
func (d *Diagram) Load(id int) geom.Vec {
	n, _ := d.Node(id)
	return n.Load
}

// Trails returns the trails the solve followed.
func (d *Diagram) Trails() [][]int {
	out := make([][]int, len(d.trails))
	for i, t := range d.trails {
		out[i] = slices.Clone(t)
	}
	return out
}

// Status returns the solver status.
func (d *Diagram) Status() Status { return d.status }

// Transformed returns a copy of d with positions mapped through t. Loads
// and reactions are free vectors and only see the linear part of t.
// Forces and lengths are copied unchanged. d itself is not modified.
func (d *Diagram) Transformed(t geom.Transform) *Diagram {
	nodes := slices.Clone(d.nodes)
	for i := range nodes {
		nodes[i].Position = t.Apply(nodes[i].Position)
		nodes[i].Load = t.ApplyVector(nodes[i].Load)
		nodes[i].Reaction = t.ApplyVector(nodes[i].Reaction)
	}
	return New(nodes, d.edges, d.trails, d.status)
}

// Bounds returns the axis-aligned bounding box of the solved positions.
func (d *Diagram) Bounds() (lo, hi geom.Vec) {
	for i, n := range d.nodes {
		p := n.Position
		if i == 0 {
			lo, hi = p, p
			continue
		}
		lo = geom.V(min(lo.X, p.X), min(lo.Y, p.Y), min(lo.Z, p.Z))
		hi = geom.V(max(hi.X, p.X), max(hi.Y, p.Y), max(hi.Z, p.Z))
	}
	return lo, hi
}

package topology

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/cem/pkg/geom"
)

var (
	// ErrDuplicateNode is returned by [Diagram.AddNode] when the ID is taken.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an edge, load, support or query
	// references a node that does not exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownEdge is returned when an edge ID is out of range.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrSelfLoop is returned by [Diagram.AddEdge] when both endpoints match.
	ErrSelfLoop = errors.New("edge endpoints must differ")

	// ErrEdgeKind is returned when a trail attribute is set on a deviation
	// edge or the other way around.
	ErrEdgeKind = errors.New("attribute does not match edge kind")

	// ErrFrozen is returned by structural mutations after [Diagram.BuildTrails].
	ErrFrozen = errors.New("topology is frozen after trail decomposition")

	// ErrNoSupports is returned by [Diagram.BuildTrails] when no node is supported.
	ErrNoSupports = errors.New("topology has no supports")

	// ErrAmbiguousTrail is returned by [Diagram.BuildTrails] when a node has
	// more than two trail edges, a support has more than one, or a node is
	// reachable from two different supports.
	ErrAmbiguousTrail = errors.New("ambiguous trail membership")

	// ErrUnsupportedTrail is returned by [Diagram.BuildTrails] for a chain of
	// trail edges that never reaches a support.
	ErrUnsupportedTrail = errors.New("trail is not connected to a support")

	// ErrUnsupportedNode is returned by [Diagram.BuildTrails] for a node that
	// has no trail edge and could not be given an auxiliary trail.
	ErrUnsupportedNode = errors.New("node does not belong to any trail")
)

// NodeKind distinguishes user nodes from nodes created during decomposition.
type NodeKind int

const (
	// NodeKindRegular is a node added by the caller.
	NodeKindRegular NodeKind = iota
	// NodeKindAuxiliary is a synthetic support created by BuildTrails(true)
	// to anchor a node that only has deviation edges.
	NodeKindAuxiliary
)

func (k NodeKind) String() string {
	if k == NodeKindAuxiliary {
		return "auxiliary"
	}
	return "regular"
}

// Node is a vertex of the topology. Position is the input coordinate: the
// fixed location for supports and the initial guess for every other node.
type Node struct {
	ID       int
	Position geom.Vec
	Kind     NodeKind
}

// IsAuxiliary reports whether the node was synthesized by BuildTrails.
func (n Node) IsAuxiliary() bool { return n.Kind == NodeKindAuxiliary }

// Support pins a node. Fixed marks which of the X, Y, Z degrees of freedom
// are restrained; the reaction reported for free components is residual.
type Support struct {
	Node  int
	Fixed [3]bool
}

// AllFixed is the DOF mask of a fully pinned support.
var AllFixed = [3]bool{true, true, true}

// Diagram is the topology diagram: the mutable graph of a form-finding
// problem. The zero value is not usable; create one with [New].
type Diagram struct {
	nodes    map[int]*Node
	order    []int // node insertion order
	edges    []Edge
	incident map[int][]int // node -> incident edge IDs
	loads    map[int]geom.Vec
	supports []Support
	isSup    map[int]int // node -> index into supports

	frozen     bool
	trails     [][]int
	trailEdges [][]int // trailEdges[t][i] joins trails[t][i] and trails[t][i+1]
	trailOf    map[int]int
	seq        map[int]int
	dirs       map[int][2]int
}

// New creates an empty topology diagram.
func New() *Diagram {
	return &Diagram{
		nodes:    make(map[int]*Node),
		incident: make(map[int][]int),
		loads:    make(map[int]geom.Vec),
		isSup:    make(map[int]int),
	}
}

// AddNode adds a node at the given input position.
func (d *Diagram) AddNode(id int, pos geom.Vec) error {
	if d.frozen {
		return ErrFrozen
	}
	return d.addNode(Node{ID: id, Position: pos})
}

func (d *Diagram) addNode(n Node) error {
	if _, ok := d.nodes[n.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
	}
	d.nodes[n.ID] = &n
	d.order = append(d.order, n.ID)
	return nil
}

// AddEdge adds a [TrailEdge] or [DeviationEdge] and returns its edge ID.
// Edge IDs are assigned consecutively from zero.
func (d *Diagram) AddEdge(e Edge) (int, error) {
	if d.frozen {
		return -1, ErrFrozen
	}
	u, v := e.Endpoints()
	if u == v {
		return -1, fmt.Errorf("%w: %d", ErrSelfLoop, u)
	}
	for _, n := range [2]int{u, v} {
		if _, ok := d.nodes[n]; !ok {
			return -1, fmt.Errorf("%w: %d", ErrUnknownNode, n)
		}
	}
	if te, ok := e.(TrailEdge); ok && te.Plane != nil {
		p := *te.Plane
		te.Plane = &p
		e = te
	}
	return d.addEdge(e), nil
}

func (d *Diagram) addEdge(e Edge) int {
	id := len(d.edges)
	u, v := e.Endpoints()
	d.edges = append(d.edges, e)
	d.incident[u] = append(d.incident[u], id)
	d.incident[v] = append(d.incident[v], id)
	return id
}

// AddTrailEdge is shorthand for AddEdge(TrailEdge{U: u, V: v, Length: length}).
func (d *Diagram) AddTrailEdge(u, v int, length float64) (int, error) {
	return d.AddEdge(TrailEdge{U: u, V: v, Length: length})
}

// AddDeviationEdge is shorthand for AddEdge(DeviationEdge{U: u, V: v, Force: force}).
func (d *Diagram) AddDeviationEdge(u, v int, force float64) (int, error) {
	return d.AddEdge(DeviationEdge{U: u, V: v, Force: force})
}

// AddSupport pins all three degrees of freedom of node.
func (d *Diagram) AddSupport(node int) error {
	return d.AddPartialSupport(node, AllFixed)
}

// AddPartialSupport supports node with the given DOF mask. Declaring the
// same node twice replaces the mask and keeps the original declaration order.
func (d *Diagram) AddPartialSupport(node int, fixed [3]bool) error {
	if d.frozen {
		return ErrFrozen
	}
	if _, ok := d.nodes[node]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	if i, ok := d.isSup[node]; ok {
		d.supports[i].Fixed = fixed
		return nil
	}
	d.isSup[node] = len(d.supports)
	d.supports = append(d.supports, Support{Node: node, Fixed: fixed})
	return nil
}

// AddLoad applies a point load to node. Loads on the same node add up.
func (d *Diagram) AddLoad(node int, load geom.Vec) error {
	if d.frozen {
		return ErrFrozen
	}
	if _, ok := d.nodes[node]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	l := d.loads[node]
	d.loads[node] = geom.V(l.X+load.X, l.Y+load.Y, l.Z+load.Z)
	return nil
}

// SetTrailLength changes the signed length of a trail edge.
func (d *Diagram) SetTrailLength(edge int, length float64) error {
	te, err := d.trailEdge(edge)
	if err != nil {
		return err
	}
	te.Length = length
	d.edges[edge] = te
	return nil
}

// SetTrailPlane sets or clears (nil) the plane of a trail edge.
func (d *Diagram) SetTrailPlane(edge int, plane *geom.Plane) error {
	te, err := d.trailEdge(edge)
	if err != nil {
		return err
	}
	if plane != nil {
		p := *plane
		plane = &p
	}
	te.Plane = plane
	d.edges[edge] = te
	return nil
}

// SetDeviationForce changes the signed force of a deviation edge.
func (d *Diagram) SetDeviationForce(edge int, force float64) error {
	if edge < 0 || edge >= len(d.edges) {
		return fmt.Errorf("%w: %d", ErrUnknownEdge, edge)
	}
	de, ok := d.edges[edge].(DeviationEdge)
	if !ok {
		return fmt.Errorf("%w: edge %d is a %s edge", ErrEdgeKind, edge, d.edges[edge].Kind())
	}
	de.Force = force
	d.edges[edge] = de
	return nil
}

// SetNodePosition moves the input position of a node. For supports this
// moves the support itself; it is allowed after the structure is frozen.
func (d *Diagram) SetNodePosition(node int, pos geom.Vec) error {
	n, ok := d.nodes[node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	n.Position = pos
	return nil
}

func (d *Diagram) trailEdge(edge int) (TrailEdge, error) {
	if edge < 0 || edge >= len(d.edges) {
		return TrailEdge{}, fmt.Errorf("%w: %d", ErrUnknownEdge, edge)
	}
	te, ok := d.edges[edge].(TrailEdge)
	if !ok {
		return TrailEdge{}, fmt.Errorf("%w: edge %d is a %s edge", ErrEdgeKind, edge, d.edges[edge].Kind())
	}
	return te, nil
}

// Node returns the node with the given ID.
func (d *Diagram) Node(id int) (Node, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order. Auxiliary nodes come last.
func (d *Diagram) Nodes() []Node {
	out := make([]Node, len(d.order))
	for i, id := range d.order {
		out[i] = *d.nodes[id]
	}
	return out
}

// NodeIDs returns all node IDs in insertion order.
func (d *Diagram) NodeIDs() []int { return slices.Clone(d.order) }

// NodeCount returns the number of nodes, auxiliary nodes included.
func (d *Diagram) NodeCount() int { return len(d.order) }

// Edge returns the edge with the given ID.
func (d *Diagram) Edge(id int) (Edge, bool) {
	if id < 0 || id >= len(d.edges) {
		return nil, false
	}
	return d.edges[id], true
}

// Edges returns a copy of all edges indexed by edge ID.
func (d *Diagram) Edges() []Edge { return slices.Clone(d.edges) }

// EdgeCount returns the number of edges.
func (d *Diagram) EdgeCount() int { return len(d.edges) }

// EdgesOfKind returns the IDs of all edges of kind k in ID order.
func (d *Diagram) EdgesOfKind(k EdgeKind) []int {
	var ids []int
	for id, e := range d.edges {
		if e.Kind() == k {
			ids = append(ids, id)
		}
	}
	return ids
}

// Incident returns the IDs of edges touching node, in insertion order.
// The slice must not be modified.
func (d *Diagram) Incident(node int) []int { return d.incident[node] }

// Load returns the summed load on node (zero when unloaded).
func (d *Diagram) Load(node int) geom.Vec { return d.loads[node] }

// LoadedNodes returns the IDs of nodes with a load, in node insertion order.
func (d *Diagram) LoadedNodes() []int {
	var ids []int
	for _, id := range d.order {
		if _, ok := d.loads[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Supports returns the supports in declaration order.
func (d *Diagram) Supports() []Support { return slices.Clone(d.supports) }

// Support returns the support declared on node.
func (d *Diagram) Support(node int) (Support, bool) {
	i, ok := d.isSup[node]
	if !ok {
		return Support{}, false
	}
	return d.supports[i], true
}

// IsSupport reports whether node is supported.
func (d *Diagram) IsSupport(node int) bool {
	_, ok := d.isSup[node]
	return ok
}

// Clone returns a deep copy of the diagram, trail structure included.
func (d *Diagram) Clone() *Diagram {
	c := &Diagram{
		nodes:    make(map[int]*Node, len(d.nodes)),
		order:    slices.Clone(d.order),
		edges:    make([]Edge, len(d.edges)),
		incident: make(map[int][]int, len(d.incident)),
		loads:    make(map[int]geom.Vec, len(d.loads)),
		supports: slices.Clone(d.supports),
		isSup:    make(map[int]int, len(d.isSup)),
		frozen:   d.frozen,
	}
	for id, n := range d.nodes {
		nn := *n
		c.nodes[id] = &nn
	}
	for i, e := range d.edges {
		if te, ok := e.(TrailEdge); ok && te.Plane != nil {
			p := *te.Plane
			te.Plane = &p
			e = te
		}
		c.edges[i] = e
	}
	for id, ids := range d.incident {
		c.incident[id] = slices.Clone(ids)
	}
	for id, l := range d.loads {
		c.loads[id] = l
	}
	for id, i := range d.isSup {
		c.isSup[id] = i
	}
	if d.frozen {
		c.trails = cloneRows(d.trails)
		c.trailEdges = cloneRows(d.trailEdges)
		c.trailOf = cloneMap(d.trailOf)
		c.seq = cloneMap(d.seq)
		c.dirs = make(map[int][2]int, len(d.dirs))
		for k, v := range d.dirs {
			c.dirs[k] = v
		}
	}
	return c
}

func cloneRows(rows [][]int) [][]int {
	out := make([][]int, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}

func cloneMap(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

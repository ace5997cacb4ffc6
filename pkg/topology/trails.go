package topology

import (
	"fmt"
	"slices"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/geom"
)

// BuildTrails partitions the nodes into trails rooted at supports and
// freezes the combinatorial structure.
//
// Supports are used as roots in declaration order. From each root the walk
// follows trail edges only. A node reachable from two supports fails with
// [ErrAmbiguousTrail]. The one exception is a trail edge joining two supports
// directly: the later support closes the one-edge trail of the earlier one
// and is not used as a root afterwards.
//
// Nodes left without a trail are handled as follows. Nodes that still have
// trail edges form a chain without support ([ErrUnsupportedTrail]). Nodes
// with only deviation edges get an auxiliary support and a zero-length trail
// edge when auxiliary is true, and fail with [ErrUnsupportedNode] otherwise.
// Isolated nodes always fail with [ErrUnsupportedNode].
//
// On error the diagram is left unchanged. Calling BuildTrails again after a
// successful call is a no-op.
func (d *Diagram) BuildTrails(auxiliary bool) error {
	if d.frozen {
		return nil
	}
	b, err := d.decompose(auxiliary)
	if err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeTopology, err, "build trails")
	}

	for _, aux := range b.aux {
		_ = d.addNode(Node{ID: aux.node, Position: aux.pos, Kind: NodeKindAuxiliary})
		d.isSup[aux.node] = len(d.supports)
		d.supports = append(d.supports, Support{Node: aux.node, Fixed: AllFixed})
		e := d.addEdge(TrailEdge{U: aux.node, V: aux.target})
		t := b.trailOf[aux.target]
		b.trails[t] = []int{aux.node, aux.target}
		b.trailEdges[t] = []int{e}
		b.trailOf[aux.node] = t
		b.seq[aux.node], b.seq[aux.target] = 0, 1
		b.dirs[e] = [2]int{aux.node, aux.target}
	}

	d.trails = b.trails
	d.trailEdges = b.trailEdges
	d.trailOf = b.trailOf
	d.seq = b.seq
	d.dirs = b.dirs
	d.frozen = true
	return nil
}

type auxTrail struct {
	node, target int
	pos          geom.Vec
}

type decomposition struct {
	trails     [][]int
	trailEdges [][]int
	trailOf    map[int]int
	seq        map[int]int
	dirs       map[int][2]int
	aux        []auxTrail
}

func (d *Diagram) decompose(auxiliary bool) (*decomposition, error) {
	if len(d.supports) == 0 {
		return nil, ErrNoSupports
	}

	tadj := make(map[int][]int, len(d.nodes))
	devs := make(map[int]int, len(d.nodes))
	for id, e := range d.edges {
		u, v := e.Endpoints()
		if e.Kind() == EdgeKindTrail {
			tadj[u] = append(tadj[u], id)
			tadj[v] = append(tadj[v], id)
		} else {
			devs[u]++
			devs[v]++
		}
	}
	for _, id := range d.order {
		limit := 2
		if d.IsSupport(id) {
			limit = 1
		}
		if len(tadj[id]) > limit {
			return nil, fmt.Errorf("%w: node %d has %d trail edges", ErrAmbiguousTrail, id, len(tadj[id]))
		}
	}

	b := &decomposition{
		trailOf: make(map[int]int, len(d.nodes)),
		seq:     make(map[int]int, len(d.nodes)),
		dirs:    make(map[int][2]int),
	}

	for _, s := range d.supports {
		if _, done := b.trailOf[s.Node]; done {
			continue
		}
		t := len(b.trails)
		trail := []int{s.Node}
		var edges []int
		b.trailOf[s.Node], b.seq[s.Node] = t, 0

		cur, prev := s.Node, -1
		for {
			next := -1
			for _, e := range tadj[cur] {
				if e != prev {
					next = e
					break
				}
			}
			if next < 0 {
				break
			}
			to := Other(d.edges[next], cur)
			if owner, seen := b.trailOf[to]; seen {
				return nil, fmt.Errorf("%w: node %d reached from supports %d and %d",
					ErrAmbiguousTrail, to, b.trails[owner][0], s.Node)
			}
			if d.IsSupport(to) && cur != s.Node {
				return nil, fmt.Errorf("%w: node %d reached from supports %d and %d",
					ErrAmbiguousTrail, cur, s.Node, to)
			}
			b.trailOf[to], b.seq[to] = t, len(trail)
			b.dirs[next] = [2]int{cur, to}
			trail = append(trail, to)
			edges = append(edges, next)
			if d.IsSupport(to) {
				break
			}
			cur, prev = to, next
		}
		b.trails = append(b.trails, trail)
		b.trailEdges = append(b.trailEdges, edges)
	}

	nextID := 0
	for _, id := range d.order {
		nextID = max(nextID, id+1)
	}
	for _, id := range d.order {
		if _, ok := b.trailOf[id]; ok {
			continue
		}
		switch {
		case len(tadj[id]) > 0:
			return nil, fmt.Errorf("%w: node %d", ErrUnsupportedTrail, id)
		case devs[id] > 0 && auxiliary:
			b.trailOf[id] = len(b.trails)
			b.trails = append(b.trails, nil)
			b.trailEdges = append(b.trailEdges, nil)
			b.aux = append(b.aux, auxTrail{node: nextID, target: id, pos: d.nodes[id].Position})
			nextID++
		default:
			return nil, fmt.Errorf("%w: node %d", ErrUnsupportedNode, id)
		}
	}
	return b, nil
}

// Built reports whether BuildTrails has completed successfully.
func (d *Diagram) Built() bool { return d.frozen }

// Trails returns a copy of the trails in root order. Each trail starts at
// its root support; the last node is a free end, or a closing support when
// the trail is a single edge between two supports.
func (d *Diagram) Trails() [][]int { return cloneRows(d.trails) }

// TrailCount returns the number of trails.
func (d *Diagram) TrailCount() int { return len(d.trails) }

// Trail returns the node IDs of trail t. The slice must not be modified.
func (d *Diagram) Trail(t int) []int { return d.trails[t] }

// TrailEdgeIDs returns the trail edges of trail t. Element i joins the i-th
// and (i+1)-th node of the trail. The slice must not be modified.
func (d *Diagram) TrailEdgeIDs(t int) []int { return d.trailEdges[t] }

// TrailOf returns the index of the trail containing node.
func (d *Diagram) TrailOf(node int) (int, bool) {
	t, ok := d.trailOf[node]
	return t, ok
}

// Sequence returns the position of node within its trail (0 for roots).
func (d *Diagram) Sequence(node int) (int, bool) {
	s, ok := d.seq[node]
	return s, ok
}

// Directed returns the orientation BuildTrails assigned to a trail edge:
// from is closer to the root support.
func (d *Diagram) Directed(edge int) (from, to int, ok bool) {
	dir, ok := d.dirs[edge]
	return dir[0], dir[1], ok
}

// Roots returns the root support of every trail in trail order.
func (d *Diagram) Roots() []int {
	roots := make([]int, len(d.trails))
	for i, t := range d.trails {
		roots[i] = t[0]
	}
	return roots
}

// ClosingSupports returns supports that end a trail rather than start one.
// Each of them is joined to its root by a single trail edge.
func (d *Diagram) ClosingSupports() []int {
	var out []int
	for _, t := range d.trails {
		if last := t[len(t)-1]; len(t) > 1 && d.IsSupport(last) {
			out = append(out, last)
		}
	}
	slices.Sort(out)
	return out
}

// Package equilibrium implements the CEM static equilibrium solver.
//
// The solver marches along the trails of a decomposed [topology.Diagram].
// Each iteration runs two passes:
//
//  1. A force pass from the free end of every trail back to its root. The
//     residual at a node is its load plus the deviation forces acting on it
//     plus the residual of the next node; the trail edge between two nodes
//     carries the residual of the outer one.
//  2. A position pass from the root outward. Each node is placed at the
//     signed trail length from its predecessor along the residual carried by
//     the connecting edge, or on the edge's plane when one is set.
//
// A closing support, joined to its root by a single trail edge, takes its
// own load and deviation forces as reaction and passes nothing to the edge.
// With no force to follow, it is placed at the trail length along the
// declared direction from the root, so its declared position fixes the
// direction of the edge and the length fixes the distance.
//
// Deviation force directions are taken from the positions of the previous
// iteration. The loop stops when no node moved more than Eta, or after Tmax
// iterations. Running out of iterations is not an error: the form diagram
// is returned with Status.Converged set to false.
package equilibrium

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/observability"
	"github.com/matzehuels/cem/pkg/topology"
)

// ErrNotDecomposed is returned when the topology has no trails yet.
var ErrNotDecomposed = errors.New("topology has no trails; call BuildTrails first")

// Solver runs static equilibrium solves with fixed options.
// A Solver is safe for concurrent use on distinct topologies.
type Solver struct {
	opts   Options
	logger *log.Logger
}

// NewSolver validates opts and returns a solver.
func NewSolver(opts Options) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Solver{opts: opts, logger: opts.logger()}, nil
}

// Options returns the solver options.
func (s *Solver) Options() Options { return s.opts }

// StaticEquilibrium solves topo with opts. It is shorthand for NewSolver
// followed by Solve.
func StaticEquilibrium(ctx context.Context, topo *topology.Diagram, opts Options) (*form.Diagram, error) {
	s, err := NewSolver(opts)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx, topo)
}

// Solve computes the equilibrium form of topo. The topology is read only.
// The context is checked between iterations.
func (s *Solver) Solve(ctx context.Context, topo *topology.Diagram) (*form.Diagram, error) {
	if !topo.Built() {
		return nil, cemerrors.Wrap(cemerrors.ErrCodeTopology, ErrNotDecomposed, "static equilibrium")
	}

	start := time.Now()
	hooks := observability.Solver()
	hooks.OnSolveStart(ctx, topo.NodeCount(), topo.EdgeCount())

	st := newState(topo)
	status, err := s.iterate(ctx, st)
	hooks.OnSolveComplete(ctx, status.Iterations, status.Converged, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if !status.Converged {
		s.logger.Warn("static equilibrium did not converge",
			"iterations", status.Iterations, "displacement", status.Displacement, "eta", s.opts.Eta)
	} else if s.opts.Verbose {
		s.logger.Debug("static equilibrium converged",
			"iterations", status.Iterations, "displacement", status.Displacement)
	}
	return st.diagram(status), nil
}

func (s *Solver) iterate(ctx context.Context, st *state) (form.Status, error) {
	var status form.Status
	for t := 1; t <= s.opts.Tmax; t++ {
		if err := ctx.Err(); err != nil {
			return status, err
		}

		st.deviationForces()
		st.forcePass()
		disp := st.positionPass(s.opts.Eta)

		status = form.Status{Iterations: t, Displacement: disp}
		if s.opts.Verbose {
			s.logger.Debug("iteration", "t", t, "displacement", disp)
		}
		if s.opts.Callback != nil {
			s.opts.Callback(Iteration{Step: t, Displacement: disp})
		}
		if disp < s.opts.Eta {
			status.Converged = true
			break
		}
	}
	return status, nil
}

// state holds the working arrays of one solve, indexed by node position in
// topology order and by edge ID.
type state struct {
	topo  *topology.Diagram
	ids   []int
	index map[int]int

	input []geom.Vec // input positions
	pos   []geom.Vec // positions of the current iteration
	load  []geom.Vec
	dev   []geom.Vec // summed deviation forces per node
	resid []geom.Vec // residual at each node, towards the root
	close []bool     // closing supports absorb their own residual

	devEdges []int
	lengths  []float64 // resolved signed trail lengths by edge ID
}

func newState(topo *topology.Diagram) *state {
	ids := topo.NodeIDs()
	n := len(ids)
	st := &state{
		topo:     topo,
		ids:      ids,
		index:    make(map[int]int, n),
		input:    make([]geom.Vec, n),
		pos:      make([]geom.Vec, n),
		load:     make([]geom.Vec, n),
		dev:      make([]geom.Vec, n),
		resid:    make([]geom.Vec, n),
		close:    make([]bool, n),
		devEdges: topo.EdgesOfKind(topology.EdgeKindDeviation),
		lengths:  make([]float64, topo.EdgeCount()),
	}
	for i, id := range ids {
		node, _ := topo.Node(id)
		st.index[id] = i
		st.input[i] = node.Position
		st.pos[i] = node.Position
		st.load[i] = topo.Load(id)
	}
	for _, id := range topo.ClosingSupports() {
		st.close[st.index[id]] = true
	}
	return st
}

// carried returns the force node i passes to the trail edge towards its
// root.
func (st *state) carried(i int) geom.Vec {
	if st.close[i] {
		return geom.Zero
	}
	return st.resid[i]
}

// deviationForces accumulates deviation edge forces from the current
// positions. Coincident endpoints contribute nothing.
func (st *state) deviationForces() {
	for i := range st.dev {
		st.dev[i] = geom.Zero
	}
	for _, id := range st.devEdges {
		e, _ := st.topo.Edge(id)
		de := e.(topology.DeviationEdge)
		if de.Force == 0 {
			continue
		}
		u, v := st.index[de.U], st.index[de.V]
		dir, ok := geom.Unit(r3.Sub(st.pos[v], st.pos[u]), 0)
		if !ok {
			continue
		}
		f := r3.Scale(de.Force, dir)
		st.dev[u] = r3.Add(st.dev[u], f)
		st.dev[v] = r3.Sub(st.dev[v], f)
	}
}

func (st *state) forcePass() {
	for t := range st.topo.TrailCount() {
		trail := st.topo.Trail(t)
		carry := geom.Zero
		for k := len(trail) - 1; k >= 0; k-- {
			i := st.index[trail[k]]
			st.resid[i] = r3.Add(r3.Add(st.load[i], st.dev[i]), carry)
			carry = st.carried(i)
		}
	}
}

// positionPass places every node from its root outward and returns the
// maximum displacement against the previous positions.
func (st *state) positionPass(eta float64) float64 {
	var disp float64
	for t := range st.topo.TrailCount() {
		trail := st.topo.Trail(t)
		edges := st.topo.TrailEdgeIDs(t)

		root := st.index[trail[0]]
		disp = math.Max(disp, geom.Distance(st.pos[root], st.input[root]))
		st.pos[root] = st.input[root]

		for k, eid := range edges {
			from, to := st.index[trail[k]], st.index[trail[k+1]]
			e, _ := st.topo.Edge(eid)
			te := e.(topology.TrailEdge)

			next, length := st.place(from, to, te, eta)
			disp = math.Max(disp, geom.Distance(next, st.pos[to]))
			st.pos[to] = next
			st.lengths[eid] = length
		}
	}
	return disp
}

// place computes the position of node to, following node from along
// trail edge te. It returns the position and the resolved signed length.
func (st *state) place(from, to int, te topology.TrailEdge, eta float64) (geom.Vec, float64) {
	origin := st.pos[from]
	if te.Length == 0 && te.Plane == nil {
		return origin, 0
	}

	dir, ok := geom.Unit(st.carried(to), eta)
	step := te.Length
	if !ok {
		// no force to follow: keep the input direction
		dir, ok = geom.Unit(r3.Sub(st.input[to], st.input[from]), 0)
		if !ok {
			dir = geom.V(1, 0, 0)
		}
		step = math.Abs(step)
	}

	if te.Plane != nil {
		if s, hit := te.Plane.IntersectLine(origin, dir); hit {
			p := r3.Add(origin, r3.Scale(s, dir))
			return p, sign(te.Length) * math.Abs(s)
		}
	}
	return r3.Add(origin, r3.Scale(step, dir)), sign(te.Length) * math.Abs(step)
}

func (st *state) diagram(status form.Status) *form.Diagram {
	topo := st.topo

	nodes := make([]form.Node, len(st.ids))
	for i, id := range st.ids {
		n, _ := topo.Node(id)
		fn := form.Node{ID: id, Position: st.pos[i], Load: st.load[i], Kind: n.Kind}
		if sup, ok := topo.Support(id); ok {
			fn.Support = true
			fn.Fixed = sup.Fixed
			fn.Reaction = r3.Scale(-1, st.resid[i])
		}
		nodes[i] = fn
	}

	edges := make([]form.Edge, topo.EdgeCount())
	for id, e := range topo.Edges() {
		u, v := e.Endpoints()
		fe := form.Edge{ID: id, U: u, V: v, Kind: e.Kind()}
		switch e := e.(type) {
		case topology.TrailEdge:
			_, outer, _ := topo.Directed(id)
			fe.Force = sign(e.Length) * r3.Norm(st.carried(st.index[outer]))
			fe.Length = sign(st.lengths[id]) * geom.Distance(st.pos[st.index[u]], st.pos[st.index[v]])
			if st.lengths[id] == 0 {
				fe.Length = geom.Distance(st.pos[st.index[u]], st.pos[st.index[v]])
			}
		case topology.DeviationEdge:
			fe.Force = e.Force
			fe.Length = geom.Distance(st.pos[st.index[u]], st.pos[st.index[v]])
		}
		edges[id] = fe
	}

	return form.New(nodes, edges, topo.Trails(), status)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

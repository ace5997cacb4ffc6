// Package topology provides the combinatorial graph behind a CEM form-finding
// problem: nodes, trail and deviation edges, loads and supports.
//
// # Overview
//
// A [Diagram] is a multigraph whose edges come in two fixed kinds:
//
//   - [TrailEdge]: carries a signed length. Positive lengths put the member in
//     tension, negative lengths in compression. An optional [geom.Plane]
//     replaces the magnitude with the distance to that plane, keeping the sign.
//   - [DeviationEdge]: carries a signed force magnitude. Positive forces pull
//     the endpoints together (tension), negative forces push them apart.
//
// Parallel edges between the same pair of nodes are allowed; edges are
// addressed by the integer ID returned from [Diagram.AddEdge].
//
// # Trails
//
// [Diagram.BuildTrails] partitions the nodes into trails: chains of trail
// edges that start at a support. Each trail is walked away from its root
// support; a walk that runs into another support stops there and that
// support closes the trail instead of starting one of its own.
//
//	d := topology.New()
//	d.AddNode(0, geom.V(0, 0, 0))
//	d.AddNode(1, geom.V(0, 0, -1))
//	d.AddTrailEdge(0, 1, 1.0)
//	d.AddSupport(0)
//	d.AddLoad(1, geom.V(0, 0, -1))
//	if err := d.BuildTrails(false); err != nil {
//	    // errors.Is(err, topology.ErrNoSupports) ...
//	}
//
// Once trails are built the combinatorial structure is frozen: further calls
// to AddNode, AddEdge, AddSupport or AddLoad fail with [ErrFrozen]. Only
// geometric parameters (trail lengths and planes, deviation forces, support
// positions) can still be changed, which is what the optimizer relies on.
//
// Decomposition failures are returned as TOPOLOGY coded errors from
// [github.com/matzehuels/cem/pkg/errors] wrapping one of the sentinels
// below, so both errors.Is and the code helpers work.
//
// # Concurrency
//
// Diagram is not safe for concurrent use. Use [Diagram.Clone] to hand
// independent copies to concurrent solves.
package topology

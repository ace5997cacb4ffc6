package io

import (
	"fmt"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

// TopologyDoc is the serialized form of a [topology.Diagram].
type TopologyDoc struct {
	Nodes     []NodeDoc    `json:"nodes" toml:"nodes"`
	Edges     []EdgeDoc    `json:"edges" toml:"edges"`
	Loads     []LoadDoc    `json:"loads,omitempty" toml:"loads,omitempty"`
	Supports  []SupportDoc `json:"supports" toml:"supports"`
	Auxiliary bool         `json:"auxiliary_trails,omitempty" toml:"auxiliary_trails,omitempty"`
}

type NodeDoc struct {
	ID       int        `json:"id" toml:"id"`
	Position [3]float64 `json:"position" toml:"position"`
}

type EdgeDoc struct {
	Kind   string    `json:"kind" toml:"kind"`
	U      int       `json:"u" toml:"u"`
	V      int       `json:"v" toml:"v"`
	Length *float64  `json:"length,omitempty" toml:"length,omitempty"`
	Plane  *PlaneDoc `json:"plane,omitempty" toml:"plane,omitempty"`
	Force  *float64  `json:"force,omitempty" toml:"force,omitempty"`
}

type PlaneDoc struct {
	Origin [3]float64 `json:"origin" toml:"origin"`
	Normal [3]float64 `json:"normal" toml:"normal"`
}

type LineDoc struct {
	A [3]float64 `json:"a" toml:"a"`
	B [3]float64 `json:"b" toml:"b"`
}

type LoadDoc struct {
	Node   int        `json:"node" toml:"node"`
	Vector [3]float64 `json:"vector" toml:"vector"`
}

type SupportDoc struct {
	Node  int      `json:"node" toml:"node"`
	Fixed *[3]bool `json:"fixed,omitempty" toml:"fixed,omitempty"`
}

func vec(a [3]float64) geom.Vec   { return geom.V(a[0], a[1], a[2]) }
func array(v geom.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func (p PlaneDoc) plane() geom.Plane { return geom.Plane{Origin: vec(p.Origin), Normal: vec(p.Normal)} }

func planeDoc(p geom.Plane) *PlaneDoc {
	return &PlaneDoc{Origin: array(p.Origin), Normal: array(p.Normal)}
}

// Diagram builds the topology described by doc and decomposes it into
// trails. Structural problems are returned as TOPOLOGY errors naming the
// offending entry.
func (doc TopologyDoc) Diagram() (*topology.Diagram, error) {
	d, err := doc.unbuilt()
	if err != nil {
		return nil, cemerrors.Wrap(cemerrors.ErrCodeTopology, err, "topology")
	}
	if err := d.BuildTrails(doc.Auxiliary); err != nil {
		return nil, err
	}
	return d, nil
}

func (doc TopologyDoc) unbuilt() (*topology.Diagram, error) {
	d := topology.New()
	for _, n := range doc.Nodes {
		if err := d.AddNode(n.ID, vec(n.Position)); err != nil {
			return nil, fmt.Errorf("node %d: %w", n.ID, err)
		}
	}
	for i, e := range doc.Edges {
		edge, err := e.edge()
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if _, err := d.AddEdge(edge); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	for _, l := range doc.Loads {
		if err := d.AddLoad(l.Node, vec(l.Vector)); err != nil {
			return nil, fmt.Errorf("load on %d: %w", l.Node, err)
		}
	}
	for _, s := range doc.Supports {
		fixed := topology.AllFixed
		if s.Fixed != nil {
			fixed = *s.Fixed
		}
		if err := d.AddPartialSupport(s.Node, fixed); err != nil {
			return nil, fmt.Errorf("support %d: %w", s.Node, err)
		}
	}
	return d, nil
}

func (e EdgeDoc) edge() (topology.Edge, error) {
	switch e.Kind {
	case "trail":
		if e.Length == nil {
			return nil, fmt.Errorf("trail edge %d-%d has no length", e.U, e.V)
		}
		te := topology.TrailEdge{U: e.U, V: e.V, Length: *e.Length}
		if e.Plane != nil {
			pl := e.Plane.plane()
			te.Plane = &pl
		}
		return te, nil
	case "deviation":
		if e.Force == nil {
			return nil, fmt.Errorf("deviation edge %d-%d has no force", e.U, e.V)
		}
		return topology.DeviationEdge{U: e.U, V: e.V, Force: *e.Force}, nil
	default:
		return nil, fmt.Errorf("unknown edge kind %q", e.Kind)
	}
}

// EncodeTopology converts d into a document. Auxiliary supports and their
// trail edges are left out and Auxiliary is set instead, so reading the
// document back reproduces d.
func EncodeTopology(d *topology.Diagram) TopologyDoc {
	var doc TopologyDoc
	aux := make(map[int]bool)
	for _, n := range d.Nodes() {
		if n.IsAuxiliary() {
			aux[n.ID] = true
			doc.Auxiliary = true
			continue
		}
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: n.ID, Position: array(n.Position)})
	}
	for _, e := range d.Edges() {
		u, v := e.Endpoints()
		if aux[u] || aux[v] {
			continue
		}
		ed := EdgeDoc{Kind: e.Kind().String(), U: u, V: v}
		switch e := e.(type) {
		case topology.TrailEdge:
			ed.Length = ptr(e.Length)
			if e.Plane != nil {
				ed.Plane = planeDoc(*e.Plane)
			}
		case topology.DeviationEdge:
			ed.Force = ptr(e.Force)
		}
		doc.Edges = append(doc.Edges, ed)
	}
	for _, n := range d.LoadedNodes() {
		doc.Loads = append(doc.Loads, LoadDoc{Node: n, Vector: array(d.Load(n))})
	}
	for _, s := range d.Supports() {
		if aux[s.Node] {
			continue
		}
		sd := SupportDoc{Node: s.Node}
		if s.Fixed != topology.AllFixed {
			fixed := s.Fixed
			sd.Fixed = &fixed
		}
		doc.Supports = append(doc.Supports, sd)
	}
	return doc
}

func ptr[T any](v T) *T { return &v }

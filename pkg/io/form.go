package io

import (
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/topology"
)

// FormDoc is the serialized form of a [form.Diagram].
type FormDoc struct {
	Nodes  []FormNodeDoc `json:"nodes" toml:"nodes"`
	Edges  []FormEdgeDoc `json:"edges" toml:"edges"`
	Trails [][]int       `json:"trails" toml:"trails"`
	Status StatusDoc     `json:"status" toml:"status"`
}

type FormNodeDoc struct {
	ID        int         `json:"id" toml:"id"`
	Position  [3]float64  `json:"position" toml:"position"`
	Load      [3]float64  `json:"load" toml:"load"`
	Auxiliary bool        `json:"auxiliary,omitempty" toml:"auxiliary,omitempty"`
	Support   bool        `json:"support,omitempty" toml:"support,omitempty"`
	Fixed     *[3]bool    `json:"fixed,omitempty" toml:"fixed,omitempty"`
	Reaction  *[3]float64 `json:"reaction,omitempty" toml:"reaction,omitempty"`
}

type FormEdgeDoc struct {
	ID     int     `json:"id" toml:"id"`
	Kind   string  `json:"kind" toml:"kind"`
	U      int     `json:"u" toml:"u"`
	V      int     `json:"v" toml:"v"`
	Force  float64 `json:"force" toml:"force"`
	Length float64 `json:"length" toml:"length"`
}

type StatusDoc struct {
	Converged    bool    `json:"converged" toml:"converged"`
	Iterations   int     `json:"iterations" toml:"iterations"`
	Displacement float64 `json:"displacement" toml:"displacement"`
}

// EncodeForm converts f into a document.
func EncodeForm(f *form.Diagram) FormDoc {
	doc := FormDoc{Trails: f.Trails()}
	for _, n := range f.Nodes() {
		nd := FormNodeDoc{
			ID:        n.ID,
			Position:  array(n.Position),
			Load:      array(n.Load),
			Auxiliary: n.Kind == topology.NodeKindAuxiliary,
			Support:   n.Support,
		}
		if n.Support {
			fixed := n.Fixed
			nd.Fixed = &fixed
			nd.Reaction = ptr(array(n.Reaction))
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, e := range f.Edges() {
		doc.Edges = append(doc.Edges, FormEdgeDoc{
			ID: e.ID, Kind: e.Kind.String(), U: e.U, V: e.V, Force: e.Force, Length: e.Length,
		})
	}
	s := f.Status()
	doc.Status = StatusDoc{Converged: s.Converged, Iterations: s.Iterations, Displacement: s.Displacement}
	return doc
}

// Diagram rebuilds the form diagram described by doc.
func (doc FormDoc) Diagram() (*form.Diagram, error) {
	nodes := make([]form.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		fn := form.Node{
			ID:       n.ID,
			Position: vec(n.Position),
			Load:     vec(n.Load),
			Support:  n.Support,
		}
		if n.Auxiliary {
			fn.Kind = topology.NodeKindAuxiliary
		}
		if n.Fixed != nil {
			fn.Fixed = *n.Fixed
		}
		if n.Reaction != nil {
			fn.Reaction = vec(*n.Reaction)
		}
		nodes[i] = fn
	}
	edges := make([]form.Edge, len(doc.Edges))
	for i, e := range doc.Edges {
		if e.ID != i {
			return nil, cemerrors.New(cemerrors.ErrCodeInvalidFormat, "edge %d listed at position %d", e.ID, i)
		}
		var kind topology.EdgeKind
		switch e.Kind {
		case "trail":
			kind = topology.EdgeKindTrail
		case "deviation":
			kind = topology.EdgeKindDeviation
		default:
			return nil, cemerrors.New(cemerrors.ErrCodeInvalidFormat, "edge %d: unknown kind %q", e.ID, e.Kind)
		}
		edges[i] = form.Edge{ID: e.ID, U: e.U, V: e.V, Kind: kind, Force: e.Force, Length: e.Length}
	}
	status := form.Status{
		Converged:    doc.Status.Converged,
		Iterations:   doc.Status.Iterations,
		Displacement: doc.Status.Displacement,
	}
	return form.New(nodes, edges, doc.Trails, status), nil
}

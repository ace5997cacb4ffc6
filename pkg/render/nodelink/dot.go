package nodelink

import (
	"bytes"
	"fmt"
	"strings"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

// View selects the plane diagrams are projected onto.
type View string

const (
	ViewXY View = "xy"
	ViewXZ View = "xz"
	ViewYZ View = "yz"
)

// DefaultScale is the number of points per model unit.
const DefaultScale = 72.0

// Edge colors. Form edges are colored by force sign, topology edges by kind.
const (
	ColorTension     = "#d62728"
	ColorCompression = "#1f77b4"
	ColorTrail       = "#2ca02c"
	ColorDeviation   = "#7f7f7f"
	ColorZero        = "#bbbbbb"
)

// Options configures diagram rendering.
type Options struct {
	// View is the projection plane. Empty means [ViewXY].
	View View
	// Scale is the number of points per model unit. Zero means [DefaultScale].
	Scale float64
	// Labels adds edge forces (form) or lengths and forces (topology).
	Labels bool
}

// Validate rejects unknown views and negative scales.
func (o Options) Validate() error {
	switch o.View {
	case "", ViewXY, ViewXZ, ViewYZ:
	default:
		return cemerrors.New(cemerrors.ErrCodeInvalidInput, "unknown view %q (want xy, xz or yz)", o.View)
	}
	if o.Scale < 0 {
		return cemerrors.New(cemerrors.ErrCodeInvalidInput, "scale must be positive, got %g", o.Scale)
	}
	return nil
}

func (o Options) scale() float64 {
	if o.Scale == 0 {
		return DefaultScale
	}
	return o.Scale
}

// project maps p onto the view plane in points.
func (o Options) project(p geom.Vec) (float64, float64) {
	s := o.scale()
	switch o.View {
	case ViewXZ:
		return p.X * s, p.Z * s
	case ViewYZ:
		return p.Y * s, p.Z * s
	default:
		return p.X * s, p.Y * s
	}
}

// TopologyDOT converts a topology diagram to Graphviz DOT. Nodes are pinned
// at their input positions.
func TopologyDOT(d *topology.Diagram, opts Options) string {
	var buf bytes.Buffer
	header(&buf)

	for _, n := range d.Nodes() {
		_, sup := d.Support(n.ID)
		writeNode(&buf, opts, n.ID, n.Position, sup, n.IsAuxiliary(), !geom.Close(d.Load(n.ID), geom.Vec{}, 0))
	}

	buf.WriteString("\n")
	for id, e := range d.Edges() {
		u, v := e.Endpoints()
		attrs := []string{}
		switch e := e.(type) {
		case topology.TrailEdge:
			attrs = append(attrs, "color="+quote(ColorTrail), "penwidth=2")
			if opts.Labels {
				attrs = append(attrs, fmt.Sprintf("label=%q", fmt.Sprintf("e%d l=%s", id, fmtNum(e.Length))))
			}
		case topology.DeviationEdge:
			attrs = append(attrs, "color="+quote(ColorDeviation), `style="dashed"`)
			if opts.Labels {
				attrs = append(attrs, fmt.Sprintf("label=%q", fmt.Sprintf("e%d f=%s", id, fmtNum(e.Force))))
			}
		}
		fmt.Fprintf(&buf, "  %d -- %d [%s];\n", u, v, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// FormDOT converts a form diagram to Graphviz DOT. Edges in tension are
// red, edges in compression blue, and deviation edges are dashed.
func FormDOT(f *form.Diagram, opts Options) string {
	var buf bytes.Buffer
	header(&buf)

	for _, n := range f.Nodes() {
		writeNode(&buf, opts, n.ID, n.Position, n.Support, n.Kind == topology.NodeKindAuxiliary, !geom.Close(n.Load, geom.Vec{}, 0))
	}

	buf.WriteString("\n")
	for _, e := range f.Edges() {
		attrs := []string{"color=" + quote(forceColor(e.Force)), fmt.Sprintf("penwidth=%s", fmtNum(penWidth(e.Kind)))}
		if e.Kind == topology.EdgeKindDeviation {
			attrs = append(attrs, `style="dashed"`)
		}
		if opts.Labels {
			attrs = append(attrs, fmt.Sprintf("label=%q", fmtNum(e.Force)))
		}
		fmt.Fprintf(&buf, "  %d -- %d [%s];\n", e.U, e.V, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func header(buf *bytes.Buffer) {
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fixedsize=true, width=0.3, fontsize=9];\n")
	buf.WriteString("  edge [fontsize=8];\n")
	buf.WriteString("\n")
}

func writeNode(buf *bytes.Buffer, opts Options, id int, p geom.Vec, support, aux, loaded bool) {
	x, y := opts.project(p)
	attrs := []string{
		fmt.Sprintf("label=\"%d\"", id),
		fmt.Sprintf("pos=\"%s,%s!\"", fmtNum(x), fmtNum(y)),
	}
	switch {
	case aux:
		attrs = append(attrs, "shape=square", `style="filled,dashed"`, "fillcolor=lightgrey")
	case support:
		attrs = append(attrs, "shape=square", "fillcolor=black", "fontcolor=white")
	case loaded:
		attrs = append(attrs, "fillcolor="+quote("#ffdd57"))
	}
	fmt.Fprintf(buf, "  %d [%s];\n", id, strings.Join(attrs, ", "))
}

func forceColor(force float64) string {
	switch {
	case force > 0:
		return ColorTension
	case force < 0:
		return ColorCompression
	default:
		return ColorZero
	}
}

func penWidth(k topology.EdgeKind) float64 {
	if k == topology.EdgeKindTrail {
		return 2.5
	}
	return 1
}

func fmtNum(f float64) string {
	return fmt.Sprintf("%.4g", f)
}

func quote(s string) string { return fmt.Sprintf("%q", s) }

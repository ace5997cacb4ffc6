package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/cem/pkg/equilibrium"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

// pendulums builds two hanging trails 0-1 and 2-3 joined by a strut 1-3.
func pendulums(t *testing.T) *topology.Diagram {
	t.Helper()
	d := topology.New()
	for id, p := range []geom.Vec{geom.V(0, 0, 0), geom.V(0, 0, -1), geom.V(1, 0, 0), geom.V(1, 0, -1)} {
		if err := d.AddNode(id, p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.AddTrailEdge(0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddTrailEdge(2, 3, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddDeviationEdge(1, 3, -0.5); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{1, 3} {
		if err := d.AddLoad(n, geom.V(0, 0, -1)); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestTopologyDOT(t *testing.T) {
	d := pendulums(t)
	dot := TopologyDOT(d, Options{View: ViewXZ, Labels: true})

	for _, want := range []string{
		"graph G {",
		"layout=neato;",
		`0 -- 1 [color="` + ColorTrail + `"`,
		`1 -- 3 [color="` + ColorDeviation + `", style="dashed"`,
		`label="e0 l=1"`,
		`label="e2 f=-0.5"`,
		`pos="72,-72!"`,
		`fillcolor="#ffdd57"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("TopologyDOT missing %q\n%s", want, dot)
		}
	}
}

func TestTopologyDOT_Views(t *testing.T) {
	d := topology.New()
	_ = d.AddNode(0, geom.V(1, 2, 3))

	tests := []struct {
		view View
		want string
	}{
		{"", `pos="72,144!"`},
		{ViewXY, `pos="72,144!"`},
		{ViewXZ, `pos="72,216!"`},
		{ViewYZ, `pos="144,216!"`},
	}
	for _, tt := range tests {
		dot := TopologyDOT(d, Options{View: tt.view})
		if !strings.Contains(dot, tt.want) {
			t.Errorf("view %q: missing %s", tt.view, tt.want)
		}
	}

	dot := TopologyDOT(d, Options{Scale: 10})
	if !strings.Contains(dot, `pos="10,20!"`) {
		t.Errorf("scale 10: %s", dot)
	}
}

func TestFormDOT(t *testing.T) {
	d := pendulums(t)
	if err := d.AddSupport(0); err != nil {
		t.Fatal(err)
	}
	if err := d.AddSupport(2); err != nil {
		t.Fatal(err)
	}
	if err := d.BuildTrails(false); err != nil {
		t.Fatal(err)
	}
	f, err := equilibrium.StaticEquilibrium(context.Background(), d, equilibrium.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	dot := FormDOT(f, Options{Labels: true})
	if !strings.Contains(dot, "fillcolor=black") {
		t.Error("FormDOT missing support styling")
	}
	if !strings.Contains(dot, `style="dashed"`) {
		t.Error("FormDOT missing dashed deviation edge")
	}
	if strings.Count(dot, " -- ") != 3 {
		t.Errorf("FormDOT edges = %d, want 3", strings.Count(dot, " -- "))
	}
	if !strings.Contains(dot, ColorTension) && !strings.Contains(dot, ColorCompression) {
		t.Error("FormDOT has no force colors")
	}
}

func TestForceColor(t *testing.T) {
	tests := []struct {
		force float64
		want  string
	}{
		{1, ColorTension},
		{-1, ColorCompression},
		{0, ColorZero},
	}
	for _, tt := range tests {
		if got := forceColor(tt.force); got != tt.want {
			t.Errorf("forceColor(%g) = %s, want %s", tt.force, got, tt.want)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{}).Validate(); err != nil {
		t.Errorf("zero options: %v", err)
	}
	if err := (Options{View: "xw"}).Validate(); err == nil {
		t.Error("unknown view accepted")
	}
	if err := (Options{Scale: -1}).Validate(); err == nil {
		t.Error("negative scale accepted")
	}
}

func TestRenderDOTFormat(t *testing.T) {
	data, err := Render(context.Background(), "graph G {}", FormatDOT)
	if err != nil || string(data) != "graph G {}" {
		t.Errorf("Render(dot) = %q, %v", data, err)
	}
	if _, err := Render(context.Background(), "graph G {}", "pdf"); err == nil {
		t.Error("pdf should be unsupported")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 10.00 20.00" width="10" height="20"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("no viewBox should be unchanged, got %s", got)
	}
}

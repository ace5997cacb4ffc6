package io

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/optimization"
	"github.com/matzehuels/cem/pkg/topology"
)

const chainJSON = `{
  "nodes": [
    {"id": 0, "position": [0, 0, 0]},
    {"id": 1, "position": [0, 0, -1]},
    {"id": 2, "position": [0, 0, -2]},
    {"id": 3, "position": [3, 0, -1]}
  ],
  "edges": [
    {"kind": "trail", "u": 0, "v": 1, "length": 1},
    {"kind": "trail", "u": 1, "v": 2, "length": 1, "plane": {"origin": [0, 0, -2], "normal": [0, 0, 1]}},
    {"kind": "deviation", "u": 1, "v": 3, "force": 0.5}
  ],
  "loads": [{"node": 2, "vector": [0, 0, -1]}],
  "supports": [{"node": 0}],
  "auxiliary_trails": true
}`

const chainTOML = `
auxiliary_trails = true

[[nodes]]
id = 0
position = [0.0, 0.0, 0.0]

[[nodes]]
id = 1
position = [0.0, 0.0, -1.0]

[[nodes]]
id = 2
position = [0.0, 0.0, -2.0]

[[nodes]]
id = 3
position = [3.0, 0.0, -1.0]

[[edges]]
kind = "trail"
u = 0
v = 1
length = 1.0

[[edges]]
kind = "trail"
u = 1
v = 2
length = 1.0
plane = { origin = [0.0, 0.0, -2.0], normal = [0.0, 0.0, 1.0] }

[[edges]]
kind = "deviation"
u = 1
v = 3
force = 0.5

[[loads]]
node = 2
vector = [0.0, 0.0, -1.0]

[[supports]]
node = 0
`

func TestReadTopologyFormats(t *testing.T) {
	for _, tc := range []struct {
		format Format
		input  string
	}{
		{FormatJSON, chainJSON},
		{FormatTOML, chainTOML},
	} {
		t.Run(string(tc.format), func(t *testing.T) {
			d, err := ReadTopology(strings.NewReader(tc.input), tc.format)
			require.NoError(t, err)
			require.True(t, d.Built())

			// node 3 gets an auxiliary support
			assert.Equal(t, 5, d.NodeCount())
			assert.Equal(t, 2, d.TrailCount())
			aux, ok := d.Node(4)
			require.True(t, ok)
			assert.True(t, aux.IsAuxiliary())

			e, _ := d.Edge(1)
			te := e.(topology.TrailEdge)
			require.NotNil(t, te.Plane)
			assert.Equal(t, geom.V(0, 0, 1), te.Plane.Normal)
			assert.Equal(t, geom.V(0, 0, -1), d.Load(2))
		})
	}
}

func TestTopologyRoundTrip(t *testing.T) {
	d, err := ReadTopology(strings.NewReader(chainJSON), FormatJSON)
	require.NoError(t, err)

	for _, f := range []Format{FormatJSON, FormatTOML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteTopology(d, &buf, f))

			back, err := ReadTopology(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, EncodeTopology(d), EncodeTopology(back))
			assert.Equal(t, d.Trails(), back.Trails())
		})
	}
}

func TestEncodeTopologySkipsAuxiliary(t *testing.T) {
	d, err := ReadTopology(strings.NewReader(chainJSON), FormatJSON)
	require.NoError(t, err)

	doc := EncodeTopology(d)
	assert.True(t, doc.Auxiliary)
	assert.Len(t, doc.Nodes, 4)
	assert.Len(t, doc.Edges, 3)
	assert.Len(t, doc.Supports, 1)
	assert.Nil(t, doc.Supports[0].Fixed)
}

func TestReadTopologyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  cemerrors.Code
		want  error
	}{
		{"malformed", `{"nodes": [`, cemerrors.ErrCodeInvalidFormat, nil},
		{"unknown field", `{"vertices": []}`, cemerrors.ErrCodeInvalidFormat, nil},
		{"duplicate node", `{"nodes": [{"id": 0}, {"id": 0}], "edges": [], "supports": []}`,
			cemerrors.ErrCodeTopology, topology.ErrDuplicateNode},
		{"unknown endpoint", `{"nodes": [{"id": 0}], "edges": [{"kind": "trail", "u": 0, "v": 9, "length": 1}], "supports": []}`,
			cemerrors.ErrCodeTopology, topology.ErrUnknownNode},
		{"missing length", `{"nodes": [{"id": 0}, {"id": 1}], "edges": [{"kind": "trail", "u": 0, "v": 1}], "supports": []}`,
			cemerrors.ErrCodeTopology, nil},
		{"no supports", `{"nodes": [{"id": 0}, {"id": 1}], "edges": [{"kind": "trail", "u": 0, "v": 1, "length": 1}], "supports": []}`,
			cemerrors.ErrCodeTopology, topology.ErrNoSupports},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTopology(strings.NewReader(tt.input), FormatJSON)
			require.Error(t, err)
			assert.Equal(t, tt.code, cemerrors.GetCode(err))
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want))
			}
		})
	}
}

func TestFormRoundTrip(t *testing.T) {
	d, err := ReadTopology(strings.NewReader(chainJSON), FormatJSON)
	require.NoError(t, err)
	f, err := equilibrium.StaticEquilibrium(context.Background(), d, equilibrium.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteForm(f, &buf, FormatJSON))
	back, err := ReadForm(&buf, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, f.Nodes(), back.Nodes())
	assert.Equal(t, f.Edges(), back.Edges())
	assert.Equal(t, f.Trails(), back.Trails())
	assert.Equal(t, f.Status(), back.Status())
}

func TestFileHelpers(t *testing.T) {
	d, err := ReadTopology(strings.NewReader(chainJSON), FormatJSON)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "chain.toml")
	require.NoError(t, ExportTopology(d, path))
	back, err := ImportTopology(path)
	require.NoError(t, err)
	assert.Equal(t, EncodeTopology(d), EncodeTopology(back))

	_, err = ImportTopology(filepath.Join(dir, "missing.json"))
	assert.Equal(t, cemerrors.ErrCodeFileNotFound, cemerrors.GetCode(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chain.yaml"), nil, 0o644))
	_, err = ImportTopology(filepath.Join(dir, "chain.yaml"))
	assert.Equal(t, cemerrors.ErrCodeInvalidFormat, cemerrors.GetCode(err))
}

func TestOptimizeRequestProblem(t *testing.T) {
	var topo TopologyDoc
	require.NoError(t, Read(strings.NewReader(chainJSON), FormatJSON, &topo))

	req := OptimizeRequest{
		Topology: topo,
		Constraints: []ConstraintDoc{
			{Type: "point", Node: 2, Target: &[3]float64{0.5, 0, -2}},
			{Type: "trail_force", Edge: 0, Force: ptr(1.0), Weight: 2},
		},
		Parameters: []ParameterDoc{
			{Type: "deviation_force", Edge: 2, Low: 0.5, Up: 0.5},
			{Type: "support", Node: 0, Axis: 1, Low: 1, Up: 1},
		},
		Options: OptionsDoc{Algorithm: "lbfgs", Iters: 20, Eps: ptr(1e-6)},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTOML, req))
	decoded, err := ReadOptimizeRequest(&buf, FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)

	d, opt, opts, err := decoded.Problem()
	require.NoError(t, err)
	assert.True(t, d.Built())
	assert.Equal(t, 2, opt.NumConstraints())
	assert.Equal(t, 2, opt.NumParameters())
	assert.Equal(t, optimization.LBFGS, opts.Algorithm)
	assert.Equal(t, 20, opts.Iters)
	require.NotNil(t, opts.Eps)
	assert.Equal(t, 1e-6, *opts.Eps)

	for _, c := range opt.Constraints() {
		cd, ok := EncodeConstraint(c)
		require.True(t, ok)
		back, err := cd.Constraint()
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
	for _, p := range opt.Parameters() {
		pd, ok := EncodeParameter(p)
		require.True(t, ok)
		back, err := pd.Parameter()
		require.NoError(t, err)
		assert.Equal(t, p, back)
	}
}

func TestOptimizeRequestErrors(t *testing.T) {
	var topo TopologyDoc
	require.NoError(t, Read(strings.NewReader(chainJSON), FormatJSON, &topo))

	tests := []struct {
		name string
		req  OptimizeRequest
		code cemerrors.Code
	}{
		{"unknown constraint", OptimizeRequest{Topology: topo, Constraints: []ConstraintDoc{{Type: "circle"}}},
			cemerrors.ErrCodeParameter},
		{"point without target", OptimizeRequest{Topology: topo, Constraints: []ConstraintDoc{{Type: "point"}}},
			cemerrors.ErrCodeParameter},
		{"unknown parameter", OptimizeRequest{Topology: topo, Parameters: []ParameterDoc{{Type: "load"}}},
			cemerrors.ErrCodeParameter},
		{"unknown algorithm", OptimizeRequest{Topology: topo, Options: OptionsDoc{Algorithm: "cobyla"}},
			cemerrors.ErrCodeInvalidAlgorithm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := tt.req.Problem()
			require.Error(t, err)
			assert.True(t, cemerrors.Has(err, tt.code))
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{"a.json": FormatJSON, "b.TOML": FormatTOML} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatFromPath("c.yml")
	assert.Error(t, err)
}

func ExampleReadTopology() {
	d, err := ReadTopology(strings.NewReader(chainJSON), FormatJSON)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(d.Trails())
	// Output: [[0 1 2] [4 3]]
}

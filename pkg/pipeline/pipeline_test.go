package pipeline

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cem/pkg/cache"
	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/optimization"
	"github.com/matzehuels/cem/pkg/store"
	"github.com/matzehuels/cem/pkg/topology"
)

func pendulumDoc() cemio.TopologyDoc {
	length := 1.0
	return cemio.TopologyDoc{
		Nodes: []cemio.NodeDoc{
			{ID: 0},
			{ID: 1, Position: [3]float64{0.2, 0, -1}},
		},
		Edges:    []cemio.EdgeDoc{{Kind: "trail", U: 0, V: 1, Length: &length}},
		Loads:    []cemio.LoadDoc{{Node: 1, Vector: [3]float64{0, 0, -1}}},
		Supports: []cemio.SupportDoc{{Node: 0}},
	}
}

func pendulumRequest() cemio.OptimizeRequest {
	return cemio.OptimizeRequest{
		Topology: pendulumDoc(),
		Constraints: []cemio.ConstraintDoc{
			{Type: "point", Node: 1, Target: &[3]float64{0, 0, -1.5}},
		},
		Parameters: []cemio.ParameterDoc{
			{Type: "trail_length", Edge: 0, Low: 1, Up: 1},
		},
		Options: cemio.OptionsDoc{Iters: 50},
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, log.New(io.Discard))
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	assert.IsType(t, &cache.NullCache{}, r.Cache)
	assert.NotNil(t, r.Keyer)
	assert.NotNil(t, r.Logger)
	assert.Nil(t, r.Store)
}

func TestSolveWithCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	topo, err := pendulumDoc().Diagram()
	require.NoError(t, err)
	opts := SolveOptions{Solver: equilibrium.DefaultOptions()}

	f1, hit, err := r.SolveWithCacheInfo(ctx, topo, opts)
	require.NoError(t, err)
	assert.False(t, hit)

	f2, hit, err := r.SolveWithCacheInfo(ctx, topo, opts)
	require.NoError(t, err)
	assert.True(t, hit)

	p1, _ := f1.Position(1)
	p2, _ := f2.Position(1)
	assert.InDelta(t, p1.Z, p2.Z, 1e-12)
	assert.InDelta(t, -1, p1.Z, 1e-9)
	assert.Equal(t, f1.Status(), f2.Status())

	opts.Solver.Tmax = 50
	_, hit, err = r.SolveWithCacheInfo(ctx, topo, opts)
	require.NoError(t, err)
	assert.False(t, hit, "different solver options must not share an entry")

	opts.Refresh = true
	_, hit, err = r.SolveWithCacheInfo(ctx, topo, opts)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSolveRequiresTrails(t *testing.T) {
	d := topology.New()
	_, _, err := newTestRunner(t).SolveWithCacheInfo(context.Background(), d, SolveOptions{Solver: equilibrium.DefaultOptions()})
	require.Error(t, err)
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeTopology))
}

func TestOptimizeWithCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	runs := store.NewMemoryStore()
	r.Store = runs

	var progress int
	doc, hit, err := r.OptimizeWithCacheInfo(ctx, pendulumRequest(), OptimizeOptions{
		Callback: func(optimization.Progress) { progress++ },
	})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, doc.Values, 1)
	assert.InDelta(t, 1.5, doc.Values[0], 1e-2)
	assert.Less(t, doc.Objective, 1e-4)
	assert.Positive(t, progress)

	cached, hit, err := r.OptimizeWithCacheInfo(ctx, pendulumRequest(), OptimizeOptions{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, doc.Objective, cached.Objective)
	assert.Equal(t, doc.Values, cached.Values)

	list, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1, "cache hits are not recorded")
	assert.Equal(t, "SLSQP", list[0].Algorithm)
	assert.Equal(t, doc.Status, list[0].Status)
}

func TestOptimizeInvalidRequest(t *testing.T) {
	req := pendulumRequest()
	req.Parameters = nil
	_, _, err := newTestRunner(t).OptimizeWithCacheInfo(context.Background(), req, OptimizeOptions{})
	require.Error(t, err)
	assert.True(t, cemerrors.Has(err, cemerrors.ErrCodeParameter))
}

func TestRequestHash(t *testing.T) {
	a := pendulumRequest()
	b := pendulumRequest()
	b.Options.Concurrent = 8

	ha, err := RequestHash(a)
	require.NoError(t, err)
	hb, err := RequestHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Options.Iters = 10
	hc, err := RequestHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestRenderWithCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	topo, err := pendulumDoc().Diagram()
	require.NoError(t, err)
	f, err := r.Solve(ctx, topo, SolveOptions{Solver: equilibrium.DefaultOptions()})
	require.NoError(t, err)

	opts := RenderOptions{Format: FormatDOT}
	opts.Labels = true
	dot, hit, err := r.RenderWithCacheInfo(ctx, f, opts)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, string(dot), "graph G {")

	again, hit, err := r.RenderWithCacheInfo(ctx, f, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, dot, again)

	_, _, err = r.RenderWithCacheInfo(ctx, f, RenderOptions{Format: "pdf"})
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeInvalidFormat))
}

func TestRenderTopology(t *testing.T) {
	topo, err := pendulumDoc().Diagram()
	require.NoError(t, err)
	dot, err := newTestRunner(t).RenderTopology(context.Background(), topo, RenderOptions{Format: FormatDOT})
	require.NoError(t, err)
	assert.Contains(t, string(dot), "0 -- 1")
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"dot", false},
		{"pdf", true},
		{"SVG", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestRenderOptionsDefaults(t *testing.T) {
	var o RenderOptions
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, FormatSVG, o.Format)
	assert.Equal(t, 72.0, o.Scale)
	assert.EqualValues(t, "xy", o.View)
}

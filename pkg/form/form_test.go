package form

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cem/pkg/geom"
	"github.com/matzehuels/cem/pkg/topology"
)

func sample() *Diagram {
	nodes := []Node{
		{ID: 0, Position: geom.V(0, 0, 0), Support: true, Fixed: topology.AllFixed, Reaction: geom.V(0, 0, 1)},
		{ID: 1, Position: geom.V(0, 0, -1)},
		{ID: 2, Position: geom.V(1, 0, -1.5), Load: geom.V(0, 0, -1)},
	}
	edges := []Edge{
		{ID: 0, U: 0, V: 1, Kind: topology.EdgeKindTrail, Force: 1, Length: 1},
		{ID: 1, U: 1, V: 2, Kind: topology.EdgeKindTrail, Force: 1, Length: math.Sqrt(1.25)},
	}
	return New(nodes, edges, [][]int{{0, 1, 2}}, Status{Converged: true, Iterations: 3})
}

func TestAccessors(t *testing.T) {
	d := sample()

	p, ok := d.Position(2)
	require.True(t, ok)
	assert.Equal(t, geom.V(1, 0, -1.5), p)

	_, ok = d.Position(9)
	assert.False(t, ok)

	r, ok := d.Reaction(0)
	require.True(t, ok)
	assert.Equal(t, geom.V(0, 0, 1), r)
	_, ok = d.Reaction(1)
	assert.False(t, ok, "free node has no reaction")

	assert.Equal(t, []int{0}, d.Supports())
	assert.Equal(t, geom.V(0, 0, -1), d.Load(2))
	assert.True(t, d.Status().Converged)

	e, ok := d.Edge(1)
	require.True(t, ok)
	assert.Equal(t, 2, e.V)
}

func TestAccessorsReturnCopies(t *testing.T) {
	d := sample()
	d.Nodes()[0].Position = geom.V(5, 5, 5)
	d.Trails()[0][0] = 42
	d.Edges()[0].Force = -9

	p, _ := d.Position(0)
	assert.Equal(t, geom.Zero, p)
	assert.Equal(t, 0, d.Trails()[0][0])
	e, _ := d.Edge(0)
	assert.Equal(t, 1.0, e.Force)
}

func TestTransformedRoundTrip(t *testing.T) {
	d := sample()
	tr := geom.Translation(geom.V(40, -3, 2)).Compose(geom.RotationZ(0.7))
	inv, err := tr.Inverse()
	require.NoError(t, err)

	moved := d.Transformed(tr)
	p, _ := moved.Position(1)
	assert.False(t, geom.Close(p, geom.V(0, 0, -1), 1e-9), "positions move")
	orig, _ := d.Position(1)
	assert.Equal(t, geom.V(0, 0, -1), orig, "source untouched")

	back := moved.Transformed(inv)
	for _, n := range d.Nodes() {
		got, _ := back.Node(n.ID)
		assert.True(t, geom.Close(n.Position, got.Position, 1e-9), "node %d", n.ID)
		assert.True(t, geom.Close(n.Reaction, got.Reaction, 1e-9))
		assert.True(t, geom.Close(n.Load, got.Load, 1e-9))
	}
}

func TestTranslationLeavesVectors(t *testing.T) {
	moved := sample().Transformed(geom.Translation(geom.V(10, 0, 0)))
	r, _ := moved.Reaction(0)
	assert.Equal(t, geom.V(0, 0, 1), r)
	p, _ := moved.Position(0)
	assert.Equal(t, geom.V(10, 0, 0), p)
}

func TestRestrainedReaction(t *testing.T) {
	n := Node{Support: true, Fixed: [3]bool{true, false, true}, Reaction: geom.V(1, 2, 3)}
	assert.Equal(t, geom.V(1, 0, 3), n.RestrainedReaction())
}

func TestBounds(t *testing.T) {
	lo, hi := sample().Bounds()
	assert.Equal(t, geom.V(0, 0, -1.5), lo)
	assert.Equal(t, geom.V(1, 0, 0), hi)
}

package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit(t *testing.T) {
	u, ok := Unit(V(3, 0, 4), 0)
	require.True(t, ok)
	assert.InDelta(t, 0.6, u.X, 1e-12)
	assert.InDelta(t, 0.8, u.Z, 1e-12)

	_, ok = Unit(Zero, 1e-9)
	assert.False(t, ok, "zero vector has no direction")
}

func TestComponent(t *testing.T) {
	v := V(1, 2, 3)
	for axis, want := range []float64{1, 2, 3} {
		assert.Equal(t, want, Component(v, axis))
	}
	assert.Equal(t, V(1, 9, 3), WithComponent(v, 1, 9))
	assert.Equal(t, V(1, 2, 0), FromSlice([]float64{1, 2}))
}

func TestPlane(t *testing.T) {
	pl := Plane{Origin: V(0, 0, 2), Normal: V(0, 0, 5)}
	assert.InDelta(t, -2, pl.Distance(Zero), 1e-12)

	s, ok := pl.IntersectLine(Zero, V(0, 0, -1))
	require.True(t, ok)
	assert.InDelta(t, -2, s, 1e-12)

	_, ok = pl.IntersectLine(Zero, V(1, 0, 0))
	assert.False(t, ok, "parallel line")
}

func TestLineDistance(t *testing.T) {
	l := Line{A: Zero, B: V(1, 0, 0)}
	assert.InDelta(t, 2, l.Distance(V(5, 2, 0)), 1e-12)

	degenerate := Line{A: V(1, 1, 1), B: V(1, 1, 1)}
	assert.InDelta(t, math.Sqrt(3), degenerate.Distance(V(2, 2, 2)), 1e-12)
}

func TestTransformInverse(t *testing.T) {
	tr := Translation(V(40, 0, 0)).Compose(RotationZ(math.Pi / 3)).Compose(Scale(2))
	inv, err := tr.Inverse()
	require.NoError(t, err)

	p := V(1.5, -2, 0.25)
	back := inv.Apply(tr.Apply(p))
	assert.True(t, Close(p, back, 1e-12), "round trip %v != %v", back, p)

	f := V(0, 0, -1)
	assert.Equal(t, f, Translation(V(9, 9, 9)).ApplyVector(f), "translation leaves free vectors alone")

	_, err = Scale(0).Inverse()
	assert.ErrorIs(t, err, ErrSingularTransform)
}

package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSingularTransform is returned by [Transform.Inverse] when the linear
// part of the transform cannot be inverted.
var ErrSingularTransform = errors.New("transform is not invertible")

// Transform is an affine map p ↦ L·p + T, with L stored row-major.
// The zero value is not the identity; use [Identity].
type Transform struct {
	L [9]float64
	T Vec
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{L: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// Translation returns a pure translation by v.
func Translation(v Vec) Transform {
	t := Identity()
	t.T = v
	return t
}

// Scale returns a uniform scaling about the origin.
func Scale(s float64) Transform {
	return Transform{L: [9]float64{s, 0, 0, 0, s, 0, 0, 0, s}}
}

// RotationZ returns a rotation about the Z axis by angle radians.
func RotationZ(angle float64) Transform {
	c, s := math.Cos(angle), math.Sin(angle)
	return Transform{L: [9]float64{c, -s, 0, s, c, 0, 0, 0, 1}}
}

// ApplyVector applies the linear part only. Use it for free vectors such as
// forces, which must not be translated.
func (t Transform) ApplyVector(v Vec) Vec {
	l := t.L
	return Vec{
		X: l[0]*v.X + l[1]*v.Y + l[2]*v.Z,
		Y: l[3]*v.X + l[4]*v.Y + l[5]*v.Z,
		Z: l[6]*v.X + l[7]*v.Y + l[8]*v.Z,
	}
}

// Apply maps point p through the full affine transform.
func (t Transform) Apply(p Vec) Vec {
	return r3.Add(t.ApplyVector(p), t.T)
}

// Compose returns the transform that applies u first and then t.
func (t Transform) Compose(u Transform) Transform {
	a := mat.NewDense(3, 3, t.L[:])
	b := mat.NewDense(3, 3, u.L[:])
	var c mat.Dense
	c.Mul(a, b)

	var out Transform
	copy(out.L[:], c.RawMatrix().Data)
	out.T = r3.Add(t.ApplyVector(u.T), t.T)
	return out
}

// Inverse returns the inverse transform.
func (t Transform) Inverse() (Transform, error) {
	a := mat.NewDense(3, 3, t.L[:])
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return Transform{}, ErrSingularTransform
	}

	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.L[i*3+j] = inv.At(i, j)
		}
	}
	out.T = r3.Scale(-1, out.ApplyVector(t.T))
	return out, nil
}

// Package geom provides the small set of 3D primitives the form-finding core
// needs: vectors (gonum's r3.Vec), affine transforms, planes and lines.
//
// The core only relies on "3-tuple of floats with addition and scaling";
// everything here is a thin layer over [r3] so callers can bring their own
// geometry kernel and convert at the boundary.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is the vector type used throughout cem.
type Vec = r3.Vec

// Zero is the origin / null vector.
var Zero = Vec{}

// V builds a vector from its components.
func V(x, y, z float64) Vec { return Vec{X: x, Y: y, Z: z} }

// FromSlice converts a 3-element slice into a Vec.
// Missing components are zero; extra components are ignored.
func FromSlice(s []float64) Vec {
	var v [3]float64
	copy(v[:], s)
	return Vec{X: v[0], Y: v[1], Z: v[2]}
}

// ToSlice converts a Vec into a 3-element slice.
func ToSlice(v Vec) []float64 { return []float64{v.X, v.Y, v.Z} }

// Component returns the axis-th component (0=X, 1=Y, 2=Z) of v.
func Component(v Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the axis-th component set to c.
func WithComponent(v Vec, axis int, c float64) Vec {
	switch axis {
	case 0:
		v.X = c
	case 1:
		v.Y = c
	default:
		v.Z = c
	}
	return v
}

// Unit returns the unit vector of v and true, or the zero vector and false
// when the norm of v is not greater than tol.
func Unit(v Vec, tol float64) (Vec, bool) {
	n := r3.Norm(v)
	if n <= tol || math.IsNaN(n) {
		return Zero, false
	}
	return r3.Scale(1/n, v), true
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec) float64 { return r3.Norm(r3.Sub(a, b)) }

// Finite reports whether every component of v is finite.
func Finite(v Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Close reports whether a and b are within tol of each other.
func Close(a, b Vec, tol float64) bool { return Distance(a, b) <= tol }

// Plane is an infinite plane through Origin with normal Normal.
// The normal does not need to be unit length but must not be zero.
type Plane struct {
	Origin Vec `json:"origin" toml:"origin" bson:"origin"`
	Normal Vec `json:"normal" toml:"normal" bson:"normal"`
}

// Distance returns the signed distance from p to the plane.
func (pl Plane) Distance(p Vec) float64 {
	n, ok := Unit(pl.Normal, 0)
	if !ok {
		return 0
	}
	return r3.Dot(n, r3.Sub(p, pl.Origin))
}

// IntersectLine intersects the line p + s·dir with the plane and returns the
// line parameter s. It returns false when the line is parallel to the plane.
func (pl Plane) IntersectLine(p, dir Vec) (float64, bool) {
	den := r3.Dot(pl.Normal, dir)
	if math.Abs(den) < 1e-12 {
		return 0, false
	}
	return r3.Dot(pl.Normal, r3.Sub(pl.Origin, p)) / den, true
}

// Line is an infinite line through A and B.
type Line struct {
	A Vec `json:"a" toml:"a" bson:"a"`
	B Vec `json:"b" toml:"b" bson:"b"`
}

// Distance returns the distance from p to the line. A degenerate line
// (A == B) degrades to the distance from p to A.
func (l Line) Distance(p Vec) float64 {
	d, ok := Unit(r3.Sub(l.B, l.A), 0)
	if !ok {
		return Distance(p, l.A)
	}
	ap := r3.Sub(p, l.A)
	return r3.Norm(r3.Sub(ap, r3.Scale(r3.Dot(ap, d), d)))
}

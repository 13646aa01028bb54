package geom

import (
	"fmt"
	"math"
)

// Affine is a 2D affine transform [a b c; d e f] applied as
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
//
// The six-value layout follows the convention used throughout the
// warping pipeline (resource<->projectedGeo<->viewport<->clip), same
// shape as the GDAL-style affine the transform library reference uses.
type Affine [6]float64

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{1, 0, 0, 0, 1, 0}
}

// Translate returns a pure translation.
func Translate(tx, ty float64) Affine {
	return Affine{1, 0, tx, 0, 1, ty}
}

// ScaleBy returns a pure scale about the origin.
func ScaleBy(sx, sy float64) Affine {
	return Affine{sx, 0, 0, 0, sy, 0}
}

// Rotate returns a pure counter-clockwise rotation by theta radians about
// the origin.
func Rotate(theta float64) Affine {
	c, s := math.Cos(theta), math.Sin(theta)
	return Affine{c, -s, 0, s, c, 0}
}

// Apply transforms p by a.
func (a Affine) Apply(p Point) Point {
	return Point{
		a[0]*p[0] + a[1]*p[1] + a[2],
		a[3]*p[0] + a[4]*p[1] + a[5],
	}
}

// Mul composes a and b so that (a.Mul(b)).Apply(p) == a.Apply(b.Apply(p)).
func (a Affine) Mul(b Affine) Affine {
	return Affine{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Det returns the determinant of the linear part of a.
func (a Affine) Det() float64 {
	return a[0]*a[4] - a[1]*a[3]
}

// Invertible reports whether a has a non-degenerate linear part.
func (a Affine) Invertible() bool {
	return math.Abs(a.Det()) > 1e-12
}

// Inverse returns the inverse of a. Panics if a is not invertible; callers
// on hot paths should check Invertible first (spec §4.3: "invertibility
// requires non-degenerate scale").
func (a Affine) Inverse() Affine {
	det := a.Det()
	if math.Abs(det) < 1e-12 {
		panic(fmt.Sprintf("geom: affine transform not invertible, det=%g", det))
	}
	id := 1 / det
	ia, ib := a[4]*id, -a[1]*id
	id2, ie := -a[3]*id, a[0]*id
	ic := -(ia*a[2] + ib*a[5])
	iff := -(id2*a[2] + ie*a[5])
	return Affine{ia, ib, ic, id2, ie, iff}
}

// Jacobian returns the linear (non-translation) part of a as a 2x2 matrix,
// used for per-vertex distortion and resource-per-viewport-pixel sampling
// (spec §4.1 step 5, §4.4 step 3).
func (a Affine) Jacobian() [2][2]float64 {
	return [2][2]float64{{a[0], a[1]}, {a[3], a[4]}}
}

// JacobianDet returns the determinant of the Jacobian at any point (affine
// transforms have a constant Jacobian).
func (a Affine) JacobianDet() float64 {
	return a.Det()
}

// Package geom holds the geometry primitives shared by every other
// component: points, rings, bounding boxes, affine transforms, ring
// triangulation and convex hulls. Everything here runs in float64, as do
// both rasterizer back-ends.
package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is an alias for orb.Point so geom stays interchangeable with the
// rest of the pack's geometry code (orb/geojson, orb/quadtree, orb/clip)
// without a conversion at every boundary.
type Point = orb.Point

// Ring is a closed sequence of points; by convention the first and last
// point are equal, mirroring orb.Ring.
type Ring = orb.Ring

// Sub returns a-b.
func Sub(a, b Point) Point {
	return Point{a[0] - b[0], a[1] - b[1]}
}

// Add returns a+b.
func Add(a, b Point) Point {
	return Point{a[0] + b[0], a[1] + b[1]}
}

// Scale multiplies a point by a scalar.
func Scale(p Point, s float64) Point {
	return Point{p[0] * s, p[1] * s}
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// Lerp linearly interpolates between a and b at t in [0,1].
func Lerp(a, b Point, t float64) Point {
	return Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// Centroid returns the arithmetic mean of pts. Panics on an empty slice.
func Centroid(pts []Point) Point {
	var sx, sy float64
	for _, p := range pts {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(pts))
	return Point{sx / n, sy / n}
}

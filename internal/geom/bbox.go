package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Bound is an alias for orb.Bound, used for resource, projectedGeo and
// viewport bounding boxes throughout the engine.
type Bound = orb.Bound

// EmptyBound returns a degenerate bound suitable as a Union accumulator.
func EmptyBound() Bound {
	return orb.Bound{Min: Point{math.Inf(1), math.Inf(1)}, Max: Point{math.Inf(-1), math.Inf(-1)}}
}

// BufferRatio expands b by ratio of its own width/height on every side.
// Used by the base renderer to pre-warm tile fetches at viewport edges
// (spec §4.4 step 2, default ratio 0.25).
func BufferRatio(b Bound, ratio float64) Bound {
	dx := (b.Max[0] - b.Min[0]) * ratio
	dy := (b.Max[1] - b.Min[1]) * ratio
	return orb.Bound{
		Min: Point{b.Min[0] - dx, b.Min[1] - dy},
		Max: Point{b.Max[0] + dx, b.Max[1] + dy},
	}
}

// Overlaps reports whether a and b share any area (bbox-overlap, spec
// component A).
func Overlaps(a, b Bound) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1]
}

// FromPoints returns the smallest bound enclosing pts. Panics on empty pts.
func FromPoints(pts []Point) Bound {
	b := orb.Bound{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.Extend(p)
	}
	return b
}

// Corners returns the four corners of b in clockwise order starting at
// bottom-left, used when back-projecting a rectangle's corners (spec §4.4
// step 2).
func Corners(b Bound) [4]Point {
	return [4]Point{
		{b.Min[0], b.Min[1]},
		{b.Min[0], b.Max[1]},
		{b.Max[0], b.Max[1]},
		{b.Max[0], b.Min[1]},
	}
}

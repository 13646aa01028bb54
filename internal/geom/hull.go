package geom

import "sort"

// ConvexHull returns the convex hull of pts using Andrew's monotone chain
// algorithm, as a closed ring (first point repeated at the end). No
// convex-hull helper appears in orb or elsewhere in the retrieved pack, so
// this is a from-scratch standard-library implementation (see DESIGN.md).
func ConvexHull(pts []Point) Ring {
	uniq := uniqueSorted(pts)
	n := len(uniq)
	if n < 3 {
		out := make(Ring, len(uniq))
		copy(out, uniq)
		if len(out) > 0 {
			out = append(out, out[0])
		}
		return out
	}

	hull := make([]Point, 0, 2*n)

	// Lower hull.
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper hull.
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	hull = hull[:len(hull)-1] // last point == first
	ring := make(Ring, len(hull), len(hull)+1)
	copy(ring, hull)
	ring = append(ring, ring[0])
	return ring
}

func cross(o, a, b Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func uniqueSorted(pts []Point) []Point {
	cp := make([]Point, len(pts))
	copy(cp, pts)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i][0] != cp[j][0] {
			return cp[i][0] < cp[j][0]
		}
		return cp[i][1] < cp[j][1]
	})
	out := cp[:0]
	for i, p := range cp {
		if i == 0 || p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

package geom

import "math"

// Triangle is a triple of vertex indices into a shared point slice, kept
// as indices (not embedded points) so the resource and projectedGeo
// triangulations can share topology while differing in coordinates (spec
// §3 WarpedMap.resourceTriangles / projectedGeoTriangles).
type Triangle [3]int

// DensifyRing subdivides every edge of ring so no segment exceeds
// maxSegmentLength, per spec §4.1 step 3. ring must be closed (first ==
// last point).
func DensifyRing(ring Ring, maxSegmentLength float64) Ring {
	if len(ring) < 2 {
		return ring
	}
	out := make(Ring, 0, len(ring))
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		out = append(out, a)
		d := Dist(a, b)
		if d <= maxSegmentLength || maxSegmentLength <= 0 {
			continue
		}
		n := int(math.Ceil(d / maxSegmentLength))
		for k := 1; k < n; k++ {
			t := float64(k) / float64(n)
			out = append(out, Lerp(a, b, t))
		}
	}
	out = append(out, ring[len(ring)-1])
	return out
}

// TriangulateMask runs a Bowyer-Watson Delaunay triangulation over the
// densified mask ring's vertices, discarding triangles whose centroid
// falls outside the mask (spec §4.1 step 3). It returns the point set
// actually used (ring vertices, deduplicated) and the resulting
// triangles as indices into that point set.
//
// No Delaunay-triangulation library appears anywhere in the retrieved
// example pack, so this is a from-scratch standard-library
// implementation (see DESIGN.md).
func TriangulateMask(mask Ring, maxSegmentLength float64) ([]Point, []Triangle) {
	densified := DensifyRing(mask, maxSegmentLength)
	pts := dedupClosedRing(densified)
	if len(pts) < 3 {
		return pts, nil
	}

	tris := bowyerWatson(pts)

	kept := tris[:0]
	for _, t := range tris {
		c := Centroid([]Point{pts[t[0]], pts[t[1]], pts[t[2]]})
		if PointInRing(c, mask) {
			kept = append(kept, t)
		}
	}
	return pts, kept
}

func dedupClosedRing(r Ring) []Point {
	if len(r) == 0 {
		return nil
	}
	out := make([]Point, 0, len(r))
	for i, p := range r {
		if i == len(r)-1 && len(out) > 0 && p == out[0] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PointInRing reports whether p lies inside ring using the standard
// even-odd (ray casting) rule.
func PointInRing(p Point, ring Ring) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi[1] > p[1]) != (pj[1] > p[1]) {
			xint := (pj[0]-pi[0])*(p[1]-pi[1])/(pj[1]-pi[1]) + pi[0]
			if p[0] < xint {
				inside = !inside
			}
		}
	}
	return inside
}

// bowyerWatson triangulates an unstructured point set with the classic
// incremental Bowyer-Watson algorithm: start from a super-triangle
// enclosing all points, insert points one at a time, retriangulate the
// cavity of triangles whose circumcircle contains the new point, then
// strip triangles touching the super-triangle's three sentinel vertices.
func bowyerWatson(pts []Point) []Triangle {
	n := len(pts)
	if n < 3 {
		return nil
	}

	// Build a working point list with three super-triangle vertices
	// appended at the end (indices n, n+1, n+2).
	bound := FromPoints(pts)
	dx, dy := bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1]
	dmax := math.Max(dx, dy)
	if dmax == 0 {
		dmax = 1
	}
	midx, midy := (bound.Min[0]+bound.Max[0])/2, (bound.Min[1]+bound.Max[1])/2

	work := make([]Point, n, n+3)
	copy(work, pts)
	work = append(work,
		Point{midx - 20*dmax, midy - dmax},
		Point{midx, midy + 20*dmax},
		Point{midx + 20*dmax, midy - dmax},
	)
	superA, superB, superC := n, n+1, n+2

	tris := []Triangle{{superA, superB, superC}}

	for i := 0; i < n; i++ {
		p := work[i]

		var bad []Triangle
		badSet := make(map[Triangle]bool)
		for _, t := range tris {
			if inCircumcircle(work[t[0]], work[t[1]], work[t[2]], p) {
				bad = append(bad, t)
				badSet[t] = true
			}
		}

		// Boundary of the polygonal hole: edges of bad triangles not
		// shared by another bad triangle.
		type edge struct{ a, b int }
		edgeCount := make(map[edge]int)
		edgeOf := func(a, b int) edge {
			if a > b {
				a, b = b, a
			}
			return edge{a, b}
		}
		for _, t := range bad {
			edgeCount[edgeOf(t[0], t[1])]++
			edgeCount[edgeOf(t[1], t[2])]++
			edgeCount[edgeOf(t[2], t[0])]++
		}

		next := tris[:0:0]
		for _, t := range tris {
			if !badSet[t] {
				next = append(next, t)
			}
		}
		for e, c := range edgeCount {
			if c == 1 {
				next = append(next, Triangle{e.a, e.b, i})
			}
		}
		tris = next
	}

	final := tris[:0]
	for _, t := range tris {
		if t[0] == superA || t[0] == superB || t[0] == superC ||
			t[1] == superA || t[1] == superB || t[1] == superC ||
			t[2] == superA || t[2] == superB || t[2] == superC {
			continue
		}
		final = append(final, t)
	}
	return final
}

// inCircumcircle reports whether d lies strictly inside the circumcircle
// of triangle (a, b, c).
func inCircumcircle(a, b, c, d Point) bool {
	ax, ay := a[0]-d[0], a[1]-d[1]
	bx, by := b[0]-d[0], b[1]-d[1]
	cx, cy := c[0]-d[0], c[1]-d[1]

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	// Orientation of (a,b,c) determines the sign convention.
	orient := (b[0]-a[0])*(c[1]-a[1]) - (c[0]-a[0])*(b[1]-a[1])
	if orient < 0 {
		det = -det
	}
	return det > 1e-9
}

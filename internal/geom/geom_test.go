package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineInverseRoundTrip(t *testing.T) {
	a := Translate(10, -5).Mul(Rotate(0.3)).Mul(ScaleBy(2, 3))
	require.True(t, a.Invertible())

	p := Point{7, 11}
	got := a.Inverse().Apply(a.Apply(p))
	assert.InDelta(t, p[0], got[0], 1e-9)
	assert.InDelta(t, p[1], got[1], 1e-9)
}

func TestAffineComposition(t *testing.T) {
	a := Translate(1, 2)
	b := ScaleBy(3, 4)
	p := Point{1, 1}
	direct := a.Apply(b.Apply(p))
	composed := a.Mul(b).Apply(p)
	assert.InDelta(t, direct[0], composed[0], 1e-9)
	assert.InDelta(t, direct[1], composed[1], 1e-9)
}

func TestAffineNotInvertibleDegenerateScale(t *testing.T) {
	a := ScaleBy(0, 1)
	assert.False(t, a.Invertible())
}

func square(x0, y0, x1, y1 float64) Ring {
	return Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestTriangulateMaskCoversSquare(t *testing.T) {
	mask := square(0, 0, 100, 100)
	pts, tris := TriangulateMask(mask, 25)
	require.NotEmpty(t, tris)

	var area float64
	for _, tr := range tris {
		area += triangleArea(pts[tr[0]], pts[tr[1]], pts[tr[2]])
	}
	assert.InDelta(t, 100*100, area, 1e-6)
}

func triangleArea(a, b, c Point) float64 {
	return math.Abs((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1])) / 2
}

func TestConvexHullSquareWithInteriorPoint(t *testing.T) {
	pts := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}}
	hull := ConvexHull(pts)
	// interior point must not appear on the hull.
	for _, p := range hull {
		assert.NotEqual(t, Point{5, 5}, p)
	}
	assert.Equal(t, hull[0], hull[len(hull)-1])
}

func TestBoundBufferRatio(t *testing.T) {
	b := FromPoints([]Point{{0, 0}, {10, 10}})
	buffered := BufferRatio(b, 0.25)
	assert.InDelta(t, -2.5, buffered.Min[0], 1e-9)
	assert.InDelta(t, 12.5, buffered.Max[0], 1e-9)
}

func TestPointInRing(t *testing.T) {
	r := square(0, 0, 10, 10)
	assert.True(t, PointInRing(Point{5, 5}, r))
	assert.False(t, PointInRing(Point{15, 5}, r))
}

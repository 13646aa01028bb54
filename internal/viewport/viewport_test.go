package viewport

import (
	"testing"

	"georef-tiler/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectedGeoToViewportRoundTrip(t *testing.T) {
	v := New(800, 600, geom.Point{100, 200}, 2.0, 0.4, 1)
	to := v.ProjectedGeoToViewport()
	require.True(t, to.Invertible())

	p := geom.Point{123, -45}
	got := to.Inverse().Apply(to.Apply(p))
	assert.InDelta(t, p[0], got[0], 1e-6)
	assert.InDelta(t, p[1], got[1], 1e-6)
}

func TestProjectedGeoToViewportMapsCenterToViewportCenter(t *testing.T) {
	v := New(800, 600, geom.Point{100, 200}, 2.0, 0.4, 1)
	to := v.ProjectedGeoToViewport()
	c := to.Apply(v.Center)
	assert.InDelta(t, 400, c[0], 1e-6)
	assert.InDelta(t, 300, c[1], 1e-6)
}

func square(x0, y0, x1, y1 float64) []geom.Point {
	return []geom.Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestFromSizeAndPolygonContain(t *testing.T) {
	v, err := FromSizeAndPolygon(200, 100, square(0, 0, 100, 100), Contain, 0, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 50, v.Center[0], 1e-9)
	assert.InDelta(t, 50, v.Center[1], 1e-9)
	assert.InDelta(t, 1.0, v.Scale, 1e-9)
}

func TestFromSizeAndPolygonContainEncloses(t *testing.T) {
	poly := square(10, 10, 90, 40)
	v, err := FromSizeAndPolygon(300, 300, poly, Contain, 0, 1, 0)
	require.NoError(t, err)
	rect := geom.FromPoints(v.ProjectedGeoRectangle())
	polyBound := geom.FromPoints(poly)
	assert.True(t, rect.Min[0] <= polyBound.Min[0]+1e-6)
	assert.True(t, rect.Min[1] <= polyBound.Min[1]+1e-6)
	assert.True(t, rect.Max[0] >= polyBound.Max[0]-1e-6)
	assert.True(t, rect.Max[1] >= polyBound.Max[1]-1e-6)
}

func TestFromSizeAndPolygonCoverIsEnclosedByPolygon(t *testing.T) {
	poly := square(0, 0, 300, 300)
	v, err := FromSizeAndPolygon(100, 200, poly, Cover, 0, 1, 0)
	require.NoError(t, err)
	rect := geom.FromPoints(v.ProjectedGeoRectangle())
	polyBound := geom.FromPoints(poly)
	assert.True(t, rect.Min[0] >= polyBound.Min[0]-1e-6)
	assert.True(t, rect.Max[0] <= polyBound.Max[0]+1e-6)
}

func TestFromSizeAndPolygonEmptyInput(t *testing.T) {
	_, err := FromSizeAndPolygon(100, 100, nil, Contain, 0, 1, 0)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

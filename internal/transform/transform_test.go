package transform

import (
	"testing"

	"georef-tiler/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityPairs() []Pair {
	return []Pair{
		{Resource: geom.Point{0, 0}, ProjectedGeo: geom.Point{0, 0}},
		{Resource: geom.Point{100, 0}, ProjectedGeo: geom.Point{100, 0}},
		{Resource: geom.Point{100, 100}, ProjectedGeo: geom.Point{100, 100}},
		{Resource: geom.Point{0, 100}, ProjectedGeo: geom.Point{0, 100}},
	}
}

func TestPolynomial1RoundTrip(t *testing.T) {
	pairs := []Pair{
		{Resource: geom.Point{0, 0}, ProjectedGeo: geom.Point{10, 20}},
		{Resource: geom.Point{100, 0}, ProjectedGeo: geom.Point{110, 20}},
		{Resource: geom.Point{0, 100}, ProjectedGeo: geom.Point{10, 120}},
	}
	tr, err := Fit(Polynomial1, pairs)
	require.NoError(t, err)

	for _, p := range pairs {
		fwd, err := tr.Forward(p.Resource)
		require.NoError(t, err)
		assert.InDelta(t, p.ProjectedGeo[0], fwd[0], 1e-6)
		assert.InDelta(t, p.ProjectedGeo[1], fwd[1], 1e-6)

		back, err := tr.Backward(fwd)
		require.NoError(t, err)
		assert.InDelta(t, p.Resource[0], back[0], 1e-6)
		assert.InDelta(t, p.Resource[1], back[1], 1e-6)
	}
}

func TestHelmertNotEnoughGCPs(t *testing.T) {
	_, err := Fit(Helmert, []Pair{{Resource: geom.Point{0, 0}, ProjectedGeo: geom.Point{0, 0}}})
	assert.ErrorIs(t, err, ErrNotEnoughGCPs)
}

func TestIdentityPolynomial1IsIdentity(t *testing.T) {
	tr, err := Fit(Polynomial1, identityPairs())
	require.NoError(t, err)
	fwd, err := tr.Forward(geom.Point{42, 17})
	require.NoError(t, err)
	assert.InDelta(t, 42, fwd[0], 1e-6)
	assert.InDelta(t, 17, fwd[1], 1e-6)
}

func TestThinPlateSplineInterpolatesGCPsExactly(t *testing.T) {
	pairs := []Pair{
		{Resource: geom.Point{0, 0}, ProjectedGeo: geom.Point{5, 5}},
		{Resource: geom.Point{10, 0}, ProjectedGeo: geom.Point{16, 4}},
		{Resource: geom.Point{10, 10}, ProjectedGeo: geom.Point{14, 17}},
		{Resource: geom.Point{0, 10}, ProjectedGeo: geom.Point{3, 15}},
	}
	tr, err := Fit(ThinPlateSpline, pairs)
	require.NoError(t, err)

	for _, p := range pairs {
		fwd, err := tr.Forward(p.Resource)
		require.NoError(t, err)
		// looser tolerance than affine/polynomial per spec §8 property 1.
		assert.InDelta(t, p.ProjectedGeo[0], fwd[0], 1e-3)
		assert.InDelta(t, p.ProjectedGeo[1], fwd[1], 1e-3)
	}
}

func TestProjectiveNotEnoughGCPs(t *testing.T) {
	_, err := Fit(Projective, identityPairs()[:3])
	assert.ErrorIs(t, err, ErrNotEnoughGCPs)
}

func TestMinGCPs(t *testing.T) {
	assert.Equal(t, 3, MinGCPs(Polynomial1))
	assert.Equal(t, 6, MinGCPs(Polynomial2))
	assert.Equal(t, 10, MinGCPs(Polynomial3))
	assert.Equal(t, 2, MinGCPs(Helmert))
	assert.Equal(t, 4, MinGCPs(Projective))
}

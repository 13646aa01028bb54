package maplist

import (
	"testing"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/warpedmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func worldBound() geom.Bound {
	return geom.Bound{Min: geom.Point{-2e7, -2e7}, Max: geom.Point{2e7, 2e7}}
}

func fakeMap(bbox geom.Bound) *warpedmap.WarpedMap {
	return &warpedmap.WarpedMap{Bbox: bbox, Visible: true}
}

func TestAddRejectsDuplicateMapID(t *testing.T) {
	l := New(worldBound())
	require.NoError(t, l.Add("a", fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{1, 1}})))
	err := l.Add("a", fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{1, 1}}))
	assert.ErrorIs(t, err, ErrDuplicateMapID)
}

func TestZOrderIsPermutation(t *testing.T) {
	l := New(worldBound())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, l.Add(id, fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{1, 1}})))
	}

	require.NoError(t, l.SetZOrder("a", ToFront))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, l.ZOrder())
	assert.Equal(t, "a", l.ZOrder()[len(l.ZOrder())-1])

	require.NoError(t, l.SetZOrder("a", ToFront))
	assert.Equal(t, "a", l.ZOrder()[len(l.ZOrder())-1], "toFront is a fixed point when already in front")

	require.NoError(t, l.SetZOrder("c", ToBack))
	assert.Equal(t, "c", l.ZOrder()[0])
	require.NoError(t, l.SetZOrder("c", ToBack))
	assert.Equal(t, "c", l.ZOrder()[0], "toBack is a fixed point when already in back")
}

func TestMapsIntersectingRespectsVisibility(t *testing.T) {
	l := New(worldBound())
	inView := fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{10, 10}})
	require.NoError(t, l.Add("visible", inView))
	hidden := fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{10, 10}})
	require.NoError(t, l.Add("hidden", hidden))
	require.NoError(t, l.Hide("hidden"))

	hits := l.MapsIntersecting(geom.Bound{Min: geom.Point{-5, -5}, Max: geom.Point{5, 5}})
	require.Len(t, hits, 1)
	assert.Same(t, inView, hits[0])
}

func TestRemovePrunesZOrderAndIndex(t *testing.T) {
	l := New(worldBound())
	require.NoError(t, l.Add("a", fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{1, 1}})))
	require.NoError(t, l.Remove("a"))
	assert.Nil(t, l.Get("a"))
	assert.Empty(t, l.ZOrder())
}

func TestMapsIntersectingExcludesDistantMaps(t *testing.T) {
	l := New(worldBound())
	near := fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{10, 10}})
	require.NoError(t, l.Add("near", near))
	far := fakeMap(geom.Bound{Min: geom.Point{1e6, 1e6}, Max: geom.Point{1e6 + 10, 1e6 + 10}})
	require.NoError(t, l.Add("far", far))

	hits := l.MapsIntersecting(geom.Bound{Min: geom.Point{-5, -5}, Max: geom.Point{5, 5}})
	require.Len(t, hits, 1)
	assert.Same(t, near, hits[0])
}

func TestMapsIntersectingFindsOverlapWithCenterOutsideQuery(t *testing.T) {
	l := New(worldBound())
	// A wide bbox whose center sits far from the query window, but whose
	// bbox still overlaps it — exercises the margin the quadtree query
	// is grown by so a point-indexed center doesn't cause a false miss.
	wide := fakeMap(geom.Bound{Min: geom.Point{-1000, -1}, Max: geom.Point{1000, 1}})
	require.NoError(t, l.Add("wide", wide))

	hits := l.MapsIntersecting(geom.Bound{Min: geom.Point{900, -1}, Max: geom.Point{910, 1}})
	require.Len(t, hits, 1)
	assert.Same(t, wide, hits[0])
}

func TestBboxUnion(t *testing.T) {
	l := New(worldBound())
	require.NoError(t, l.Add("a", fakeMap(geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{1, 1}})))
	require.NoError(t, l.Add("b", fakeMap(geom.Bound{Min: geom.Point{5, 5}, Max: geom.Point{6, 6}})))

	b := l.Bbox()
	assert.Equal(t, 0.0, b.Min[0])
	assert.Equal(t, 6.0, b.Max[0])
}

package renderer

import (
	"context"
	"testing"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/maplist"
	"georef-tiler/internal/tilecache"
	"georef-tiler/internal/viewport"
	"georef-tiler/internal/warpedmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct{ width, height int }

func (f fakeLoader) LoadImageInfo(ctx context.Context, resourceID string) (*iiif.ImageInfo, error) {
	return &iiif.ImageInfo{
		Width:  f.width,
		Height: f.height,
		Tiles:  []iiif.TileSizeInfo{{Width: 256, Height: 256, ScaleFactors: []int{1, 2, 4, 8}}},
	}, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte("bytes"), nil
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(data []byte) (*iiif.DecodedImage, error) {
	return &iiif.DecodedImage{Width: 1, Height: 1, Pixels: data}, nil
}

func identityAnnotation() *iiif.Annotation {
	return &iiif.Annotation{
		Type:     "GeoreferencedMap",
		Resource: iiif.Resource{ID: "https://example.org/iiif/test"},
		GCPs: []iiif.GCP{
			{Resource: [2]float64{0, 0}, Geo: [2]float64{0, 0}},
			{Resource: [2]float64{4000, 0}, Geo: [2]float64{0.04, 0}},
			{Resource: [2]float64{0, 3000}, Geo: [2]float64{0, 0.03}},
		},
		ResourceMask:   [][2]float64{{0, 0}, {4000, 0}, {4000, 3000}, {0, 3000}},
		Transformation: &iiif.TransformationSpec{Type: "polynomial-1"},
	}
}

func buildList(t *testing.T) *maplist.List {
	t.Helper()
	ann := identityAnnotation()
	wm, err := warpedmap.New(context.Background(), "map-1", ann, fakeLoader{width: 4000, height: 3000}, nil)
	require.NoError(t, err)

	list := maplist.New(geom.Bound{Min: geom.Point{-1e7, -1e7}, Max: geom.Point{1e7, 1e7}})
	require.NoError(t, list.Add("map-1", wm))
	return list
}

func TestRenderSelectsMapAndRequestsTiles(t *testing.T) {
	list := buildList(t)
	cache := tilecache.New(fakeFetcher{}, fakeDecoder{}, nil)
	r := New(list, cache)

	// The GCPs' 0.04°x0.03° extent projects to a bbox of roughly
	// [0,4453]x[0,3340] Mercator metres; the viewport sits just inside its
	// lower-left corner at a scale fine enough that the finest level
	// (scale factor 1) is selected.
	v := viewport.New(400, 300, geom.Point{0.02, 0.015}, 0.0002, 0, 1)

	result, err := r.Render(context.Background(), v)
	require.NoError(t, err)
	require.Len(t, result.Maps, 1)
	assert.Equal(t, "map-1", result.Maps[0].MapID)
	assert.NotEmpty(t, result.Maps[0].FetchableTiles)

	require.NoError(t, cache.AllRequestedTilesLoaded(context.Background()))
	assert.NotEmpty(t, cache.GetCacheableTiles())
}

func TestRenderPrunesTilesNoLongerVisible(t *testing.T) {
	list := buildList(t)
	cache := tilecache.New(fakeFetcher{}, fakeDecoder{}, nil)
	r := New(list, cache)

	near := viewport.New(400, 300, geom.Point{0.02, 0.015}, 0.0002, 0, 1)
	_, err := r.Render(context.Background(), near)
	require.NoError(t, err)
	require.NoError(t, cache.AllRequestedTilesLoaded(context.Background()))
	require.NotEmpty(t, cache.GetCacheableTiles())

	// Panning far away from the map's bbox should hide it from selection
	// and prune every tile it had requested (spec §8 property 5).
	far := viewport.New(400, 300, geom.Point{1e6, 1e6}, 0.0002, 0, 1)
	result, err := r.Render(context.Background(), far)
	require.NoError(t, err)
	assert.Empty(t, result.Maps)
	assert.Empty(t, cache.GetCacheableTiles())
}

func TestRenderHandlesHiddenMap(t *testing.T) {
	list := buildList(t)
	require.NoError(t, list.Hide("map-1"))
	cache := tilecache.New(fakeFetcher{}, fakeDecoder{}, nil)
	r := New(list, cache)

	v := viewport.New(400, 300, geom.Point{0.02, 0.015}, 0.0002, 0, 1)
	result, err := r.Render(context.Background(), v)
	require.NoError(t, err)
	assert.Empty(t, result.Maps)
}

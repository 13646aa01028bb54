package raster

import (
	"context"
	"testing"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/maplist"
	"georef-tiler/internal/renderer"
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

// solidFetcher/solidDecoder produce an opaque red tile for every URL, so
// composited pixels are trivially checkable.
type solidFetcher struct{}

func (solidFetcher) Fetch(ctx context.Context, url string) ([]byte, error) { return []byte("x"), nil }

type solidDecoder struct{}

func (solidDecoder) Decode(data []byte) (*iiif.DecodedImage, error) {
	px := make([]byte, 256*256*4)
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = 255, 0, 0, 255
	}
	return &iiif.DecodedImage{Width: 256, Height: 256, Pixels: px}, nil
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

func buildResult(t *testing.T) (*renderer.Result, *tilecache.Cache, viewport.Viewport) {
	t.Helper()
	ann := identityAnnotation()
	wm, err := warpedmap.New(context.Background(), "map-1", ann, fakeLoader{width: 4000, height: 3000}, nil)
	require.NoError(t, err)

	list := maplist.New(geom.Bound{Min: geom.Point{-1e7, -1e7}, Max: geom.Point{1e7, 1e7}})
	require.NoError(t, list.Add("map-1", wm))

	cache := tilecache.New(solidFetcher{}, solidDecoder{}, nil)
	r := renderer.New(list, cache)

	v := viewport.New(200, 150, geom.Point{0.02, 0.015}, 0.0002, 0, 1)
	result, err := r.Render(context.Background(), v)
	require.NoError(t, err)
	require.NoError(t, cache.AllRequestedTilesLoaded(context.Background()))
	return result, cache, v
}

func TestDrawCPUPaintsInsideMask(t *testing.T) {
	result, cache, v := buildResult(t)
	fb := DrawCPU(context.Background(), v, result, cache, nil)

	center := fb.RGBAAt(v.Width/2, v.Height/2)
	assert.Greater(t, int(center.A), 0, "the viewport center sits inside the map's mask and a loaded tile, so it must be painted")
}

func TestDrawCPULeavesOutsideMapTransparent(t *testing.T) {
	result, cache, _ := buildResult(t)
	// The map spans roughly [0,4453]x[0,3340] Mercator metres; (1e6,1e6)
	// back-projects far outside its resource mask.
	far := viewport.New(200, 150, geom.Point{1e6, 1e6}, 0.0002, 0, 1)
	fb := DrawCPU(context.Background(), far, result, cache, nil)

	corner := fb.RGBAAt(0, 0)
	assert.Equal(t, uint8(0), corner.A)
}

func TestDrawGPUPaintsTriangles(t *testing.T) {
	result, cache, v := buildResult(t)
	fb := DrawGPU(context.Background(), v, result, cache, 1.0, nil)

	var anyPainted bool
	bounds := fb.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if fb.RGBAAt(x, y).A > 0 {
				anyPainted = true
			}
		}
	}
	assert.True(t, anyPainted)
}

func TestDrawCPUOpacityEffectDims(t *testing.T) {
	result, cache, v := buildResult(t)
	half := func(string) Effects { return Effects{Opacity: 0.5, Saturation: 1} }
	fb := DrawCPU(context.Background(), v, result, cache, half)

	center := fb.RGBAAt(v.Width/2, v.Height/2)
	assert.Less(t, int(center.A), 255)
}

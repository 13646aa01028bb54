package raster

import (
	"context"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/renderer"
	"georef-tiler/internal/tilecache"
	"georef-tiler/internal/viewport"
)

// DrawCPU implements the int-array back-end (spec §4.6 "CPU renderer"):
// for every destination pixel it walks maps back-to-front, inverse-
// transforms the pixel into each map's resource space and bilinearly
// samples whichever fetched tile covers it. Pixels outside every map's
// resource mask, or whose covering tile hasn't loaded yet, are left
// untouched (transparent, "no data").
func DrawCPU(ctx context.Context, v viewport.Viewport, result *renderer.Result, cache *tilecache.Cache, effects func(mapID string) Effects) *Framebuffer {
	if effects == nil {
		effects = func(string) Effects { return DefaultEffects() }
	}
	fb := NewFramebuffer(v.Width, v.Height)
	toViewport := v.ProjectedGeoToViewport()
	if !toViewport.Invertible() {
		return fb
	}
	toProjectedGeo := toViewport.Inverse()

	for _, mri := range result.Maps {
		select {
		case <-ctx.Done():
			return fb
		default:
		}
		e := effects(mri.MapID)
		idx := newTileIndex(mri, cache)
		if idx.empty() {
			continue
		}
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				pg := toProjectedGeo.Apply(geom.Point{float64(x) + 0.5, float64(y) + 0.5})
				res, err := mri.Map.Transformer.Backward(pg)
				if err != nil {
					continue
				}
				if len(mri.Map.ResourceMask) > 0 && !geom.PointInRing(res, mri.Map.ResourceMask) {
					continue
				}
				r, g, b, a, ok := idx.sample(res)
				if !ok {
					continue
				}
				r, g, b, a = applyEffects(r, g, b, a, e)
				alphaOver(fb, x, y, r, g, b, a)
			}
		}
	}
	return fb
}

// tileIndex resolves a resource-space point to the loaded tile covering
// it, preferring detail tiles and falling back to the overview level
// while detail tiles are still loading (spec §4.4 "overview tiles cover
// gaps until detail tiles finish").
type tileIndex struct {
	detail   []tileEntry
	overview []tileEntry
}

type tileEntry struct {
	x, y, w, h int
	scale      int
	image      *tilecache.CacheableTile
}

func newTileIndex(mri renderer.MapRenderInfo, cache *tilecache.Cache) tileIndex {
	var idx tileIndex
	iw, ih := mri.Map.Grid.ImageWidth, mri.Map.Grid.ImageHeight
	for _, t := range mri.FetchableTiles {
		x, y, w, h := t.ResourceRegion(iw, ih)
		tile := cache.Get(mri.TileURL[t])
		if tile == nil || tile.Status != tilecache.StatusLoaded {
			continue
		}
		idx.detail = append(idx.detail, tileEntry{x, y, w, h, t.Level.ScaleFactor, tile})
	}
	for _, t := range mri.OverviewTiles {
		x, y, w, h := t.ResourceRegion(iw, ih)
		tile := cache.Get(mri.TileURL[t])
		if tile == nil || tile.Status != tilecache.StatusLoaded {
			continue
		}
		idx.overview = append(idx.overview, tileEntry{x, y, w, h, t.Level.ScaleFactor, tile})
	}
	return idx
}

func (idx tileIndex) empty() bool { return len(idx.detail) == 0 && len(idx.overview) == 0 }

func (idx tileIndex) sample(res geom.Point) (r, g, b, a float64, ok bool) {
	if e, found := findCovering(idx.detail, res); found {
		return sampleEntry(e, res)
	}
	if e, found := findCovering(idx.overview, res); found {
		return sampleEntry(e, res)
	}
	return 0, 0, 0, 0, false
}

func findCovering(entries []tileEntry, res geom.Point) (tileEntry, bool) {
	x, y := res[0], res[1]
	for _, e := range entries {
		if x >= float64(e.x) && x < float64(e.x+e.w) && y >= float64(e.y) && y < float64(e.y+e.h) {
			return e, true
		}
	}
	return tileEntry{}, false
}

func sampleEntry(e tileEntry, res geom.Point) (r, g, b, a float64, ok bool) {
	localX := (res[0] - float64(e.x)) / float64(e.scale)
	localY := (res[1] - float64(e.y)) / float64(e.scale)
	return sampleBilinear(e.image.Image, localX, localY)
}

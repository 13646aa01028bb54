package raster

import (
	"context"
	"math"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/renderer"
	"georef-tiler/internal/tilecache"
	"georef-tiler/internal/viewport"
)

// DrawGPU implements the triangle back-end (spec §4.6 "GPU renderer"):
// forward-transform each mask triangle's vertices into viewport space
// and rasterize it, sampling the source resource region straight from
// whichever fetched tiles cover the triangle (a texture atlas is
// unnecessary here since tiles are sampled directly by resource
// coordinate; see DESIGN.md). fadeT in [0,1] cross-fades between a map's
// previous and current triangulated geometry, per
// warpedmap.WarpedMap.TrianglePointsAt (spec §4.7).
func DrawGPU(ctx context.Context, v viewport.Viewport, result *renderer.Result, cache *tilecache.Cache, fadeT float64, effects func(mapID string) Effects) *Framebuffer {
	if effects == nil {
		effects = func(string) Effects { return DefaultEffects() }
	}
	fb := NewFramebuffer(v.Width, v.Height)
	toViewport := v.ProjectedGeoToViewport()

	for _, mri := range result.Maps {
		select {
		case <-ctx.Done():
			return fb
		default:
		}
		wm := mri.Map
		if len(wm.ResourceTriangles) == 0 || len(wm.ResourcePoints) == 0 {
			continue
		}
		e := effects(mri.MapID)
		idx := newTileIndex(mri, cache)
		if idx.empty() {
			continue
		}
		projected := wm.TrianglePointsAt(fadeT)
		if len(projected) != len(wm.ResourcePoints) {
			projected = wm.ProjectedGeoTrianglePoints
		}

		viewportPts := make([]geom.Point, len(projected))
		for i, p := range projected {
			viewportPts[i] = toViewport.Apply(p)
		}

		for _, tri := range wm.ResourceTriangles {
			drawTriangle(fb, v, viewportPts, wm.ResourcePoints, tri, idx, e)
			if e.Grid {
				drawTriangleEdges(fb, viewportPts, tri)
			}
		}
	}
	return fb
}

func drawTriangle(fb *Framebuffer, v viewport.Viewport, viewportPts, resourcePts []geom.Point, tri geom.Triangle, idx tileIndex, e Effects) {
	a, b, c := viewportPts[tri[0]], viewportPts[tri[1]], viewportPts[tri[2]]
	minX := int(math.Floor(math.Min(a[0], math.Min(b[0], c[0]))))
	maxX := int(math.Ceil(math.Max(a[0], math.Max(b[0], c[0]))))
	minY := int(math.Floor(math.Min(a[1], math.Min(b[1], c[1]))))
	maxY := int(math.Ceil(math.Max(a[1], math.Max(b[1], c[1]))))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > v.Width {
		maxX = v.Width
	}
	if maxY > v.Height {
		maxY = v.Height
	}

	ra, rb, rc := resourcePts[tri[0]], resourcePts[tri[1]], resourcePts[tri[2]]

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			p := geom.Point{float64(x) + 0.5, float64(y) + 0.5}
			u, vv, w, inside := barycentric(a, b, c, p)
			if !inside {
				continue
			}
			res := geom.Point{
				u*ra[0] + vv*rb[0] + w*rc[0],
				u*ra[1] + vv*rb[1] + w*rc[1],
			}
			r, g, bl, al, ok := idx.sample(res)
			if !ok {
				continue
			}
			r, g, bl, al = applyEffects(r, g, bl, al, e)
			alphaOver(fb, x, y, r, g, bl, al)
		}
	}
}

func drawTriangleEdges(fb *Framebuffer, viewportPts []geom.Point, tri geom.Triangle) {
	pts := [3]geom.Point{viewportPts[tri[0]], viewportPts[tri[1]], viewportPts[tri[2]]}
	for i := 0; i < 3; i++ {
		drawLine(fb, pts[i], pts[(i+1)%3])
	}
}

// drawLine is a plain Bresenham stepper; the grid overlay is a debug aid,
// not the primary render path, so it does not need anti-aliasing.
func drawLine(fb *Framebuffer, a, b geom.Point) {
	x0, y0 := int(a[0]), int(a[1])
	x1, y1 := int(b[0]), int(b[1])
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		alphaOver(fb, x0, y0, 1, 0, 0, 0.6)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

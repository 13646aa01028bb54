package viewport

import (
	"math"

	"georef-tiler/internal/geom"
)

// FromSizeAndPolygon fits polygon into a viewport of the given pixel
// size: 'contain' picks the smallest Scale (projectedGeo units per
// viewport pixel) at which the whole polygon is visible; 'cover' picks the
// largest Scale at which the viewport is fully covered by the polygon
// (spec §4.3, §8 property 3). zoom, when
// nonzero, is a post-fit multiplier on the derived scale (>1 zooms in,
// <1 zooms out); pass 0 to leave the fit scale untouched.
func FromSizeAndPolygon(width, height int, polygon []geom.Point, fit Fit, rotation, dpr, zoom float64) (Viewport, error) {
	if len(polygon) == 0 {
		return Viewport{}, ErrEmptyInput
	}
	if width <= 0 || height <= 0 {
		return Viewport{}, ErrEmptyInput
	}

	rot := geom.Rotate(-rotation)
	local := make([]geom.Point, len(polygon))
	for i, p := range polygon {
		local[i] = rot.Apply(p)
	}
	b := geom.FromPoints(local)
	centerLocal := b.Center()
	center := geom.Rotate(rotation).Apply(centerLocal)

	bw, bh := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	scaleW := bw / float64(width)
	scaleH := bh / float64(height)

	var scale float64
	switch fit {
	case Contain:
		scale = math.Max(scaleW, scaleH)
	case Cover:
		scale = math.Min(scaleW, scaleH)
	}
	if scale <= 0 {
		scale = 1
	}
	if zoom != 0 {
		scale /= zoom
	}

	return New(width, height, center, scale, rotation, dpr), nil
}

// FromScaleAndPolygon centers a fixed-scale viewport on polygon's bbox
// center (spec §4.3).
func FromScaleAndPolygon(width, height int, polygon []geom.Point, scale, rotation, dpr float64) (Viewport, error) {
	if len(polygon) == 0 {
		return Viewport{}, ErrEmptyInput
	}
	b := geom.FromPoints(polygon)
	return New(width, height, b.Center(), scale, rotation, dpr), nil
}

// FromSizeAndMaps is FromSizeAndPolygon over the convex hull of the
// selected maps, per spec §4.3 "fits the convex hull of selected maps
// into the viewport".
func FromSizeAndMaps(width, height int, mapsHull []geom.Point, fit Fit, rotation, dpr, zoom float64) (Viewport, error) {
	return FromSizeAndPolygon(width, height, mapsHull, fit, rotation, dpr, zoom)
}

// FromScaleAndMaps is FromScaleAndPolygon over the convex hull of the
// selected maps.
func FromScaleAndMaps(width, height int, mapsHull []geom.Point, scale, rotation, dpr float64) (Viewport, error) {
	return FromScaleAndPolygon(width, height, mapsHull, scale, rotation, dpr)
}

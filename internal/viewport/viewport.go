// Package viewport implements the immutable Viewport value type and the
// cascade of affine transforms between resource, projectedGeo, viewport
// and clip spaces. Spec §3 Viewport, §4.3, component E.
package viewport

import (
	"errors"
	"math"

	"georef-tiler/internal/geom"
)

// ErrEmptyInput is spec §4.9's EmptyInputError: a factory was asked to
// fit a viewport around zero maps/polygon points.
var ErrEmptyInput = errors.New("viewport: empty input")

// Fit selects whether a factory's rectangle contains or is contained by
// the target geometry (spec §4.3, glossary "Fit").
type Fit int

const (
	Contain Fit = iota
	Cover
)

// Viewport is an immutable value: once constructed it is never mutated,
// only replaced (spec §4.3 "the viewport is never mutated after
// creation").
type Viewport struct {
	Width, Height   int // viewportSize, device-independent pixels
	Center          geom.Point
	Scale           float64 // projectedGeoPerViewportScale
	Rotation        float64 // radians, counter-clockwise
	DevicePixelRatio float64
}

// New constructs a Viewport, defaulting DevicePixelRatio to 1 if unset.
func New(width, height int, center geom.Point, scale, rotation, dpr float64) Viewport {
	if dpr < 1 {
		dpr = 1
	}
	return Viewport{Width: width, Height: height, Center: center, Scale: scale, Rotation: rotation, DevicePixelRatio: dpr}
}

// CanvasSize returns viewportSize * devicePixelRatio (spec §3).
func (v Viewport) CanvasSize() (w, h int) {
	return int(math.Round(float64(v.Width) * v.DevicePixelRatio)), int(math.Round(float64(v.Height) * v.DevicePixelRatio))
}

// ProjectedGeoRectangle returns the rotated rectangle centered at
// v.Center with size viewportSize*scale (spec §3).
func (v Viewport) ProjectedGeoRectangle() []geom.Point {
	hw := float64(v.Width) * v.Scale / 2
	hh := float64(v.Height) * v.Scale / 2
	corners := []geom.Point{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	rot := geom.Rotate(v.Rotation)
	out := make([]geom.Point, len(corners))
	for i, c := range corners {
		out[i] = geom.Add(rot.Apply(c), v.Center)
	}
	return out
}

// ProjectedGeoBounds returns the axis-aligned bounding box of
// ProjectedGeoRectangle, used wherever an unrotated bbox suffices (e.g.
// spatial-index queries).
func (v Viewport) ProjectedGeoBounds() geom.Bound {
	return geom.FromPoints(v.ProjectedGeoRectangle())
}

// ProjectedGeoToViewport returns the affine transform from projectedGeo
// to viewport coordinates (spec §4.3): translate by -center, rotate by
// -rotation, scale by 1/scale (y flipped), translate to viewportCenter.
func (v Viewport) ProjectedGeoToViewport() geom.Affine {
	return v.projectedGeoTo(1, float64(v.Width)/2, float64(v.Height)/2)
}

// ProjectedGeoToCanvas is the same cascade at canvas resolution
// (scale*dpr, canvas center) (spec §4.3).
func (v Viewport) ProjectedGeoToCanvas() geom.Affine {
	cw, ch := v.CanvasSize()
	return v.projectedGeoTo(v.DevicePixelRatio, float64(cw)/2, float64(ch)/2)
}

func (v Viewport) projectedGeoTo(dprFactor, cx, cy float64) geom.Affine {
	s := 1 / (v.Scale * dprFactor)
	flip := geom.Affine{s, 0, 0, 0, -s, 0} // scale + flip y for screen handedness
	rot := geom.Rotate(-v.Rotation)
	toOrigin := geom.Translate(-v.Center[0], -v.Center[1])
	toScreen := geom.Translate(cx, cy)
	return toScreen.Mul(flip).Mul(rot).Mul(toOrigin)
}

// ProjectedGeoToClip maps ProjectedGeoRectangle onto [-1,1]^2 (spec
// §4.3).
func (v Viewport) ProjectedGeoToClip() geom.Affine {
	toViewport := v.ProjectedGeoToViewport()
	toClip := v.ViewportToClip()
	return toClip.Mul(toViewport)
}

// ViewportToClip maps the viewport rectangle onto [-1,1]^2, flipping y
// (spec §4.3).
func (v Viewport) ViewportToClip() geom.Affine {
	sx := 2 / float64(v.Width)
	sy := -2 / float64(v.Height)
	scale := geom.Affine{sx, 0, 0, 0, sy, 0}
	toOrigin := geom.Translate(-float64(v.Width)/2, -float64(v.Height)/2)
	return scale.Mul(toOrigin)
}

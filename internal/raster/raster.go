// Package raster turns a renderer.Result plus the tiles a tilecache.Cache
// has fetched into pixels. It offers two back-ends over the same data
// (spec §4.6, component H): a CPU int-array back-end that walks the
// output raster pixel by pixel, and a GPU-style back-end that walks
// warped triangles forward instead. Both share the effect and
// compositing helpers in this file.
package raster

import (
	"image"
	"image/color"
	"math"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
)

// Framebuffer is the destination of a render pass: a straightforward
// RGBA buffer, matching the pack's own graphics code (golang.org/x/image
// consumers build on top of image.RGBA rather than a bespoke pixel
// type).
type Framebuffer struct {
	*image.RGBA
}

// NewFramebuffer allocates a transparent w x h buffer.
func NewFramebuffer(w, h int) *Framebuffer {
	return &Framebuffer{image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Effects are the per-map uniforms applied while compositing a map's
// pixels, independent of the back-end doing the sampling (spec §4.6
// "per-map render effects").
type Effects struct {
	Opacity     float64 // 0..1, defaults to 1
	Saturation  float64 // 0..1, defaults to 1 (0 = grayscale)
	Colorize    color.RGBA
	UseColorize bool
	RemoveColor color.RGBA
	RemoveDist  float64 // color-distance threshold for RemoveColor, 0 disables
	Grid        bool    // overlay triangulation edges, debug aid
}

// DefaultEffects returns the identity uniforms (fully opaque, natural
// color, no grid).
func DefaultEffects() Effects {
	return Effects{Opacity: 1, Saturation: 1}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// applyEffects mutates an RGBA sample in place per e (spec §4.6):
// saturation blends toward the pixel's own luma, colorize multiplies the
// tint over the source, removeColor makes near-matching pixels
// transparent, opacity scales the final alpha.
func applyEffects(r, g, b, a float64, e Effects) (float64, float64, float64, float64) {
	if e.Saturation != 1 {
		luma := 0.299*r + 0.587*g + 0.114*b
		s := clamp01(e.Saturation)
		r = luma + (r-luma)*s
		g = luma + (g-luma)*s
		b = luma + (b-luma)*s
	}
	if e.UseColorize {
		cr, cg, cb := float64(e.Colorize.R)/255, float64(e.Colorize.G)/255, float64(e.Colorize.B)/255
		r *= cr
		g *= cg
		b *= cb
	}
	if e.RemoveDist > 0 {
		rr, rg, rb := float64(e.RemoveColor.R)/255, float64(e.RemoveColor.G)/255, float64(e.RemoveColor.B)/255
		d := math.Sqrt((r-rr)*(r-rr) + (g-rg)*(g-rg) + (b-rb)*(b-rb))
		if d <= e.RemoveDist {
			a = 0
		}
	}
	if e.Opacity != 1 {
		a *= clamp01(e.Opacity)
	}
	return clamp01(r), clamp01(g), clamp01(b), clamp01(a)
}

// alphaOver composites src (straight alpha, 0..1 components) over the
// framebuffer pixel at (x,y), spec §4.6 "z-order back-to-front
// compositing".
func alphaOver(fb *Framebuffer, x, y int, r, g, b, a float64) {
	if a <= 0 {
		return
	}
	bounds := fb.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	dst := fb.RGBAAt(x, y)
	dr, dg, db, da := float64(dst.R)/255, float64(dst.G)/255, float64(dst.B)/255, float64(dst.A)/255
	outA := a + da*(1-a)
	if outA <= 0 {
		fb.SetRGBA(x, y, color.RGBA{})
		return
	}
	outR := (r*a + dr*da*(1-a)) / outA
	outG := (g*a + dg*da*(1-a)) / outA
	outB := (b*a + db*da*(1-a)) / outA
	fb.SetRGBA(x, y, color.RGBA{
		R: uint8(clamp01(outR) * 255),
		G: uint8(clamp01(outG) * 255),
		B: uint8(clamp01(outB) * 255),
		A: uint8(clamp01(outA) * 255),
	})
}

// sampleBilinear samples img at fractional resource coordinates (x,y)
// relative to the tile's own top-left corner, returning ok=false for
// "no data" (spec §4.6: a resource point with no covering tile pixel
// stays transparent, never black).
func sampleBilinear(img *iiif.DecodedImage, x, y float64) (r, g, b, a float64, ok bool) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return 0, 0, 0, 0, false
	}
	if x < -0.5 || y < -0.5 || x > float64(img.Width)-0.5 || y > float64(img.Height)-0.5 {
		return 0, 0, 0, 0, false
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	get := func(px, py int) (float64, float64, float64, float64) {
		if px < 0 {
			px = 0
		}
		if py < 0 {
			py = 0
		}
		if px >= img.Width {
			px = img.Width - 1
		}
		if py >= img.Height {
			py = img.Height - 1
		}
		i := (py*img.Width + px) * 4
		if i+3 >= len(img.Pixels) {
			return 0, 0, 0, 0
		}
		return float64(img.Pixels[i]) / 255, float64(img.Pixels[i+1]) / 255, float64(img.Pixels[i+2]) / 255, float64(img.Pixels[i+3]) / 255
	}

	r00, g00, b00, a00 := get(x0, y0)
	r10, g10, b10, a10 := get(x0+1, y0)
	r01, g01, b01, a01 := get(x0, y0+1)
	r11, g11, b11, a11 := get(x0+1, y0+1)

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	r = lerp(lerp(r00, r10, fx), lerp(r01, r11, fx), fy)
	g = lerp(lerp(g00, g10, fx), lerp(g01, g11, fx), fy)
	b = lerp(lerp(b00, b10, fx), lerp(b01, b11, fx), fy)
	a = lerp(lerp(a00, a10, fx), lerp(a01, a11, fx), fy)
	return r, g, b, a, true
}

// barycentric returns the barycentric coordinates of p in triangle
// (a,b,c), and whether p lies inside it (all weights in [0,1]).
func barycentric(a, b, c, p geom.Point) (u, v, w float64, inside bool) {
	v0 := geom.Sub(b, a)
	v1 := geom.Sub(c, a)
	v2 := geom.Sub(p, a)
	d00 := v0[0]*v0[0] + v0[1]*v0[1]
	d01 := v0[0]*v1[0] + v0[1]*v1[1]
	d11 := v1[0]*v1[0] + v1[1]*v1[1]
	d20 := v2[0]*v0[0] + v2[1]*v0[1]
	d21 := v2[0]*v1[0] + v2[1]*v1[1]
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 0, 0, 0, false
	}
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	inside = u >= -1e-9 && v >= -1e-9 && w >= -1e-9
	return u, v, w, inside
}

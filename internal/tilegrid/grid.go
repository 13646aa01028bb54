// Package tilegrid maps IIIF Image API zoom levels ("scale factors") to
// tile coordinates and enumerates the tiles covering a resource
// rectangle. Spec §3 Tile, component B.
package tilegrid

import (
	"errors"
	"sort"

	"georef-tiler/internal/geom"
)

// ZoomLevel is one entry of a IIIF tile pyramid: a scale factor and the
// tile/image dimensions it implies.
type ZoomLevel struct {
	ScaleFactor int
	TileWidth   int
	TileHeight  int
	// Width/Height are the resource-image dimensions at this level,
	// i.e. the native image size divided by ScaleFactor and rounded up.
	Width  int
	Height int
}

// Grid is the full tile pyramid for one IIIF resource.
type Grid struct {
	ImageWidth  int
	ImageHeight int
	Levels      []ZoomLevel // sorted by ascending ScaleFactor (finest first)
}

// ErrNoUsableZoomLevel is spec §4.9's NoZoomLevelError.
var ErrNoUsableZoomLevel = errors.New("tilegrid: no usable zoom level")

// NewGrid builds a Grid from a IIIF image-info response: image
// dimensions plus, per declared tile size, the scale factors it
// supports. Levels are deduplicated by scale factor and sorted.
func NewGrid(imageWidth, imageHeight int, tileWidth, tileHeight int, scaleFactors []int) Grid {
	seen := make(map[int]bool)
	var levels []ZoomLevel
	for _, sf := range scaleFactors {
		if sf <= 0 || seen[sf] {
			continue
		}
		seen[sf] = true
		levels = append(levels, ZoomLevel{
			ScaleFactor: sf,
			TileWidth:   tileWidth,
			TileHeight:  tileHeight,
			Width:       ceilDiv(imageWidth, sf),
			Height:      ceilDiv(imageHeight, sf),
		})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].ScaleFactor < levels[j].ScaleFactor })
	return Grid{ImageWidth: imageWidth, ImageHeight: imageHeight, Levels: levels}
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

// Tile identifies one tile: its grid column/row at a given zoom level.
type Tile struct {
	Column int
	Row    int
	Level  ZoomLevel
}

// ResourceRegion returns the tile's region in native resource-pixel
// coordinates, clipped to the image bounds (spec §3 Tile).
func (t Tile) ResourceRegion(imageWidth, imageHeight int) (x, y, w, h int) {
	sf := t.Level.ScaleFactor
	x = t.Column * t.Level.TileWidth * sf
	y = t.Row * t.Level.TileHeight * sf
	w = t.Level.TileWidth * sf
	h = t.Level.TileHeight * sf
	if x+w > imageWidth {
		w = imageWidth - x
	}
	if y+h > imageHeight {
		h = imageHeight - y
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return
}

// Bound returns the tile's resource-space bounding box.
func (t Tile) Bound(imageWidth, imageHeight int) geom.Bound {
	x, y, w, h := t.ResourceRegion(imageWidth, imageHeight)
	return geom.Bound{Min: geom.Point{float64(x), float64(y)}, Max: geom.Point{float64(x + w), float64(y + h)}}
}

// SelectLevel picks the zoom level whose ScaleFactor is the largest value
// <= resourcePerViewportPixel; when no exact match exists, it picks the
// next higher resolution (spec §4.4 step 3).
func (g Grid) SelectLevel(resourcePerViewportPixel float64) (ZoomLevel, error) {
	if len(g.Levels) == 0 {
		return ZoomLevel{}, ErrNoUsableZoomLevel
	}
	best := -1
	for i, lvl := range g.Levels {
		if float64(lvl.ScaleFactor) <= resourcePerViewportPixel {
			best = i
		}
	}
	if best >= 0 {
		return g.Levels[best], nil
	}
	// No scale factor at or below the target: use the finest available
	// (spec: "next higher resolution").
	return g.Levels[0], nil
}

// OverviewLevel picks the nearest power-of-two coarser level than
// current, clamped to the coarsest available level (spec §4.4 step 3).
func (g Grid) OverviewLevel(current ZoomLevel) ZoomLevel {
	target := current.ScaleFactor * 2
	coarsest := g.Levels[len(g.Levels)-1]
	best := coarsest
	for _, lvl := range g.Levels {
		if lvl.ScaleFactor >= target && lvl.ScaleFactor < best.ScaleFactor {
			best = lvl
		}
	}
	if best.ScaleFactor < target {
		return coarsest
	}
	return best
}

// TilesCovering enumerates every tile at level whose resource region
// overlaps rect, ordered by increasing Euclidean distance from the
// tile-region center to rect's centroid — spec §4.4 step 4's "center-out
// fetch order".
func (g Grid) TilesCovering(level ZoomLevel, rect geom.Bound) []Tile {
	sf := level.ScaleFactor
	tw, th := level.TileWidth*sf, level.TileHeight*sf
	if tw <= 0 || th <= 0 {
		return nil
	}

	minCol := int(rect.Min[0]) / tw
	maxCol := int(rect.Max[0]) / tw
	minRow := int(rect.Min[1]) / th
	maxRow := int(rect.Max[1]) / th
	if minCol < 0 {
		minCol = 0
	}
	if minRow < 0 {
		minRow = 0
	}

	var tiles []Tile
	for col := minCol; col <= maxCol; col++ {
		for row := minRow; row <= maxRow; row++ {
			t := Tile{Column: col, Row: row, Level: level}
			b := t.Bound(g.ImageWidth, g.ImageHeight)
			if b.Max[0]-b.Min[0] <= 0 || b.Max[1]-b.Min[1] <= 0 {
				continue
			}
			if geom.Overlaps(b, rect) {
				tiles = append(tiles, t)
			}
		}
	}

	center := rect.Center()
	sort.Slice(tiles, func(i, j int) bool {
		bi := tiles[i].Bound(g.ImageWidth, g.ImageHeight).Center()
		bj := tiles[j].Bound(g.ImageWidth, g.ImageHeight).Center()
		return geom.Dist(bi, center) < geom.Dist(bj, center)
	})
	return tiles
}

package tilegrid

import (
	"testing"

	"georef-tiler/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() Grid {
	return NewGrid(4000, 3000, 256, 256, []int{1, 2, 4, 8, 16})
}

func TestSelectLevelExactAndFallback(t *testing.T) {
	g := testGrid()

	lvl, err := g.SelectLevel(4)
	require.NoError(t, err)
	assert.Equal(t, 4, lvl.ScaleFactor)

	lvl, err = g.SelectLevel(0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, lvl.ScaleFactor, "no scale factor <= target: fall back to the finest level")
}

func TestSelectLevelNoLevels(t *testing.T) {
	g := Grid{}
	_, err := g.SelectLevel(1)
	assert.ErrorIs(t, err, ErrNoUsableZoomLevel)
}

func TestOverviewLevelPowerOfTwoCoarser(t *testing.T) {
	g := testGrid()
	cur, _ := g.SelectLevel(4)
	overview := g.OverviewLevel(cur)
	assert.Equal(t, 8, overview.ScaleFactor)
}

func TestOverviewLevelClampedToCoarsest(t *testing.T) {
	g := testGrid()
	cur, _ := g.SelectLevel(16)
	overview := g.OverviewLevel(cur)
	assert.Equal(t, 16, overview.ScaleFactor)
}

func TestTilesCoveringCoversRect(t *testing.T) {
	g := testGrid()
	lvl, _ := g.SelectLevel(1)
	rect := geom.Bound{Min: geom.Point{100, 100}, Max: geom.Point{600, 600}}

	tiles := g.TilesCovering(lvl, rect)
	require.NotEmpty(t, tiles)

	union := geom.Bound{Min: geom.Point{1e18, 1e18}, Max: geom.Point{-1e18, -1e18}}
	for _, tl := range tiles {
		union = union.Union(tl.Bound(g.ImageWidth, g.ImageHeight))
	}
	assert.True(t, union.Min[0] <= rect.Min[0])
	assert.True(t, union.Min[1] <= rect.Min[1])
	assert.True(t, union.Max[0] >= rect.Max[0])
	assert.True(t, union.Max[1] >= rect.Max[1])
}

func TestTilesCoveringCenterOutOrder(t *testing.T) {
	g := testGrid()
	lvl, _ := g.SelectLevel(1)
	rect := geom.Bound{Min: geom.Point{0, 0}, Max: geom.Point{1024, 1024}}
	tiles := g.TilesCovering(lvl, rect)
	require.True(t, len(tiles) > 2)

	center := rect.Center()
	prev := geom.Dist(tiles[0].Bound(g.ImageWidth, g.ImageHeight).Center(), center)
	for _, tl := range tiles[1:] {
		d := geom.Dist(tl.Bound(g.ImageWidth, g.ImageHeight).Center(), center)
		assert.True(t, d >= prev-1e-9)
		prev = d
	}
}

func TestResourceRegionClippedToImage(t *testing.T) {
	g := testGrid()
	lvl, _ := g.SelectLevel(1)
	lastCol := (g.ImageWidth - 1) / lvl.TileWidth
	tile := Tile{Column: lastCol, Row: 0, Level: lvl}
	_, _, w, _ := tile.ResourceRegion(g.ImageWidth, g.ImageHeight)
	assert.True(t, w <= lvl.TileWidth)
}

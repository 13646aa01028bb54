// Package renderer implements the base renderer: for a
// (warped-map-list, viewport) pair it picks visible maps, selects a
// tile zoom level, computes the fetchable tile set, requests tiles from
// the cache and prunes what is no longer needed. Spec §4.4, component F.
package renderer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"georef-tiler/internal/events"
	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/maplist"
	"georef-tiler/internal/tilecache"
	"georef-tiler/internal/tilegrid"
	"georef-tiler/internal/viewport"
	"georef-tiler/internal/warpedmap"

	"github.com/teris-io/shortid"

	log "github.com/sirupsen/logrus"
)

// DefaultBufferRatio is the fraction by which the viewport's projectedGeo
// rectangle is expanded to pre-warm edge tiles (spec §4.4 step 1).
const DefaultBufferRatio = 0.25

// DefaultMaxOffsetRatio bounds how far a straight-line interpolant may
// diverge from the true back-projected curve before an edge is
// subdivided further (spec §4.4 step 2).
const DefaultMaxOffsetRatio = 0.01

// DefaultMaxDepth caps the edge-refinement recursion (spec §4.4 step 2).
const DefaultMaxDepth = 6

// Renderer coordinates one (WarpedMapList, cache) pair across
// successive render passes.
type Renderer struct {
	List           *maplist.List
	Cache          *tilecache.Cache
	APIVersion     iiif.APIVersion
	BufferRatio    float64
	MaxOffsetRatio float64
	MaxDepth       int
	Events         *events.Bus
}

// New constructs a Renderer with spec-default tuning parameters.
func New(list *maplist.List, cache *tilecache.Cache) *Renderer {
	return &Renderer{
		List:           list,
		Cache:          cache,
		APIVersion:     iiif.APIv3,
		BufferRatio:    DefaultBufferRatio,
		MaxOffsetRatio: DefaultMaxOffsetRatio,
		MaxDepth:       DefaultMaxDepth,
		Events:         events.NewBus(),
	}
}

// MapRenderInfo is one selected map's tile-selection outcome for a
// render pass, handed to a rasterizer back-end to draw (spec §4.4
// step 6).
type MapRenderInfo struct {
	MapID                string
	Map                  *warpedmap.WarpedMap
	ZoomLevel            tilegrid.ZoomLevel
	OverviewZoomLevel    tilegrid.ZoomLevel
	FetchableTiles       []tilegrid.Tile
	OverviewTiles        []tilegrid.Tile
	BufferedResourceRing geom.Ring
	TileURL              map[tilegrid.Tile]string
}

// Result is the outcome of one Render call.
type Result struct {
	RunID    string
	Viewport viewport.Viewport
	Maps     []MapRenderInfo
}

// Render runs spec §4.4 steps 1-5 and 7 synchronously: map selection,
// buffered-rectangle back-projection, zoom-level selection, tile
// enumeration, cache request and prune. Step 6 (draw) is left to a
// rasterizer back-end in package raster, given the returned Result and
// the shared Cache.
func (r *Renderer) Render(ctx context.Context, v viewport.Viewport) (*Result, error) {
	runID, _ := shortid.Generate()

	// step 1: map selection
	buffered := geom.BufferRatio(v.ProjectedGeoBounds(), r.BufferRatio)
	candidates := r.List.MapsIntersecting(buffered)

	result := &Result{RunID: runID, Viewport: v}
	var allRequests []tilecache.Request
	keep := make(map[string]bool)

	for _, wm := range candidates {
		if wm.Transformer == nil {
			continue // not yet ready (still imageInfoLoading)
		}
		info, requests, err := r.renderMap(wm, v)
		if err != nil {
			log.WithFields(log.Fields{"mapId": wm.MapID, "error": err}).Warn("skipping map for this render")
			continue
		}
		result.Maps = append(result.Maps, *info)
		allRequests = append(allRequests, requests...)
		for _, req := range requests {
			keep[req.URL] = true
		}
	}

	// step 5: cache request
	r.Cache.RequestFetchableTiles(ctx, allRequests)

	// step 7: prune — union of URLs still needed across all visible maps.
	r.Cache.Prune(keep)

	log.WithFields(log.Fields{"runId": runID, "maps": len(result.Maps), "tiles": len(allRequests)}).Debug("render pass computed")
	return result, nil
}

// renderMap runs steps 2-4 for a single map.
func (r *Renderer) renderMap(wm *warpedmap.WarpedMap, v viewport.Viewport) (*MapRenderInfo, []tilecache.Request, error) {
	// step 2: buffered rectangle -> back-projected resource ring
	corners := bufferedRotatedRectangle(v, r.BufferRatio)
	ring, err := backProjectRing(wm, corners, r.MaxOffsetRatio, r.MaxDepth)
	if err != nil {
		return nil, nil, err
	}
	resourceBound := geom.FromPoints(ring)

	// step 3: zoom-level selection
	sample := sampleRing(ring, 9)
	resourcePerViewportPixel, err := medianResourcePerViewportPixel(wm, sample, v.Scale)
	if err != nil {
		return nil, nil, err
	}
	level, err := wm.Grid.SelectLevel(resourcePerViewportPixel)
	if err != nil {
		return nil, nil, err
	}
	overview := wm.Grid.OverviewLevel(level)

	// step 4: tile enumeration
	tiles := wm.Grid.TilesCovering(level, resourceBound)
	overviewTiles := wm.Grid.TilesCovering(overview, resourceBound)

	wm.CurrentZoomLevel = level
	wm.OverviewZoomLevel = overview
	wm.FetchableTiles = tiles
	wm.BufferedResourceRing = ring

	urls := make(map[tilegrid.Tile]string, len(tiles)+len(overviewTiles))
	var requests []tilecache.Request
	for _, t := range tiles {
		req := tileRequest(wm, t, r.APIVersion)
		urls[t] = req.URL
		requests = append(requests, req)
	}
	for _, t := range overviewTiles {
		req := tileRequest(wm, t, r.APIVersion)
		urls[t] = req.URL
		requests = append(requests, req)
	}

	return &MapRenderInfo{
		MapID:                wm.MapID,
		Map:                  wm,
		ZoomLevel:            level,
		OverviewZoomLevel:    overview,
		FetchableTiles:       tiles,
		OverviewTiles:        overviewTiles,
		BufferedResourceRing: ring,
		TileURL:              urls,
	}, requests, nil
}

func tileRequest(wm *warpedmap.WarpedMap, t tilegrid.Tile, version iiif.APIVersion) tilecache.Request {
	x, y, w, h := t.ResourceRegion(wm.Grid.ImageWidth, wm.Grid.ImageHeight)
	url := iiif.TileURL(wm.Resource.ID, x, y, w, h, version)
	return tilecache.Request{URL: url, MapID: wm.MapID, Tile: t}
}

// bufferedRotatedRectangle returns v's projectedGeo rectangle corners
// scaled about its center by (1+2*ratio), preserving rotation (spec
// §4.4 step 2 "projectedGeoBufferedViewportRectangle").
func bufferedRotatedRectangle(v viewport.Viewport, ratio float64) []geom.Point {
	corners := v.ProjectedGeoRectangle()
	factor := 1 + 2*ratio
	out := make([]geom.Point, len(corners))
	for i, c := range corners {
		out[i] = geom.Add(v.Center, geom.Scale(geom.Sub(c, v.Center), factor))
	}
	return out
}

// backProjectRing back-projects each corner through wm.Transformer's
// Backward, then recursively refines each edge whenever the true
// back-projected midpoint diverges from the straight-line interpolant by
// more than maxOffsetRatio*segmentLength, capped by maxDepth (spec §4.4
// step 2).
func backProjectRing(wm *warpedmap.WarpedMap, corners []geom.Point, maxOffsetRatio float64, maxDepth int) (geom.Ring, error) {
	pts := make([]geom.Point, len(corners))
	for i, c := range corners {
		p, err := wm.Transformer.Backward(c)
		if err != nil {
			return nil, fmt.Errorf("back-projecting viewport corner: %w", err)
		}
		pts[i] = p
	}

	var ring geom.Ring
	n := len(corners)
	for i := 0; i < n; i++ {
		a, b := corners[i], corners[(i+1)%n]
		ra, rb := pts[i], pts[(i+1)%n]
		seg, err := refineEdge(wm, a, b, ra, rb, maxOffsetRatio, maxDepth)
		if err != nil {
			return nil, err
		}
		ring = append(ring, seg...)
	}
	ring = append(ring, ring[0])
	return ring, nil
}

// refineEdge returns the resource-space polyline approximating the
// back-projection of the projectedGeo segment (pgA, pgB), whose known
// resource-space endpoints are (resA, resB).
func refineEdge(wm *warpedmap.WarpedMap, pgA, pgB, resA, resB geom.Point, maxOffsetRatio float64, depth int) ([]geom.Point, error) {
	out := []geom.Point{resA}
	if depth <= 0 {
		return out, nil
	}
	pgMid := geom.Lerp(pgA, pgB, 0.5)
	resMidTrue, err := wm.Transformer.Backward(pgMid)
	if err != nil {
		return out, nil // domain error: stop refining this edge, keep straight segment
	}
	resMidStraight := geom.Lerp(resA, resB, 0.5)
	offset := geom.Dist(resMidTrue, resMidStraight)
	segLen := geom.Dist(resA, resB)
	if segLen == 0 || offset <= maxOffsetRatio*segLen {
		return out, nil
	}
	left, err := refineEdge(wm, pgA, pgMid, resA, resMidTrue, maxOffsetRatio, depth-1)
	if err != nil {
		return out, nil
	}
	right, err := refineEdge(wm, pgMid, pgB, resMidTrue, resB, maxOffsetRatio, depth-1)
	if err != nil {
		return append(out, left...), nil
	}
	return append(left, right...), nil
}

func sampleRing(ring geom.Ring, n int) []geom.Point {
	if len(ring) == 0 {
		return nil
	}
	b := geom.FromPoints(ring)
	side := int(math.Sqrt(float64(n)))
	if side < 1 {
		side = 1
	}
	var pts []geom.Point
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			fx := (float64(i) + 0.5) / float64(side)
			fy := (float64(j) + 0.5) / float64(side)
			pts = append(pts, geom.Point{
				b.Min[0] + fx*(b.Max[0]-b.Min[0]),
				b.Min[1] + fy*(b.Max[1]-b.Min[1]),
			})
		}
	}
	return pts
}

// medianResourcePerViewportPixel is the median, over sample resource
// points, of the local resource-per-viewport-pixel ratio (spec §4.4
// step 3): projectedGeoPerViewportPixel divided by the local
// projectedGeo-per-resource-pixel scale (sqrt of the forward Jacobian's
// determinant).
func medianResourcePerViewportPixel(wm *warpedmap.WarpedMap, resourceSample []geom.Point, projectedGeoPerViewportPixel float64) (float64, error) {
	var vals []float64
	for _, p := range resourceSample {
		j := wm.Transformer.Jacobian(p)
		det := math.Abs(j[0][0]*j[1][1] - j[0][1]*j[1][0])
		if det <= 0 {
			continue
		}
		localScale := math.Sqrt(det)
		vals = append(vals, projectedGeoPerViewportPixel/localScale)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("renderer: no valid samples for zoom-level selection")
	}
	sort.Float64s(vals)
	return vals[len(vals)/2], nil
}

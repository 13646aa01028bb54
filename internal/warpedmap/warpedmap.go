// Package warpedmap holds the WarpedMap entity: an annotation's parsed
// form plus its derived state (projected GCPs, fitted transformer,
// triangulated mask, per-vertex distortion). Spec §3 WarpedMap,
// component C.
package warpedmap

import (
	"context"
	"fmt"

	"georef-tiler/internal/events"
	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/proj"
	"georef-tiler/internal/tilegrid"
	"georef-tiler/internal/transform"

	log "github.com/sirupsen/logrus"
)

// maxMaskEdgeLength bounds the densification step of mask triangulation
// (spec §4.1 step 3). Expressed in resource pixels.
const maxMaskEdgeLength = 100.0

// WarpedMap is the transform-ready entity derived from one georeference
// annotation. Field groups mirror spec §3 exactly: original inputs,
// derived transform state, cached geometry, and transient per-viewport
// scratch fields the base renderer fills in each render pass.
type WarpedMap struct {
	MapID string

	// --- original ---
	Resource            iiif.Resource
	GCPs                []iiif.GCP
	ResourceMask        geom.Ring
	TransformationKind  transform.Kind

	// --- derived ---
	ProjectedGCPs []transform.Pair
	Transformer   transform.Transformer

	ResourcePoints          []geom.Point
	ResourceTriangles       []geom.Triangle
	ProjectedGeoTrianglePoints []geom.Point // parallel to ResourcePoints, forward-transformed
	Distortion              []float64       // parallel to ResourcePoints

	Bbox       geom.Bound
	ConvexHull geom.Ring

	// --- cross-fade scratch (spec §4.1, §4.7) ---
	ProjectedGeoPreviousTrianglePoints []geom.Point
	PreviousResourcePoints             []geom.Point

	// --- transient, per-render (spec §3 "transient per-viewport fields") ---
	CurrentZoomLevel     tilegrid.ZoomLevel
	OverviewZoomLevel    tilegrid.ZoomLevel
	FetchableTiles       []tilegrid.Tile
	BufferedResourceRing geom.Ring

	Grid  tilegrid.Grid
	State State

	Projection proj.Projector
	Events     *events.Bus

	Visible bool
}

// New constructs a WarpedMap from a validated annotation. It runs the
// full pipeline: image-info loading, GCP re-projection, transform
// fitting and mask triangulation (spec §4.1, §4.8).
func New(ctx context.Context, mapID string, ann *iiif.Annotation, loader iiif.ImageInfoLoader, projection proj.Projector) (*WarpedMap, error) {
	if projection == nil {
		projection = proj.Default
	}
	wm := &WarpedMap{
		MapID:              mapID,
		Resource:           ann.Resource,
		GCPs:               ann.GCPs,
		ResourceMask:       maskRing(ann.ResourceMask),
		TransformationKind: ann.Kind(),
		Projection:         projection,
		Events:             events.NewBus(),
		Visible:            true,
		State:              StateCreated,
	}

	wm.State = StateImageInfoLoading
	info, err := loader.LoadImageInfo(ctx, ann.Resource.ID)
	if err != nil {
		wm.State = StateRemoved
		return nil, &iiif.ImageInfoError{ResourceID: ann.Resource.ID, Err: err}
	}
	wm.Resource.Width, wm.Resource.Height = info.Width, info.Height
	wm.Grid = gridFromInfo(info)

	if err := wm.recompute(); err != nil {
		wm.State = StateRemoved
		return nil, err
	}
	wm.State = StateReady
	wm.Events.Emit(events.WarpedMapAdded, wm.MapID)
	log.WithFields(log.Fields{"mapId": wm.MapID, "resource": wm.Resource.ID}).Debug("warped map ready")
	return wm, nil
}

func maskRing(pts [][2]float64) geom.Ring {
	r := make(geom.Ring, len(pts))
	for i, p := range pts {
		r[i] = geom.Point{p[0], p[1]}
	}
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

func gridFromInfo(info *iiif.ImageInfo) tilegrid.Grid {
	if len(info.Tiles) == 0 {
		return tilegrid.NewGrid(info.Width, info.Height, 256, 256, []int{1})
	}
	t := info.Tiles[0]
	h := t.Height
	if h == 0 {
		h = t.Width
	}
	return tilegrid.NewGrid(info.Width, info.Height, t.Width, h, t.ScaleFactors)
}

// recompute re-runs the derivation pipeline (transform fit, mask
// triangulation, distortion, bbox/hull) from the current
// GCPs/ResourceMask/TransformationKind (spec §4.1 steps 1-5).
func (wm *WarpedMap) recompute() error {
	pairs, err := wm.projectGCPs()
	if err != nil {
		return err
	}
	wm.ProjectedGCPs = pairs

	tr, err := transform.Fit(wm.TransformationKind, pairs)
	if err != nil {
		return fmt.Errorf("warpedmap %s: %w", wm.MapID, err)
	}
	wm.Transformer = tr

	pts, tris := geom.TriangulateMask(wm.ResourceMask, maxMaskEdgeLength)
	wm.ResourcePoints = pts
	wm.ResourceTriangles = tris

	projected := make([]geom.Point, len(pts))
	distortion := make([]float64, len(pts))
	for i, p := range pts {
		fp, ferr := tr.Forward(p)
		if ferr != nil {
			fp = p // domain error: fall back rather than losing the vertex
		}
		projected[i] = fp
		distortion[i] = vertexDistortion(tr, p)
	}
	wm.ProjectedGeoTrianglePoints = projected
	wm.Distortion = distortion

	if len(projected) > 0 {
		wm.Bbox = geom.FromPoints(projected)
		wm.ConvexHull = geom.ConvexHull(projected)
	}
	return nil
}

// vertexDistortion is log(|det J|) of the forward transform's Jacobian at
// p (spec §4.1 step 5).
func vertexDistortion(tr transform.Transformer, p geom.Point) float64 {
	j := tr.Jacobian(p)
	det := j[0][0]*j[1][1] - j[0][1]*j[1][0]
	if det == 0 {
		return 0
	}
	return logAbs(det)
}

func (wm *WarpedMap) projectGCPs() ([]transform.Pair, error) {
	pairs := make([]transform.Pair, len(wm.GCPs))
	for i, g := range wm.GCPs {
		p := wm.Projection.Project(g.Geo)
		pairs[i] = transform.Pair{
			Resource:     geom.Point{g.Resource[0], g.Resource[1]},
			ProjectedGeo: geom.Point{p[0], p[1]},
		}
	}
	return pairs, nil
}

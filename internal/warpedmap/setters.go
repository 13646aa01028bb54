package warpedmap

import (
	"math"

	"georef-tiler/internal/events"
	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/transform"
)

func logAbs(v float64) float64 {
	return math.Log(math.Abs(v))
}

// SetResourceMask replaces the mask polygon and re-runs triangulation and
// distortion. Previous triangulation is preserved for a cross-fade (spec
// §4.1, §4.7 "Cross-fade on transformation changes").
func (wm *WarpedMap) SetResourceMask(mask [][2]float64) error {
	wm.State = StateChanging
	wm.PreviousResourcePoints = wm.ResourcePoints
	wm.ProjectedGeoPreviousTrianglePoints = wm.ProjectedGeoTrianglePoints

	wm.ResourceMask = maskRing(mask)
	if err := wm.recompute(); err != nil {
		wm.State = StateReady
		return err
	}
	wm.State = StateReady
	wm.Events.Emit(events.ResourceMaskUpdated, wm.MapID)
	return nil
}

// SetTransformationKind refits the transformer to the requested kind and
// re-runs the suffix of the pipeline it affects: transform fit and
// everything downstream (spec §4.1 "Setters").
func (wm *WarpedMap) SetTransformationKind(kind transform.Kind) error {
	if len(wm.GCPs) < transform.MinGCPs(kind) {
		return &iiif.ValidationError{Reason: "not enough GCPs for requested transformation kind"}
	}
	wm.State = StateChanging
	wm.PreviousResourcePoints = wm.ResourcePoints
	wm.ProjectedGeoPreviousTrianglePoints = wm.ProjectedGeoTrianglePoints

	wm.TransformationKind = kind
	if err := wm.recompute(); err != nil {
		wm.State = StateReady
		return err
	}
	wm.State = StateReady
	wm.Events.Emit(events.TransformationChanged, wm.MapID)
	return nil
}

// SetGCPs replaces the ground control points and re-runs projection,
// transform fitting and everything downstream.
func (wm *WarpedMap) SetGCPs(gcps []iiif.GCP) error {
	if len(gcps) < transform.MinGCPs(wm.TransformationKind) {
		return &iiif.ValidationError{Reason: "not enough GCPs for the current transformation kind"}
	}
	wm.State = StateChanging
	wm.PreviousResourcePoints = wm.ResourcePoints
	wm.ProjectedGeoPreviousTrianglePoints = wm.ProjectedGeoTrianglePoints

	wm.GCPs = gcps
	if err := wm.recompute(); err != nil {
		wm.State = StateReady
		return err
	}
	wm.State = StateReady
	wm.Events.Emit(events.TransformationChanged, wm.MapID)
	return nil
}

// ClearPreviousTriangulation drops the cross-fade scratch state once a
// transition completes (t reaches 1, spec §4.7).
func (wm *WarpedMap) ClearPreviousTriangulation() {
	wm.PreviousResourcePoints = nil
	wm.ProjectedGeoPreviousTrianglePoints = nil
}

// TrianglePointsAt interpolates between the previous and current
// projectedGeo triangle points at t in [0,1] (spec §4.7 cross-fade, §8
// property F). If there is no previous triangulation (or the vertex
// counts differ, e.g. after a mask edit changed the triangle count) the
// current points are returned unchanged.
func (wm *WarpedMap) TrianglePointsAt(t float64) []geom.Point {
	if len(wm.ProjectedGeoPreviousTrianglePoints) != len(wm.ProjectedGeoTrianglePoints) {
		return wm.ProjectedGeoTrianglePoints
	}
	if t >= 1 {
		return wm.ProjectedGeoTrianglePoints
	}
	if t <= 0 {
		return wm.ProjectedGeoPreviousTrianglePoints
	}
	out := make([]geom.Point, len(wm.ProjectedGeoTrianglePoints))
	for i := range out {
		out[i] = geom.Lerp(wm.ProjectedGeoPreviousTrianglePoints[i], wm.ProjectedGeoTrianglePoints[i], t)
	}
	return out
}

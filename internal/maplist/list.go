// Package maplist implements the ordered collection of warped maps: an
// insertion order used for z-order, a visibility bit per map, and a
// spatial index over projectedGeo bboxes for viewport lookup. Spec §3
// WarpedMapList, §4.2, component D.
package maplist

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/warpedmap"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	log "github.com/sirupsen/logrus"
)

// ErrDuplicateMapID is returned by Add when mapID is already present.
// Spec §9 resolves the "add annotation twice" open question by treating
// mapId as the primary key and rejecting duplicates at the edge.
var ErrDuplicateMapID = errors.New("maplist: duplicate mapId")

// ErrNotFound is returned by operations addressing an unknown mapId.
var ErrNotFound = errors.New("maplist: map not found")

// ZOrderOp identifies one of the four z-order mutations spec §4.2 names.
type ZOrderOp int

const (
	ToFront ZOrderOp = iota
	ToBack
	Forward
	Backward
)

// List is the mapId -> WarpedMap collection with z-order, visibility and
// a quadtree spatial index over projectedGeo bboxes. The spec calls for
// "an R-tree or equivalent"; a quadtree is the concrete spatial index
// available in the pack's dependency tree (paulmach/orb, the teacher's
// own geometry library) — see DESIGN.md.
type List struct {
	mu          sync.RWMutex
	maps        map[string]*warpedmap.WarpedMap
	zOrder      []string // insertion order, later entries render on top
	qt          *quadtree.Quadtree
	qtBound     orb.Bound
	maxHalfDiag float64 // largest bbox half-diagonal among indexed maps
}

// New creates an empty list. worldBound bounds the quadtree's coordinate
// space; it should comfortably contain every map's projectedGeo bbox
// (e.g. the full extent of the working projection).
func New(worldBound geom.Bound) *List {
	return &List{
		maps:    make(map[string]*warpedmap.WarpedMap),
		qt:      quadtree.New(worldBound),
		qtBound: worldBound,
	}
}

// Add inserts wm under mapID, appending it to the z-order (front) and the
// spatial index. Returns ErrDuplicateMapID if mapID already exists (spec
// §9 open question resolution).
func (l *List) Add(mapID string, wm *warpedmap.WarpedMap) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.maps[mapID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMapID, mapID)
	}
	l.maps[mapID] = wm
	l.zOrder = append(l.zOrder, mapID)
	l.indexLocked(mapID, wm)
	log.WithField("mapId", mapID).Debug("map added to list")
	return nil
}

// Remove deletes mapID from the list, z-order and spatial index.
func (l *List) Remove(mapID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.maps[mapID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, mapID)
	}
	delete(l.maps, mapID)
	l.zOrder = removeString(l.zOrder, mapID)
	l.rebuildIndexLocked()
	log.WithField("mapId", mapID).Debug("map removed from list")
	return nil
}

// Get returns the map for mapID, or nil if absent.
func (l *List) Get(mapID string) *warpedmap.WarpedMap {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maps[mapID]
}

// Show / Hide toggle a map's visibility bit without removing it from the
// collection or its z-order position.
func (l *List) Show(mapID string) error { return l.setVisible(mapID, true) }
func (l *List) Hide(mapID string) error { return l.setVisible(mapID, false) }

func (l *List) setVisible(mapID string, visible bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	wm, ok := l.maps[mapID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, mapID)
	}
	wm.Visible = visible
	return nil
}

// ZOrder returns the current z-order (back to front) as a slice of
// mapIds; the returned slice is a copy.
func (l *List) ZOrder() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.zOrder))
	copy(out, l.zOrder)
	return out
}

// SetZOrder applies one of {toFront, toBack, forward, backward} to mapID
// (spec §4.2). All four operations are permutations of the member set
// (spec §8 property 6): they never add, remove or duplicate an id.
func (l *List) SetZOrder(mapID string, op ZOrderOp) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := indexOf(l.zOrder, mapID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, mapID)
	}
	switch op {
	case ToFront:
		l.zOrder = append(append(l.zOrder[:idx], l.zOrder[idx+1:]...), mapID)
	case ToBack:
		rest := append([]string{mapID}, l.zOrder[:idx]...)
		l.zOrder = append(rest, l.zOrder[idx+1:]...)
	case Forward:
		if idx < len(l.zOrder)-1 {
			l.zOrder[idx], l.zOrder[idx+1] = l.zOrder[idx+1], l.zOrder[idx]
		}
	case Backward:
		if idx > 0 {
			l.zOrder[idx], l.zOrder[idx-1] = l.zOrder[idx-1], l.zOrder[idx]
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Bbox returns the union of the projectedGeo bboxes of mapIds (or every
// map if mapIds is empty).
func (l *List) Bbox(mapIDs ...string) geom.Bound {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := mapIDs
	if len(ids) == 0 {
		ids = l.zOrder
	}
	b := geom.EmptyBound()
	for _, id := range ids {
		if wm, ok := l.maps[id]; ok {
			b = b.Union(wm.Bbox)
		}
	}
	return b
}

// ConvexHull returns the convex hull of the projectedGeo triangle points
// of mapIds (or every map if mapIds is empty).
func (l *List) ConvexHull(mapIDs ...string) geom.Ring {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := mapIDs
	if len(ids) == 0 {
		ids = l.zOrder
	}
	var pts []geom.Point
	for _, id := range ids {
		if wm, ok := l.maps[id]; ok {
			pts = append(pts, wm.ConvexHull...)
		}
	}
	if len(pts) == 0 {
		return nil
	}
	return geom.ConvexHull(pts)
}

// MapsIntersecting returns, in z-order (back to front), every visible map
// whose projectedGeo bbox overlaps bbox (spec §4.2 "mapsIntersecting").
//
// The quadtree indexes bbox centers, not rectangles, so a center lying
// just outside bbox can still belong to a map whose bbox overlaps it.
// Querying InBound with bbox grown by maxHalfDiag on every side is safe
// for any indexed map: its center cannot be further than its own
// half-diagonal from its bbox's nearest edge, and maxHalfDiag is the
// largest half-diagonal among all indexed maps, so no true overlap is
// missed. This keeps the expensive exact-overlap check scoped to the
// quadtree's candidate set instead of every map in the list — the
// index actually prunes the query.
func (l *List) MapsIntersecting(bbox geom.Bound) []*warpedmap.WarpedMap {
	l.mu.RLock()
	defer l.mu.RUnlock()

	margin := l.maxHalfDiag
	queryBound := orb.Bound{
		Min: geom.Point{bbox.Min[0] - margin, bbox.Min[1] - margin},
		Max: geom.Point{bbox.Max[0] + margin, bbox.Max[1] + margin},
	}
	hits := l.qt.InBound(nil, queryBound)

	matched := make(map[string]bool, len(hits))
	for _, p := range hits {
		mp, ok := p.(mapPoint)
		if !ok {
			continue
		}
		wm := l.maps[mp.mapID]
		if wm != nil && wm.Visible && geom.Overlaps(wm.Bbox, bbox) {
			matched[mp.mapID] = true
		}
	}

	var out []*warpedmap.WarpedMap
	for _, id := range l.zOrder {
		if matched[id] {
			out = append(out, l.maps[id])
		}
	}
	return out
}

// mapPoint is the quadtree.Pointer stored per map: we index the bbox
// center so a range query over the bbox still finds it, then confirm the
// actual bbox overlap in MapsIntersecting (a quadtree indexes points, not
// rectangles).
type mapPoint struct {
	mapID string
	pt    orb.Point
}

func (m mapPoint) Point() orb.Point { return m.pt }

func (l *List) indexLocked(mapID string, wm *warpedmap.WarpedMap) {
	if wm.Bbox.Max[0]-wm.Bbox.Min[0] == 0 && wm.Bbox.Max[1]-wm.Bbox.Min[1] == 0 && wm.Bbox.Min == (geom.Point{}) {
		return
	}
	center := wm.Bbox.Center()
	_ = l.qt.Add(mapPoint{mapID: mapID, pt: center})
	if halfDiag := bboxHalfDiagonal(wm.Bbox); halfDiag > l.maxHalfDiag {
		l.maxHalfDiag = halfDiag
	}
}

// rebuildIndexLocked rebuilds the quadtree from scratch; called after a
// removal since orb/quadtree does not expose point deletion.
func (l *List) rebuildIndexLocked() {
	l.qt = quadtree.New(l.qtBound)
	l.maxHalfDiag = 0
	for id, wm := range l.maps {
		l.indexLocked(id, wm)
	}
}

func bboxHalfDiagonal(b geom.Bound) float64 {
	return math.Hypot(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]) / 2
}

// Reindex must be called whenever a map's projectedGeo bbox changes (a
// setter ran) so the spatial index stays consistent (spec §4.2 "updates
// on add/remove and on any change to a map's projectedGeo bbox").
func (l *List) Reindex(mapID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.maps[mapID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, mapID)
	}
	l.rebuildIndexLocked()
	return nil
}

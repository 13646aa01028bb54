// Package catalog is an optional spatialite-backed inspection store: it
// mirrors the live maplist.List into a queryable database so a debug
// tool or dashboard can look up a map's bounds and transformation kind
// without holding the engine's own in-memory state. Grounded on the
// original CLI's spatialite point-storage example.
package catalog

import (
	"database/sql"
	"fmt"

	"georef-tiler/internal/geom"
	"georef-tiler/internal/warpedmap"

	_ "github.com/shaxbee/go-spatialite"
	"github.com/shaxbee/go-spatialite/wkb"
	log "github.com/sirupsen/logrus"
)

// Store wraps a spatialite database recording one row per warped map.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the spatialite database at path and ensures
// the maps table and its centroid geometry column exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("spatialite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if _, err := db.Exec("SELECT InitSpatialMetadata()"); err != nil {
		log.WithError(err).Debug("catalog: InitSpatialMetadata (likely already initialized)")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS maps (
		map_id TEXT PRIMARY KEY,
		resource_id TEXT,
		kind TEXT,
		min_x REAL, min_y REAL, max_x REAL, max_y REAL,
		visible INTEGER
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: create maps table: %w", err)
	}
	if _, err := db.Exec("SELECT AddGeometryColumn('maps', 'centroid', 4326, 'POINT')"); err != nil {
		log.WithError(err).Debug("catalog: AddGeometryColumn (likely already present)")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Upsert records or refreshes wm's catalog entry (spec §3 WarpedMap
// fields relevant to inspection: bbox, resource, transformation kind).
func (s *Store) Upsert(wm *warpedmap.WarpedMap) error {
	c := wm.Bbox.Center()
	p := wkb.Point{X: c[0], Y: c[1]}
	visible := 0
	if wm.Visible {
		visible = 1
	}
	_, err := s.db.Exec(`INSERT INTO maps (map_id, resource_id, kind, min_x, min_y, max_x, max_y, visible, centroid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ST_PointFromWKB(?, 4326))
		ON CONFLICT(map_id) DO UPDATE SET
			resource_id=excluded.resource_id, kind=excluded.kind,
			min_x=excluded.min_x, min_y=excluded.min_y, max_x=excluded.max_x, max_y=excluded.max_y,
			visible=excluded.visible, centroid=excluded.centroid`,
		wm.MapID, wm.Resource.ID, string(wm.TransformationKind),
		wm.Bbox.Min[0], wm.Bbox.Min[1], wm.Bbox.Max[0], wm.Bbox.Max[1], visible, p)
	if err != nil {
		return fmt.Errorf("catalog: upsert %s: %w", wm.MapID, err)
	}
	return nil
}

// Remove deletes mapID's catalog entry, if any.
func (s *Store) Remove(mapID string) error {
	_, err := s.db.Exec("DELETE FROM maps WHERE map_id = ?", mapID)
	return err
}

// Record is one catalog row, denormalized for callers that don't want a
// live warpedmap.WarpedMap.
type Record struct {
	MapID      string
	ResourceID string
	Kind       string
	Bbox       geom.Bound
	Visible    bool
}

// Near returns every map, visible or hidden, whose bbox overlaps a square window of
// the given radius centered on center — a simple range scan, since the
// engine's own maplist.List already owns the real spatial index and this
// store exists for offline inspection, not the render hot path.
func (s *Store) Near(center geom.Point, radius float64) ([]Record, error) {
	rows, err := s.db.Query(`SELECT map_id, resource_id, kind, min_x, min_y, max_x, max_y, visible FROM maps
		WHERE max_x >= ? AND min_x <= ? AND max_y >= ? AND min_y <= ?`,
		center[0]-radius, center[0]+radius, center[1]-radius, center[1]+radius)
	if err != nil {
		return nil, fmt.Errorf("catalog: near query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var visible int
		var minX, minY, maxX, maxY float64
		if err := rows.Scan(&r.MapID, &r.ResourceID, &r.Kind, &minX, &minY, &maxX, &maxY, &visible); err != nil {
			return nil, fmt.Errorf("catalog: scan row: %w", err)
		}
		r.Bbox = geom.Bound{Min: geom.Point{minX, minY}, Max: geom.Point{maxX, maxY}}
		r.Visible = visible != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

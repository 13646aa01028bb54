package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"georef-tiler/internal/renderer"
	"georef-tiler/internal/tilecache"
)

// mbtilesDebugExport dumps every loaded detail-level tile (FetchableTiles)
// of a render pass into a sqlite database shaped like the original CLI's
// mbtiles output; overview tiles are not exported. Rows are keyed by
// (mapId, scaleFactor, column, row) instead of an XYZ zoom pyramid — a debug
// aid for inspecting what the cache actually populated, not a tile
// server artifact. Grounded on the original CLI's SetupMBTileTables /
// saveToMBTile.
func mbtilesDebugExport(path string, result *renderer.Result, cache *tilecache.Cache) error {
	os.Remove(path)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("mbtiles export: open: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA synchronous=0"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE tiles (
		map_id TEXT, scale_factor INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB
	)`); err != nil {
		return err
	}
	if _, err := db.Exec("CREATE UNIQUE INDEX tile_index ON tiles(map_id, scale_factor, tile_column, tile_row)"); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO tiles (map_id, scale_factor, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, mri := range result.Maps {
		for _, t := range mri.FetchableTiles {
			tile := cache.Get(mri.TileURL[t])
			if tile == nil || tile.Status != tilecache.StatusLoaded {
				continue
			}
			if _, err := stmt.Exec(mri.MapID, t.Level.ScaleFactor, t.Column, t.Row, tile.Image.Pixels); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

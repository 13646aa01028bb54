// Package tilecache implements the content-addressed (by tile URL) tile
// cache with at-most-one in-flight fetch per URL, cancellation and
// eviction by pruning. Spec §4.5, component G.
package tilecache

import (
	"context"
	"fmt"
	"sync"

	"georef-tiler/internal/events"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/tilegrid"

	log "github.com/sirupsen/logrus"
)

// Status is a CacheableTile's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusLoaded
	StatusError
)

// Request names one tile to fetch: its URL, owning map and grid
// position (needed to decode a region correctly).
type Request struct {
	URL   string
	MapID string
	Tile  tilegrid.Tile
}

// CacheableTile is one cache entry: a cancellable in-flight (or
// completed) fetch for a single URL (spec §3 CacheableTile/CachedTile).
type CacheableTile struct {
	URL    string
	MapID  string
	Tile   tilegrid.Tile
	Status Status
	Image  *iiif.DecodedImage
	Err    error

	cancel context.CancelFunc
}

// FetchError wraps a per-tile fetch/decode failure (spec §7
// TileFetchError). Fetch errors are local: they never abort a render and
// never remove the owning map.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("tilecache: fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Cache is the tileUrl -> CacheableTile map with single-flight fetches.
type Cache struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tiles   map[string]*CacheableTile
	pending int

	fetcher iiif.TileFetcher
	decoder iiif.ImageDecoder
	events  *events.Bus
}

// New builds a Cache that fetches tile bytes with fetcher and decodes
// them with decoder — both are injected external collaborators per spec
// §6, kept out of the core.
func New(fetcher iiif.TileFetcher, decoder iiif.ImageDecoder, bus *events.Bus) *Cache {
	if bus == nil {
		bus = events.NewBus()
	}
	c := &Cache{
		tiles:   make(map[string]*CacheableTile),
		fetcher: fetcher,
		decoder: decoder,
		events:  bus,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// RequestFetchableTiles ensures every request in list has a
// CacheableTile: existing entries are left untouched (at-most-one
// concurrent fetch per URL, spec §8 property 4), new ones start a fetch
// immediately, in the order given (center-out order is the caller's
// responsibility — spec §4.4 step 4, §9 open question).
func (c *Cache) RequestFetchableTiles(ctx context.Context, list []Request) {
	for _, req := range list {
		c.mu.Lock()
		if _, exists := c.tiles[req.URL]; exists {
			c.mu.Unlock()
			continue
		}
		fetchCtx, cancel := context.WithCancel(ctx)
		tile := &CacheableTile{URL: req.URL, MapID: req.MapID, Tile: req.Tile, Status: StatusPending, cancel: cancel}
		c.tiles[req.URL] = tile
		c.pending++
		c.mu.Unlock()

		go c.fetchOne(fetchCtx, tile)
	}
}

func (c *Cache) fetchOne(ctx context.Context, tile *CacheableTile) {
	defer c.releaseSlot()

	data, err := c.fetcher.Fetch(ctx, tile.URL)
	if err != nil {
		c.finishError(tile, err)
		return
	}
	select {
	case <-ctx.Done():
		// Aborted after the fetch completed: must not mutate the entry
		// (spec §5 "Aborted fetches must not mutate the cache entry
		// after abort").
		return
	default:
	}

	img, err := c.decoder.Decode(data)
	if err != nil {
		c.finishError(tile, err)
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	c.mu.Lock()
	current, stillPresent := c.tiles[tile.URL]
	if stillPresent && current == tile {
		tile.Image = img
		tile.Status = StatusLoaded
	}
	c.mu.Unlock()

	// Fetched-then-pruned tiles still dispatch their event; observers
	// filter late events with their own keep-set (spec §4.5).
	c.events.Emit(events.TileFetched, tile)
	log.WithFields(log.Fields{"mapId": tile.MapID, "url": tile.URL}).Debug("tile fetched")
}

func (c *Cache) finishError(tile *CacheableTile, err error) {
	c.mu.Lock()
	current, stillPresent := c.tiles[tile.URL]
	if stillPresent && current == tile {
		tile.Status = StatusError
		tile.Err = err
	}
	c.mu.Unlock()
	c.events.Emit(events.TileFetchError, &FetchError{URL: tile.URL, Err: err})
	log.WithFields(log.Fields{"url": tile.URL, "error": err}).Warn("tile fetch failed")
}

func (c *Cache) releaseSlot() {
	c.mu.Lock()
	c.pending--
	if c.pending <= 0 {
		c.pending = 0
		c.cond.Broadcast()
		c.events.Emit(events.AllRequestedTilesLoaded, nil)
	}
	c.mu.Unlock()
}

// Abort cancels the in-flight fetch for url, if any.
func (c *Cache) Abort(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tiles[url]; ok && t.cancel != nil {
		t.cancel()
	}
}

// Prune removes every cache entry whose URL is not in keep, aborting its
// fetch first if still in flight (spec §4.5, §8 property 5:
// "getCacheableTiles() subseteq K" after Prune(K)).
func (c *Cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, t := range c.tiles {
		if keep[url] {
			continue
		}
		if t.cancel != nil {
			t.cancel()
		}
		delete(c.tiles, url)
	}
}

// Get returns the cache entry for url, or nil.
func (c *Cache) Get(url string) *CacheableTile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tiles[url]
}

// GetCacheableTiles returns every currently cached URL (spec §8 property
// 5).
func (c *Cache) GetCacheableTiles() []*CacheableTile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*CacheableTile, 0, len(c.tiles))
	for _, t := range c.tiles {
		out = append(out, t)
	}
	return out
}

// AllRequestedTilesLoaded blocks until the in-flight fetch count reaches
// zero or ctx is canceled (spec §4.5).
func (c *Cache) AllRequestedTilesLoaded(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.mu.Lock()
		for c.pending > 0 {
			c.cond.Wait()
		}
		c.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package tilecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"georef-tiler/internal/events"
	"georef-tiler/internal/iiif"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls int32
	delay time.Duration
	fail  map[string]bool
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[url] {
		return nil, errors.New("boom")
	}
	return []byte("tile-bytes"), nil
}

type passthroughDecoder struct{}

func (passthroughDecoder) Decode(data []byte) (*iiif.DecodedImage, error) {
	return &iiif.DecodedImage{Width: 1, Height: 1, Pixels: data}, nil
}

func TestSingleFlightPerURL(t *testing.T) {
	fetcher := &countingFetcher{delay: 20 * time.Millisecond}
	c := New(fetcher, passthroughDecoder{}, nil)

	url := "https://example.org/tile/1"
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RequestFetchableTiles(context.Background(), []Request{{URL: url}})
		}()
	}
	wg.Wait()
	require.NoError(t, c.AllRequestedTilesLoaded(context.Background()))

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	tile := c.Get(url)
	require.NotNil(t, tile)
	assert.Equal(t, StatusLoaded, tile.Status)
}

func TestPruneRemovesEntriesOutsideKeepSet(t *testing.T) {
	fetcher := &countingFetcher{}
	c := New(fetcher, passthroughDecoder{}, nil)

	reqs := []Request{{URL: "a"}, {URL: "b"}, {URL: "c"}}
	c.RequestFetchableTiles(context.Background(), reqs)
	require.NoError(t, c.AllRequestedTilesLoaded(context.Background()))

	c.Prune(map[string]bool{"b": true})
	remaining := c.GetCacheableTiles()
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].URL)
}

func TestPruneAbortsInFlightFetch(t *testing.T) {
	fetcher := &countingFetcher{delay: 200 * time.Millisecond}
	c := New(fetcher, passthroughDecoder{}, nil)

	c.RequestFetchableTiles(context.Background(), []Request{{URL: "slow"}})
	c.Prune(map[string]bool{}) // not in keep set: aborts immediately

	assert.Nil(t, c.Get("slow"))
}

func TestFetchErrorEmitsEventAndDoesNotPanic(t *testing.T) {
	fetcher := &countingFetcher{fail: map[string]bool{"bad": true}}
	bus := events.NewBus()

	var gotErr *FetchError
	var mu sync.Mutex
	bus.On(events.TileFetchError, func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		gotErr = payload.(*FetchError)
	})

	c := New(fetcher, passthroughDecoder{}, bus)
	c.RequestFetchableTiles(context.Background(), []Request{{URL: "bad"}})
	require.NoError(t, c.AllRequestedTilesLoaded(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, gotErr)
	assert.Equal(t, "bad", gotErr.URL)

	tile := c.Get("bad")
	require.NotNil(t, tile)
	assert.Equal(t, StatusError, tile.Status)
}

func TestAbortManyTilesLeavesNoCachedEntries(t *testing.T) {
	fetcher := &countingFetcher{delay: 100 * time.Millisecond}
	c := New(fetcher, passthroughDecoder{}, nil)

	var reqs []Request
	for i := 0; i < 20; i++ {
		reqs = append(reqs, Request{URL: fmt.Sprintf("tile-%d", i)})
	}
	c.RequestFetchableTiles(context.Background(), reqs)

	// abort every tile: none should ever expose a cached, loaded entry.
	for _, r := range reqs {
		c.Abort(r.URL)
	}
	c.Prune(map[string]bool{})

	assert.Empty(t, c.GetCacheableTiles())
}

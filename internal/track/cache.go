package track

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/balhun/ISSTracker/internal/metrics"
	"github.com/balhun/ISSTracker/internal/tle"
)

type cacheKey struct {
	noradID int
	epoch   int64
	start   int64
}

// Cache memoises orbits for ad-hoc start times. Start times are rounded down
// to the sampling step so nearby requests share an entry.
// Safe for concurrent use.
type Cache struct {
	sampler *Sampler
	entries *lru.Cache[cacheKey, *Orbit]
}

// NewCache creates a cache holding at most size orbits.
func NewCache(sampler *Sampler, size int) (*Cache, error) {
	if size <= 0 {
		size = 32
	}
	entries, err := lru.New[cacheKey, *Orbit](size)
	if err != nil {
		return nil, fmt.Errorf("creating orbit cache: %w", err)
	}
	return &Cache{sampler: sampler, entries: entries}, nil
}

// Orbit returns the cached orbit for es at start, computing it on a miss.
// Failed computations are not cached.
func (c *Cache) Orbit(ctx context.Context, es tle.ElementSet, start time.Time) (*Orbit, error) {
	start = start.UTC().Truncate(c.sampler.Config().Step)
	key := cacheKey{noradID: es.NORADID, epoch: es.Epoch.UnixNano(), start: start.Unix()}

	if o, ok := c.entries.Get(key); ok {
		metrics.RecordOrbitCacheLookup(true)
		return o, nil
	}
	metrics.RecordOrbitCacheLookup(false)

	o, err := c.sampler.Orbit(ctx, es, start)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, o)
	return o, nil
}

// Len returns the number of cached orbits.
func (c *Cache) Len() int {
	return c.entries.Len()
}

package logview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrStale is returned to callers whose load finished after the identifier was
// invalidated. The result was discarded; callers should treat it as a no-op.
var ErrStale = errors.New("log info is stale")

// Loader computes the LogInfo for a canonical identifier.
type Loader func(ctx context.Context, id Identifier) (*LogInfo, error)

// Cache memoizes LogInfo per canonical identifier. Concurrent Gets for the same
// uncached identifier share a single load.
type Cache struct {
	load  Loader
	group singleflight.Group

	mu      sync.RWMutex
	entries map[Identifier]*LogInfo
	gens    map[Identifier]uint64
}

// NewCache returns an empty cache backed by load.
func NewCache(load Loader) *Cache {
	return &Cache{
		load:    load,
		entries: make(map[Identifier]*LogInfo),
		gens:    make(map[Identifier]uint64),
	}
}

// Get returns the cached LogInfo for id, loading it on first access.
// Cancelling ctx abandons the wait but not the shared load.
func (c *Cache) Get(ctx context.Context, id Identifier) (*LogInfo, error) {
	key := id.Canonical()

	c.mu.RLock()
	info, ok := c.entries[key]
	gen := c.gens[key]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	flight := fmt.Sprintf("%s/%s/%d@%d", key.Owner, key.Repo, key.JobID, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		info, err := c.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[key] != gen {
			return nil, ErrStale
		}
		c.entries[key] = info
		return info, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LogInfo), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the cached entry without loading.
func (c *Cache) Peek(id Identifier) (*LogInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[id.Canonical()]
	return info, ok
}

// Invalidate drops the entry for id. Loads already in flight for it will not
// be stored.
func (c *Cache) Invalidate(id Identifier) {
	key := id.Canonical()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gens[key]++
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package locationcache keeps the most recent location fix per session.
package locationcache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/db"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
)

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// KVCache stores fixes in the cache database. The entry TTL is the reuse window.
type KVCache struct {
	store  store
	prefix string
	window time.Duration
	logger *zap.Logger
}

// NewKV creates a database-backed location cache.
func NewKV(s store, keyPrefix string, window time.Duration, logger *zap.Logger) *KVCache {
	return &KVCache{store: s, prefix: keyPrefix + "location:", window: window, logger: logger}
}

// Get returns the cached fix for a session if it is still inside the window.
func (c *KVCache) Get(ctx context.Context, sessionID string) (geo.Coordinate, bool) {
	data, err := c.store.Get(ctx, c.prefix+sessionID)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached location", zap.String("session", sessionID), zap.Error(err))
		}
		return geo.Coordinate{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached location", zap.String("session", sessionID), zap.Error(err))
		return geo.Coordinate{}, false
	}
	coord, err := geo.NewCoordinate(e.Latitude, e.Longitude)
	if err != nil {
		return geo.Coordinate{}, false
	}
	return coord, true
}

// Put records a fresh fix. Write failures are logged and swallowed.
func (c *KVCache) Put(ctx context.Context, sessionID string, coord geo.Coordinate) {
	data, err := json.Marshal(entry{Latitude: coord.Latitude, Longitude: coord.Longitude})
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, c.prefix+sessionID, data, c.window); err != nil {
		c.logger.Warn("Failed to cache location", zap.String("session", sessionID), zap.Error(err))
	}
}

type memEntry struct {
	coord geo.Coordinate
	at    time.Time
}

// MemoryCache is the in-process fallback used when no cache database is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	window  time.Duration
	now     func() time.Time
}

// NewMemory creates an in-process location cache.
func NewMemory(window time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memEntry),
		window:  window,
		now:     time.Now,
	}
}

// Get returns the cached fix for a session if it is still inside the window.
func (c *MemoryCache) Get(_ context.Context, sessionID string) (geo.Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionID]
	if !ok {
		return geo.Coordinate{}, false
	}
	if c.now().Sub(e.at) >= c.window {
		delete(c.entries, sessionID)
		return geo.Coordinate{}, false
	}
	return e.coord, true
}

// Put records a fresh fix.
func (c *MemoryCache) Put(_ context.Context, sessionID string, coord geo.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = memEntry{coord: coord, at: c.now()}
}

// Sweep drops fixes that left the window.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, e := range c.entries {
		if now.Sub(e.at) >= c.window {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/db"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
)

// backend is the consumer interface of the search API being cached (ISP).
type backend interface {
	Lookup(ctx context.Context, referenceID string) (result.Result, error)
	Universal(ctx context.Context, query string, origin *geo.Coordinate) ([]result.Result, error)
}

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedBackend caches universal search responses in a key-value store.
// Direct lookups are authoritative and always pass through.
type CachedBackend struct {
	inner      backend
	store      store
	ttl        time.Duration
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner backend,
	s store,
	ttl time.Duration,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedBackend {
	return &CachedBackend{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		prefix:     keyPrefix + "results:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Lookup delegates to the inner backend.
func (c *CachedBackend) Lookup(ctx context.Context, referenceID string) (result.Result, error) {
	r, err := c.inner.Lookup(ctx, referenceID)
	if err != nil {
		return result.Result{}, fmt.Errorf("lookup %s: %w", referenceID, err)
	}
	return r, nil
}

// Universal returns cached results or calls the inner backend.
// Cache failures degrade to a miss and never fail the search.
func (c *CachedBackend) Universal(
	ctx context.Context, query string, origin *geo.Coordinate,
) ([]result.Result, error) {
	key := c.cacheKey(query, origin)

	if results, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return results, nil
	}

	c.incCache("miss")

	results, err := c.inner.Universal(ctx, query, origin)
	if err != nil {
		return nil, fmt.Errorf("universal search: %w", err)
	}

	// Empty result sets trigger suggestions upstream and are not worth caching.
	if len(results) > 0 {
		c.putToCache(ctx, key, results)
	}
	return results, nil
}

func (c *CachedBackend) incCache(res string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(res).Inc()
	}
}

// cacheKey hashes the trimmed query, exactly as sent upstream, and the origin rounded to ~110 m.
func (c *CachedBackend) cacheKey(query string, origin *geo.Coordinate) string {
	raw := strings.TrimSpace(query)
	if origin != nil {
		raw += "|" + roundCoord(origin.Latitude) + "," + roundCoord(origin.Longitude)
	}
	h := sha256.Sum256([]byte(raw))
	return c.prefix + hex.EncodeToString(h[:])
}

func roundCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', 3, 64)
}

func (c *CachedBackend) getFromCache(ctx context.Context, key string) ([]result.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached results", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var results []result.Result
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Warn("Failed to parse cached results", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return results, true
}

func (c *CachedBackend) putToCache(ctx context.Context, key string, results []result.Result) {
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("Failed to encode results for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache results", zap.String("key", key), zap.Error(err))
	}
}

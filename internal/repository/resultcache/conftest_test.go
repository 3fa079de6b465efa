package resultcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/db"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
)

type mockBackend struct {
	results        []result.Result
	err            error
	universalCalls int
	lookupCalls    int
}

func (m *mockBackend) Lookup(_ context.Context, id string) (result.Result, error) {
	m.lookupCalls++
	return result.Result{ID: id}, m.err
}

func (m *mockBackend) Universal(_ context.Context, _ string, _ *geo.Coordinate) ([]result.Result, error) {
	m.universalCalls++
	return m.results, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedBackend(t *testing.T, inner *mockBackend) (*CachedBackend, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cb := New(inner, ms, time.Minute, "test:", nil, zap.NewNop())
	return cb, ms
}

package search

import (
	"context"
	"sync"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/alert"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
)

// --- Mocks ---

type mockBackend struct {
	mu sync.Mutex

	lookupResult result.Result
	lookupErr    error
	lookupIDs    []string

	universalResults []result.Result
	universalErr     error
	universalQueries []string
	universalOrigins []*geo.Coordinate
}

func (m *mockBackend) Lookup(_ context.Context, id string) (result.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupIDs = append(m.lookupIDs, id)
	if m.lookupErr != nil {
		return result.Result{}, m.lookupErr
	}
	return m.lookupResult, nil
}

func (m *mockBackend) Universal(_ context.Context, q string, origin *geo.Coordinate) ([]result.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.universalQueries = append(m.universalQueries, q)
	m.universalOrigins = append(m.universalOrigins, origin)
	return m.universalResults, m.universalErr
}

type mockSuggester struct {
	mu          sync.Mutex
	suggestions []string
	err         error
	queries     []string
}

func (m *mockSuggester) Suggest(_ context.Context, q string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return m.suggestions, m.err
}

type mockTracker struct {
	calls   chan alert.Unavailable
	release chan struct{} // when set, Track blocks until closed
	err     error
}

func newMockTracker() *mockTracker {
	return &mockTracker{calls: make(chan alert.Unavailable, 8)}
}

func (m *mockTracker) Track(ctx context.Context, a alert.Unavailable) error {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
		}
	}
	m.calls <- a
	return m.err
}

type mockLocator struct {
	coord    geo.Coordinate
	err      error
	block    chan struct{}
	reported []geo.Coordinate
}

func (m *mockLocator) Locate(ctx context.Context, _ string) (geo.Coordinate, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return geo.Coordinate{}, ctx.Err()
		}
	}
	return m.coord, m.err
}

func (m *mockLocator) Report(_ context.Context, _ string, c geo.Coordinate) error {
	if !c.Valid() {
		return domain.ErrInvalidCoordinate
	}
	m.reported = append(m.reported, c)
	return nil
}

// --- Helpers ---

func ptr[T any](v T) *T { return &v }

func item(id, shopID string) result.Result {
	return result.Result{ID: id, Type: result.TypeItem, Name: id, ShopID: shopID, ShopName: "shop " + shopID}
}

func ids(results []result.Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

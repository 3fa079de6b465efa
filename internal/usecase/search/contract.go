package search

import (
	"context"

	"github.com/kailas-cloud/storefront-search/internal/domain/alert"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/view"
)

// Backend is the managed search API.
type Backend interface {
	Lookup(ctx context.Context, referenceID string) (result.Result, error)
	Universal(ctx context.Context, query string, origin *geo.Coordinate) ([]result.Result, error)
}

// Suggester produces did-you-mean suggestions for a query with no results.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Tracker receives unavailable-product alerts.
type Tracker interface {
	Track(ctx context.Context, a alert.Unavailable) error
}

// Locator resolves a session's origin coordinate.
type Locator interface {
	Locate(ctx context.Context, sessionID string) (geo.Coordinate, error)
	Report(ctx context.Context, sessionID string, coord geo.Coordinate) error
}

// Sessions guards a session against superseded queries.
type Sessions interface {
	Begin(ctx context.Context, sessionID string) (context.Context, uint64)
	Finish(sessionID string, seq uint64, err error) bool
}

// HistoryRecorder observes every composed view. Implementations must not block.
type HistoryRecorder interface {
	Record(ctx context.Context, state *view.State)
}

package location

import (
	"context"

	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
)

// Source produces a fresh device location fix for a session.
type Source interface {
	Fetch(ctx context.Context, sessionID string) (geo.Coordinate, error)
}

// Cache holds recent fixes for the reuse window.
type Cache interface {
	Get(ctx context.Context, sessionID string) (geo.Coordinate, bool)
	Put(ctx context.Context, sessionID string, coord geo.Coordinate)
}

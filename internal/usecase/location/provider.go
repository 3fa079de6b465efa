package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
)

// DefaultTimeout bounds a single fetch from the location source.
const DefaultTimeout = 10 * time.Second

// Provider resolves the origin coordinate of a search session.
// Failures are reported as *domain.LocationError and never abort a search.
type Provider struct {
	source   Source
	cache    Cache
	timeout  time.Duration
	group    singleflight.Group
	outcomes *prometheus.CounterVec
	logger   *zap.Logger
}

// NewProvider creates a geo provider. source may be nil when only client-reported fixes are used.
// outcomes is a counter vec with label "outcome", passed explicitly (may be nil).
func NewProvider(
	source Source, cache Cache, timeout time.Duration,
	outcomes *prometheus.CounterVec, logger *zap.Logger,
) *Provider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{
		source:   source,
		cache:    cache,
		timeout:  timeout,
		outcomes: outcomes,
		logger:   logger,
	}
}

// Locate returns a cached fix inside the window or fetches a fresh one.
// Concurrent calls for the same session share one fetch.
func (p *Provider) Locate(ctx context.Context, sessionID string) (geo.Coordinate, error) {
	if coord, ok := p.cache.Get(ctx, sessionID); ok {
		p.observe("cached")
		return coord, nil
	}

	if p.source == nil {
		p.observe(string(domain.LocationUnavailable))
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationUnavailable, errors.New("no location source"))
	}

	ch := p.group.DoChan(sessionID, func() (any, error) {
		return p.fetch(ctx, sessionID)
	})

	select {
	case <-ctx.Done():
		return geo.Coordinate{}, fmt.Errorf("locate: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return geo.Coordinate{}, res.Err
		}
		coord, _ := res.Val.(geo.Coordinate)
		return coord, nil
	}
}

// fetch runs detached from the first caller so a cancelled search does not fail the shared fetch.
func (p *Provider) fetch(ctx context.Context, sessionID string) (geo.Coordinate, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	coord, err := p.source.Fetch(fetchCtx, sessionID)
	if err == nil && !coord.Valid() {
		err = fmt.Errorf("%w: %s", domain.ErrInvalidCoordinate, coord)
	}
	if err != nil {
		locErr := classify(fetchCtx, err)
		var le *domain.LocationError
		if errors.As(locErr, &le) {
			p.observe(string(le.Kind))
		}
		p.logger.Warn("Location fetch failed",
			zap.String("session", sessionID),
			zap.Error(locErr),
		)
		return geo.Coordinate{}, locErr
	}

	p.cache.Put(fetchCtx, sessionID, coord)
	p.observe("fresh")
	return coord, nil
}

// Report stores a client-reported fix as the session's current location.
func (p *Provider) Report(ctx context.Context, sessionID string, coord geo.Coordinate) error {
	if !coord.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidCoordinate, coord)
	}
	p.cache.Put(ctx, sessionID, coord)
	p.observe("reported")
	return nil
}

func (p *Provider) observe(outcome string) {
	if p.outcomes != nil {
		p.outcomes.WithLabelValues(outcome).Inc()
	}
}

func classify(ctx context.Context, err error) error {
	var le *domain.LocationError
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewLocationError(domain.LocationTimeout, err)
	}
	return domain.NewLocationError(domain.LocationUnavailable, err)
}

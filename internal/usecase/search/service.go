package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/category"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/sortby"
	"github.com/kailas-cloud/storefront-search/internal/domain/view"
	"github.com/kailas-cloud/storefront-search/internal/logger"
)

// Request is one user-initiated search.
type Request struct {
	SessionID string
	UserID    string
	Query     string
	Origin    *geo.Coordinate // client-reported fix; nil asks the locator
	Sort      sortby.Criterion
	Category  category.Filter
	ItemType  string
}

// Service runs the search pipeline:
// locate -> gateway -> distances -> partition -> sort -> visibility -> compose.
type Service struct {
	gateway  *Gateway
	locator  Locator
	sessions Sessions
	composer *Composer
	history  HistoryRecorder
}

// New creates a search service. locator and history can be nil.
func New(
	gateway *Gateway, locator Locator, sessions Sessions,
	composer *Composer, history HistoryRecorder,
) *Service {
	return &Service{
		gateway:  gateway,
		locator:  locator,
		sessions: sessions,
		composer: composer,
		history:  history,
	}
}

// ReportLocation stores a client-reported fix for the session.
func (s *Service) ReportLocation(ctx context.Context, sessionID string, coord geo.Coordinate) error {
	if s.locator == nil {
		return fmt.Errorf("%w: location reporting is disabled", domain.ErrInvalidRequest)
	}
	if err := s.locator.Report(ctx, sessionID, coord); err != nil {
		return fmt.Errorf("report location: %w", err)
	}
	return nil
}

// Search executes the query. A query superseded by a newer one in the same
// session returns domain.ErrSuperseded and its response must be discarded.
func (s *Service) Search(ctx context.Context, req *Request) (*view.State, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if !req.Sort.IsValid() {
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidRequest, req.Sort)
	}
	if !req.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidRequest, req.Category)
	}

	qctx, seq := s.sessions.Begin(ctx, req.SessionID)
	qctx = logger.With(qctx, zap.String("session", req.SessionID), zap.Uint64("seq", seq))

	state, err := s.run(qctx, seq, req)
	if !s.sessions.Finish(req.SessionID, seq, err) {
		return nil, fmt.Errorf("%w: seq %d", domain.ErrSuperseded, seq)
	}
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		s.history.Record(qctx, state)
	}
	return state, nil
}

func (s *Service) run(ctx context.Context, seq uint64, req *Request) (*view.State, error) {
	origin, err := s.resolveOrigin(ctx, req)
	if err != nil {
		return nil, err
	}

	// Universal search waits for the fix; a direct hit only peeks at it below.
	out, err := s.gateway.ExecuteWith(ctx, req.Query, origin.wait)
	if err != nil {
		return nil, fmt.Errorf("execute %q: %w", req.Query, err)
	}

	comp := &Composition{
		Seq:         seq,
		Query:       req.Query,
		UserID:      req.UserID,
		Direct:      out.Direct,
		Sort:        req.Sort,
		Category:    req.Category,
		Suggestions: out.Suggestions,
	}

	if out.Direct {
		// Authoritative hit: no ranking or filtering, parent shop projected alongside.
		p := withParentShops(Partition(ctx, WithDistances(out.Results, origin.peek())))
		comp.Category = category.All
		comp.Items, comp.Services, comp.Shops, comp.Offices = p.Items, p.Services, p.Shops, p.Offices
		return s.composer.Compose(ctx, comp), nil
	}

	p := Partition(ctx, WithDistances(out.Results, origin.wait(ctx)))

	items := FilterByType(Sort(p.Items, req.Sort, req.Query), req.ItemType)
	services := FilterByType(Sort(p.Services, req.Sort, req.Query), req.ItemType)
	if !req.Category.ShowsItems() {
		items = nil
	}
	if !req.Category.ShowsServices() {
		services = nil
	}

	visible := VisibleShopIDs(items, services)
	comp.Items = items
	comp.Services = services
	comp.Shops = VisibleShops(SortShops(p.Shops, req.Sort, req.Query), visible, req.Category.BrowsesShops())
	comp.Offices = VisibleShops(SortShops(p.Offices, req.Sort, req.Query), visible, req.Category.BrowsesOffices())

	return s.composer.Compose(ctx, comp), nil
}

// resolveOrigin starts the location fetch in the background. It overlaps a direct
// lookup; universal search blocks on it for at most the provider timeout.
func (s *Service) resolveOrigin(ctx context.Context, req *Request) (*pendingOrigin, error) {
	if req.Origin != nil {
		if s.locator != nil {
			if err := s.locator.Report(ctx, req.SessionID, *req.Origin); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
			}
		} else if !req.Origin.Valid() {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, domain.ErrInvalidCoordinate)
		}
		return resolvedOrigin(req.Origin), nil
	}
	if s.locator == nil {
		return resolvedOrigin(nil), nil
	}

	p := &pendingOrigin{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		coord, err := s.locator.Locate(ctx, req.SessionID)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.FromContext(ctx).Info("Searching without location", zap.Error(err))
			}
			return
		}
		p.val = &coord
	}()
	return p, nil
}

// pendingOrigin is a location fix that may still be in flight.
type pendingOrigin struct {
	done chan struct{}
	val  *geo.Coordinate
}

func resolvedOrigin(c *geo.Coordinate) *pendingOrigin {
	p := &pendingOrigin{done: make(chan struct{}), val: c}
	close(p.done)
	return p
}

// wait blocks for the fix. Cancellation yields an unknown origin.
func (p *pendingOrigin) wait(ctx context.Context) *geo.Coordinate {
	select {
	case <-p.done:
		return p.val
	case <-ctx.Done():
		return nil
	}
}

// peek returns the fix only if it already arrived.
func (p *pendingOrigin) peek() *geo.Coordinate {
	select {
	case <-p.done:
		return p.val
	default:
		return nil
	}
}

package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/domain/alert"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/category"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/sortby"
	"github.com/kailas-cloud/storefront-search/internal/domain/shop"
	"github.com/kailas-cloud/storefront-search/internal/domain/view"
	"github.com/kailas-cloud/storefront-search/internal/logger"
	"github.com/kailas-cloud/storefront-search/internal/metrics"
)

// DefaultTrackingTimeout bounds a single tracking call.
const DefaultTrackingTimeout = 5 * time.Second

// Composition is the input of the view composer.
type Composition struct {
	Seq         uint64
	Query       string
	UserID      string
	Direct      bool
	Sort        sortby.Criterion
	Category    category.Filter
	Items       []result.Result
	Services    []result.Result
	Shops       []shop.Record
	Offices     []shop.Record
	Suggestions []string
}

// Composer assembles the final view and reports unavailable products in the background.
type Composer struct {
	tracker Tracker
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewComposer creates a view composer. tracker may be nil to disable tracking.
func NewComposer(tracker Tracker, timeout time.Duration) *Composer {
	if timeout <= 0 {
		timeout = DefaultTrackingTimeout
	}
	return &Composer{tracker: tracker, timeout: timeout}
}

// Compose builds the immutable view state. Tracking is never awaited.
func (c *Composer) Compose(ctx context.Context, in *Composition) *view.State {
	state := &view.State{
		Seq:         in.Seq,
		Query:       in.Query,
		Direct:      in.Direct,
		Sort:        in.Sort,
		Category:    in.Category,
		Items:       nonNil(in.Items),
		Services:    nonNil(in.Services),
		Shops:       nonNil(in.Shops),
		Offices:     nonNil(in.Offices),
		Suggestions: nonNil(in.Suggestions),
	}
	state.TotalCount = len(state.Items) + len(state.Services) + len(state.Shops) + len(state.Offices)

	if products := unavailableProducts(state.Items, state.Services); len(products) > 0 && c.tracker != nil {
		c.track(ctx, alert.Unavailable{
			UserID:      in.UserID,
			SearchQuery: in.Query,
			Products:    products,
		})
	}
	return state
}

// Wait blocks until in-flight tracking calls finish. Used on shutdown.
func (c *Composer) Wait() {
	c.wg.Wait()
}

func (c *Composer) track(ctx context.Context, a alert.Unavailable) {
	log := logger.FromContext(ctx)
	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				metrics.TrackingTotal.WithLabelValues("panic").Inc()
				log.Error("Tracking panicked", zap.Any("panic", rec))
			}
		}()

		if err := c.tracker.Track(trackCtx, a); err != nil {
			metrics.TrackingTotal.WithLabelValues("error").Inc()
			log.Warn("Unavailable product tracking failed",
				zap.String("query", a.SearchQuery),
				zap.Int("products", len(a.Products)),
				zap.Error(err),
			)
			return
		}
		metrics.TrackingTotal.WithLabelValues("ok").Inc()
	}()
}

func unavailableProducts(lists ...[]result.Result) []alert.UnavailableProduct {
	var out []alert.UnavailableProduct
	for _, list := range lists {
		for i := range list {
			r := &list[i]
			if !r.Unavailable() {
				continue
			}
			out = append(out, alert.UnavailableProduct{
				ProductID:   r.ID,
				ProductName: r.Name,
				ShopID:      r.ShopID,
				ShopName:    r.ShopName,
				Category:    r.CategoryName(),
				Price:       r.Price,
			})
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

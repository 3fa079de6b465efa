package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/refid"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/logger"
	"github.com/kailas-cloud/storefront-search/internal/metrics"
)

// Path is the request path a query took through the gateway.
type Path string

// Gateway paths.
const (
	PathDirect    Path = "direct"
	PathUniversal Path = "universal"
	PathFallback  Path = "fallback" // identifier-shaped query whose lookup failed
)

// Outcome is the raw gateway answer before partitioning.
type Outcome struct {
	Results     []result.Result
	Direct      bool
	Suggestions []string
	Path        Path
}

// OriginFunc resolves the optional origin lazily. It returns nil when no location is known.
type OriginFunc func(ctx context.Context) *geo.Coordinate

// Gateway routes a query to direct lookup or universal search.
type Gateway struct {
	backend   Backend
	suggester Suggester
	maxSugg   int
}

// NewGateway creates a search gateway. suggester may be nil.
func NewGateway(backend Backend, suggester Suggester, maxSuggestions int) *Gateway {
	return &Gateway{backend: backend, suggester: suggester, maxSugg: maxSuggestions}
}

// Execute runs the query against a known origin (nil when absent).
func (g *Gateway) Execute(ctx context.Context, query string, origin *geo.Coordinate) (Outcome, error) {
	return g.ExecuteWith(ctx, query, func(context.Context) *geo.Coordinate { return origin })
}

// ExecuteWith runs the query and resolves the origin only when universal search needs it.
// A direct hit is returned as-is; lookup failures fall back to universal search;
// universal failures are terminal *domain.SearchError values.
func (g *Gateway) ExecuteWith(ctx context.Context, query string, origin OriginFunc) (Outcome, error) {
	log := logger.FromContext(ctx)
	path := PathUniversal

	if id, kind, ok := refid.Parse(query); ok {
		r, err := g.backend.Lookup(ctx, id)
		if err == nil && (r.ID == "" || !r.Type.IsValid()) {
			err = &domain.LookupError{
				Kind:        domain.LookupNotFound,
				ReferenceID: id,
				Err:         fmt.Errorf("unusable record type %q", r.Type),
			}
		}
		if err == nil {
			g.observe(PathDirect, "ok")
			return Outcome{Results: []result.Result{r}, Direct: true, Path: PathDirect}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, fmt.Errorf("direct lookup %s: %w", id, ctxErr)
		}
		log.Info("Direct lookup failed, falling back to universal search",
			zap.String("reference_id", id),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		path = PathFallback
	}

	text := strings.TrimSpace(query)
	results, err := g.backend.Universal(ctx, text, origin(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, fmt.Errorf("universal search: %w", ctxErr)
		}
		g.observe(path, "error")
		return Outcome{}, asSearchError(err)
	}

	out := Outcome{Results: results, Path: path}
	if len(results) == 0 {
		out.Suggestions = g.suggest(ctx, query)
		g.observe(path, "empty")
		return out, nil
	}

	g.observe(path, "ok")
	return out, nil
}

// suggest asks the did-you-mean collaborator once. Its failures are advisory only.
func (g *Gateway) suggest(ctx context.Context, query string) []string {
	if g.suggester == nil {
		return nil
	}
	suggestions, err := g.suggester.Suggest(ctx, query)
	if err != nil {
		logger.FromContext(ctx).Warn("Suggestions unavailable", zap.String("query", query), zap.Error(err))
		return nil
	}
	if g.maxSugg > 0 && len(suggestions) > g.maxSugg {
		suggestions = suggestions[:g.maxSugg]
	}
	return suggestions
}

func (g *Gateway) observe(path Path, outcome string) {
	metrics.SearchExecutionsTotal.WithLabelValues(string(path), outcome).Inc()
}

func asSearchError(err error) error {
	var se *domain.SearchError
	if errors.As(err, &se) {
		return fmt.Errorf("universal search: %w", err)
	}
	return &domain.SearchError{Kind: domain.SearchTransport, Err: err}
}

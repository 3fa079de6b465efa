package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/category"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/sortby"
	"github.com/kailas-cloud/storefront-search/internal/domain/view"
	"github.com/kailas-cloud/storefront-search/internal/logger"
	"github.com/kailas-cloud/storefront-search/internal/usecase/health"
	searchuc "github.com/kailas-cloud/storefront-search/internal/usecase/search"
	"github.com/kailas-cloud/storefront-search/internal/usecase/session"
)

const (
	// HeaderSessionID scopes the superseded-query guard. Generated when absent.
	HeaderSessionID = "X-Session-ID"
	// HeaderUserID is forwarded to the unavailable-product tracking sink.
	HeaderUserID = "X-User-ID"

	searchFailedMessage = "search failed, retry"
)

// Searcher runs the search pipeline.
type Searcher interface {
	Search(ctx context.Context, req *searchuc.Request) (*view.State, error)
	ReportLocation(ctx context.Context, sessionID string, coord geo.Coordinate) error
}

// SessionReader exposes session phases.
type SessionReader interface {
	State(sessionID string) session.Snapshot
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the public storefront search API.
type Server struct {
	search        Searcher
	sessions      SessionReader
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, sessions SessionReader, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search:   search,
		sessions: sessions,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler(domain.ErrInvalidRequest),
		validationHandler(domain.ErrInvalidCoordinate),
		sentinelHandler(domain.ErrSuperseded, http.StatusConflict, ErrorCodeSuperseded),
		searchFailedHandler,
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get(RouteHealth, s.HealthCheck)
	r.Get(RouteMetrics, s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Put("/sessions/{session}/location", s.ReportLocation)
		r.Get("/sessions/{session}/state", s.SessionState)
	})
}

// Search handles GET /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, err := s.searchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	w.Header().Set(HeaderSessionID, req.SessionID)

	state, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, viewToJSON(state))
}

// ReportLocation handles PUT /v1/sessions/{session}/location.
func (s *Server) ReportLocation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "latitude and longitude are required")
		return
	}

	coord, err := geo.NewCoordinate(*req.Latitude, *req.Longitude)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	if err := s.search.ReportLocation(r.Context(), sessionID, coord); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SessionState handles GET /v1/sessions/{session}/state.
func (s *Server) SessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionToJSON(s.sessions.State(chi.URLParam(r, "session"))))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == health.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthToJSON(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// searchRequest binds and validates the query string.
func (s *Server) searchRequest(r *http.Request) (*searchuc.Request, error) {
	query := r.URL.Query()

	var (
		q        string
		lat, lng *float64
		sortStr  *string
		catStr   *string
		itemType *string
	)
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &q); err != nil {
		return nil, fmt.Errorf("invalid q: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "lat", query, &lat); err != nil {
		return nil, fmt.Errorf("invalid lat: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "lng", query, &lng); err != nil {
		return nil, fmt.Errorf("invalid lng: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "sort", query, &sortStr); err != nil {
		return nil, fmt.Errorf("invalid sort: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "category", query, &catStr); err != nil {
		return nil, fmt.Errorf("invalid category: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "type", query, &itemType); err != nil {
		return nil, fmt.Errorf("invalid type: %w", err)
	}

	if strings.TrimSpace(q) == "" {
		return nil, errors.New("q must not be empty")
	}

	req := &searchuc.Request{
		SessionID: r.Header.Get(HeaderSessionID),
		UserID:    r.Header.Get(HeaderUserID),
		Query:     q,
		ItemType:  deref(itemType),
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	var ok bool
	if req.Sort, ok = sortby.Parse(deref(sortStr)); !ok {
		return nil, fmt.Errorf("sort must be one of relevance, distance, rating, price, got %q", deref(sortStr))
	}
	if req.Category, ok = category.Parse(deref(catStr)); !ok {
		return nil, fmt.Errorf("category must be one of all, items, services, shops, offices, got %q", deref(catStr))
	}

	switch {
	case lat == nil && lng == nil:
	case lat == nil || lng == nil:
		return nil, errors.New("lat and lng must be provided together")
	default:
		origin, err := geo.NewCoordinate(*lat, *lng)
		if err != nil {
			return nil, err
		}
		req.Origin = &origin
	}
	return req, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidCoordinate,
		domain.ErrSuperseded,
		domain.ErrSearch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports the full error text: it only describes caller input.
func validationHandler(sentinel error) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return true
	}
}

// searchFailedHandler maps terminal universal search failures to the retry message.
func searchFailedHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrSearch) {
		return false
	}
	writeError(w, http.StatusBadGateway, ErrorCodeSearchFailed, searchFailedMessage)
	return true
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	if errors.Is(err, domain.ErrSuperseded) || errors.Is(err, domain.ErrInvalidRequest) {
		log.Debug("domain error", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err))
	}

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

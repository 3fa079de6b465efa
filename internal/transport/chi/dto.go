package chi

import (
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/shop"
	"github.com/kailas-cloud/storefront-search/internal/domain/view"
	"github.com/kailas-cloud/storefront-search/internal/usecase/health"
	"github.com/kailas-cloud/storefront-search/internal/usecase/session"
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeSearchFailed     ErrorCode = "search_failed"
	ErrorCodeSuperseded       ErrorCode = "superseded"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// LocationRequest is the body of PUT /v1/sessions/{session}/location.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SessionStateResponse is the body of GET /v1/sessions/{session}/state.
type SessionStateResponse struct {
	Phase string `json:"phase"`
	Seq   uint64 `json:"seq"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// CoordinateJSON is a WGS84 point.
type CoordinateJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ResultJSON is an item or service hit.
type ResultJSON struct {
	ID            string          `json:"id"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	ShopID        string          `json:"shop_id"`
	ShopName      string          `json:"shop_name"`
	ShopAddress   string          `json:"shop_address,omitempty"`
	ShopPhone     *string         `json:"shop_phone,omitempty"`
	Price         *float64        `json:"price,omitempty"`
	DistanceKm    *float64        `json:"distance_km,omitempty"`
	MatchScore    *float64        `json:"match_score,omitempty"`
	AverageRating *float64        `json:"average_rating,omitempty"`
	Category      *string         `json:"category,omitempty"`
	Availability  bool            `json:"availability"`
	InStock       *int            `json:"in_stock,omitempty"`
	Location      *CoordinateJSON `json:"location,omitempty"`
}

// ShopJSON is a shop or office record.
type ShopJSON struct {
	ID            string          `json:"id"`
	ShopName      string          `json:"shop_name"`
	Address       string          `json:"address,omitempty"`
	Phone         *string         `json:"phone,omitempty"`
	ShopType      string          `json:"shop_type"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Location      *CoordinateJSON `json:"location,omitempty"`
	DistanceKm    *float64        `json:"distance_km,omitempty"`
	AverageRating *float64        `json:"average_rating,omitempty"`
}

// ViewResponse is the body of GET /v1/search.
type ViewResponse struct {
	Seq         uint64       `json:"seq"`
	Query       string       `json:"query"`
	Direct      bool         `json:"direct"`
	Sort        string       `json:"sort"`
	Category    string       `json:"category"`
	Items       []ResultJSON `json:"items"`
	Services    []ResultJSON `json:"services"`
	Shops       []ShopJSON   `json:"shops"`
	Offices     []ShopJSON   `json:"offices"`
	TotalCount  int          `json:"total_count"`
	Suggestions []string     `json:"suggestions"`
}

func coordinateToJSON(c *geo.Coordinate) *CoordinateJSON {
	if c == nil {
		return nil
	}
	return &CoordinateJSON{Latitude: c.Latitude, Longitude: c.Longitude}
}

func resultToJSON(r *result.Result) ResultJSON {
	return ResultJSON{
		ID:            r.ID,
		ReferenceID:   r.ReferenceID,
		Type:          string(r.Type),
		Name:          r.Name,
		Description:   r.Description,
		ShopID:        r.ShopID,
		ShopName:      r.ShopName,
		ShopAddress:   r.ShopAddress,
		ShopPhone:     r.ShopPhone,
		Price:         r.Price,
		DistanceKm:    r.DistanceKm,
		MatchScore:    r.MatchScore,
		AverageRating: r.AverageRating,
		Category:      r.Category,
		Availability:  r.Available(),
		InStock:       r.InStock,
		Location:      coordinateToJSON(r.Location),
	}
}

func shopToJSON(s *shop.Record) ShopJSON {
	return ShopJSON{
		ID:            s.ID,
		ShopName:      s.Name,
		Address:       s.Address,
		Phone:         s.Phone,
		ShopType:      string(s.Type),
		ReferenceID:   s.ReferenceID,
		Location:      coordinateToJSON(s.Location),
		DistanceKm:    s.DistanceKm,
		AverageRating: s.AverageRating,
	}
}

func resultsToJSON(rs []result.Result) []ResultJSON {
	out := make([]ResultJSON, len(rs))
	for i := range rs {
		out[i] = resultToJSON(&rs[i])
	}
	return out
}

func shopsToJSON(ss []shop.Record) []ShopJSON {
	out := make([]ShopJSON, len(ss))
	for i := range ss {
		out[i] = shopToJSON(&ss[i])
	}
	return out
}

func viewToJSON(s *view.State) ViewResponse {
	suggestions := s.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return ViewResponse{
		Seq:         s.Seq,
		Query:       s.Query,
		Direct:      s.Direct,
		Sort:        string(s.Sort),
		Category:    string(s.Category),
		Items:       resultsToJSON(s.Items),
		Services:    resultsToJSON(s.Services),
		Shops:       shopsToJSON(s.Shops),
		Offices:     shopsToJSON(s.Offices),
		TotalCount:  s.TotalCount,
		Suggestions: suggestions,
	}
}

func sessionToJSON(s session.Snapshot) SessionStateResponse {
	return SessionStateResponse{Phase: string(s.Phase), Seq: s.Seq}
}

func healthToJSON(r health.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(r.Status), Checks: checks}
}

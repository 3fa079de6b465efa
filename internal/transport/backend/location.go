package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/version"
)

// LocationSource fetches the device location collected by the presentation layer.
type LocationSource struct {
	httpClient *http.Client
	url        string
}

// NewLocationSource creates a location source for GET {sourceURL}?session=.
// httpClient may be nil; the provider applies its own timeout per fetch.
func NewLocationSource(httpClient *http.Client, sourceURL string) *LocationSource {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &LocationSource{httpClient: httpClient, url: sourceURL}
}

// Fetch returns the session's current fix. A 403 means the user denied the permission.
func (s *LocationSource) Fetch(ctx context.Context, sessionID string) (geo.Coordinate, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationUnavailable, err)
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("location request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationDenied, nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationUnavailable,
			fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(b))))
	}

	var loc locationDTO
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationUnavailable, fmt.Errorf("decode location: %w", err))
	}
	coord, err := geo.NewCoordinate(loc.Latitude, loc.Longitude)
	if err != nil {
		return geo.Coordinate{}, domain.NewLocationError(domain.LocationUnavailable, err)
	}
	return coord, nil
}

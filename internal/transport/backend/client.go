// Package backend is the HTTP client of the managed search API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/alert"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/metrics"
	"github.com/kailas-cloud/storefront-search/internal/version"
)

const (
	endpointLookup    = "reference"
	endpointUniversal = "universal"
	endpointSuggest   = "did_you_mean"
	endpointTrack     = "track"
	endpointHealth    = "health"

	maxErrorBody = 4 << 10
)

// Config holds the backend client settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client // optional
}

// Client calls the search, suggestion and alerting endpoints of the backend.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 8 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, baseURL: u, apiKey: cfg.APIKey}, nil
}

// Lookup fetches one record by its reference identifier.
func (c *Client) Lookup(ctx context.Context, referenceID string) (result.Result, error) {
	var dto resultDTO
	status, err := c.doJSON(ctx, endpointLookup, http.MethodGet,
		"/search/reference/"+url.PathEscape(referenceID), nil, nil, &dto)
	if err != nil {
		if status == http.StatusNotFound {
			return result.Result{}, &domain.LookupError{Kind: domain.LookupNotFound, ReferenceID: referenceID}
		}
		return result.Result{}, &domain.LookupError{Kind: domain.LookupTransport, ReferenceID: referenceID, Err: err}
	}
	// An empty or unclassifiable 2xx body is no record at all.
	if dto.ID == "" || !result.Type(dto.ResultType).IsValid() {
		return result.Result{}, &domain.LookupError{
			Kind:        domain.LookupNotFound,
			ReferenceID: referenceID,
			Err:         fmt.Errorf("unusable record (id %q, type %q)", dto.ID, dto.ResultType),
		}
	}
	return dto.toDomain(), nil
}

// Universal runs a free-text query. lat/lng are sent only when origin is known.
func (c *Client) Universal(ctx context.Context, query string, origin *geo.Coordinate) ([]result.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	if origin != nil {
		params.Set("lat", strconv.FormatFloat(origin.Latitude, 'f', -1, 64))
		params.Set("lng", strconv.FormatFloat(origin.Longitude, 'f', -1, 64))
	}

	var dtos []resultDTO
	status, err := c.doJSON(ctx, endpointUniversal, http.MethodGet, "/search/universal", params, nil, &dtos)
	if err != nil {
		if status != 0 {
			return nil, &domain.SearchError{Kind: domain.SearchServer, StatusCode: status, Err: err}
		}
		return nil, &domain.SearchError{Kind: domain.SearchTransport, Err: err}
	}

	out := make([]result.Result, len(dtos))
	for i := range dtos {
		out[i] = dtos[i].toDomain()
	}
	return out, nil
}

// Suggest asks the backend for did-you-mean alternatives.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)

	var suggestions []string
	if _, err := c.doJSON(ctx, endpointSuggest, http.MethodGet, "/search/did-you-mean", params, nil, &suggestions); err != nil {
		metrics.SuggestionRequestsTotal.WithLabelValues("backend", "error").Inc()
		return nil, fmt.Errorf("did-you-mean: %w", err)
	}
	metrics.SuggestionRequestsTotal.WithLabelValues("backend", "success").Inc()
	return suggestions, nil
}

// Track reports unavailable products to the alerting sink.
func (c *Client) Track(ctx context.Context, a alert.Unavailable) error {
	body, err := json.Marshal(trackRequestFrom(&a))
	if err != nil {
		return fmt.Errorf("encode track request: %w", err)
	}
	if _, err := c.doJSON(ctx, endpointTrack, http.MethodPost, "/alerts/track", nil, body, nil); err != nil {
		return fmt.Errorf("track unavailable products: %w", err)
	}
	return nil
}

// Ping checks backend availability.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.doJSON(ctx, endpointHealth, http.MethodGet, "/health", nil, nil, nil); err != nil {
		return fmt.Errorf("backend health: %w", err)
	}
	return nil
}

// doJSON performs the request and decodes a 2xx body into out (when non-nil).
// The returned status is 0 when no response was received.
func (c *Client) doJSON(
	ctx context.Context, endpoint, method, path string,
	params url.Values, body []byte, out any,
) (int, error) {
	u := *c.baseURL
	u.Path += path
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

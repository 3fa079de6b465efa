package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/alert"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{BaseURL: server.URL + "/", APIKey: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestLookup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/reference/SRV-BHO-007" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		_, _ = w.Write([]byte(`{
			"id": "svc-7", "referenceId": "SRV-BHO-007", "resultType": "service",
			"name": "Haircut", "shopId": "s9", "shopName": "Barber",
			"price": 150, "matchScore": 0.8, "availability": false, "inStock": 0,
			"location": {"latitude": 23.2, "longitude": 75.1}
		}`))
	})

	r, err := c.Lookup(context.Background(), "SRV-BHO-007")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "svc-7" || r.Type != result.TypeService || r.ShopID != "s9" {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Available() || *r.InStock != 0 || *r.Price != 150 {
		t.Errorf("optional fields not mapped: %+v", r)
	}
	if r.Location == nil || r.Location.Latitude != 23.2 {
		t.Errorf("unexpected location %+v", r.Location)
	}
	if r.DistanceKm != nil {
		t.Error("distance must not come from the wire")
	}
}

func TestLookup_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such record", http.StatusNotFound)
	})

	_, err := c.Lookup(context.Background(), "SHP-ABC-123")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var le *domain.LookupError
	if !errors.As(err, &le) || le.Kind != domain.LookupNotFound || le.ReferenceID != "SHP-ABC-123" {
		t.Errorf("unexpected lookup error %+v", err)
	}
}

func TestLookup_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Lookup(context.Background(), "SHP-ABC-123")
	var le *domain.LookupError
	if !errors.As(err, &le) || le.Kind != domain.LookupTransport {
		t.Errorf("expected transport lookup error, got %v", err)
	}
}

func TestLookup_UnusableBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"null", "null"},
		{"empty object", "{}"},
		{"unknown type", `{"id": "x1", "resultType": "bogus", "name": "Thing"}`},
		{"missing id", `{"resultType": "product", "name": "Thing"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Lookup(context.Background(), "PRD-ABC-001")
			var le *domain.LookupError
			if !errors.As(err, &le) || le.Kind != domain.LookupNotFound || le.ReferenceID != "PRD-ABC-001" {
				t.Errorf("expected not_found lookup error, got %v", err)
			}
		})
	}
}

func TestUniversal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/universal" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "milk" || q.Get("lat") != "23.2" || q.Get("lng") != "75.1" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`[
			{"id": "1", "resultType": "item", "shopId": "s1"},
			{"id": "2", "resultType": "office", "shopId": "o1", "averageRating": 4.2}
		]`))
	})

	results, err := c.Universal(context.Background(), "milk", &geo.Coordinate{Latitude: 23.2, Longitude: 75.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[1].Type != result.TypeOffice || *results[1].AverageRating != 4.2 {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestUniversal_NoOrigin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("lat") || r.URL.Query().Has("lng") {
			t.Errorf("lat/lng must be omitted without origin: %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`[]`))
	})

	results, err := c.Universal(context.Background(), "milk", nil)
	if err != nil || len(results) != 0 {
		t.Errorf("unexpected %v %v", results, err)
	}
}

func TestUniversal_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Universal(context.Background(), "milk", nil)
	var se *domain.SearchError
	if !errors.As(err, &se) || se.Kind != domain.SearchServer || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected server SearchError, got %v", err)
	}
}

func TestUniversal_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Universal(context.Background(), "milk", nil)
	var se *domain.SearchError
	if !errors.As(err, &se) || se.Kind != domain.SearchTransport {
		t.Errorf("expected transport SearchError, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/did-you-mean" || r.URL.Query().Get("q") != "mlik" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`["milk","silk"]`))
	})

	got, err := c.Suggest(context.Background(), "mlik")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "milk" {
		t.Errorf("unexpected suggestions %v", got)
	}
}

func TestTrack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/alerts/track" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Error("tracking must be authenticated")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["userId"] != "u1" || body["searchQuery"] != "milk" {
			t.Errorf("unexpected body %v", body)
		}
		products, _ := body["unavailableProducts"].([]any)
		if len(products) != 1 {
			t.Fatalf("expected 1 product, got %v", body["unavailableProducts"])
		}
		p := products[0].(map[string]any)
		if p["productId"] != "p1" || p["shopId"] != "s1" || p["category"] != "dairy" || p["price"] != 42.0 {
			t.Errorf("unexpected product %v", p)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	price := 42.0
	err := c.Track(context.Background(), alert.Unavailable{
		UserID:      "u1",
		SearchQuery: "milk",
		Products: []alert.UnavailableProduct{
			{ProductID: "p1", ProductName: "Milk", ShopID: "s1", ShopName: "Dairy", Category: "dairy", Price: &price},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTrack_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := c.Track(context.Background(), alert.Unavailable{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

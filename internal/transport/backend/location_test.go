package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/storefront-search/internal/domain"
)

func TestLocationSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session") != "s1" || r.URL.Query().Get("app") != "web" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"latitude": 23.2, "longitude": 75.1}`))
	}))
	defer server.Close()

	coord, err := NewLocationSource(nil, server.URL+"/location?app=web").Fetch(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Latitude != 23.2 || coord.Longitude != 75.1 {
		t.Errorf("unexpected coordinate %v", coord)
	}
}

func TestLocationSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.LocationErrorKind
	}{
		{"denied", http.StatusForbidden, "", domain.LocationDenied},
		{"server error", http.StatusBadGateway, "", domain.LocationUnavailable},
		{"garbage", http.StatusOK, "not json", domain.LocationUnavailable},
		{"out of range", http.StatusOK, `{"latitude": 91, "longitude": 0}`, domain.LocationUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewLocationSource(nil, server.URL).Fetch(context.Background(), "s1")
			var le *domain.LocationError
			if !errors.As(err, &le) || le.Kind != tt.want {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

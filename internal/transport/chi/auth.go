package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/storefront-search/internal/metrics"
)

// Public routes: probes and scrapers carry no storefront API key.
const (
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)

var publicRoutes = map[string]struct{}{
	RouteHealth:  {},
	RouteMetrics: {},
}

// Auth rejection reasons, used as the metric label.
const (
	rejectMissing = "missing"
	rejectScheme  = "scheme"
	rejectInvalid = "invalid"
)

const bearerScheme = "bearer "

// BearerAuthMiddleware guards the storefront search API with static API keys.
// If apiKeys has no non-blank entry, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicRoutes[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, reason := bearerToken(r.Header.Get("Authorization"))
			if reason == "" {
				if _, ok := validKeys[token]; !ok {
					reason = rejectInvalid
				}
			}
			if reason != "" {
				metrics.AuthRejectionsTotal.WithLabelValues(reason).Inc()
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, rejectMessage(reason))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token. The scheme name is case-insensitive.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", rejectMissing
	}
	if len(header) < len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", rejectScheme
	}
	return strings.TrimSpace(header[len(bearerScheme):]), ""
}

func rejectMessage(reason string) string {
	switch reason {
	case rejectMissing:
		return "missing authorization header"
	case rejectScheme:
		return "authorization header must use Bearer scheme"
	default:
		return "invalid api key"
	}
}

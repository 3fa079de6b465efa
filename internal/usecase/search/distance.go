package search

import (
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
)

// WithDistances returns copies of results carrying the great-circle distance from origin.
// Results without a valid location keep an unknown distance. A nil origin leaves them untouched.
func WithDistances(results []result.Result, origin *geo.Coordinate) []result.Result {
	out := make([]result.Result, len(results))
	copy(out, results)
	if origin == nil {
		return out
	}
	for i := range out {
		if out[i].Location == nil {
			continue
		}
		km, err := geo.GreatCircleKm(*origin, *out[i].Location)
		if err != nil {
			continue
		}
		out[i] = out[i].WithDistance(km)
	}
	return out
}

package geo

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/storefront-search/internal/domain"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// GreatCircleKm returns the haversine distance in kilometers between a and b.
// Both points must be valid coordinates.
func GreatCircleKm(a, b Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, fmt.Errorf("great circle %s -> %s: %w", a, b, domain.ErrInvalidCoordinate)
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h)), nil
}

package geo

import (
	"fmt"

	"github.com/kailas-cloud/storefront-search/internal/domain"
)

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinate validates the range and returns a coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("%w: lat=%v lng=%v", domain.ErrInvalidCoordinate, lat, lng)
	}
	return c, nil
}

// Valid checks that latitude is in [-90,90] and longitude in [-180,180].
// NaN fails both comparisons and is rejected.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

package result

import (
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
)

// Type is the raw record type reported by the backend.
type Type string

// Backend result types.
const (
	TypeItem    Type = "item"
	TypeMenu    Type = "menu"
	TypeProduct Type = "product"
	TypeService Type = "service"
	TypeShop    Type = "shop"
	TypeOffice  Type = "office"
)

// Partition is one of the four disjoint display categories.
type Partition string

// Display partitions.
const (
	PartitionItems    Partition = "items"
	PartitionServices Partition = "services"
	PartitionShops    Partition = "shops"
	PartitionOffices  Partition = "offices"
)

// Partition collapses the raw type into its display partition.
// ok is false for a type outside the declared enum.
func (t Type) Partition() (Partition, bool) {
	switch t {
	case TypeItem, TypeMenu, TypeProduct:
		return PartitionItems, true
	case TypeService:
		return PartitionServices, true
	case TypeShop:
		return PartitionShops, true
	case TypeOffice:
		return PartitionOffices, true
	default:
		return "", false
	}
}

// IsValid checks if the type is one of the declared values.
func (t Type) IsValid() bool {
	_, ok := t.Partition()
	return ok
}

// Result is a single search hit. Optional fields are nil when the backend omits them.
type Result struct {
	ID          string
	ReferenceID string
	Type        Type
	Name        string
	Description string

	ShopID      string
	ShopName    string
	ShopAddress string
	ShopPhone   *string

	Price         *float64
	DistanceKm    *float64
	MatchScore    *float64
	AverageRating *float64
	Category      *string
	Availability  *bool
	InStock       *int
	Location      *geo.Coordinate
}

// Available defaults to true when the backend did not report availability.
func (r *Result) Available() bool {
	return r.Availability == nil || *r.Availability
}

// Unavailable reports a product that should be sent to the alerting sink.
func (r *Result) Unavailable() bool {
	return !r.Available() || (r.InStock != nil && *r.InStock == 0)
}

// Score returns the backend relevance score, 0 when absent.
func (r *Result) Score() float64 {
	if r.MatchScore == nil {
		return 0
	}
	return *r.MatchScore
}

// Distance returns the computed distance and whether it is known.
func (r *Result) Distance() (float64, bool) {
	if r.DistanceKm == nil {
		return 0, false
	}
	return *r.DistanceKm, true
}

// CategoryName returns the category or "" when absent.
func (r *Result) CategoryName() string {
	if r.Category == nil {
		return ""
	}
	return *r.Category
}

// WithDistance returns a copy carrying the given distance.
func (r Result) WithDistance(km float64) Result {
	r.DistanceKm = &km
	return r
}

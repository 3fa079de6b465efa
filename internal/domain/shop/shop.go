package shop

import (
	"strings"

	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
)

// Type is the normalized kind of a shop record.
type Type string

// Shop types.
const (
	TypeProduct Type = "product"
	TypeService Type = "service"
	TypeOffice  Type = "office"
)

// Record is the common shape of product shops, service shops and offices.
// ID lives in the shopId namespace referenced by item and service results.
type Record struct {
	ID            string
	Name          string
	Address       string
	Phone         *string
	Type          Type
	Location      *geo.Coordinate
	DistanceKm    *float64
	AverageRating *float64

	ReferenceID string
	MatchScore  float64
	Available   bool
}

// Rating returns the average rating, 0 when unknown.
func (r *Record) Rating() float64 {
	if r.AverageRating == nil {
		return 0
	}
	return *r.AverageRating
}

// Distance returns the computed distance and whether it is known.
func (r *Record) Distance() (float64, bool) {
	if r.DistanceKm == nil {
		return 0, false
	}
	return *r.DistanceKm, true
}

// FromResult folds a shop- or office-typed hit into a Record.
func FromResult(r *result.Result) Record {
	rec := Record{
		ID:            r.ShopID,
		Name:          r.ShopName,
		Address:       r.ShopAddress,
		Phone:         r.ShopPhone,
		Type:          typeOf(r),
		Location:      r.Location,
		DistanceKm:    r.DistanceKm,
		AverageRating: r.AverageRating,
		ReferenceID:   r.ReferenceID,
		MatchScore:    r.Score(),
		Available:     r.Available(),
	}
	if rec.ID == "" {
		rec.ID = r.ID
	}
	if rec.Name == "" {
		rec.Name = r.Name
	}
	return rec
}

// ParentOf projects the shop that owns an item or service hit.
// ok is false for shop/office hits and for results without a shopId.
func ParentOf(r *result.Result) (Record, bool) {
	if r.ShopID == "" {
		return Record{}, false
	}
	var typ Type
	switch p, _ := r.Type.Partition(); p {
	case result.PartitionItems:
		typ = TypeProduct
	case result.PartitionServices:
		typ = TypeService
	default:
		return Record{}, false
	}
	return Record{
		ID:        r.ShopID,
		Name:      r.ShopName,
		Address:   r.ShopAddress,
		Phone:     r.ShopPhone,
		Type:      typ,
		Available: true,
	}, true
}

func typeOf(r *result.Result) Type {
	if r.Type == result.TypeOffice {
		return TypeOffice
	}
	if strings.EqualFold(strings.TrimSpace(r.CategoryName()), string(TypeService)) {
		return TypeService
	}
	return TypeProduct
}

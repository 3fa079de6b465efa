package backend

import (
	"github.com/kailas-cloud/storefront-search/internal/domain/alert"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
)

// resultDTO is the wire shape of a search hit.
type resultDTO struct {
	ID            string       `json:"id"`
	ReferenceID   string       `json:"referenceId,omitempty"`
	ResultType    string       `json:"resultType"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	ShopID        string       `json:"shopId,omitempty"`
	ShopName      string       `json:"shopName,omitempty"`
	ShopAddress   string       `json:"shopAddress,omitempty"`
	ShopPhone     *string      `json:"shopPhone,omitempty"`
	Price         *float64     `json:"price,omitempty"`
	MatchScore    *float64     `json:"matchScore,omitempty"`
	AverageRating *float64     `json:"averageRating,omitempty"`
	Category      *string      `json:"category,omitempty"`
	Availability  *bool        `json:"availability,omitempty"`
	InStock       *int         `json:"inStock,omitempty"`
	Location      *locationDTO `json:"location,omitempty"`
}

type locationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// toDomain maps the wire record. Distance is never taken from the wire; it is computed locally.
func (d *resultDTO) toDomain() result.Result {
	r := result.Result{
		ID:            d.ID,
		ReferenceID:   d.ReferenceID,
		Type:          result.Type(d.ResultType),
		Name:          d.Name,
		Description:   d.Description,
		ShopID:        d.ShopID,
		ShopName:      d.ShopName,
		ShopAddress:   d.ShopAddress,
		ShopPhone:     d.ShopPhone,
		Price:         d.Price,
		MatchScore:    d.MatchScore,
		AverageRating: d.AverageRating,
		Category:      d.Category,
		Availability:  d.Availability,
		InStock:       d.InStock,
	}
	if d.Location != nil {
		if c, err := geo.NewCoordinate(d.Location.Latitude, d.Location.Longitude); err == nil {
			r.Location = &c
		}
	}
	return r
}

type trackRequest struct {
	UserID              string               `json:"userId"`
	SearchQuery         string               `json:"searchQuery"`
	UnavailableProducts []unavailableProduct `json:"unavailableProducts"`
}

type unavailableProduct struct {
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName"`
	ShopID      string   `json:"shopId"`
	ShopName    string   `json:"shopName"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
}

func trackRequestFrom(a *alert.Unavailable) trackRequest {
	req := trackRequest{
		UserID:              a.UserID,
		SearchQuery:         a.SearchQuery,
		UnavailableProducts: make([]unavailableProduct, len(a.Products)),
	}
	for i, p := range a.Products {
		req.UnavailableProducts[i] = unavailableProduct{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			ShopID:      p.ShopID,
			ShopName:    p.ShopName,
			Category:    p.Category,
			Price:       p.Price,
		}
	}
	return req
}

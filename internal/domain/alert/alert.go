package alert

// UnavailableProduct is one out-of-stock or unavailable hit reported to the alerting sink.
type UnavailableProduct struct {
	ProductID   string
	ProductName string
	ShopID      string
	ShopName    string
	Category    string
	Price       *float64
}

// Unavailable is the tracking payload for a single composed view.
type Unavailable struct {
	UserID      string
	SearchQuery string
	Products    []UnavailableProduct
}

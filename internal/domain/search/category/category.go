package category

// Filter is the active view mode of the result tabs.
type Filter string

// View modes. Shops and Offices are dedicated browse modes.
const (
	All      Filter = "all"
	Items    Filter = "items"
	Services Filter = "services"
	Shops    Filter = "shops"
	Offices  Filter = "offices"
)

// IsValid checks if the filter is one of the supported values.
func (f Filter) IsValid() bool {
	switch f {
	case All, Items, Services, Shops, Offices:
		return true
	}
	return false
}

// Parse maps an empty string to All.
func Parse(s string) (Filter, bool) {
	if s == "" {
		return All, true
	}
	f := Filter(s)
	return f, f.IsValid()
}

// ShowsItems reports whether item results are listed in this mode.
func (f Filter) ShowsItems() bool { return f == All || f == Items }

// ShowsServices reports whether service results are listed in this mode.
func (f Filter) ShowsServices() bool { return f == All || f == Services }

// BrowsesShops reports the dedicated shop browse mode (unfiltered shop list).
func (f Filter) BrowsesShops() bool { return f == Shops }

// BrowsesOffices reports the dedicated office browse mode (unfiltered office list).
func (f Filter) BrowsesOffices() bool { return f == Offices }

package search

import (
	"strings"

	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/shop"
)

// FilterByType narrows results to the given category value, case-insensitively.
// An empty itemType keeps everything.
func FilterByType(results []result.Result, itemType string) []result.Result {
	itemType = strings.TrimSpace(itemType)
	out := make([]result.Result, 0, len(results))
	for i := range results {
		if itemType == "" || strings.EqualFold(strings.TrimSpace(results[i].CategoryName()), itemType) {
			out = append(out, results[i])
		}
	}
	return out
}

// VisibleShopIDs collects the distinct shopIds behind the displayed items and services.
func VisibleShopIDs(lists ...[]result.Result) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, list := range lists {
		for i := range list {
			if list[i].ShopID != "" {
				ids[list[i].ShopID] = struct{}{}
			}
		}
	}
	return ids
}

// VisibleShops keeps shop records backed by a visible item or service.
// In browse mode the full list is returned unfiltered.
func VisibleShops(shops []shop.Record, visible map[string]struct{}, browse bool) []shop.Record {
	out := make([]shop.Record, 0, len(shops))
	for _, s := range shops {
		if browse {
			out = append(out, s)
			continue
		}
		if _, ok := visible[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

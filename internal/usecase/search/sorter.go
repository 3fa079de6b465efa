package search

import (
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/storefront-search/internal/domain/refid"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/sortby"
	"github.com/kailas-cloud/storefront-search/internal/domain/shop"
)

// rankKeys are the sort keys extracted from a record.
type rankKeys struct {
	refMatch  bool
	available bool
	score     float64
	rating    float64
	distance  float64 // +Inf when unknown
	price     float64 // 0 when missing
}

// Sort returns a stably sorted copy of results.
func Sort(results []result.Result, by sortby.Criterion, query string) []result.Result {
	q := refid.Normalize(query)
	return sortStable(results, by, func(r *result.Result) rankKeys {
		k := rankKeys{
			refMatch:  matchesReference(r.ReferenceID, q),
			available: r.Available(),
			score:     r.Score(),
			rating:    r.Score(),
			distance:  math.Inf(1),
		}
		if d, ok := r.Distance(); ok {
			k.distance = d
		}
		if r.Price != nil {
			k.price = *r.Price
		}
		return k
	})
}

// SortShops returns a stably sorted copy of shop records. Rating uses the average rating.
func SortShops(shops []shop.Record, by sortby.Criterion, query string) []shop.Record {
	q := refid.Normalize(query)
	return sortStable(shops, by, func(s *shop.Record) rankKeys {
		k := rankKeys{
			refMatch:  matchesReference(s.ReferenceID, q),
			available: s.Available,
			score:     s.MatchScore,
			rating:    s.Rating(),
			distance:  math.Inf(1),
		}
		if d, ok := s.Distance(); ok {
			k.distance = d
		}
		return k
	})
}

func sortStable[T any](in []T, by sortby.Criterion, keyOf func(*T) rankKeys) []T {
	out := make([]T, len(in))
	copy(out, in)
	if len(out) < 2 {
		return out
	}

	keys := make([]rankKeys, len(out))
	for i := range out {
		keys[i] = keyOf(&out[i])
	}
	less := comparator(by)

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(&keys[idx[a]], &keys[idx[b]]) })

	sorted := make([]T, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

func comparator(by sortby.Criterion) func(a, b *rankKeys) bool {
	switch by {
	case sortby.Distance:
		return func(a, b *rankKeys) bool { return a.distance < b.distance }
	case sortby.Rating:
		return func(a, b *rankKeys) bool { return a.rating > b.rating }
	case sortby.Price:
		return func(a, b *rankKeys) bool { return a.price < b.price }
	default:
		return func(a, b *rankKeys) bool {
			if a.refMatch != b.refMatch {
				return a.refMatch
			}
			if a.available != b.available {
				return a.available
			}
			return a.score > b.score
		}
	}
}

// matchesReference reports whether the normalized query occurs in the reference identifier.
func matchesReference(referenceID, normalizedQuery string) bool {
	if referenceID == "" || normalizedQuery == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(referenceID), normalizedQuery)
}

package view

import (
	"github.com/kailas-cloud/storefront-search/internal/domain/search/category"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/sortby"
	"github.com/kailas-cloud/storefront-search/internal/domain/shop"
)

// State is the composed result of one query execution. It is never mutated after composition.
type State struct {
	Seq         uint64
	Query       string
	Direct      bool
	Sort        sortby.Criterion
	Category    category.Filter
	Items       []result.Result
	Services    []result.Result
	Shops       []shop.Record
	Offices     []shop.Record
	TotalCount  int
	Suggestions []string
}

// Phase is the lifecycle step of a search session.
type Phase string

// Session phases: Idle -> Loading(seq) -> Ready(seq) | Error(seq).
const (
	Idle    Phase = "idle"
	Loading Phase = "loading"
	Ready   Phase = "ready"
	Error   Phase = "error"
)

package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/shop"
	"github.com/kailas-cloud/storefront-search/internal/logger"
	"github.com/kailas-cloud/storefront-search/internal/metrics"
)

// Partitions are the four disjoint display categories.
type Partitions struct {
	Items    []result.Result
	Services []result.Result
	Shops    []shop.Record
	Offices  []shop.Record
}

// Len is the number of records across all partitions.
func (p *Partitions) Len() int {
	return len(p.Items) + len(p.Services) + len(p.Shops) + len(p.Offices)
}

// Partition classifies results by type. Shop and office hits are folded into shop records.
// A result with an unrecognized type is logged as a defect and dropped.
func Partition(ctx context.Context, results []result.Result) Partitions {
	var p Partitions
	for i := range results {
		r := &results[i]
		part, ok := r.Type.Partition()
		if !ok {
			defect := &domain.ClassificationDefect{ResultID: r.ID, ResultType: string(r.Type)}
			logger.FromContext(ctx).Warn("Dropping unclassifiable result",
				zap.String("result_id", r.ID),
				zap.String("result_type", string(r.Type)),
				zap.Error(defect),
			)
			metrics.ClassificationDefectsTotal.WithLabelValues(string(r.Type)).Inc()
			continue
		}

		switch part {
		case result.PartitionItems:
			p.Items = append(p.Items, *r)
		case result.PartitionServices:
			p.Services = append(p.Services, *r)
		case result.PartitionShops:
			p.Shops = append(p.Shops, shop.FromResult(r))
		case result.PartitionOffices:
			p.Offices = append(p.Offices, shop.FromResult(r))
		}
	}
	return p
}

// withParentShops adds the owning shop of each item or service when it is not already listed.
func withParentShops(p Partitions) Partitions {
	known := make(map[string]struct{}, len(p.Shops))
	for _, s := range p.Shops {
		known[s.ID] = struct{}{}
	}

	for _, list := range [][]result.Result{p.Items, p.Services} {
		for i := range list {
			parent, ok := shop.ParentOf(&list[i])
			if !ok {
				continue
			}
			if _, dup := known[parent.ID]; dup {
				continue
			}
			known[parent.ID] = struct{}{}
			p.Shops = append(p.Shops, parent)
		}
	}
	return p
}

package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storefront-search/internal/domain/view"
	"github.com/kailas-cloud/storefront-search/internal/logger"
)

// LogRecorder writes a debug line per composed view and persists nothing.
type LogRecorder struct{}

// Record implements HistoryRecorder.
func (LogRecorder) Record(ctx context.Context, state *view.State) {
	logger.FromContext(ctx).Debug("Search composed",
		zap.Uint64("seq", state.Seq),
		zap.String("query", state.Query),
		zap.Bool("direct", state.Direct),
		zap.Int("total_count", state.TotalCount),
		zap.Int("suggestions", len(state.Suggestions)),
	)
}

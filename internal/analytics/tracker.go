// Package analytics is the fire-and-forget search-event collaborator.
// Tracking failures are ignored by callers; losing an event never affects
// the search experience.
package analytics

import (
	"context"

	"go.uber.org/zap"
)

// SearchEvent describes one executed remote search.
type SearchEvent struct {
	Query       string `json:"query"`
	QueryString string `json:"query_string"`
	ResultCount int    `json:"result_count"`
	UserID      string `json:"user_id,omitempty"`
}

// Tracker records search events.
type Tracker interface {
	TrackSearch(ctx context.Context, ev SearchEvent)
}

// LogTracker emits events to the structured log, one line per search.
type LogTracker struct {
	logger *zap.Logger
}

// NewLogTracker creates a tracker writing to the given logger.
func NewLogTracker(logger *zap.Logger) *LogTracker {
	return &LogTracker{logger: logger}
}

func (t *LogTracker) TrackSearch(_ context.Context, ev SearchEvent) {
	t.logger.Info("search executed",
		zap.String("query", ev.Query),
		zap.String("facets", ev.QueryString),
		zap.Int("result_count", ev.ResultCount),
	)
}

// NopTracker discards all events.
type NopTracker struct{}

func (NopTracker) TrackSearch(context.Context, SearchEvent) {}

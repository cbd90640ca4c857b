package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Observer logs matching events. Per-record events go out at debug level.
type Observer struct {
	log *slog.Logger
}

// NewObserver returns an Observer writing to logger, or to slog.Default()
// when logger is nil.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{log: logger}
}

func (o *Observer) RowRejected(ctx context.Context, set string, rowErr domain.RowError) {
	o.log.WarnContext(ctx, "row rejected",
		"set", set,
		"line", rowErr.Line,
		"raw", rowErr.Raw,
		"reason", rowErr.Reason(),
		"error", rowErr.Err,
	)
}

func (o *Observer) IndexBuilt(ctx context.Context, size int, elapsed time.Duration) {
	o.log.DebugContext(ctx, "spatial index built", "points", size, "elapsed", elapsed)
}

func (o *Observer) Matched(ctx context.Context, rec domain.MatchRecord) {
	o.log.DebugContext(ctx, "matched",
		"query_lat", rec.Query.Lat, "query_lon", rec.Query.Lon,
		"match_lat", rec.Match.Lat, "match_lon", rec.Match.Lon,
		"distance_km", rec.DistanceKm,
	)
}

func (o *Observer) RunCompleted(ctx context.Context, run *domain.MatchRun, cached bool) {
	o.log.InfoContext(ctx, "match run completed",
		"run_id", run.ID,
		"queries", run.QueryCount,
		"references", run.ReferenceCount,
		"rejected", run.RejectedRows,
		"duration", run.Duration,
		"cached", cached,
	)
}

package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Observer feeds matching events into the Prometheus collectors.
type Observer struct{}

func (Observer) RowRejected(_ context.Context, set string, rowErr domain.RowError) {
	RowsRejected.WithLabelValues(set, rowErr.Reason()).Inc()
}

func (Observer) IndexBuilt(_ context.Context, _ int, elapsed time.Duration) {
	IndexBuildDuration.Observe(elapsed.Seconds())
}

func (Observer) Matched(_ context.Context, rec domain.MatchRecord) {
	MatchQueries.Inc()
	MatchDistance.Observe(rec.DistanceKm)
}

func (Observer) RunCompleted(_ context.Context, _ *domain.MatchRun, cached bool) {
	MatchRuns.WithLabelValues(strconv.FormatBool(cached)).Inc()
	if cached {
		CacheHits.WithLabelValues("match").Inc()
	} else {
		CacheMisses.WithLabelValues("match").Inc()
	}
}

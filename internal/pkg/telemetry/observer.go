package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Observer records matching events on the span carried by ctx. It does
// nothing when ctx holds no recording span.
type Observer struct{}

func (Observer) RowRejected(ctx context.Context, set string, rowErr domain.RowError) {
	trace.SpanFromContext(ctx).AddEvent("row rejected", trace.WithAttributes(
		AttrSet.String(set),
		AttrLine.Int(rowErr.Line),
		AttrReason.String(rowErr.Reason()),
	))
}

func (Observer) IndexBuilt(ctx context.Context, size int, elapsed time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("index built", trace.WithAttributes(
		AttrIndexSize.Int(size),
	), trace.WithTimestamp(time.Now()))
}

// Matched is not traced; one event per query point would swamp the span.
func (Observer) Matched(context.Context, domain.MatchRecord) {}

func (Observer) RunCompleted(ctx context.Context, run *domain.MatchRun, cached bool) {
	trace.SpanFromContext(ctx).SetAttributes(
		AttrRunID.String(run.ID),
		AttrQueries.Int(run.QueryCount),
		AttrReferences.Int(run.ReferenceCount),
		AttrRejected.Int(run.RejectedRows),
		AttrCached.Bool(cached),
	)
}

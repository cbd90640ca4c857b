package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/ports"
)

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) RowRejected(context.Context, string, domain.RowError) {}
func (NopObserver) IndexBuilt(context.Context, int, time.Duration) {}
func (NopObserver) Matched(context.Context, domain.MatchRecord) {}
func (NopObserver) RunCompleted(context.Context, *domain.MatchRun, bool) {}

// Observers fans events out to several observers in order.
type Observers []ports.MatchObserver

func (o Observers) RowRejected(ctx context.Context, set string, rowErr domain.RowError) {
	for _, obs := range o {
		obs.RowRejected(ctx, set, rowErr)
	}
}

func (o Observers) IndexBuilt(ctx context.Context, size int, elapsed time.Duration) {
	for _, obs := range o {
		obs.IndexBuilt(ctx, size, elapsed)
	}
}

func (o Observers) Matched(ctx context.Context, rec domain.MatchRecord) {
	for _, obs := range o {
		obs.Matched(ctx, rec)
	}
}

func (o Observers) RunCompleted(ctx context.Context, run *domain.MatchRun, cached bool) {
	for _, obs := range o {
		obs.RunCompleted(ctx, run, cached)
	}
}

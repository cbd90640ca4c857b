package ports

import (
	"context"
	"time"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, run *domain.MatchRun) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeMatchJobs(ctx context.Context, handler func(ctx context.Context, job *domain.MatchJob) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// MatchObserver receives instrumentation events from the matching pipeline.
// Implementations must be cheap; they run inline with the computation.
type MatchObserver interface {
	RowRejected(ctx context.Context, set string, rowErr domain.RowError)
	IndexBuilt(ctx context.Context, size int, elapsed time.Duration)
	Matched(ctx context.Context, rec domain.MatchRecord)
	RunCompleted(ctx context.Context, run *domain.MatchRun, cached bool)
}

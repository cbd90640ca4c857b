package ports

import (
	"context"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// MatchRunRepository persists completed match runs and their records.
type MatchRunRepository interface {
	Save(ctx context.Context, run *domain.MatchRun) error
	GetByID(ctx context.Context, id string) (*domain.MatchRun, error)
	// List returns run summaries (without records), newest first, and the total count.
	List(ctx context.Context, offset, limit int) ([]domain.MatchRun, int, error)
	// Delete removes a run and its records. Unknown IDs yield domain.ErrRunNotFound.
	Delete(ctx context.Context, id string) error
}

// PointSource yields raw coordinate rows one at a time. Next returns io.EOF
// once the input is exhausted.
type PointSource interface {
	Next(ctx context.Context) (domain.Row, error)
}

// RejectionAware is implemented by sources that want to hear about rows the
// parser rejected, e.g. an interactive prompt that asks the user again.
type RejectionAware interface {
	Rejected(row domain.Row, err error)
}

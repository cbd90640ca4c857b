package usecases

import (
	"context"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// JobResult is a completed run together with the rows rejected on the way.
type JobResult struct {
	Run      *domain.MatchRun  `json:"run"`
	Rejected []domain.RowError `json:"rejected"`
}

// JobService runs raw-text match jobs: parse both sides, then match.
type JobService struct {
	builder *PointSetBuilder
	matcher *MatchService
}

// NewJobService creates a new JobService.
func NewJobService(builder *PointSetBuilder, matcher *MatchService) *JobService {
	return &JobService{builder: builder, matcher: matcher}
}

// Run parses job.Query and job.Reference, skipping malformed rows, and
// matches what remains.
func (s *JobService) Run(ctx context.Context, job *domain.MatchJob) (*JobResult, error) {
	a, rejA, err := s.builder.BuildRows(ctx, "query", domain.Rows(job.Query))
	if err != nil {
		return nil, err
	}
	b, rejB, err := s.builder.BuildRows(ctx, "reference", domain.Rows(job.Reference))
	if err != nil {
		return nil, err
	}

	rejected := append(rejA, rejB...)
	run, err := s.matcher.Run(ctx, a, b, len(rejected))
	if err != nil {
		return nil, err
	}
	if rejected == nil {
		rejected = []domain.RowError{}
	}
	return &JobResult{Run: run, Rejected: rejected}, nil
}

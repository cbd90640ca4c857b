package workflows

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/geomatch/internal/adapters/source"
	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/core/usecases"
)

// Activity names as registered on the worker.
const (
	ActivityLoadPoints  = "LoadPoints"
	ActivityMatchPoints = "MatchPoints"
	ActivitySaveRun     = "SaveRun"
	ActivityPublishRun  = "PublishRun"
	ActivityDeleteRun   = "DeleteRun"
)

// LoadResult is a parsed point set and the number of rows dropped from it.
type LoadResult struct {
	Points   domain.PointSet `json:"points"`
	Rejected int             `json:"rejected"`
}

// MatchInput carries both parsed sets into the match activity.
type MatchInput struct {
	Query     domain.PointSet `json:"query"`
	Reference domain.PointSet `json:"reference"`
	Rejected  int             `json:"rejected"`
}

// BatchActivities holds the activity implementations for BatchMatchWorkflow.
// Matcher should be built without cache, repository or publisher; the
// workflow drives those steps itself.
type BatchActivities struct {
	Builder   *usecases.PointSetBuilder
	Matcher   *usecases.MatchService
	Runs      ports.MatchRunRepository
	Publisher ports.EventPublisher
	CSV       source.CSVOptions
}

// LoadPoints reads a CSV file of coordinates into a point set. A missing or
// unreadable file is not retried.
func (a *BatchActivities) LoadPoints(ctx context.Context, set, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("open %s points: %v", set, err), "InputUnavailable", err)
		}
		return nil, fmt.Errorf("open %s points: %w", set, err)
	}
	defer f.Close()

	points, rejected, err := a.Builder.Build(ctx, set, source.NewCSV(f, a.CSV))
	if err != nil {
		return nil, err
	}
	activity.GetLogger(ctx).Info("points loaded", "set", set, "path", path,
		"accepted", points.Len(), "rejected", len(rejected))
	return &LoadResult{Points: points, Rejected: len(rejected)}, nil
}

// MatchPoints pairs every query point with its nearest reference point.
func (a *BatchActivities) MatchPoints(ctx context.Context, in MatchInput) (*domain.MatchRun, error) {
	return a.Matcher.Evaluate(ctx, in.Query, in.Reference, in.Rejected)
}

// SaveRun persists a completed run.
func (a *BatchActivities) SaveRun(ctx context.Context, run *domain.MatchRun) error {
	if a.Runs == nil {
		return nil
	}
	if err := a.Runs.Save(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// PublishRun announces a completed run.
func (a *BatchActivities) PublishRun(ctx context.Context, run *domain.MatchRun) error {
	if a.Publisher == nil {
		slog.Debug("no publisher configured, skipping run event", "run_id", run.ID)
		return nil
	}
	return a.Publisher.PublishRunCompleted(ctx, run)
}

// DeleteRun removes a saved run (saga compensation).
func (a *BatchActivities) DeleteRun(ctx context.Context, runID string) error {
	if a.Runs == nil {
		return nil
	}
	if err := a.Runs.Delete(ctx, runID); err != nil && !errors.Is(err, domain.ErrRunNotFound) {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	slog.Info("run deleted (saga compensation)", "run_id", runID)
	return nil
}

package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// BatchMatchInput is the input for BatchMatchWorkflow. Paths are CSV files
// readable by the worker.
type BatchMatchInput struct {
	QueryPath     string
	ReferencePath string
	// RequireEvent makes a failed run-completed event fatal: the saved run
	// is deleted again and the workflow fails.
	RequireEvent bool
}

// BatchMatchResult summarises a finished batch. Records stay in the store.
type BatchMatchResult struct {
	RunID          string
	QueryCount     int
	ReferenceCount int
	RejectedRows   int
	Duration       time.Duration
}

// BatchMatchWorkflow loads both point files, matches them, saves the run
// and announces it. Each step is an activity retried by Temporal.
func BatchMatchWorkflow(ctx workflow.Context, input BatchMatchInput) (*BatchMatchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting batch match workflow", "query", input.QueryPath, "reference", input.ReferencePath)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Load both sets concurrently
	queryF := workflow.ExecuteActivity(ctx, ActivityLoadPoints, "query", input.QueryPath)
	refF := workflow.ExecuteActivity(ctx, ActivityLoadPoints, "reference", input.ReferencePath)

	var query, ref LoadResult
	if err := queryF.Get(ctx, &query); err != nil {
		return nil, err
	}
	if err := refF.Get(ctx, &ref); err != nil {
		return nil, err
	}

	// Step 2: Match
	var run domain.MatchRun
	err := workflow.ExecuteActivity(ctx, ActivityMatchPoints, MatchInput{
		Query:     query.Points,
		Reference: ref.Points,
		Rejected:  query.Rejected + ref.Rejected,
	}).Get(ctx, &run)
	if err != nil {
		return nil, err
	}

	// Step 3: Persist
	if err := workflow.ExecuteActivity(ctx, ActivitySaveRun, &run).Get(ctx, nil); err != nil {
		return nil, err
	}

	// Step 4: Announce
	if err := workflow.ExecuteActivity(ctx, ActivityPublishRun, &run).Get(ctx, nil); err != nil {
		if input.RequireEvent {
			logger.Warn("run event failed, compensating", "run_id", run.ID, "error", err)
			_ = workflow.ExecuteActivity(ctx, ActivityDeleteRun, run.ID).Get(ctx, nil)
			return nil, err
		}
		logger.Warn("run event failed", "run_id", run.ID, "error", err)
	}

	logger.Info("Batch match completed", "run_id", run.ID, "records", len(run.Records))
	return &BatchMatchResult{
		RunID:          run.ID,
		QueryCount:     run.QueryCount,
		ReferenceCount: run.ReferenceCount,
		RejectedRows:   run.RejectedRows,
		Duration:       run.Duration,
	}, nil
}

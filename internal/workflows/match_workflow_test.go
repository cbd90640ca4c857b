package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/geomatch/internal/adapters/source"
	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/usecases"
)

type memRuns struct {
	saved   map[string]*domain.MatchRun
	deleted []string
}

func (m *memRuns) Save(_ context.Context, run *domain.MatchRun) error {
	m.saved[run.ID] = run
	return nil
}
func (m *memRuns) GetByID(_ context.Context, id string) (*domain.MatchRun, error) {
	if r, ok := m.saved[id]; ok {
		return r, nil
	}
	return nil, domain.ErrRunNotFound
}
func (m *memRuns) List(context.Context, int, int) ([]domain.MatchRun, int, error) {
	return nil, len(m.saved), nil
}
func (m *memRuns) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.saved, id)
	return nil
}

type memPublisher struct {
	published []string
}

func (p *memPublisher) PublishRunCompleted(_ context.Context, run *domain.MatchRun) error {
	p.published = append(p.published, run.ID)
	return nil
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newActivities(runs *memRuns, pub *memPublisher) *BatchActivities {
	return &BatchActivities{
		Builder:   usecases.NewPointSetBuilder(nil),
		Matcher:   usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, nil, nil),
		Runs:      runs,
		Publisher: pub,
		CSV:       source.DefaultCSVOptions,
	}
}

func TestBatchMatchWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runs := &memRuns{saved: map[string]*domain.MatchRun{}}
	pub := &memPublisher{}
	env.RegisterActivity(newActivities(runs, pub))

	query := writeCSV(t, "query.csv", "lat,lon\n52.52,13.405\nbad,row\n40.4168,-3.7038\n")
	ref := writeCSV(t, "ref.csv", "latitude,longitude\n48.8566,2.3522\n41.3874,2.1686\n")

	env.ExecuteWorkflow(BatchMatchWorkflow, BatchMatchInput{QueryPath: query, ReferencePath: ref})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res BatchMatchResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, 2, res.QueryCount)
	assert.Equal(t, 2, res.ReferenceCount)
	assert.Equal(t, 1, res.RejectedRows)

	require.Contains(t, runs.saved, res.RunID)
	saved := runs.saved[res.RunID]
	require.Len(t, saved.Records, 2)
	assert.Equal(t, 48.8566, saved.Records[0].Match.Lat)
	assert.Equal(t, 41.3874, saved.Records[1].Match.Lat)
	assert.Equal(t, []string{res.RunID}, pub.published)
}

func TestBatchMatchWorkflow_MissingFile(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runs := &memRuns{saved: map[string]*domain.MatchRun{}}
	env.RegisterActivity(newActivities(runs, &memPublisher{}))

	ref := writeCSV(t, "ref.csv", "1,1\n")
	env.ExecuteWorkflow(BatchMatchWorkflow, BatchMatchInput{
		QueryPath:     filepath.Join(t.TempDir(), "missing.csv"),
		ReferencePath: ref,
	})
	require.True(t, env.IsWorkflowCompleted())

	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "InputUnavailable", appErr.Type())
	assert.Empty(t, runs.saved)
}

func TestBatchMatchWorkflow_CompensatesFailedEvent(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runs := &memRuns{saved: map[string]*domain.MatchRun{}}
	env.RegisterActivity(newActivities(runs, &memPublisher{}))
	env.OnActivity(ActivityPublishRun, mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("broker down", "Unavailable", nil))

	query := writeCSV(t, "query.csv", "lat,lon\n0,0\n")
	ref := writeCSV(t, "ref.csv", "lat,lon\n0,1\n")

	env.ExecuteWorkflow(BatchMatchWorkflow, BatchMatchInput{QueryPath: query, ReferencePath: ref, RequireEvent: true})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	assert.Len(t, runs.deleted, 1)
	assert.Empty(t, runs.saved)
}

func TestBatchMatchWorkflow_EventFailureTolerated(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runs := &memRuns{saved: map[string]*domain.MatchRun{}}
	env.RegisterActivity(newActivities(runs, &memPublisher{}))
	env.OnActivity(ActivityPublishRun, mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("broker down", "Unavailable", nil))

	query := writeCSV(t, "query.csv", "lat,lon\n0,0\n")
	ref := writeCSV(t, "ref.csv", "lat,lon\n0,1\n")

	env.ExecuteWorkflow(BatchMatchWorkflow, BatchMatchInput{QueryPath: query, ReferencePath: ref})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Len(t, runs.saved, 1)
	assert.Empty(t, runs.deleted)
}

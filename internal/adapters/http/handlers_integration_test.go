//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/geomatch/internal/adapters/http"
	"github.com/samirrijal/geomatch/internal/adapters/postgres"
	"github.com/samirrijal/geomatch/internal/core/usecases"
	"github.com/samirrijal/geomatch/internal/pkg/config"
)

// setupTestDB connects to the test database. Migrations must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("geomatch-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupTestDeps creates dependencies with a real run repository, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	matcher := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, postgres.NewMatchRunRepo(db), nil)
	return &http.Dependencies{
		Matcher:   matcher,
		Jobs:      usecases.NewJobService(usecases.NewPointSetBuilder(nil), matcher),
		DB:        db,
		Precision: 2,
	}
}

// TestMatchRoundTrip_Integration stores a run through POST /v1/match and
// reads it back by ID and through the listing.
func TestMatchRoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupApp(setupTestDeps(t, db))

	status, body, _ := postJSON(t, app, "/v1/match", map[string]interface{}{
		"query": []map[string]string{
			{"lat": "43.263N", "lon": "2.935W"},
			{"lat": "40.4168", "lon": "-3.7038"},
		},
		"reference": []map[string]string{
			{"lat": "43.3183", "lon": "-1.9812"},
			{"lat": "41.3874", "lon": "2.1686"},
		},
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var created http.MatchResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/runs/"+created.RunID, nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stored http.MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stored.QueryCount != 2 || len(stored.Results) != 2 {
		t.Fatalf("unexpected stored run: %+v", stored)
	}
	for i := range stored.Results {
		if stored.Results[i] != created.Results[i] {
			t.Errorf("record %d differs: stored %+v, created %+v", i, stored.Results[i], created.Results[i])
		}
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/runs?limit=5", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	var page struct {
		Data       []http.MatchResponse `json:"data"`
		Pagination http.Pagination      `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if page.Pagination.Total < 1 || len(page.Data) == 0 {
		t.Fatalf("expected at least one run, got %+v", page.Pagination)
	}
	if page.Data[0].RunID != created.RunID {
		t.Errorf("expected newest run %s first, got %s", created.RunID, page.Data[0].RunID)
	}
}

// TestGetRun_Integration_NotFound checks a well-formed but unknown ID.
func TestGetRun_Integration_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/runs/00000000-0000-4000-8000-000000000000", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// MatchRunRepo implements ports.MatchRunRepository with pgx.
type MatchRunRepo struct {
	db *DB
}

// NewMatchRunRepo creates a new MatchRunRepo.
func NewMatchRunRepo(db *DB) *MatchRunRepo {
	return &MatchRunRepo{db: db}
}

// Save stores the run and all of its records in one transaction.
func (r *MatchRunRepo) Save(ctx context.Context, run *domain.MatchRun) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO match_runs (id, query_count, reference_count, rejected_rows, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.QueryCount, run.ReferenceCount, run.RejectedRows,
		float64(run.Duration)/float64(time.Millisecond), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Records) > 0 {
		batch := &pgx.Batch{}
		for i, rec := range run.Records {
			batch.Queue(`
				INSERT INTO match_records (run_id, seq, query_lat, query_lon, match_lat, match_lon, distance_km)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, run.ID, i, rec.Query.Lat, rec.Query.Lon, rec.Match.Lat, rec.Match.Lon, rec.DistanceKm)
		}
		br := tx.SendBatch(ctx, batch)
		for range run.Records {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns a run with its records in query order.
func (r *MatchRunRepo) GetByID(ctx context.Context, id string) (*domain.MatchRun, error) {
	var (
		run        domain.MatchRun
		durationMs float64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, query_count, reference_count, rejected_rows, duration_ms, created_at
		FROM match_runs
		WHERE id::text = $1
	`, id).Scan(&run.ID, &run.QueryCount, &run.ReferenceCount, &run.RejectedRows, &durationMs, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	run.Duration = time.Duration(durationMs * float64(time.Millisecond))

	rows, err := r.db.Pool.Query(ctx, `
		SELECT query_lat, query_lon, match_lat, match_lon, distance_km
		FROM match_records
		WHERE run_id = $1
		ORDER BY seq
	`, run.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run.Records = domain.ResultSet{}
	for rows.Next() {
		var rec domain.MatchRecord
		if err := rows.Scan(&rec.Query.Lat, &rec.Query.Lon, &rec.Match.Lat, &rec.Match.Lon, &rec.DistanceKm); err != nil {
			return nil, err
		}
		run.Records = append(run.Records, rec)
	}
	return &run, rows.Err()
}

// List returns run summaries, newest first, and the total number of runs.
func (r *MatchRunRepo) List(ctx context.Context, offset, limit int) ([]domain.MatchRun, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM match_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, query_count, reference_count, rejected_rows, duration_ms, created_at
		FROM match_runs
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := []domain.MatchRun{}
	for rows.Next() {
		var (
			run        domain.MatchRun
			durationMs float64
		)
		if err := rows.Scan(&run.ID, &run.QueryCount, &run.ReferenceCount, &run.RejectedRows, &durationMs, &run.CreatedAt); err != nil {
			return nil, 0, err
		}
		run.Duration = time.Duration(durationMs * float64(time.Millisecond))
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// Delete removes a run; its records go with it through ON DELETE CASCADE.
func (r *MatchRunRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM match_runs WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/pkg/geospatial"
)

// MatchOptions tunes the matcher.
type MatchOptions struct {
	// Candidates is the number of Euclidean candidates re-ranked by
	// haversine distance per query. Values below 1 mean 1.
	Candidates int
	// CacheTTL is how long completed runs stay in the result cache.
	CacheTTL time.Duration
}

// MatchService finds, for every query point, the closest reference point.
type MatchService struct {
	opts      MatchOptions
	observer  ports.MatchObserver
	cache     ports.CacheService
	runs      ports.MatchRunRepository
	publisher ports.EventPublisher
}

// NewMatchService creates a new MatchService. Every collaborator except
// opts may be nil.
func NewMatchService(opts MatchOptions, observer ports.MatchObserver, cache ports.CacheService, runs ports.MatchRunRepository, publisher ports.EventPublisher) *MatchService {
	if opts.Candidates < 1 {
		opts.Candidates = 1
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &MatchService{opts: opts, observer: observer, cache: cache, runs: runs, publisher: publisher}
}

// Match pairs every point of a with its nearest point of b. The result has
// one record per point of a, in the same order, or is empty when either
// set is empty. ctx is checked between queries.
func (s *MatchService) Match(ctx context.Context, a, b domain.PointSet) (domain.ResultSet, error) {
	if a.Empty() || b.Empty() {
		return domain.ResultSet{}, nil
	}

	start := time.Now()
	tree := geospatial.NewKDTree(b)
	s.observer.IndexBuilt(ctx, tree.Len(), time.Since(start))

	results := make(domain.ResultSet, 0, len(a))
	for _, q := range a {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		match, dist := s.closest(tree, q, b)
		rec := domain.MatchRecord{Query: q, Match: match, DistanceKm: dist}
		s.observer.Matched(ctx, rec)
		results = append(results, rec)
	}
	return results, nil
}

func (s *MatchService) closest(tree *geospatial.KDTree, q domain.GeoPoint, b domain.PointSet) (domain.GeoPoint, float64) {
	v := geospatial.ToVec2(q)
	if s.opts.Candidates == 1 {
		idx, _ := tree.Nearest(v)
		return b[idx], geospatial.Distance(q, b[idx])
	}

	// Candidates arrive in Euclidean order; strict < keeps the earlier one on ties.
	var (
		best  domain.GeoPoint
		bestD = -1.0
	)
	for _, idx := range tree.NearestK(v, s.opts.Candidates) {
		d := geospatial.Distance(q, b[idx])
		if bestD < 0 || d < bestD {
			best, bestD = b[idx], d
		}
	}
	return best, bestD
}

// Run matches a against b and records the outcome as a MatchRun: cached,
// persisted and announced to subscribers. rejected is the number of input
// rows dropped while building a and b.
func (s *MatchService) Run(ctx context.Context, a, b domain.PointSet, rejected int) (*domain.MatchRun, error) {
	key := s.cacheKey(a, b, rejected)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var run domain.MatchRun
			if err := json.Unmarshal(data, &run); err == nil {
				s.observer.RunCompleted(ctx, &run, true)
				return &run, nil
			}
		}
	}

	run, err := s.Evaluate(ctx, a, b, rejected)
	if err != nil {
		return nil, err
	}

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("save match run: %w", err)
		}
	}

	if s.cache != nil && s.opts.CacheTTL > 0 {
		if data, err := json.Marshal(run); err == nil {
			ttl := int(s.opts.CacheTTL.Seconds())
			_ = s.cache.Set(ctx, key, data, ttl)
			_ = s.cache.Set(ctx, runCacheKey(run.ID), []byte(key), ttl)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRunCompleted(ctx, run); err != nil {
			slog.Warn("publish run completed", "run_id", run.ID, "error", err)
		}
	}

	s.observer.RunCompleted(ctx, run, false)
	return run, nil
}

// Evaluate matches a against b and wraps the records in a new MatchRun
// without caching, saving or publishing it.
func (s *MatchService) Evaluate(ctx context.Context, a, b domain.PointSet, rejected int) (*domain.MatchRun, error) {
	start := time.Now()
	records, err := s.Match(ctx, a, b)
	if err != nil {
		return nil, err
	}
	return &domain.MatchRun{
		ID:             uuid.NewString(),
		QueryCount:     a.Len(),
		ReferenceCount: b.Len(),
		RejectedRows:   rejected,
		Duration:       time.Since(start),
		Records:        records,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// GetRun returns a stored run by ID.
func (s *MatchService) GetRun(ctx context.Context, id string) (*domain.MatchRun, error) {
	if s.runs == nil {
		return nil, domain.ErrRunNotFound
	}
	return s.runs.GetByID(ctx, id)
}

// ListRuns returns stored run summaries, newest first.
func (s *MatchService) ListRuns(ctx context.Context, offset, limit int) ([]domain.MatchRun, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if s.runs == nil {
		return []domain.MatchRun{}, 0, nil
	}
	return s.runs.List(ctx, offset, limit)
}

// DeleteRun removes a stored run and evicts any cached result that would
// hand its ID out again.
func (s *MatchService) DeleteRun(ctx context.Context, id string) error {
	s.evict(ctx, id)
	if s.runs == nil {
		return domain.ErrRunNotFound
	}
	return s.runs.Delete(ctx, id)
}

func (s *MatchService) evict(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	ref := runCacheKey(id)
	key, err := s.cache.Get(ctx, ref)
	if err != nil {
		return
	}
	if err := s.cache.Delete(ctx, string(key)); err != nil {
		slog.Warn("evict cached run", "run_id", id, "error", err)
	}
	_ = s.cache.Delete(ctx, ref)
}

func runCacheKey(id string) string { return "run:" + id }

func (s *MatchService) cacheKey(a, b domain.PointSet, rejected int) string {
	h := sha256.New()
	h.Write([]byte("k=" + strconv.Itoa(s.opts.Candidates) + "\n"))
	h.Write([]byte("r=" + strconv.Itoa(rejected) + "\n"))
	writePoints(h, a)
	h.Write([]byte{'|'})
	writePoints(h, b)
	return "match:" + hex.EncodeToString(h.Sum(nil))
}

func writePoints(h interface{ Write([]byte) (int, error) }, points domain.PointSet) {
	buf := make([]byte, 0, 64)
	for _, p := range points {
		buf = buf[:0]
		buf = strconv.AppendFloat(buf, p.Lat, 'f', -1, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, p.Lon, 'f', -1, 64)
		buf = append(buf, ';')
		h.Write(buf)
	}
}

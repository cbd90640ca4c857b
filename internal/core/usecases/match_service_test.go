package usecases_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/usecases"
)

var (
	berlin = domain.GeoPoint{Lat: 52.5200, Lon: 13.4050}
	paris  = domain.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	london = domain.GeoPoint{Lat: 51.5074, Lon: -0.1278}
	madrid = domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}
)

// --- Mock MatchRunRepository ---

type mockRunRepo struct {
	saveFn    func(ctx context.Context, run *domain.MatchRun) error
	getByIDFn func(ctx context.Context, id string) (*domain.MatchRun, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.MatchRun, int, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockRunRepo) Save(ctx context.Context, run *domain.MatchRun) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, run)
	}
	return nil
}

func (m *mockRunRepo) GetByID(ctx context.Context, id string) (*domain.MatchRun, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRunNotFound
}

func (m *mockRunRepo) List(ctx context.Context, offset, limit int) ([]domain.MatchRun, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockRunRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttl: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	published []*domain.MatchRun
	err       error
}

func (m *mockPublisher) PublishRunCompleted(ctx context.Context, run *domain.MatchRun) error {
	m.published = append(m.published, run)
	return m.err
}

// --- Recording MatchObserver ---

type recordingObserver struct {
	rejected  []domain.RowError
	indexSize int
	matched   int
	completed int
	cached    int
}

func (o *recordingObserver) RowRejected(ctx context.Context, set string, rowErr domain.RowError) {
	o.rejected = append(o.rejected, rowErr)
}

func (o *recordingObserver) IndexBuilt(ctx context.Context, size int, elapsed time.Duration) {
	o.indexSize = size
}

func (o *recordingObserver) Matched(ctx context.Context, rec domain.MatchRecord) { o.matched++ }

func (o *recordingObserver) RunCompleted(ctx context.Context, run *domain.MatchRun, cached bool) {
	o.completed++
	if cached {
		o.cached++
	}
}

func TestMatchService_Match_BerlinToParis(t *testing.T) {
	svc := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, nil, nil)

	res, err := svc.Match(context.Background(), domain.PointSet{berlin}, domain.PointSet{paris, london})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res))
	}
	if res[0].Match != paris {
		t.Errorf("expected Paris, got %+v", res[0].Match)
	}
	if math.Abs(res[0].DistanceKm-878) > 1 {
		t.Errorf("expected ~878 km, got %.2f", res[0].DistanceKm)
	}
	if res[0].Query != berlin {
		t.Errorf("expected query to be echoed, got %+v", res[0].Query)
	}
}

func TestMatchService_Match_EmptyInputs(t *testing.T) {
	svc := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		a, b domain.PointSet
	}{
		{"empty query", nil, domain.PointSet{paris}},
		{"empty reference", domain.PointSet{berlin}, nil},
		{"both empty", domain.PointSet{}, domain.PointSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Match(ctx, tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res == nil || len(res) != 0 {
				t.Errorf("expected empty non-nil result, got %v", res)
			}
		})
	}
}

func TestMatchService_Match_PreservesQueryOrder(t *testing.T) {
	obs := &recordingObserver{}
	svc := usecases.NewMatchService(usecases.MatchOptions{}, obs, nil, nil, nil)

	a := domain.PointSet{madrid, berlin, london, paris}
	b := domain.PointSet{berlin, paris, london, madrid}
	res, err := svc.Match(context.Background(), a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != len(a) {
		t.Fatalf("expected %d records, got %d", len(a), len(res))
	}
	for i, rec := range res {
		if rec.Query != a[i] {
			t.Errorf("record %d: query %+v, want %+v", i, rec.Query, a[i])
		}
		if rec.Match != a[i] || rec.DistanceKm != 0 {
			t.Errorf("record %d: expected self-match at 0 km, got %+v %.4f", i, rec.Match, rec.DistanceKm)
		}
	}
	if obs.indexSize != len(b) {
		t.Errorf("expected index of %d points, got %d", len(b), obs.indexSize)
	}
	if obs.matched != len(a) {
		t.Errorf("expected %d matched events, got %d", len(a), obs.matched)
	}
}

func TestMatchService_Match_CandidateWindow(t *testing.T) {
	// Near the pole a degree of longitude is tiny: the Euclidean-nearest
	// point in radians is not the geodesic-nearest one.
	q := domain.GeoPoint{Lat: 89, Lon: 0}
	far := domain.GeoPoint{Lat: 88.5, Lon: 0}
	near := domain.GeoPoint{Lat: 89, Lon: 20}
	b := domain.PointSet{near, far}

	single := usecases.NewMatchService(usecases.MatchOptions{Candidates: 1}, nil, nil, nil, nil)
	res, err := single.Match(context.Background(), domain.PointSet{q}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Match != far {
		t.Fatalf("expected Euclidean candidate %+v, got %+v", far, res[0].Match)
	}

	windowed := usecases.NewMatchService(usecases.MatchOptions{Candidates: 2}, nil, nil, nil, nil)
	res, err = windowed.Match(context.Background(), domain.PointSet{q}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Match != near {
		t.Errorf("expected re-ranked candidate %+v, got %+v", near, res[0].Match)
	}
}

func TestMatchService_Match_ContextCancelled(t *testing.T) {
	svc := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Match(ctx, domain.PointSet{berlin}, domain.PointSet{paris})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMatchService_Run_PersistsAndPublishes(t *testing.T) {
	var saved *domain.MatchRun
	repo := &mockRunRepo{saveFn: func(ctx context.Context, run *domain.MatchRun) error {
		saved = run
		return nil
	}}
	pub := &mockPublisher{err: errors.New("broker down")}
	cache := newMockCache()
	obs := &recordingObserver{}

	svc := usecases.NewMatchService(usecases.MatchOptions{CacheTTL: 10 * time.Minute}, obs, cache, repo, pub)
	run, err := svc.Run(context.Background(), domain.PointSet{berlin}, domain.PointSet{paris, london}, 2)
	if err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if run.ID == "" {
		t.Error("expected run ID")
	}
	if run.QueryCount != 1 || run.ReferenceCount != 2 || run.RejectedRows != 2 {
		t.Errorf("unexpected counts: %+v", run)
	}
	if saved != run {
		t.Error("expected run to be saved")
	}
	if len(pub.published) != 1 {
		t.Errorf("expected 1 publish, got %d", len(pub.published))
	}
	if len(cache.data) != 2 {
		t.Fatalf("expected result and run index entries, got %d", len(cache.data))
	}
	for _, ttl := range cache.ttl {
		if ttl != 600 {
			t.Errorf("expected ttl 600, got %d", ttl)
		}
	}

	again, err := svc.Run(context.Background(), domain.PointSet{berlin}, domain.PointSet{paris, london}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != run.ID {
		t.Errorf("expected cached run %s, got %s", run.ID, again.ID)
	}
	if obs.completed != 2 || obs.cached != 1 {
		t.Errorf("expected 2 completions (1 cached), got %d (%d)", obs.completed, obs.cached)
	}
	if len(pub.published) != 1 {
		t.Errorf("cached run must not be republished, got %d", len(pub.published))
	}
}

func TestMatchService_Run_CacheHonoursRejectionsAndDeletes(t *testing.T) {
	var deleted []string
	repo := &mockRunRepo{deleteFn: func(ctx context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	}}
	cache := newMockCache()
	svc := usecases.NewMatchService(usecases.MatchOptions{CacheTTL: time.Minute}, nil, cache, repo, nil)
	ctx := context.Background()
	a, b := domain.PointSet{berlin}, domain.PointSet{paris, london}

	first, err := svc.Run(ctx, a, b, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other, err := svc.Run(ctx, a, b, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ID == first.ID {
		t.Error("a run with different rejections must not reuse the cached run")
	}
	if other.RejectedRows != 3 {
		t.Errorf("expected 3 rejected rows, got %d", other.RejectedRows)
	}

	if err := svc.DeleteRun(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != first.ID {
		t.Errorf("expected repo delete of %s, got %v", first.ID, deleted)
	}

	again, err := svc.Run(ctx, a, b, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID == first.ID {
		t.Errorf("deleted run %s was served from cache", first.ID)
	}
	if again.RejectedRows != 1 {
		t.Errorf("expected 1 rejected row, got %d", again.RejectedRows)
	}
}

func TestMatchService_Run_SaveError(t *testing.T) {
	repo := &mockRunRepo{saveFn: func(ctx context.Context, run *domain.MatchRun) error {
		return errors.New("db down")
	}}
	svc := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, repo, nil)

	if _, err := svc.Run(context.Background(), domain.PointSet{berlin}, domain.PointSet{paris}, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestMatchService_GetRun_NoRepository(t *testing.T) {
	svc := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, nil, nil)
	if _, err := svc.GetRun(context.Background(), "x"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMatchService_ListRuns_ClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &mockRunRepo{listFn: func(ctx context.Context, offset, limit int) ([]domain.MatchRun, int, error) {
		gotLimit = limit
		return nil, 0, nil
	}}
	svc := usecases.NewMatchService(usecases.MatchOptions{}, nil, nil, repo, nil)

	if _, _, err := svc.ListRuns(context.Background(), 0, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 20 {
		t.Errorf("expected default limit 20, got %d", gotLimit)
	}
}

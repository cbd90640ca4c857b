package geospatial

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

func bruteNearest(points []domain.GeoPoint, q Vec2) int {
	best, bestD := -1, 0.0
	for i, p := range points {
		d := dist2(ToVec2(p), q)
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func TestKDTree_Empty(t *testing.T) {
	tree := NewKDTree(nil)
	_, ok := tree.Nearest(Vec2{0, 0})
	assert.False(t, ok)
	assert.Nil(t, tree.NearestK(Vec2{0, 0}, 3))
	assert.Equal(t, 0, tree.Len())
}

func TestKDTree_Single(t *testing.T) {
	tree := NewKDTree([]domain.GeoPoint{{Lat: 10, Lon: 20}})
	idx, ok := tree.Nearest(ToVec2(domain.GeoPoint{Lat: -80, Lon: 170}))
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestKDTree_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	points := make([]domain.GeoPoint, 1000)
	for i := range points {
		points[i] = randomPoint(rng)
	}
	tree := NewKDTree(points)
	require.Equal(t, len(points), tree.Len())

	for i := 0; i < 300; i++ {
		q := ToVec2(randomPoint(rng))
		got, ok := tree.Nearest(q)
		require.True(t, ok)
		want := bruteNearest(points, q)
		assert.InDelta(t, dist2(ToVec2(points[want]), q), dist2(ToVec2(points[got]), q), 1e-15)
	}
}

func TestKDTree_DoesNotReorderInput(t *testing.T) {
	points := []domain.GeoPoint{{Lat: 5, Lon: 5}, {Lat: 1, Lon: 1}, {Lat: 3, Lon: 3}}
	orig := append([]domain.GeoPoint(nil), points...)
	tree := NewKDTree(points)
	assert.Equal(t, orig, points)

	idx, _ := tree.Nearest(ToVec2(domain.GeoPoint{Lat: 1.1, Lon: 1.1}))
	assert.Equal(t, 1, idx)
}

func TestKDTree_DuplicatesResolveToLowestIndex(t *testing.T) {
	points := []domain.GeoPoint{{Lat: 9, Lon: 9}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 2}}
	tree := NewKDTree(points)
	idx, ok := tree.Nearest(ToVec2(domain.GeoPoint{Lat: 2, Lon: 2}))
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestKDTree_Colinear(t *testing.T) {
	points := make([]domain.GeoPoint, 200)
	for i := range points {
		points[i] = domain.GeoPoint{Lat: 0, Lon: float64(i) - 100}
	}
	tree := NewKDTree(points)
	idx, ok := tree.Nearest(ToVec2(domain.GeoPoint{Lat: 1, Lon: 37.2}))
	require.True(t, ok)
	assert.Equal(t, 137, idx)
}

func TestKDTree_NearestK(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := make([]domain.GeoPoint, 500)
	for i := range points {
		points[i] = randomPoint(rng)
	}
	tree := NewKDTree(points)

	for i := 0; i < 50; i++ {
		q := ToVec2(randomPoint(rng))
		got := tree.NearestK(q, 5)
		require.Len(t, got, 5)

		all := make([]int, len(points))
		for j := range all {
			all[j] = j
		}
		sort.SliceStable(all, func(a, b int) bool {
			return dist2(ToVec2(points[all[a]]), q) < dist2(ToVec2(points[all[b]]), q)
		})
		assert.Equal(t, all[:5], got)

		first, _ := tree.Nearest(q)
		assert.Equal(t, first, got[0])
	}

	assert.Len(t, tree.NearestK(Vec2{0, 0}, 10000), len(points))
}

func TestKDTree_IdenticalPointsBuildAndQueryQuickly(t *testing.T) {
	paris := domain.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	points := make([]domain.GeoPoint, 100000)
	for i := range points {
		points[i] = paris
	}

	start := time.Now()
	tree := NewKDTree(points)
	for i := 0; i < 1000; i++ {
		idx, ok := tree.Nearest(ToVec2(paris))
		require.True(t, ok)
		require.Equal(t, 0, idx)
	}
	assert.Equal(t, []int{0, 1, 2}, tree.NearestK(ToVec2(paris), 3))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("100k identical points took %s", elapsed)
	}
}

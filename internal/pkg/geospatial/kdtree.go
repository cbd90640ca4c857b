package geospatial

import (
	"math"
	"sort"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Vec2 is a point projected to radians: X is latitude, Y is longitude.
type Vec2 [2]float64

// ToVec2 projects a decimal-degree point into radian space.
func ToVec2(p domain.GeoPoint) Vec2 {
	lat, lon := p.Radians()
	return Vec2{lat, lon}
}

// KDTree answers nearest-point queries over a fixed reference set using
// Euclidean distance in radian space. This only approximates geodesic
// proximity: the projection is unscaled, so it distorts near the poles and
// does not wrap at ±180° longitude.
//
// A KDTree is immutable after NewKDTree returns and safe for concurrent
// readers.
type KDTree struct {
	root *kdNode
	size int
}

type kdNode struct {
	v      Vec2
	idx    int // position in the reference set
	minIdx int // lowest idx in this subtree
	axis   int // 0: lat, 1: lon
	left   *kdNode
	right  *kdNode
}

type kdItem struct {
	v   Vec2
	idx int
}

// NewKDTree builds a balanced tree over points by median split on
// alternating axes.
func NewKDTree(points []domain.GeoPoint) *KDTree {
	items := make([]kdItem, len(points))
	for i, p := range points {
		items[i] = kdItem{v: ToVec2(p), idx: i}
	}
	return &KDTree{root: buildKD(items, 0), size: len(points)}
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return t.size }

func buildKD(items []kdItem, depth int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(items) / 2
	selectNth(items, mid, ax)
	node := &kdNode{v: items[mid].v, idx: items[mid].idx, minIdx: items[mid].idx, axis: ax}
	node.left = buildKD(items[:mid], depth+1)
	node.right = buildKD(items[mid+1:], depth+1)
	if node.left != nil && node.left.minIdx < node.minIdx {
		node.minIdx = node.left.minIdx
	}
	if node.right != nil && node.right.minIdx < node.minIdx {
		node.minIdx = node.right.minIdx
	}
	return node
}

// less orders items on axis ax, breaking ties by reference index so that no
// two keys compare equal. Duplicate coordinates then split evenly and the
// lower indices always sit on the left.
func less(a, b kdItem, ax int) bool {
	if a.v[ax] != b.v[ax] {
		return a.v[ax] < b.v[ax]
	}
	return a.idx < b.idx
}

// selectNth partially orders a in place so that a[n] holds the element that
// would be there after sorting on axis ax.
func selectNth(a []kdItem, n, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, lo+(hi-lo)/2, ax)
		switch {
		case p == n:
			return
		case n < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func partition(a []kdItem, lo, hi, pivot, ax int) int {
	a[pivot], a[hi] = a[hi], a[pivot]
	pv := a[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if less(a[j], pv, ax) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

// Nearest returns the reference index closest to q. Equal distances resolve
// to the lower index. ok is false only for an empty tree.
func (t *KDTree) Nearest(q Vec2) (idx int, ok bool) {
	if t.root == nil {
		return -1, false
	}
	best := candidate{idx: -1, d2: math.Inf(1)}
	nearest(t.root, q, &best)
	return best.idx, true
}

type candidate struct {
	idx int
	d2  float64
}

func (c candidate) better(o candidate) bool {
	return c.d2 < o.d2 || (c.d2 == o.d2 && c.idx < o.idx)
}

func nearest(n *kdNode, q Vec2, best *candidate) {
	if n == nil {
		return
	}
	if c := (candidate{idx: n.idx, d2: dist2(n.v, q)}); c.better(*best) {
		*best = c
	}
	diff := q[n.axis] - n.v[n.axis]
	first, second := n.left, n.right
	if diff > 0 {
		first, second = n.right, n.left
	}
	nearest(first, q, best)
	// Cross the splitting plane only if it could hold a closer point, or an
	// equally close one with a lower index.
	if second != nil && crosses(diff*diff, second.minIdx, *best) {
		nearest(second, q, best)
	}
}

func crosses(plane float64, minIdx int, worst candidate) bool {
	return plane < worst.d2 || (plane == worst.d2 && minIdx < worst.idx)
}

// NearestK returns up to k reference indices ordered by increasing distance
// to q.
func (t *KDTree) NearestK(q Vec2, k int) []int {
	if t.root == nil || k <= 0 {
		return nil
	}
	if k > t.size {
		k = t.size
	}
	heap := make([]candidate, 0, k)
	nearestK(t.root, q, k, &heap)

	out := make([]int, len(heap))
	for i, c := range heap {
		out[i] = c.idx
	}
	return out
}

// nearestK keeps heap sorted ascending; k is small so insertion is cheap.
func nearestK(n *kdNode, q Vec2, k int, heap *[]candidate) {
	if n == nil {
		return
	}
	c := candidate{idx: n.idx, d2: dist2(n.v, q)}
	h := *heap
	if len(h) < k || c.better(h[len(h)-1]) {
		pos := sort.Search(len(h), func(i int) bool { return c.better(h[i]) })
		if len(h) < k {
			h = append(h, candidate{})
		}
		copy(h[pos+1:], h[pos:len(h)-1])
		h[pos] = c
		*heap = h
	}

	diff := q[n.axis] - n.v[n.axis]
	first, second := n.left, n.right
	if diff > 0 {
		first, second = n.right, n.left
	}
	nearestK(first, q, k, heap)
	h = *heap
	if second != nil && (len(h) < k || crosses(diff*diff, second.minIdx, h[len(h)-1])) {
		nearestK(second, q, k, heap)
	}
}

func dist2(a, b Vec2) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}

package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/viant/vec/search"
)

// pruneSlack absorbs float32 rounding in distance bounds so pruning never drops an exact or tied hit.
const pruneSlack = 1e-4

// VPTreeIndex is an exact vantage-point tree over Euclidean distance between
// unit vectors, which is monotone in cosine similarity. Final scores are
// recomputed as float64 inner products so they match MemoryIndex exactly.
type VPTreeIndex struct {
	dimensions int
	ids        []int
	vectors    [][]float32
	root       *vpNode
	// zeros holds positions of zero vectors; they score 0 against any query.
	zeros []int
	built bool
	mu    sync.RWMutex
}

type vpNode struct {
	pos     int
	radius  float64
	inside  *vpNode // distance to vantage <= radius
	outside *vpNode // distance to vantage >= radius
}

// NewVPTreeIndex creates a vantage-point tree index with the given dimension.
func NewVPTreeIndex(dimensions int) (*VPTreeIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &VPTreeIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (t *VPTreeIndex) Type() string {
	return string(IndexTypeVPTree)
}

// Build normalizes the vectors and constructs the tree deterministically.
func (t *VPTreeIndex) Build(ctx context.Context, ids []int, vectors [][]float32) error {
	if err := validateBuild(t.dimensions, ids, vectors); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.built {
		return fmt.Errorf("vptree index already built")
	}
	t.ids = append([]int(nil), ids...)
	t.vectors = make([][]float32, len(vectors))
	items := make([]int, 0, len(vectors))
	for i, vec := range vectors {
		t.vectors[i] = Normalized(vec)
		if search.Float32s(t.vectors[i]).Magnitude() == 0 {
			t.zeros = append(t.zeros, i)
			continue
		}
		items = append(items, i)
	}
	root, err := t.buildNode(ctx, items)
	if err != nil {
		return err
	}
	t.root = root
	t.built = true
	return nil
}

func (t *VPTreeIndex) buildNode(ctx context.Context, items []int) (*vpNode, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Last item is the vantage point so builds are reproducible.
	vantage := items[len(items)-1]
	rest := items[:len(items)-1]
	node := &vpNode{pos: vantage}
	if len(rest) == 0 {
		return node, nil
	}
	dist := make(map[int]float64, len(rest))
	for _, p := range rest {
		dist[p] = t.distance(t.vectors[vantage], t.vectors[p])
	}
	sorted := append([]int(nil), rest...)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := dist[sorted[i]], dist[sorted[j]]
		if di != dj {
			return di < dj
		}
		return sorted[i] < sorted[j]
	})
	mid := len(sorted) / 2
	node.radius = dist[sorted[mid]]
	var err error
	if node.inside, err = t.buildNode(ctx, sorted[:mid]); err != nil {
		return nil, err
	}
	if node.outside, err = t.buildNode(ctx, sorted[mid:]); err != nil {
		return nil, err
	}
	return node, nil
}

func (t *VPTreeIndex) distance(a, b []float32) float64 {
	return float64(search.Float32s(a).EuclideanDistance(b))
}

// Search walks the tree keeping the best k hits, pruning subtrees that cannot beat the current k-th.
func (t *VPTreeIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if err := validateQuery(t.dimensions, query, k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := Normalized(query)
	t.mu.RLock()
	defer t.mu.RUnlock()

	if search.Float32s(q).Magnitude() == 0 {
		// Every reference scores 0; insertion order decides.
		hits := make([]scored, len(t.vectors))
		for i := range t.vectors {
			hits[i] = scored{pos: i}
		}
		return toResults(topK(hits, k), t.ids), nil
	}

	c := &candidates{k: k}
	t.walk(t.root, q, c)
	hits := append([]scored(nil), c.hits...)
	for _, pos := range t.zeros {
		hits = append(hits, scored{pos: pos})
	}
	return toResults(topK(hits, k), t.ids), nil
}

func (t *VPTreeIndex) walk(node *vpNode, q []float32, c *candidates) {
	if node == nil {
		return
	}
	d := t.distance(q, t.vectors[node.pos])
	c.offer(scored{pos: node.pos, score: InnerProduct(q, t.vectors[node.pos])}, d)

	// Visit the side the query falls in first to tighten tau early.
	if d <= node.radius {
		if d-c.tau() <= node.radius+pruneSlack {
			t.walk(node.inside, q, c)
		}
		if d+c.tau() >= node.radius-pruneSlack {
			t.walk(node.outside, q, c)
		}
		return
	}
	if d+c.tau() >= node.radius-pruneSlack {
		t.walk(node.outside, q, c)
	}
	if d-c.tau() <= node.radius+pruneSlack {
		t.walk(node.inside, q, c)
	}
}

// candidates keeps the best k hits seen so far, sorted best first.
type candidates struct {
	k     int
	hits  []scored
	dists []float64
}

func (c *candidates) offer(h scored, d float64) {
	if len(c.hits) == c.k && !better(h, c.hits[len(c.hits)-1]) {
		return
	}
	i := sort.Search(len(c.hits), func(i int) bool { return better(h, c.hits[i]) })
	c.hits = append(c.hits, scored{})
	c.dists = append(c.dists, 0)
	copy(c.hits[i+1:], c.hits[i:])
	copy(c.dists[i+1:], c.dists[i:])
	c.hits[i] = h
	c.dists[i] = d
	if len(c.hits) > c.k {
		c.hits = c.hits[:c.k]
		c.dists = c.dists[:c.k]
	}
}

// tau is the search radius: the largest distance among the kept hits, or +Inf until k are kept.
func (c *candidates) tau() float64 {
	if len(c.hits) < c.k {
		return math.Inf(1)
	}
	maxDist := 0.0
	for _, d := range c.dists {
		if d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}

// Size returns the number of vectors in the index.
func (t *VPTreeIndex) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// Dimensions returns the vector dimension.
func (t *VPTreeIndex) Dimensions() int {
	return t.dimensions
}

// Close releases the tree.
func (t *VPTreeIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = nil
	return nil
}

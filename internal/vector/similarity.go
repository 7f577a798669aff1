package vector

import (
	"math"
	"sort"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
// Accumulation is done in float64.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalized returns a unit-length copy of x. A zero vector is returned as a zero copy.
func Normalized(x []float32) []float32 {
	out := make([]float32, len(x))
	norm := L2Norm(x)
	if norm == 0 {
		return out
	}
	for i, v := range x {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func validateBuild(dimensions int, ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	seen := make(map[int]struct{}, len(ids))
	for i, vec := range vectors {
		if len(vec) != dimensions {
			return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid,
				"vector dimension mismatch at %d: got %d, expected %d", i, len(vec), dimensions)
		}
		if _, dup := seen[ids[i]]; dup {
			return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "duplicate id %d", ids[i])
		}
		seen[ids[i]] = struct{}{}
	}
	return nil
}

func validateQuery(dimensions int, query []float32, k int) error {
	if k < 1 {
		return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "k must be at least 1, got %d", k)
	}
	if len(query) != dimensions {
		return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid,
			"query dimension mismatch: got %d, expected %d", len(query), dimensions)
	}
	return nil
}

// scored is a hit carrying its insertion position for tie-breaking.
type scored struct {
	pos   int
	score float64
}

// better orders by score descending, then insertion position ascending.
func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.pos < b.pos
}

func topK(hits []scored, k int) []scored {
	sort.Slice(hits, func(i, j int) bool { return better(hits[i], hits[j]) })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func toResults(hits []scored, ids []int) []*Result {
	out := make([]*Result, len(hits))
	for i, h := range hits {
		out[i] = &Result{ID: ids[h.pos], Score: h.score}
	}
	return out
}

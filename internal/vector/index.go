// Package vector provides the similarity indexes used to rank reference logos.
package vector

import "context"

// Index is a read-only nearest-neighbour structure over L2-normalized embeddings.
// It is built once from every reference and replaced wholesale on rebuild.
type Index interface {
	// Build normalizes and loads all vectors. ids[i] labels vectors[i]; insertion
	// order is the tie-break order for equal scores. Build may be called once.
	Build(ctx context.Context, ids []int, vectors [][]float32) error
	// Search returns min(k, Size()) results ordered by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	ID    int
	Score float64 // cosine similarity in [-1, 1]
}

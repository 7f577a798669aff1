package vector

import (
	"context"
	"fmt"
	"sync"
)

// MemoryIndex is an exhaustive in-memory index: every query is scored against every reference.
type MemoryIndex struct {
	dimensions int
	ids        []int
	vectors    [][]float32
	built      bool
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Build stores normalized copies of vectors.
func (m *MemoryIndex) Build(ctx context.Context, ids []int, vectors [][]float32) error {
	if err := validateBuild(m.dimensions, ids, vectors); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.built {
		return fmt.Errorf("memory index already built")
	}
	m.ids = append([]int(nil), ids...)
	m.vectors = make([][]float32, len(vectors))
	for i, vec := range vectors {
		m.vectors[i] = Normalized(vec)
	}
	m.built = true
	return nil
}

// Search scores the normalized query against every stored vector.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if err := validateQuery(m.dimensions, query, k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := Normalized(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	hits := make([]scored, len(m.vectors))
	for i, vec := range m.vectors {
		hits[i] = scored{pos: i, score: InnerProduct(q, vec)}
	}
	return toResults(topK(hits, k), m.ids), nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

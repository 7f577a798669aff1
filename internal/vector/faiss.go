//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// tieMargin is how many extra neighbours are fetched from FAISS so equal scores at
// the k-th position can be re-ordered by insertion position.
const tieMargin = 8

// FAISSIndex is a vector index backed by FAISS IndexFlatIP. FAISS labels are
// insertion positions; scores are recomputed in float64 from the kept vectors.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	ids        []int
	vectors    [][]float32
	built      bool
	mu         sync.RWMutex
}

// NewFAISSIndex creates a FAISS index with the given dimension using inner product.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatIP
	ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Build normalizes and adds all vectors in one call.
func (f *FAISSIndex) Build(ctx context.Context, ids []int, vectors [][]float32) error {
	if err := validateBuild(f.dimensions, ids, vectors); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return fmt.Errorf("faiss index already built")
	}
	f.ids = append([]int(nil), ids...)
	f.vectors = make([][]float32, len(vectors))
	f.built = true
	if len(vectors) == 0 {
		return nil
	}

	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		f.vectors[i] = Normalized(vec)
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], f.vectors[i])
	}
	ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns the top-k vectors by inner product of normalized vectors.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if err := validateQuery(f.dimensions, query, k); err != nil {
		return nil, err
	}
	q := Normalized(query)

	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if ntotal == 0 {
		return []*Result{}, nil
	}
	fetch := k + tieMargin
	if fetch > ntotal {
		fetch = ntotal
	}
	distances := make([]float32, fetch)
	labels := make([]int64, fetch)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&q[0])),
		C.idx_t(fetch),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	hits := make([]scored, 0, fetch)
	for _, label := range labels {
		if label < 0 || int(label) >= len(f.vectors) {
			continue
		}
		pos := int(label)
		hits = append(hits, scored{pos: pos, score: InnerProduct(q, f.vectors[pos])})
	}
	return toResults(topK(hits, k), f.ids), nil
}

// Size returns the number of vectors in the index.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}

package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory scores every reference per query. Good for reference sets up to tens of thousands.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeVPTree is an exact vantage-point tree; it prunes work when references are well spread.
	IndexTypeVPTree IndexType = "vptree"
	// IndexTypeFAISS uses FAISS IndexFlatIP. Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates an empty index of the specified type.
// Supported types: "memory" (default), "vptree", "faiss".
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeVPTree:
		return NewVPTreeIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, vptree, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}

// Package reference holds the immutable, ordered set of protected logos a snapshot was built from.
package reference

import (
	"time"

	"github.com/hyperjump/brandguard/internal/models"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Store is an ordered collection of reference entries. Entry ids are the
// positions 0..n-1 and never change for the lifetime of the store.
type Store struct {
	version    string
	dimensions int
	entries    []*models.ReferenceEntry
	skipped    int
	createdAt  time.Time
	encoder    string
}

// Option configures a Store.
type Option func(*Store)

// WithEncoder records the identity of the encoder that produced the embeddings.
func WithEncoder(identity string) Option {
	return func(s *Store) { s.encoder = identity }
}

// NewStore validates entries and wraps them. Every entry must have ID equal to
// its position and an embedding of the given dimension.
func NewStore(version string, dimensions int, entries []*models.ReferenceEntry, skipped int, createdAt time.Time, opts ...Option) (*Store, error) {
	if dimensions <= 0 {
		return nil, bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "dimensions must be positive, got %d", dimensions)
	}
	for i, e := range entries {
		if e == nil {
			return nil, bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "entry %d is nil", i)
		}
		if e.ID != i {
			return nil, bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "entry %q has id %d at position %d", e.Name, e.ID, i)
		}
		if len(e.Embedding) != dimensions {
			return nil, bgerr.Errorf(bgerr.CodeSearchArgumentInvalid,
				"entry %q has %d dimensions, want %d", e.Name, len(e.Embedding), dimensions)
		}
	}
	s := &Store{
		version:    version,
		dimensions: dimensions,
		entries:    append([]*models.ReferenceEntry(nil), entries...),
		skipped:    skipped,
		createdAt:  createdAt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Version returns the snapshot version the store was built or loaded as.
func (s *Store) Version() string { return s.version }

// Dimensions returns the embedding dimension shared by all entries.
func (s *Store) Dimensions() int { return s.dimensions }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Skipped returns how many files were rejected while building the store.
func (s *Store) Skipped() int { return s.skipped }

// CreatedAt returns when the store was built.
func (s *Store) CreatedAt() time.Time { return s.createdAt }

// Encoder returns the identity of the encoder the embeddings came from, or "" when unknown.
func (s *Store) Encoder() string { return s.encoder }

// Get returns the entry with the given id.
func (s *Store) Get(id int) (*models.ReferenceEntry, bool) {
	if id < 0 || id >= len(s.entries) {
		return nil, false
	}
	return s.entries[id], true
}

// Entries returns the entries in id order. Callers must not modify them.
func (s *Store) Entries() []*models.ReferenceEntry {
	return append([]*models.ReferenceEntry(nil), s.entries...)
}

// IDs returns the entry ids in order, parallel to Vectors.
func (s *Store) IDs() []int {
	ids := make([]int, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids
}

// Vectors returns the embeddings in id order. The slices are shared with the
// entries and must not be modified.
func (s *Store) Vectors() [][]float32 {
	vecs := make([][]float32, len(s.entries))
	for i, e := range s.entries {
		vecs[i] = e.Embedding
	}
	return vecs
}

// Info summarizes the store for persistence and status.
func (s *Store) Info(indexType string) *models.SnapshotInfo {
	return &models.SnapshotInfo{
		Version:    s.version,
		Dimensions: s.dimensions,
		EntryCount: len(s.entries),
		Skipped:    s.skipped,
		IndexType:  indexType,
		Encoder:    s.encoder,
		CreatedAt:  s.createdAt,
	}
}

// Equal reports whether two stores hold the same version, encoder, entries and vectors.
func (s *Store) Equal(o *Store) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.version != o.version || s.encoder != o.encoder || s.dimensions != o.dimensions || len(s.entries) != len(o.entries) {
		return false
	}
	for i, a := range s.entries {
		b := o.entries[i]
		if a.ID != b.ID || a.Name != b.Name || a.Path != b.Path || a.Digest != b.Digest {
			return false
		}
		for j := range a.Embedding {
			if a.Embedding[j] != b.Embedding[j] {
				return false
			}
		}
	}
	return true
}

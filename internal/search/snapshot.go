package search

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/brandguard/internal/keyword"
	"github.com/hyperjump/brandguard/internal/reference"
	"github.com/hyperjump/brandguard/internal/vector"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Snapshot bundles a reference store with the indexes built from it. It is
// immutable once published.
type Snapshot struct {
	Store   *reference.Store
	Index   vector.Index
	Names   *keyword.NameIndex // nil when the name index could not be built
	BuiltAt time.Time

	// mu is held shared by queries and exclusively by retire.
	mu      sync.RWMutex
	retired bool
}

// NewSnapshot wraps store and its indexes.
func NewSnapshot(store *reference.Store, index vector.Index, names *keyword.NameIndex) *Snapshot {
	return &Snapshot{Store: store, Index: index, Names: names, BuiltAt: time.Now()}
}

func (s *Snapshot) acquire() bool {
	s.mu.RLock()
	if s.retired {
		s.mu.RUnlock()
		return false
	}
	return true
}

func (s *Snapshot) release() {
	s.mu.RUnlock()
}

// retire waits for in-flight readers, then closes the indexes.
func (s *Snapshot) retire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return nil
	}
	s.retired = true
	var errs []error
	if s.Index != nil {
		errs = append(errs, s.Index.Close())
	}
	if s.Names != nil {
		errs = append(errs, s.Names.Close())
	}
	return errors.Join(errs...)
}

// Holder publishes the current snapshot. Readers never block on a swap.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns an empty holder; searches fail as unavailable until Swap.
func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the published snapshot or nil. The snapshot may be retired
// at any time; use Acquire to read its indexes.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Acquire pins the current snapshot until release is called.
func (h *Holder) Acquire() (*Snapshot, func(), error) {
	for {
		s := h.current.Load()
		if s == nil {
			return nil, nil, bgerr.New(bgerr.CodeSearchUnavailable, "search unavailable: no reference snapshot loaded")
		}
		if s.acquire() {
			return s, s.release, nil
		}
		// Lost a race with Swap; the replacement is already published.
	}
}

// Swap publishes next and retires the previous snapshot once its readers finish.
func (h *Holder) Swap(next *Snapshot) error {
	prev := h.current.Swap(next)
	if prev == nil || prev == next {
		return nil
	}
	return prev.retire()
}

// Close retires the current snapshot and leaves the holder empty.
func (h *Holder) Close() error {
	prev := h.current.Swap(nil)
	if prev == nil {
		return nil
	}
	return prev.retire()
}

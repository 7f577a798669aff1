// Package models defines core data structures for references, queries, and search results.
package models

import "time"

// ReferenceEntry is one protected logo. ID is its position in the store after
// sorting by file name and stays stable for the lifetime of a loaded snapshot.
type ReferenceEntry struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	Digest    string    `json:"digest,omitempty" db:"digest"`
	Embedding []float32 `json:"-" db:"-"`
}

// SnapshotInfo describes a persisted reference snapshot.
type SnapshotInfo struct {
	Version    string    `json:"version" db:"version"`
	Dimensions int       `json:"dimensions" db:"dimensions"`
	EntryCount int       `json:"entry_count" db:"entry_count"`
	Skipped    int       `json:"skipped" db:"skipped"`
	IndexType  string    `json:"index_type" db:"index_type"`
	Encoder    string    `json:"encoder" db:"encoder"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

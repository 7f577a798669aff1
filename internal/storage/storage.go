// Package storage persists snapshot metadata and reference entries in SQLite.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/brandguard/internal/models"
)

// ErrNoSnapshot is returned when the database holds no snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Storage defines snapshot metadata persistence. Vectors live in the snapshot vector file.
type Storage interface {
	// SaveSnapshot replaces the stored snapshot in one transaction.
	SaveSnapshot(ctx context.Context, info *models.SnapshotInfo, entries []*models.ReferenceEntry) error
	// LatestSnapshot returns the stored snapshot header or ErrNoSnapshot.
	LatestSnapshot(ctx context.Context) (*models.SnapshotInfo, error)
	// ListEntries returns the entries of version in id order, without embeddings.
	ListEntries(ctx context.Context, version string) ([]*models.ReferenceEntry, error)
	CountEntries(ctx context.Context) (int64, error)

	Close() error
}

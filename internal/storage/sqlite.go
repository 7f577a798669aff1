package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/brandguard/internal/models"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to open database", bgerr.FieldPath(dbPath))
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to enable WAL", bgerr.FieldPath(dbPath))
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to initialize schema", bgerr.FieldPath(dbPath))
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		version TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		entry_count INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		index_type TEXT,
		encoder TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reference_entries (
		version TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		digest TEXT,
		PRIMARY KEY (version, id),
		FOREIGN KEY (version) REFERENCES snapshots(version) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_reference_entries_name ON reference_entries(version, name);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return addColumnIfMissing(db, "snapshots", "encoder", "TEXT")
}

// addColumnIfMissing upgrades databases created before column existed.
func addColumnIfMissing(db *sql.DB, table, column, decl string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryKey); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// SaveSnapshot replaces whatever snapshot is stored with info and entries.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, info *models.SnapshotInfo, entries []*models.ReferenceEntry) error {
	if info.EntryCount != len(entries) {
		return bgerr.Errorf(bgerr.CodeStorageDatabaseFailure, "snapshot declares %d entries, got %d", info.EntryCount, len(entries))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_entries`); err != nil {
		return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to clear entries")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to clear snapshots")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (version, dimensions, entry_count, skipped, index_type, encoder, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.Version, info.Dimensions, info.EntryCount, info.Skipped, info.IndexType, info.Encoder, info.CreatedAt.UTC(),
	); err != nil {
		return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to insert snapshot", bgerr.FieldVersion(info.Version))
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reference_entries (version, id, name, path, digest) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to prepare entry insert")
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, info.Version, e.ID, e.Name, e.Path, e.Digest); err != nil {
			return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to insert entry", bgerr.FieldPath(e.Path))
		}
	}

	if err := tx.Commit(); err != nil {
		return bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to commit snapshot", bgerr.FieldVersion(info.Version))
	}
	return nil
}

// LatestSnapshot returns the stored snapshot header.
func (s *SQLiteStorage) LatestSnapshot(ctx context.Context) (*models.SnapshotInfo, error) {
	var info models.SnapshotInfo
	var indexType, encoder sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT version, dimensions, entry_count, skipped, index_type, encoder, created_at
		 FROM snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&info.Version, &info.Dimensions, &info.EntryCount, &info.Skipped, &indexType, &encoder, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to read snapshot")
	}
	info.IndexType = indexType.String
	info.Encoder = encoder.String
	return &info, nil
}

// ListEntries returns the entries stored for version in id order.
func (s *SQLiteStorage) ListEntries(ctx context.Context, version string) ([]*models.ReferenceEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, digest FROM reference_entries WHERE version = ? ORDER BY id`, version)
	if err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to list entries", bgerr.FieldVersion(version))
	}
	defer rows.Close()

	entries := []*models.ReferenceEntry{}
	for rows.Next() {
		var e models.ReferenceEntry
		var digest sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Path, &digest); err != nil {
			return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to scan entry")
		}
		e.Digest = digest.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to iterate entries")
	}
	return entries, nil
}

// CountEntries returns the number of stored reference entries.
func (s *SQLiteStorage) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_entries`).Scan(&n); err != nil {
		return 0, bgerr.Wrap(err, bgerr.CodeStorageDatabaseFailure, "failed to count entries")
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

package snapshot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/reference"
	"github.com/hyperjump/brandguard/internal/storage"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Persister writes and reloads reference stores. The vector file is replaced
// first and the metadata transaction second, so a crash in between leaves a
// version mismatch that Load reports instead of a mixed snapshot.
type Persister struct {
	storage     storage.Storage
	vectorsPath string
	logger      *zap.Logger
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) PersisterOption {
	return func(p *Persister) { p.logger = l }
}

// NewPersister creates a persister over store and the vector file at vectorsPath.
func NewPersister(store storage.Storage, vectorsPath string, opts ...PersisterOption) *Persister {
	p := &Persister{storage: store, vectorsPath: vectorsPath}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Save persists s as the current snapshot.
func (p *Persister) Save(ctx context.Context, s *reference.Store, indexType string) error {
	if err := WriteVectorFile(p.vectorsPath, s.Version(), s.Dimensions(), s.IDs(), s.Vectors()); err != nil {
		return bgerr.Wrap(err, bgerr.CodeSnapshotWriteFailure, "failed to write vector file",
			bgerr.FieldPath(p.vectorsPath), bgerr.FieldVersion(s.Version()))
	}
	if err := p.storage.SaveSnapshot(ctx, s.Info(indexType), s.Entries()); err != nil {
		return bgerr.New(bgerr.CodeSnapshotWriteFailure, "failed to write snapshot metadata",
			bgerr.FieldVersion(s.Version()), bgerr.Field("cause", err.Error()))
	}
	if p.logger != nil {
		p.logger.Info("snapshot persisted",
			zap.String("version", s.Version()),
			zap.Int("entries", s.Len()),
			zap.String("vectors_path", p.vectorsPath))
	}
	return nil
}

// Load reads the current snapshot. Any missing, corrupt or inconsistent piece
// yields a SnapshotLoadFailure.
func (p *Persister) Load(ctx context.Context) (*reference.Store, error) {
	info, err := p.storage.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			return nil, loadFailure("no snapshot metadata", nil)
		}
		return nil, loadFailure("cannot read snapshot metadata", err)
	}
	vf, err := ReadVectorFile(p.vectorsPath)
	if err != nil {
		return nil, loadFailure("cannot read vector file", err, bgerr.FieldPath(p.vectorsPath))
	}
	if vf.Version != info.Version {
		return nil, loadFailure("snapshot version mismatch", nil,
			bgerr.Field("metadata_version", info.Version), bgerr.Field("vectors_version", vf.Version))
	}
	if vf.Dimensions != info.Dimensions {
		return nil, loadFailure("snapshot dimension mismatch", nil,
			bgerr.Field("metadata_dimensions", info.Dimensions), bgerr.Field("vectors_dimensions", vf.Dimensions))
	}
	if len(vf.IDs) != info.EntryCount {
		return nil, loadFailure("snapshot count mismatch", nil,
			bgerr.Field("metadata_count", info.EntryCount), bgerr.Field("vectors_count", len(vf.IDs)))
	}

	entries, err := p.storage.ListEntries(ctx, info.Version)
	if err != nil {
		return nil, loadFailure("cannot read reference entries", err)
	}
	if len(entries) != len(vf.IDs) {
		return nil, loadFailure("snapshot entry rows mismatch", nil,
			bgerr.Field("rows", len(entries)), bgerr.Field("vectors_count", len(vf.IDs)))
	}
	for i, e := range entries {
		if e.ID != vf.IDs[i] {
			return nil, loadFailure("snapshot id mismatch", nil, bgerr.Field("position", i))
		}
		e.Embedding = vf.Vectors[i]
	}

	s, err := reference.NewStore(info.Version, info.Dimensions, entries, info.Skipped, info.CreatedAt,
		reference.WithEncoder(info.Encoder))
	if err != nil {
		return nil, loadFailure("invalid snapshot", err)
	}
	if p.logger != nil {
		p.logger.Info("snapshot loaded", zap.String("version", s.Version()), zap.Int("entries", s.Len()))
	}
	return s, nil
}

// loadFailure keeps the SnapshotLoadFailure code outermost.
func loadFailure(msg string, cause error, fields ...bgerr.Attr) error {
	if cause != nil {
		fields = append(fields, bgerr.Field("cause", cause.Error()))
	}
	return bgerr.New(bgerr.CodeSnapshotLoadFailure, msg, fields...)
}

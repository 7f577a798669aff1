// Package catalog owns the reference snapshot lifecycle: load on start, rebuild, persist and publish.
package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/embedding"
	"github.com/hyperjump/brandguard/internal/indexer"
	"github.com/hyperjump/brandguard/internal/keyword"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/reference"
	"github.com/hyperjump/brandguard/internal/search"
	"github.com/hyperjump/brandguard/internal/snapshot"
	"github.com/hyperjump/brandguard/internal/storage"
	"github.com/hyperjump/brandguard/internal/vector"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Catalog is the process-wide reference resource shared by the server, the watcher and the CLI.
type Catalog struct {
	cfg       *config.Config
	encoder   *embedding.Service
	builder   *indexer.Builder
	persister *snapshot.Persister
	holder    *search.Holder
	logger    *zap.Logger

	// rebuildMu serializes rebuilds; queries never take it.
	rebuildMu  sync.Mutex
	lastReport atomic.Pointer[indexer.Report]
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New wires a catalog. holder receives every published snapshot.
func New(cfg *config.Config, encoder *embedding.Service, persister *snapshot.Persister, holder *search.Holder, opts ...Option) *Catalog {
	c := &Catalog{
		cfg:       cfg,
		encoder:   encoder,
		persister: persister,
		holder:    holder,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.builder = indexer.NewBuilder(encoder, indexer.WithLogger(c.logger))
	return c
}

// Holder returns the snapshot holder the catalog publishes into.
func (c *Catalog) Holder() *search.Holder {
	return c.holder
}

// Open loads the persisted snapshot. When it is missing or unusable the catalog
// rebuilds from the logos directory if build_on_start is set, and otherwise
// stays without a snapshot so searches report unavailable.
func (c *Catalog) Open(ctx context.Context) error {
	store, err := c.persister.Load(ctx)
	if err == nil && (store.Dimensions() != c.encoder.Dimensions() || store.Encoder() != c.encoder.Identity()) {
		err = bgerr.New(bgerr.CodeSnapshotLoadFailure, "snapshot built with a different encoder",
			bgerr.Field("snapshot_encoder", store.Encoder()),
			bgerr.Field("encoder", c.encoder.Identity()),
			bgerr.Field("snapshot_dimensions", store.Dimensions()),
			bgerr.Field("encoder_dimensions", c.encoder.Dimensions()))
	}
	if err == nil {
		return c.publish(ctx, store)
	}
	if !bgerr.IsSnapshotLoadFailure(err) {
		return err
	}

	c.logger.Warn("no usable snapshot", zap.Error(err))
	if !c.cfg.Catalog.BuildOnStartOrDefault() {
		c.logger.Info("build_on_start disabled; search unavailable until reindex")
		return nil
	}
	_, err = c.Rebuild(ctx)
	return err
}

// Rebuild builds a fresh store from the logos directory, persists it and
// publishes it. On failure the previous snapshot stays in service.
func (c *Catalog) Rebuild(ctx context.Context) (*indexer.Report, error) {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	store, report, err := c.builder.Build(ctx, c.cfg.Catalog.LogosDir)
	if err != nil {
		return nil, err
	}
	snap, err := c.newSnapshot(ctx, store)
	if err != nil {
		return nil, err
	}
	if err := c.persister.Save(ctx, store, snap.Index.Type()); err != nil {
		_ = snap.Index.Close()
		if snap.Names != nil {
			_ = snap.Names.Close()
		}
		return nil, err
	}
	if err := c.holder.Swap(snap); err != nil {
		c.logger.Warn("closing previous snapshot failed", zap.Error(err))
	}
	c.lastReport.Store(report)
	return report, nil
}

// LastReport returns the report of the most recent successful rebuild, or nil.
func (c *Catalog) LastReport() *indexer.Report {
	return c.lastReport.Load()
}

func (c *Catalog) publish(ctx context.Context, store *reference.Store) error {
	snap, err := c.newSnapshot(ctx, store)
	if err != nil {
		return err
	}
	if err := c.holder.Swap(snap); err != nil {
		c.logger.Warn("closing previous snapshot failed", zap.Error(err))
	}
	return nil
}

// newSnapshot builds the similarity and name indexes for store.
func (c *Catalog) newSnapshot(ctx context.Context, store *reference.Store) (*search.Snapshot, error) {
	idx, err := c.newIndex(store.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := idx.Build(ctx, store.IDs(), store.Vectors()); err != nil {
		_ = idx.Close()
		return nil, err
	}
	names, err := keyword.NewNameIndex(store.Entries())
	if err != nil {
		c.logger.Warn("name index unavailable", zap.Error(err))
		names = nil
	}
	c.logger.Info("snapshot built",
		zap.String("version", store.Version()),
		zap.Int("references", store.Len()),
		zap.String("index_type", idx.Type()))
	return search.NewSnapshot(store, idx, names), nil
}

func (c *Catalog) newIndex(dims int) (vector.Index, error) {
	idx, err := vector.NewIndex(c.cfg.Vector.IndexType, dims)
	if err == nil {
		return idx, nil
	}
	// Fall back to memory index if configured type fails (e.g., FAISS not available)
	if c.cfg.Vector.IndexType == string(vector.IndexTypeMemory) || c.cfg.Vector.IndexType == "" {
		return nil, err
	}
	c.logger.Warn("failed to create vector index, falling back to memory",
		zap.String("requested_type", c.cfg.Vector.IndexType),
		zap.Error(err))
	return vector.NewIndex(string(vector.IndexTypeMemory), dims)
}

// Status reports the published snapshot and the configuration in effect.
func (c *Catalog) Status() *models.Status {
	st := &models.Status{
		Config: &models.StatusConfig{
			LogosDir:          c.cfg.Catalog.LogosDir,
			DatabasePath:      c.cfg.Storage.DatabasePath,
			VectorsPath:       c.cfg.Storage.VectorsPath,
			ConflictThreshold: c.cfg.Search.ConflictThreshold,
			CriticalThreshold: c.cfg.Search.CriticalThreshold,
			EncoderType:       c.encoder.Encoder().Type(),
		},
	}
	if n, err := storage.SnapshotUsageBytes(c.cfg.Storage.DatabasePath, c.cfg.Storage.VectorsPath); err == nil {
		st.DiskUsageBytes = &n
	}
	snap := c.holder.Current()
	if snap == nil {
		return st
	}
	builtAt := snap.Store.CreatedAt()
	st.Ready = true
	st.References = snap.Store.Len()
	st.Skipped = snap.Store.Skipped()
	st.SnapshotVersion = snap.Store.Version()
	st.IndexType = snap.Index.Type()
	st.Dimensions = snap.Store.Dimensions()
	st.Encoder = snap.Store.Encoder()
	st.BuiltAt = &builtAt
	return st
}

// Close retires the published snapshot.
func (c *Catalog) Close() error {
	return c.holder.Close()
}

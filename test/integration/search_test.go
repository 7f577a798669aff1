// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/brandguard/internal/catalog"
	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/embedding"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/search"
	"github.com/hyperjump/brandguard/internal/snapshot"
	"github.com/hyperjump/brandguard/internal/storage"
	"github.com/hyperjump/brandguard/test/e2e"
)

type stack struct {
	catalog *catalog.Catalog
	engine  *search.Engine
}

func open(t *testing.T, cfg *config.Config) *stack {
	t.Helper()
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	enc := embedding.NewService(embedding.NewMockEncoder(cfg.Embedding.Dimensions, cfg.Embedding.ImageSize))
	holder := search.NewHolder()
	cat := catalog.New(cfg, enc, snapshot.NewPersister(store, cfg.Storage.VectorsPath), holder)
	if err := cat.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return &stack{catalog: cat, engine: search.NewEngine(holder, enc, &cfg.Search)}
}

func TestIntegration_PersistedSnapshotServesSameResults(t *testing.T) {
	dir := t.TempDir()
	corpus := e2e.BuildCorpus()
	logosDir := filepath.Join(dir, "logos")
	if err := e2e.WriteCorpus(logosDir, corpus); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath: filepath.Join(dir, "db.sqlite"),
			VectorsPath:  filepath.Join(dir, "references.vec"),
		},
		Catalog:   config.CatalogConfig{LogosDir: logosDir},
		Embedding: config.EmbeddingConfig{Dimensions: 48, ImageSize: 16},
		Vector:    config.VectorConfig{IndexType: "vptree"},
	}
	config.ApplyDefaults(cfg)

	first := open(t, cfg)
	built := first.catalog.Status()
	if built.References != corpus.TotalLogos || built.IndexType != "vptree" {
		t.Fatalf("unexpected status after build: %+v", built)
	}

	// Reopen with a different index type: the snapshot is index-agnostic.
	cfg2 := *cfg
	cfg2.Vector.IndexType = "memory"
	second := open(t, &cfg2)
	loaded := second.catalog.Status()
	if loaded.SnapshotVersion != built.SnapshotVersion {
		t.Fatalf("reopen built a new snapshot: %s vs %s", loaded.SnapshotVersion, built.SnapshotVersion)
	}

	ctx := context.Background()
	for _, tc := range corpus.TestCases {
		data, err := e2e.QueryBytes(tc)
		if err != nil {
			t.Fatal(err)
		}
		a, err := first.engine.Search(ctx, &models.SearchQuery{Image: data, K: 4})
		if err != nil {
			t.Fatal(err)
		}
		b, err := second.engine.Search(ctx, &models.SearchQuery{Image: data, K: 4})
		if err != nil {
			t.Fatal(err)
		}
		if len(a.Matches) != len(b.Matches) {
			t.Fatalf("%s: %d vs %d matches", tc.Description, len(a.Matches), len(b.Matches))
		}
		for i := range a.Matches {
			if a.Matches[i].ID != b.Matches[i].ID {
				t.Errorf("%s: rank %d differs: %s vs %s", tc.Description, i+1, a.Matches[i].Name, b.Matches[i].Name)
			}
		}
		if a.Verdict != b.Verdict {
			t.Errorf("%s: verdict %s vs %s", tc.Description, a.Verdict, b.Verdict)
		}
	}
}

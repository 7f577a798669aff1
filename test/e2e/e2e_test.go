package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/brandguard/internal/catalog"
	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/embedding"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/search"
	"github.com/hyperjump/brandguard/internal/server"
	"github.com/hyperjump/brandguard/internal/snapshot"
	"github.com/hyperjump/brandguard/internal/storage"
)

const (
	e2eDimensions = 48
	e2eInputSize  = 16
)

// startServer builds the catalog from logosDir and serves the API.
func startServer(t *testing.T, logosDir string) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath: filepath.Join(dir, "db", "references.db"),
			VectorsPath:  filepath.Join(dir, "indices", "references.vec"),
		},
		Catalog:   config.CatalogConfig{LogosDir: logosDir},
		Embedding: config.EmbeddingConfig{Dimensions: e2eDimensions, ImageSize: e2eInputSize},
	}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	enc := embedding.NewService(embedding.NewMockEncoder(e2eDimensions, e2eInputSize),
		embedding.WithCache(embedding.NewMemoryCache(cfg.Embedding.CacheSize)))
	holder := search.NewHolder()
	cat := catalog.New(cfg, enc, snapshot.NewPersister(store, cfg.Storage.VectorsPath), holder)
	if err := cat.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	engine := search.NewEngine(holder, enc, &cfg.Search)
	srv := server.NewServer(engine, cat, &cfg.Server, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postSearch(t *testing.T, baseURL string, data []byte, k string) *models.SearchResponse {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(server.ImageField, "candidate")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()
	url := baseURL + "/api/v1/search"
	if k != "" {
		url += "?k=" + k
	}
	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status %d", resp.StatusCode)
	}
	var out models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return &out
}

func TestE2E_SearchReturnsSourceLogo(t *testing.T) {
	corpus := BuildCorpus()
	logosDir := filepath.Join(t.TempDir(), "logos")
	if err := WriteCorpus(logosDir, corpus); err != nil {
		t.Fatal(err)
	}
	ts := startServer(t, logosDir)

	for _, tc := range corpus.TestCases {
		tc := tc
		t.Run(tc.Description, func(t *testing.T) {
			data, err := QueryBytes(tc)
			if err != nil {
				t.Fatal(err)
			}
			resp := postSearch(t, ts.URL, data, "3")
			if len(resp.Matches) != 3 {
				t.Fatalf("expected 3 matches, got %d", len(resp.Matches))
			}
			if resp.Matches[0].Name != tc.ExpectedName {
				t.Errorf("top match = %s (%.1f%%), want %s", resp.Matches[0].Name, resp.Matches[0].Percent, tc.ExpectedName)
			}
			if resp.Verdict != models.VerdictConflict {
				t.Errorf("verdict = %s (top %.1f%%)", resp.Verdict, resp.TopPercent)
			}
			for i := 1; i < len(resp.Matches); i++ {
				if resp.Matches[i].Score > resp.Matches[i-1].Score {
					t.Errorf("matches not in descending score order: %+v", resp.Matches)
				}
			}
		})
	}
}

func TestE2E_KLargerThanCorpus(t *testing.T) {
	corpus := BuildCorpus()
	logosDir := filepath.Join(t.TempDir(), "logos")
	if err := WriteCorpus(logosDir, corpus); err != nil {
		t.Fatal(err)
	}
	ts := startServer(t, logosDir)
	data, err := QueryBytes(corpus.TestCases[0])
	if err != nil {
		t.Fatal(err)
	}
	resp := postSearch(t, ts.URL, data, "50")
	if len(resp.Matches) != corpus.TotalLogos || resp.Total != corpus.TotalLogos {
		t.Errorf("expected %d matches, got %d (total %d)", corpus.TotalLogos, len(resp.Matches), resp.Total)
	}
}

func TestE2E_EmptyDirectoryAndReindex(t *testing.T) {
	logosDir := filepath.Join(t.TempDir(), "logos")
	ts := startServer(t, logosDir)
	corpus := BuildCorpus()
	data, err := QueryBytes(corpus.TestCases[1])
	if err != nil {
		t.Fatal(err)
	}

	resp := postSearch(t, ts.URL, data, "")
	if resp.Verdict != models.VerdictNoData || len(resp.Matches) != 0 {
		t.Fatalf("empty catalog: verdict %s with %d matches", resp.Verdict, len(resp.Matches))
	}

	// Add one logo and reindex through the API.
	logo := corpus.Logos[1]
	ref, err := EncodeImage(".png", logo.Render(ReferenceSize))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logosDir, "added.png"), ref, 0644); err != nil {
		t.Fatal(err)
	}
	reindex, err := http.Post(ts.URL+"/api/v1/reindex", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	reindex.Body.Close()
	if reindex.StatusCode != http.StatusOK {
		t.Fatalf("reindex status %d", reindex.StatusCode)
	}

	resp = postSearch(t, ts.URL, data, "")
	if resp.Verdict != models.VerdictConflict || len(resp.Matches) != 1 || resp.Matches[0].Name != "added.png" {
		t.Errorf("after reindex: %+v", resp)
	}
}

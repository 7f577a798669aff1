package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
search:
  conflict_threshold: 70
embedding:
  timeout: 5s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Search.ConflictThreshold != 70 {
		t.Errorf("conflict_threshold = %v, want 70", cfg.Search.ConflictThreshold)
	}
	if cfg.Search.CriticalThreshold != 80 {
		t.Errorf("critical_threshold = %v, want 80", cfg.Search.CriticalThreshold)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("embedding timeout = %v", cfg.Embedding.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_explicitZeroThresholds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
search:
  conflict_threshold: 0
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.ConflictThreshold != 0 {
		t.Errorf("conflict_threshold = %v, want 0", cfg.Search.ConflictThreshold)
	}
	if cfg.Search.CriticalThreshold != 80 {
		t.Errorf("critical_threshold = %v, want 80", cfg.Search.CriticalThreshold)
	}

	cfg, err = Load(writeConfig(t, `
search:
  conflict_threshold: 0
  critical_threshold: 50
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.ConflictThreshold != 0 || cfg.Search.CriticalThreshold != 50 {
		t.Errorf("thresholds = %v / %v, want 0 / 50", cfg.Search.ConflictThreshold, cfg.Search.CriticalThreshold)
	}

	cfg, err = Load(writeConfig(t, `
search:
  conflict_threshold: 0
  critical_threshold: 0
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.ConflictThreshold != 0 || cfg.Search.CriticalThreshold != 0 {
		t.Errorf("thresholds = %v / %v, want 0 / 0", cfg.Search.ConflictThreshold, cfg.Search.CriticalThreshold)
	}
}

func TestLoad_searchSectionWithoutThresholds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
search:
  default_k: 3
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.DefaultK != 3 || cfg.Search.ConflictThreshold != 60 || cfg.Search.CriticalThreshold != 80 {
		t.Errorf("search = %+v", cfg.Search)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/references.db"
  vectors_path: "./data/indices/references.vec"
catalog:
  logos_dir: "./logos"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "db", "references.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "indices", "references.vec"); cfg.Storage.VectorsPath != want {
		t.Errorf("vectors_path = %s, want %s", cfg.Storage.VectorsPath, want)
	}
	if want := filepath.Join(dir, "logos"); cfg.Catalog.LogosDir != want {
		t.Errorf("logos_dir = %s, want %s", cfg.Catalog.LogosDir, want)
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !bgerr.HasCode(err, bgerr.CodeConfigLoadReadFailure) {
		t.Errorf("expected read failure code, got %v", err)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	if !bgerr.HasCode(err, bgerr.CodeConfigParseInvalidFormat) {
		t.Errorf("expected parse failure code, got %v", err)
	}
}

func TestLoad_rejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"conflict above 100", "search:\n  conflict_threshold: 120\n"},
		{"critical below conflict", "search:\n  conflict_threshold: 70\n  critical_threshold: 65\n"},
		{"negative min percent", "search:\n  min_percent: -1\n"},
		{"default k above max", "search:\n  default_k: 20\n  max_k: 10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !bgerr.HasCode(err, bgerr.CodeConfigValidateInvalidValue) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Server.MaxUploadBytes != 10<<20 {
		t.Errorf("default max upload: got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Embedding.Dimensions != 512 || cfg.Embedding.ImageSize != 224 {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if cfg.Search.ConflictThreshold != 60 || cfg.Search.CriticalThreshold != 80 {
		t.Errorf("default thresholds: got %v / %v", cfg.Search.ConflictThreshold, cfg.Search.CriticalThreshold)
	}
	if cfg.Search.DefaultK != 5 || cfg.Search.MaxK != 100 {
		t.Errorf("default k: got %d / %d", cfg.Search.DefaultK, cfg.Search.MaxK)
	}
	if cfg.Vector.IndexType != "memory" {
		t.Errorf("default index type: got %s", cfg.Vector.IndexType)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_criticalFollowsHighConflict(t *testing.T) {
	cfg := &Config{Search: SearchConfig{ConflictThreshold: 90}}
	ApplyDefaults(cfg)
	if cfg.Search.CriticalThreshold != 90 {
		t.Errorf("critical threshold = %v, want 90", cfg.Search.CriticalThreshold)
	}
}

func TestOptionalBools(t *testing.T) {
	f := false
	if !(&WatchConfig{}).EnabledOrDefault() {
		t.Error("watch should default to enabled")
	}
	if (&WatchConfig{Enabled: &f}).EnabledOrDefault() {
		t.Error("watch enabled=false should be honoured")
	}
	if !(&CatalogConfig{}).BuildOnStartOrDefault() {
		t.Error("build_on_start should default to true")
	}
	if (&CatalogConfig{BuildOnStart: &f}).BuildOnStartOrDefault() {
		t.Error("build_on_start=false should be honoured")
	}
}

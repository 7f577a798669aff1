// Package config provides configuration loading and structs for the BrandGuard server.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Watch     WatchConfig     `yaml:"watch"`
	Hints     HintsConfig     `yaml:"hints"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxUploadBytes caps the multipart body accepted by the search endpoint.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// StorageConfig holds the snapshot paths.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	VectorsPath  string `yaml:"vectors_path"`
}

// CatalogConfig holds the reference folder settings.
type CatalogConfig struct {
	LogosDir     string `yaml:"logos_dir"`
	BuildOnStart *bool  `yaml:"build_on_start"`
}

// BuildOnStartOrDefault returns whether a missing snapshot triggers a build; defaults to true.
func (c *CatalogConfig) BuildOnStartOrDefault() bool {
	if c.BuildOnStart != nil {
		return *c.BuildOnStart
	}
	return true
}

// EmbeddingConfig holds image encoder settings.
type EmbeddingConfig struct {
	ModelPath  string        `yaml:"model_path"`
	Dimensions int           `yaml:"dimensions"`
	ImageSize  int           `yaml:"image_size"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// VectorConfig selects the similarity index backend.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// SearchConfig holds query and verdict settings.
type SearchConfig struct {
	DefaultK          int     `yaml:"default_k"`
	MaxK              int     `yaml:"max_k"`
	ConflictThreshold float64 `yaml:"conflict_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
	MinPercent        float64 `yaml:"min_percent"`

	// conflictSet and criticalSet record thresholds present in the YAML; ApplyDefaults leaves those alone.
	conflictSet bool
	criticalSet bool
}

// UnmarshalYAML decodes the section and records which thresholds were present.
func (s *SearchConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SearchConfig
	if err := value.Decode((*plain)(s)); err != nil {
		return err
	}
	var present struct {
		ConflictThreshold *float64 `yaml:"conflict_threshold"`
		CriticalThreshold *float64 `yaml:"critical_threshold"`
	}
	if err := value.Decode(&present); err != nil {
		return err
	}
	s.conflictSet = present.ConflictThreshold != nil
	s.criticalSet = present.CriticalThreshold != nil
	return nil
}

// CacheConfig holds the optional shared Redis embedding cache. Empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// WatchConfig holds logos directory watch settings.
type WatchConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// EnabledOrDefault returns whether the watcher runs; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// HintsConfig toggles Cloud Vision brand hints.
type HintsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeConfigLoadReadFailure, "failed to read config", bgerr.FieldPath(path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, bgerr.Wrap(err, bgerr.CodeConfigParseInvalidFormat, "failed to parse config", bgerr.FieldPath(path))
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorsPath = expandPath(cfg.Storage.VectorsPath, configDir)
	cfg.Catalog.LogosDir = expandPath(cfg.Catalog.LogosDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would make verdicts meaningless.
func Validate(cfg *Config) error {
	s := cfg.Search
	if s.ConflictThreshold < 0 || s.ConflictThreshold > 100 {
		return bgerr.Errorf(bgerr.CodeConfigValidateInvalidValue, "conflict_threshold must be within [0, 100], got %v", s.ConflictThreshold)
	}
	if s.CriticalThreshold < s.ConflictThreshold || s.CriticalThreshold > 100 {
		return bgerr.Errorf(bgerr.CodeConfigValidateInvalidValue,
			"critical_threshold must be within [conflict_threshold, 100], got %v", s.CriticalThreshold)
	}
	if s.MinPercent < 0 || s.MinPercent > 100 {
		return bgerr.Errorf(bgerr.CodeConfigValidateInvalidValue, "min_percent must be within [0, 100], got %v", s.MinPercent)
	}
	if s.DefaultK < 1 || s.MaxK < s.DefaultK {
		return bgerr.Errorf(bgerr.CodeConfigValidateInvalidValue, "need 1 <= default_k <= max_k, got %d and %d", s.DefaultK, s.MaxK)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return bgerr.Errorf(bgerr.CodeConfigValidateInvalidValue, "embedding dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

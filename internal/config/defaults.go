package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/brandguard/data/db/references.db"
	}
	if cfg.Storage.VectorsPath == "" {
		cfg.Storage.VectorsPath = "/usr/local/var/brandguard/data/indices/references.vec"
	}
	if cfg.Catalog.LogosDir == "" {
		cfg.Catalog.LogosDir = "/usr/local/var/brandguard/logos"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/brandguard/data/models/clip-vit-b-32-vision.onnx"
	}
	// CLIP ViT-B/32 image tower.
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	if cfg.Embedding.ImageSize == 0 {
		cfg.Embedding.ImageSize = 224
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 5
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Search.ConflictThreshold == 0 && !cfg.Search.conflictSet {
		cfg.Search.ConflictThreshold = 60
	}
	if cfg.Search.CriticalThreshold == 0 && !cfg.Search.criticalSet {
		cfg.Search.CriticalThreshold = 80
		if cfg.Search.CriticalThreshold < cfg.Search.ConflictThreshold {
			cfg.Search.CriticalThreshold = cfg.Search.ConflictThreshold
		}
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 24 * time.Hour
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = time.Second
	}
}

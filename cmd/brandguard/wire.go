package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/catalog"
	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/embedding"
	"github.com/hyperjump/brandguard/internal/hints"
	"github.com/hyperjump/brandguard/internal/search"
	"github.com/hyperjump/brandguard/internal/snapshot"
	"github.com/hyperjump/brandguard/internal/storage"
	"github.com/hyperjump/brandguard/internal/vector"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// Components holds initialized services.
type Components struct {
	Storage *storage.SQLiteStorage
	Encoder *embedding.Service
	Catalog *catalog.Catalog
	Engine  *search.Engine
	Hints   *hints.VisionDetector
	redis   *redis.Client
}

// Close releases every component in reverse dependency order.
func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Hints != nil {
		_ = c.Hints.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	c.Storage = store

	svcOpts := []embedding.ServiceOption{
		embedding.WithLogger(logger),
		embedding.WithTimeout(cfg.Embedding.Timeout),
		embedding.WithCache(embedding.NewMemoryCache(cfg.Embedding.CacheSize)),
	}
	if cfg.Cache.RedisAddr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		svcOpts = append(svcOpts, embedding.WithCache(embedding.NewRedisCache(c.redis, cfg.Cache.TTL, logger)))
	}
	c.Encoder = embedding.NewService(newEncoder(cfg, logger), svcOpts...)

	holder := search.NewHolder()
	persister := snapshot.NewPersister(store, cfg.Storage.VectorsPath, snapshot.WithLogger(logger))
	c.Catalog = catalog.New(cfg, c.Encoder, persister, holder, catalog.WithLogger(logger))

	engineOpts := []search.EngineOption{search.WithLogger(logger)}
	if cfg.Hints.Enabled {
		detector, err := hints.NewVisionDetector(ctx)
		if err != nil {
			logger.Warn("brand hints disabled", zap.Error(err))
		} else {
			c.Hints = detector
			engineOpts = append(engineOpts, search.WithHints(detector))
		}
	}
	c.Engine = search.NewEngine(holder, c.Encoder, &cfg.Search, engineOpts...)

	logger.Info("components initialized",
		zap.String("encoder", c.Encoder.Encoder().Type()),
		zap.Int("dimensions", c.Encoder.Dimensions()),
		zap.String("index_type", cfg.Vector.IndexType),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()),
		zap.Bool("redis_cache", c.redis != nil),
		zap.Bool("hints", c.Hints != nil))
	return c, nil
}

// newEncoder loads the ONNX model and falls back to the deterministic mock encoder
// when the model or runtime is unavailable. Status reports which one is active.
func newEncoder(cfg *config.Config, logger *zap.Logger) embedding.Encoder {
	enc, err := embedding.NewONNXEncoder(cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.ImageSize)
	if err == nil {
		return enc
	}
	logger.Warn("ONNX encoder unavailable, using mock encoder",
		zap.String("model_path", cfg.Embedding.ModelPath),
		zap.String("code", string(bgerr.CodeOf(err))),
		zap.Error(err))
	return embedding.NewMockEncoder(cfg.Embedding.Dimensions, cfg.Embedding.ImageSize)
}

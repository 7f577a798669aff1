package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisKeyPrefix namespaces embedding keys in a shared Redis.
const RedisKeyPrefix = "brandguard:emb:"

// RedisCache shares embeddings between processes. A nil client disables it.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache wraps rdb. ttl <= 0 stores keys without expiry.
func NewRedisCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get fetches key; decode errors and Redis failures are treated as misses.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	if c.rdb == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis embedding get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	v, ok := decodeVector(b)
	if !ok {
		c.logger.Warn("redis embedding corrupt", zap.String("key", key), zap.Int("bytes", len(b)))
		return nil, false
	}
	return v, true
}

// Set stores value under key; failures are logged only.
func (c *RedisCache) Set(ctx context.Context, key string, value []float32) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, RedisKeyPrefix+key, encodeVector(value), c.ttl).Err(); err != nil {
		c.logger.Warn("redis embedding set failed", zap.String("key", key), zap.Error(err))
	}
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

// decodeVector rejects payloads that are not whole float32s or hold NaN or Inf.
func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, finite(v)
}

package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, time.Hour, nil)
	want := []float32{0.5, -0.25, 1}
	mock.ExpectGet(RedisKeyPrefix + "abc").SetVal(string(encodeVector(want)))

	got, ok := c.Get(context.Background(), "abc")
	require.True(t, ok)
	assert.Equal(t, want, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissAndError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, time.Hour, nil)
	mock.ExpectGet(RedisKeyPrefix + "nil").RedisNil()
	mock.ExpectGet(RedisKeyPrefix + "down").SetErr(errors.New("connection refused"))
	mock.ExpectGet(RedisKeyPrefix + "bad").SetVal("abc")

	for _, key := range []string{"nil", "down", "bad"} {
		_, ok := c.Get(context.Background(), key)
		assert.False(t, ok, key)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, 2*time.Hour, nil)
	v := []float32{1, 2}
	mock.ExpectSet(RedisKeyPrefix+"k", encodeVector(v), 2*time.Hour).SetVal("OK")

	c.Set(context.Background(), "k", v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_NilClient(t *testing.T) {
	c := NewRedisCache(nil, time.Hour, nil)
	c.Set(context.Background(), "k", []float32{1})
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestDecodeVector(t *testing.T) {
	_, ok := decodeVector(nil)
	assert.False(t, ok)
	_, ok = decodeVector([]byte{1, 2, 3})
	assert.False(t, ok)
	v, ok := decodeVector(encodeVector([]float32{3.5}))
	assert.True(t, ok)
	assert.Equal(t, []float32{3.5}, v)
	_, ok = decodeVector(encodeVector([]float32{1, float32(math.Inf(1))}))
	assert.False(t, ok)
	_, ok = decodeVector(encodeVector([]float32{float32(math.NaN())}))
	assert.False(t, ok)
}

func TestRedisCache_NonFiniteIsMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, time.Hour, nil)
	mock.ExpectGet(RedisKeyPrefix + "nan").SetVal(string(encodeVector([]float32{float32(math.NaN()), 1})))

	_, ok := c.Get(context.Background(), "nan")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

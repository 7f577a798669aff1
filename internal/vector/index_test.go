package vector

import (
	"context"
	"math"
	"math/rand"
	"testing"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// availableTypes lists every backend compiled into this test binary.
func availableTypes() []IndexType {
	types := []IndexType{IndexTypeMemory, IndexTypeVPTree}
	if IsFAISSAvailable() {
		types = append(types, IndexTypeFAISS)
	}
	return types
}

func buildIndex(t *testing.T, typ IndexType, dims int, vectors [][]float32) Index {
	t.Helper()
	idx, err := NewIndex(string(typ), dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	ids := make([]int, len(vectors))
	for i := range ids {
		ids[i] = i
	}
	require.NoError(t, idx.Build(context.Background(), ids, vectors))
	return idx
}

func TestIndex_TwoVectorExample(t *testing.T) {
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 2, [][]float32{{1, 0}, {0, 1}})
			results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, 0, results[0].ID)
			assert.InDelta(t, 1.0, results[0].Score, 1e-6)
			assert.Equal(t, 1, results[1].ID)
			assert.InDelta(t, 0.0, results[1].Score, 1e-6)
		})
	}
}

func TestIndex_ResultCountIsMinKN(t *testing.T) {
	vecs := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 3, vecs)
			for _, k := range []int{1, 2, 3, 10} {
				results, err := idx.Search(context.Background(), []float32{1, 0, 0}, k)
				require.NoError(t, err)
				assert.Len(t, results, int(math.Min(float64(k), 3)))
			}
		})
	}
}

func TestIndex_EmptyIndex(t *testing.T) {
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 3, nil)
			results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			assert.Empty(t, results)
			assert.Equal(t, 0, idx.Size())
		})
	}
}

func TestIndex_InvalidArguments(t *testing.T) {
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 3, [][]float32{{1, 0, 0}})
			_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 0)
			assert.True(t, bgerr.HasCode(err, bgerr.CodeSearchArgumentInvalid), "k=0: %v", err)

			_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
			assert.True(t, bgerr.HasCode(err, bgerr.CodeSearchArgumentInvalid), "dim mismatch: %v", err)
		})
	}
}

func TestIndex_BuildRejectsBadInput(t *testing.T) {
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			ctx := context.Background()
			idx, err := NewIndex(string(typ), 2)
			require.NoError(t, err)
			defer idx.Close()

			assert.Error(t, idx.Build(ctx, []int{0, 1}, [][]float32{{1, 0}}), "length mismatch")
			assert.Error(t, idx.Build(ctx, []int{0}, [][]float32{{1, 0, 0}}), "dimension mismatch")
			assert.Error(t, idx.Build(ctx, []int{3, 3}, [][]float32{{1, 0}, {0, 1}}), "duplicate id")
		})
	}
}

func TestIndex_NormalizesAtBuildAndQuery(t *testing.T) {
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 2, [][]float32{{10, 0}, {3, 4}})
			results, err := idx.Search(context.Background(), []float32{0.5, 0}, 2)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.InDelta(t, 1.0, results[0].Score, 1e-6)
			assert.InDelta(t, 0.6, results[1].Score, 1e-6)
		})
	}
}

func TestIndex_TiesBrokenByInsertionOrder(t *testing.T) {
	vecs := [][]float32{{0, 1}, {1, 0}, {2, 0}, {1, 0}, {0, -1}}
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 2, vecs)
			results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, 1, results[0].ID)
			assert.Equal(t, 2, results[1].ID)
		})
	}
}

func TestIndex_ZeroVectors(t *testing.T) {
	vecs := [][]float32{{0, 0}, {-1, 0}, {1, 0}}
	for _, typ := range []IndexType{IndexTypeMemory, IndexTypeVPTree} {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 2, vecs)

			results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
			require.NoError(t, err)
			require.Len(t, results, 3)
			assert.Equal(t, []int{2, 0, 1}, []int{results[0].ID, results[1].ID, results[2].ID})
			assert.Equal(t, 0.0, results[1].Score)

			results, err = idx.Search(context.Background(), []float32{0, 0}, 2)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1}, []int{results[0].ID, results[1].ID})
		})
	}
}

func TestIndex_SelfMatchRanksFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vecs := randomVectors(rng, 64, 16)
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 16, vecs)
			for i, v := range vecs {
				results, err := idx.Search(context.Background(), v, 1)
				require.NoError(t, err)
				require.Len(t, results, 1)
				assert.Equal(t, i, results[0].ID)
				assert.InDelta(t, 1.0, results[0].Score, 1e-5)
			}
		})
	}
}

func TestVPTree_AgreesWithExhaustive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vecs := randomVectors(rng, 300, 24)
	mem := buildIndex(t, IndexTypeMemory, 24, vecs)
	vp := buildIndex(t, IndexTypeVPTree, 24, vecs)
	ctx := context.Background()
	for q := 0; q < 50; q++ {
		query := randomVectors(rng, 1, 24)[0]
		for _, k := range []int{1, 5, 17} {
			want, err := mem.Search(ctx, query, k)
			require.NoError(t, err)
			got, err := vp.Search(ctx, query, k)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].ID, got[i].ID, "query %d k %d rank %d", q, k, i)
				assert.Equal(t, want[i].Score, got[i].Score)
			}
		}
	}
}

func TestIndex_ScoresDescending(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vecs := randomVectors(rng, 100, 8)
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 8, vecs)
			results, err := idx.Search(context.Background(), randomVectors(rng, 1, 8)[0], 20)
			require.NoError(t, err)
			for i := 1; i < len(results); i++ {
				assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
			}
			for _, r := range results {
				assert.LessOrEqual(t, r.Score, 1.0+1e-6)
				assert.GreaterOrEqual(t, r.Score, -1.0-1e-6)
			}
		})
	}
}

func TestIndex_BuildTwiceFails(t *testing.T) {
	for _, typ := range availableTypes() {
		t.Run(string(typ), func(t *testing.T) {
			idx := buildIndex(t, typ, 2, [][]float32{{1, 0}})
			assert.Error(t, idx.Build(context.Background(), []int{1}, [][]float32{{0, 1}}))
		})
	}
}

func TestNormalized(t *testing.T) {
	v := []float32{3, 4}
	n := Normalized(v)
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, v, "input must not be modified")
	assert.Equal(t, []float32{0, 0}, Normalized([]float32{0, 0}))
	assert.InDelta(t, 1.0, L2Norm(n), 1e-6)
}

func randomVectors(rng *rand.Rand, n, dims int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		out[i] = v
	}
	return out
}

package search

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/reference"
	"github.com/hyperjump/brandguard/internal/vector"
)

func defaultPolicy() Policy {
	return Policy{ConflictThreshold: 60, CriticalThreshold: 80}
}

func twoEntryStore(t *testing.T) *reference.Store {
	t.Helper()
	s, err := reference.NewStore("v", 2, []*models.ReferenceEntry{
		{ID: 0, Name: "A.png", Path: "/logos/A.png", Embedding: []float32{1, 0}},
		{ID: 1, Name: "B.png", Path: "/logos/B.png", Embedding: []float32{0, 1}},
	}, 0, time.Now())
	require.NoError(t, err)
	return s
}

func TestPercent(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{1, 100},
		{0.6, 60},
		{0, 0},
		{-0.4, 0},
		{1.0000002, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percent(tt.score), 1e-9, "score %v", tt.score)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	p := defaultPolicy()
	tests := []struct {
		percent  float64
		verdict  models.Verdict
		severity models.Severity
	}{
		{0, models.VerdictClean, models.SeveritySafe},
		{59.99, models.VerdictClean, models.SeveritySafe},
		{60, models.VerdictClean, models.SeveritySafe},
		{60.0001, models.VerdictConflict, models.SeverityWarning},
		{80, models.VerdictConflict, models.SeverityWarning},
		{80.5, models.VerdictConflict, models.SeverityCritical},
		{100, models.VerdictConflict, models.SeverityCritical},
	}
	for _, tt := range tests {
		v, s := p.Classify(tt.percent)
		assert.Equal(t, tt.verdict, v, "percent %v", tt.percent)
		assert.Equal(t, tt.severity, s, "percent %v", tt.percent)
	}
}

func TestClassify_CriticalNeverBelowConflict(t *testing.T) {
	p := Policy{ConflictThreshold: 90, CriticalThreshold: 50}
	v, s := p.Classify(70)
	assert.Equal(t, models.VerdictClean, v)
	assert.Equal(t, models.SeveritySafe, s)
}

func TestEvaluate_TwoVectorExample(t *testing.T) {
	store := twoEntryStore(t)
	idx, err := vector.NewMemoryIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Build(t.Context(), store.IDs(), store.Vectors()))
	hits, err := idx.Search(t.Context(), []float32{1, 0}, 2)
	require.NoError(t, err)

	ev := defaultPolicy().Evaluate(hits, store)
	require.Len(t, ev.Matches, 2)
	assert.Equal(t, "A.png", ev.Matches[0].Name)
	assert.Equal(t, 1, ev.Matches[0].Rank)
	assert.InDelta(t, 100, ev.Matches[0].Percent, 1e-9)
	assert.Equal(t, "B.png", ev.Matches[1].Name)
	assert.InDelta(t, 0, ev.Matches[1].Percent, 1e-9)
	assert.Equal(t, models.VerdictConflict, ev.Verdict)
	assert.Equal(t, models.SeverityCritical, ev.Severity)
	assert.InDelta(t, 100, ev.TopPercent, 1e-9)
}

func TestEvaluate_NoHits(t *testing.T) {
	ev := defaultPolicy().Evaluate(nil, twoEntryStore(t))
	assert.Equal(t, models.VerdictNoData, ev.Verdict)
	assert.Equal(t, models.SeverityNone, ev.Severity)
	assert.NotNil(t, ev.Matches)
	assert.Empty(t, ev.Matches)
}

func TestEvaluate_MinPercentKeepsVerdict(t *testing.T) {
	p := defaultPolicy()
	p.MinPercent = 50
	hits := []*vector.Result{{ID: 1, Score: 0.7}, {ID: 0, Score: 0.3}}
	ev := p.Evaluate(hits, twoEntryStore(t))
	require.Len(t, ev.Matches, 1)
	assert.Equal(t, 1, ev.Matches[0].ID)
	assert.Equal(t, models.VerdictConflict, ev.Verdict)

	p.MinPercent = 90
	ev = p.Evaluate(hits, twoEntryStore(t))
	assert.Empty(t, ev.Matches)
	assert.Equal(t, models.VerdictConflict, ev.Verdict)
	assert.InDelta(t, 70, ev.TopPercent, 1e-9)
}

func TestEvaluate_Deterministic(t *testing.T) {
	hits := []*vector.Result{{ID: 0, Score: 0.61}, {ID: 1, Score: 0.2}}
	a := defaultPolicy().Evaluate(hits, twoEntryStore(t))
	b := defaultPolicy().Evaluate(hits, twoEntryStore(t))
	assert.Equal(t, a, b)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(&config.SearchConfig{ConflictThreshold: 65, CriticalThreshold: 85, MinPercent: 10})
	assert.Equal(t, Policy{ConflictThreshold: 65, CriticalThreshold: 85, MinPercent: 10}, p)
}

func TestRank(t *testing.T) {
	ranked := Rank([]*vector.Result{{ID: 7, Score: 0.9}, {ID: 2, Score: 0.9}, {ID: 5, Score: -0.1}})
	require.Len(t, ranked, 3)
	for i, m := range ranked {
		assert.Equal(t, i+1, m.Rank)
	}
	assert.Equal(t, 7, ranked[0].EntryID)
	assert.Equal(t, 2, ranked[1].EntryID)
	assert.InDelta(t, -0.1, ranked[2].Score, 1e-9)
	assert.Empty(t, Rank(nil))
}

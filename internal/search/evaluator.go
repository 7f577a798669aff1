package search

import (
	"math"

	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/reference"
	"github.com/hyperjump/brandguard/internal/vector"
)

// Policy turns raw similarity into percentages and a verdict.
// Thresholds are exclusive: a top match exactly at ConflictThreshold is clean.
type Policy struct {
	ConflictThreshold float64
	CriticalThreshold float64
	// MinPercent hides weaker matches from the list; it never changes the verdict.
	MinPercent float64
}

// PolicyFromConfig reads the thresholds from cfg.
func PolicyFromConfig(cfg *config.SearchConfig) Policy {
	return Policy{
		ConflictThreshold: cfg.ConflictThreshold,
		CriticalThreshold: cfg.CriticalThreshold,
		MinPercent:        cfg.MinPercent,
	}
}

// Percent maps a cosine score to [0, 100]. Negative similarity is 0 and
// floating-point overshoot above 1 is capped.
func Percent(score float64) float64 {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	return math.Min(score, 1) * 100
}

// Classify grades the top percentage.
func (p Policy) Classify(percent float64) (models.Verdict, models.Severity) {
	switch {
	case percent > p.CriticalThreshold && percent > p.ConflictThreshold:
		return models.VerdictConflict, models.SeverityCritical
	case percent > p.ConflictThreshold:
		return models.VerdictConflict, models.SeverityWarning
	default:
		return models.VerdictClean, models.SeveritySafe
	}
}

// Evaluation is the ranked, thresholded outcome of a query.
type Evaluation struct {
	Verdict    models.Verdict
	Severity   models.Severity
	TopPercent float64
	Matches    []*models.RankedMatch
}

// Evaluate resolves hits against store, ranks them 1..n in hit order and
// classifies the top hit. No hits means NO_DATA.
func (p Policy) Evaluate(hits []*vector.Result, store *reference.Store) *Evaluation {
	ev := &Evaluation{
		Verdict:  models.VerdictNoData,
		Severity: models.SeverityNone,
		Matches:  []*models.RankedMatch{},
	}
	if len(hits) == 0 {
		return ev
	}

	ranked := Rank(hits)
	ev.TopPercent = Percent(ranked[0].Score)
	ev.Verdict, ev.Severity = p.Classify(ev.TopPercent)
	for _, h := range ranked {
		pct := Percent(h.Score)
		if pct < p.MinPercent {
			continue
		}
		m := &models.RankedMatch{Rank: h.Rank, ID: h.EntryID, Score: h.Score, Percent: pct}
		if e, ok := store.Get(h.EntryID); ok {
			m.Name = e.Name
			m.Path = e.Path
		}
		ev.Matches = append(ev.Matches, m)
	}
	return ev
}

// Rank numbers index hits 1..n in the order the index returned them.
func Rank(hits []*vector.Result) []*models.MatchResult {
	out := make([]*models.MatchResult, len(hits))
	for i, h := range hits {
		out[i] = &models.MatchResult{EntryID: h.ID, Score: h.Score, Rank: i + 1}
	}
	return out
}

package models

// Verdict is the outcome of comparing a candidate against the reference set.
type Verdict string

const (
	VerdictConflict Verdict = "CONFLICT"
	VerdictClean    Verdict = "CLEAN"
	// VerdictNoData means the reference set was empty.
	VerdictNoData Verdict = "NO_DATA"
)

// Severity grades a verdict for display.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeveritySafe     Severity = "SAFE"
	SeverityNone     Severity = "NONE"
)

// MatchResult is a raw index hit.
type MatchResult struct {
	EntryID int     `json:"entry_id"`
	Score   float64 `json:"score"` // cosine similarity in [-1, 1]
	Rank    int     `json:"rank"`
}

// RankedMatch is a match resolved against the reference store.
type RankedMatch struct {
	Rank    int     `json:"rank"`
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Percent float64 `json:"percent"`
}

// BrandHint is an external logo recognition result. It never affects the verdict.
type BrandHint struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Verdict  Verdict  `json:"verdict"`
	Severity Severity `json:"severity"`
	// Threshold is the conflict threshold in percent; a top match strictly above it is a conflict.
	Threshold       float64        `json:"threshold"`
	TopPercent      float64        `json:"top_percent"`
	Matches         []*RankedMatch `json:"matches"`
	Total           int            `json:"total"`
	SnapshotVersion string         `json:"snapshot_version,omitempty"`
	QueryTime       int64          `json:"query_time_ms"`
	BrandHints      []*BrandHint   `json:"brand_hints,omitempty"`
}

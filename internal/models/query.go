package models

import (
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// SearchQuery is a candidate logo lookup.
type SearchQuery struct {
	Image []byte `json:"-"`
	// K is the number of matches to return; zero means the configured default.
	K int `json:"k,omitempty"`
	// Hints requests Cloud Vision brand hints when the server has them enabled.
	Hints bool `json:"hints,omitempty"`
}

// Validate fills in the default K and rejects empty images and K outside [1, maxK].
func (q *SearchQuery) Validate(defaultK, maxK int) error {
	if len(q.Image) == 0 {
		return bgerr.New(bgerr.CodeSearchArgumentInvalid, "image cannot be empty")
	}
	if q.K < 0 {
		return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "k must be at least 1, got %d", q.K)
	}
	if q.K == 0 {
		q.K = defaultK
	}
	if maxK > 0 && q.K > maxK {
		return bgerr.Errorf(bgerr.CodeSearchArgumentInvalid, "k must be at most %d, got %d", maxK, q.K)
	}
	return nil
}

package models

import (
	"testing"

	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

func TestSearchQuery_Validate(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G'}
	tests := []struct {
		name    string
		query   *SearchQuery
		wantK   int
		wantErr bool
	}{
		{"empty image", &SearchQuery{}, 0, true},
		{"negative k", &SearchQuery{Image: img, K: -1}, 0, true},
		{"zero k uses default", &SearchQuery{Image: img}, 5, false},
		{"explicit k kept", &SearchQuery{Image: img, K: 3}, 3, false},
		{"k at max", &SearchQuery{Image: img, K: 100}, 100, false},
		{"k above max", &SearchQuery{Image: img, K: 101}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 100)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !bgerr.HasCode(err, bgerr.CodeSearchArgumentInvalid) {
					t.Errorf("expected invalid argument code, got %v", err)
				}
				return
			}
			if tt.query.K != tt.wantK {
				t.Errorf("K = %d, want %d", tt.query.K, tt.wantK)
			}
		})
	}
}

package search

import (
	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/models"
)

// ProcessQuery validates the query and applies the configured k bounds.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	return query.Validate(cfg.DefaultK, cfg.MaxK)
}

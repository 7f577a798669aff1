// Package search answers "does this logo conflict with a protected one?" against the current snapshot.
package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/internal/embedding"
	"github.com/hyperjump/brandguard/internal/models"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// HintDetector names brands visible in an image. Hints are informational only.
type HintDetector interface {
	DetectLogos(ctx context.Context, image []byte) ([]*models.BrandHint, error)
}

// Engine encodes a candidate image and ranks it against the published snapshot.
type Engine struct {
	holder  *Holder
	encoder *embedding.Service
	config  *config.SearchConfig
	policy  Policy
	hints   HintDetector
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHints enables brand hints for queries that ask for them.
func WithHints(d HintDetector) EngineOption {
	return func(e *Engine) { e.hints = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine reading snapshots from holder.
func NewEngine(holder *Holder, encoder *embedding.Service, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		holder:  holder,
		encoder: encoder,
		config:  cfg,
		policy:  PolicyFromConfig(cfg),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Policy returns the verdict policy in effect.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Search validates query, encodes the image and evaluates the top matches.
// It fails with search-unavailable when no snapshot is loaded, with an encoder
// failure when the image cannot be encoded, and with invalid-argument for bad k.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	if e.holder.Current() == nil {
		return nil, bgerr.New(bgerr.CodeSearchUnavailable, "search unavailable: no reference snapshot loaded")
	}

	var (
		hints []*models.BrandHint
		wg    sync.WaitGroup
	)
	if query.Hints && e.hints != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := e.hints.DetectLogos(ctx, query.Image)
			if err != nil {
				e.logger.Warn("brand hints failed", zap.Error(err))
				return
			}
			hints = found
		}()
	}

	vec, _, err := e.encoder.EncodeBytes(ctx, query.Image)
	if err != nil {
		wg.Wait()
		return nil, err
	}

	snap, release, err := e.holder.Acquire()
	if err != nil {
		wg.Wait()
		return nil, err
	}
	defer release()

	var ev *Evaluation
	if snap.Store.Len() == 0 {
		ev = e.policy.Evaluate(nil, snap.Store)
	} else {
		results, err := snap.Index.Search(ctx, vec, query.K)
		if err != nil {
			wg.Wait()
			return nil, err
		}
		ev = e.policy.Evaluate(results, snap.Store)
	}
	wg.Wait()

	resp := &models.SearchResponse{
		Verdict:         ev.Verdict,
		Severity:        ev.Severity,
		Threshold:       e.policy.ConflictThreshold,
		TopPercent:      ev.TopPercent,
		Matches:         ev.Matches,
		Total:           snap.Store.Len(),
		SnapshotVersion: snap.Store.Version(),
		QueryTime:       time.Since(startTime).Milliseconds(),
		BrandHints:      hints,
	}
	e.logger.Debug("search completed",
		zap.String("verdict", string(resp.Verdict)),
		zap.Float64("top_percent", resp.TopPercent),
		zap.Int("matches", len(resp.Matches)),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}

// References lists entries of the current snapshot, filtered by name when
// query is non-empty. The second value is a spelling suggestion when the
// filter matched nothing.
func (e *Engine) References(ctx context.Context, query string, limit int) ([]*models.ReferenceEntry, string, error) {
	snap, release, err := e.holder.Acquire()
	if err != nil {
		return nil, "", err
	}
	defer release()

	if query == "" || snap.Names == nil {
		entries := snap.Store.Entries()
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		return entries, "", nil
	}

	ids, err := snap.Names.Search(ctx, query, limit)
	if err != nil {
		return nil, "", err
	}
	entries := make([]*models.ReferenceEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := snap.Store.Get(id); ok {
			entries = append(entries, entry)
		}
	}
	suggestion := ""
	if len(entries) == 0 {
		suggestion = snap.Names.Suggest(query)
	}
	return entries, suggestion, nil
}

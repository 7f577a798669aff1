// Package keyword indexes reference logo names with Bleve for gallery filtering.
package keyword

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/brandguard/internal/models"
)

// fuzzyMinLen is the shortest term that gets edit-distance matching; shorter terms match too much.
const fuzzyMinLen = 4

type nameDoc struct {
	Name string `json:"name"`
}

// NameIndex is an in-memory Bleve index over reference names. It is built with
// a snapshot and never modified afterwards.
type NameIndex struct {
	index bleve.Index
	// terms maps each analyzed name token to the number of entries containing it.
	terms map[string]int
}

// NewNameIndex indexes the names of entries. Document ids are the entry ids.
func NewNameIndex(entries []*models.ReferenceEntry) (*NameIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, so brand names match as typed.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}

	n := &NameIndex{index: index, terms: make(map[string]int)}
	batch := index.NewBatch()
	for _, e := range entries {
		name := NormalizeName(e.Name)
		if err := batch.Index(strconv.Itoa(e.ID), nameDoc{Name: name}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index name %q: %w", e.Name, err)
		}
		seen := make(map[string]bool)
		for _, t := range tokenize(name) {
			if !seen[t] {
				seen[t] = true
				n.terms[t]++
			}
		}
	}
	if batch.Size() == 0 {
		return n, nil
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to build name index: %w", err)
	}
	return n, nil
}

// NormalizeName strips the extension and turns underscores, dashes and dots
// into spaces so "acme_corp-logo.png" is searchable as "acme corp logo".
func NormalizeName(name string) string {
	return separators.Replace(strings.TrimSuffix(name, filepath.Ext(name)))
}

var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// tokenize splits text into lowercase terms.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(separators.Replace(text)))
}

// Search returns the ids of entries whose names match every term of query,
// best first. Each term matches exactly, as a prefix, or (for longer terms)
// within one edit. An empty query returns nil.
func (n *NameIndex) Search(ctx context.Context, query string, limit int) ([]int, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	perTerm := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		mq := bleve.NewMatchQuery(term)
		mq.SetField("name")
		pq := bleve.NewPrefixQuery(term)
		pq.SetField("name")
		alternatives := []blevequery.Query{mq, pq}
		if len([]rune(term)) >= fuzzyMinLen {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(1)
			fq.SetField("name")
			alternatives = append(alternatives, fq)
		}
		perTerm = append(perTerm, bleve.NewDisjunctionQuery(alternatives...))
	}

	size := limit
	if size <= 0 {
		count, err := n.index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("name index count failed: %w", err)
		}
		size = int(count)
	}
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(perTerm...))
	req.Size = size
	res, err := n.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("name search failed: %w", err)
	}

	type hit struct {
		id    int
		score float64
	}
	hits := make([]hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.Atoi(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, hit{id: id, score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

// DocCount returns the number of indexed names.
func (n *NameIndex) DocCount() (uint64, error) {
	return n.index.DocCount()
}

// Close closes the Bleve index.
func (n *NameIndex) Close() error {
	return n.index.Close()
}

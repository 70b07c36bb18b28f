// Package knowledge provides retrieval over the per-type legal knowledge
// collections: statutes, precedent cases and judicial interpretations.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/embedding"
	"github.com/legalsearch/legalrag/fusion"
	"github.com/legalsearch/legalrag/schema"
	"github.com/legalsearch/legalrag/vectordb"
)

// Collection names, one per knowledge type.
const (
	CollectionStatutes        = "legal_statutes"
	CollectionCases           = "legal_cases"
	CollectionInterpretations = "judicial_interpretations"
)

// embedPrefixChars bounds how much item content participates in the
// embedding alongside the title.
const embedPrefixChars = 500

func collectionFor(t schema.KnowledgeType) (string, error) {
	switch t {
	case schema.KnowledgeTypeStatute:
		return CollectionStatutes, nil
	case schema.KnowledgeTypeCase:
		return CollectionCases, nil
	case schema.KnowledgeTypeInterpretation:
		return CollectionInterpretations, nil
	default:
		return "", fmt.Errorf("unknown knowledge type: %s", t)
	}
}

// Service is the knowledge retrieval service. Collections are created
// lazily on first use and the creation is idempotent.
type Service struct {
	store    vectordb.Store
	embedder embedding.Provider

	semanticWeight float64
	rrfK           int

	mu      sync.Mutex
	ensured map[string]bool
}

func NewService(store vectordb.Store, embedder embedding.Provider, cfg config.RetrievalConfig) *Service {
	return &Service{
		store:          store,
		embedder:       embedder,
		semanticWeight: cfg.SemanticWeight,
		rrfK:           cfg.RRFK,
		ensured:        make(map[string]bool),
	}
}

func (s *Service) ensureCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[collection] {
		return nil
	}
	if err := s.store.EnsureCollection(ctx, collection, s.embedder.Dimensions()); err != nil {
		return fmt.Errorf("ensure collection %s failed, err: %w", collection, err)
	}
	s.ensured[collection] = true
	return nil
}

// UpsertItem embeds and stores a knowledge item, replacing any existing
// item with the same id. A missing id is generated. The embedding covers
// the title plus a bounded content prefix.
func (s *Service) UpsertItem(ctx context.Context, item schema.KnowledgeItem) (string, error) {
	collection, err := collectionFor(item.KnowledgeType)
	if err != nil {
		return "", err
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return "", err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	vec, err := s.embedder.GetEmbedding(ctx, embedText(item))
	if err != nil {
		return "", fmt.Errorf("embed item %s failed, err: %w", item.ID, err)
	}
	item.Vector = vec
	if err := s.store.Upsert(ctx, collection, item); err != nil {
		return "", err
	}
	return item.ID, nil
}

func embedText(item schema.KnowledgeItem) string {
	content := item.Content
	if runes := []rune(content); len(runes) > embedPrefixChars {
		content = string(runes[:embedPrefixChars])
	}
	if title, ok := item.Metadata["title"].(string); ok && title != "" {
		return title + "\n" + content
	}
	return content
}

func (s *Service) DeleteItem(ctx context.Context, t schema.KnowledgeType, id string) error {
	collection, err := collectionFor(t)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return err
	}
	return s.store.Delete(ctx, collection, id)
}

// searchType runs a pure semantic search against one type's collection.
func (s *Service) searchType(ctx context.Context, t schema.KnowledgeType, vector []float32, topK int, filter schema.Filter) ([]schema.SearchResult, error) {
	collection, err := collectionFor(t)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}
	results, err := s.store.Search(ctx, collection, vector, &schema.SearchOptions{TopK: topK, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("search %s failed, err: %w", collection, err)
	}
	for i := range results {
		results[i].Item.KnowledgeType = t
	}
	return results, nil
}

// Search fans out a semantic search across the selected knowledge types and
// returns the per-type top-k lists. A type whose search fails contributes an
// empty list; the error is returned only when every type fails.
func (s *Service) Search(ctx context.Context, query string, types []schema.KnowledgeType, topK int, filter schema.Filter) (map[schema.KnowledgeType][]schema.SearchResult, error) {
	if len(types) == 0 {
		types = schema.AllKnowledgeTypes()
	}
	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed, err: %w", err)
	}
	perType := make(map[schema.KnowledgeType][]schema.SearchResult, len(types))
	var lastErr error
	failures := 0
	for _, t := range types {
		results, err := s.searchType(ctx, t, vector, topK, filter)
		if err != nil {
			logger.Warnf("knowledge search for type %s failed: %v", t, err)
			lastErr = err
			failures++
			perType[t] = nil
			continue
		}
		perType[t] = results
	}
	if failures == len(types) {
		return nil, fmt.Errorf("all knowledge searches failed, err: %w", lastErr)
	}
	return perType, nil
}

// MultiSourceSearch is the generic multi-type search: per-type lists plus a
// globally merged list sorted by raw score descending.
func (s *Service) MultiSourceSearch(ctx context.Context, query string, types []schema.KnowledgeType, topK int, filter schema.Filter) (map[schema.KnowledgeType][]schema.SearchResult, []schema.SearchResult, error) {
	perType, err := s.Search(ctx, query, types, topK, filter)
	if err != nil {
		return nil, nil, err
	}
	var merged []schema.SearchResult
	for _, results := range perType {
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return perType, merged, nil
}

// SearchStatutes searches the statute collection, optionally filtered by
// law category and law name.
func (s *Service) SearchStatutes(ctx context.Context, query string, topK int, lawCategory, lawName string) ([]schema.SearchResult, error) {
	filter := schema.Filter{}
	if lawCategory != "" {
		filter["law_category"] = lawCategory
	}
	if lawName != "" {
		filter["law_name"] = lawName
	}
	if len(filter) == 0 {
		filter = nil
	}
	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed, err: %w", err)
	}
	return s.searchType(ctx, schema.KnowledgeTypeStatute, vector, topK, filter)
}

// SearchCases searches the precedent case collection, optionally filtered
// by case type.
func (s *Service) SearchCases(ctx context.Context, query string, topK int, caseType string) ([]schema.SearchResult, error) {
	var filter schema.Filter
	if caseType != "" {
		filter = schema.Filter{"case_type": caseType}
	}
	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed, err: %w", err)
	}
	return s.searchType(ctx, schema.KnowledgeTypeCase, vector, topK, filter)
}

// HybridSearch blends semantic and lexical retrieval over one type with
// weighted reciprocal rank fusion. When the lexical channel fails the
// semantic list is returned as-is; when the semantic channel fails the
// lexical list stands in. Only both channels failing is an error.
func (s *Service) HybridSearch(ctx context.Context, t schema.KnowledgeType, query string, topK int, filter schema.Filter) ([]schema.SearchResult, error) {
	collection, err := collectionFor(t)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}

	var semantic []schema.SearchResult
	vector, semErr := s.embedder.GetEmbedding(ctx, query)
	if semErr == nil {
		semantic, semErr = s.store.Search(ctx, collection, vector, &schema.SearchOptions{TopK: topK, Filter: filter})
	}
	lexical, lexErr := s.store.TextSearch(ctx, collection, query, &schema.SearchOptions{TopK: topK, Filter: filter})

	switch {
	case semErr != nil && lexErr != nil:
		return nil, fmt.Errorf("hybrid search failed on both channels, err: %w", semErr)
	case lexErr != nil:
		logger.Warnf("lexical search on %s failed, using semantic only: %v", collection, lexErr)
		return s.tagged(t, truncate(semantic, topK)), nil
	case semErr != nil:
		logger.Warnf("semantic search on %s failed, using lexical only: %v", collection, semErr)
		return s.tagged(t, truncate(lexical, topK)), nil
	}

	fused := fusion.ReciprocalRankFusion([]fusion.RankedList{
		{Results: semantic, Weight: s.semanticWeight},
		{Results: lexical, Weight: 1 - s.semanticWeight},
	}, s.rrfK)
	return s.tagged(t, truncate(fused, topK)), nil
}

func (s *Service) tagged(t schema.KnowledgeType, results []schema.SearchResult) []schema.SearchResult {
	for i := range results {
		results[i].Item.KnowledgeType = t
	}
	return results
}

func truncate(results []schema.SearchResult, topK int) []schema.SearchResult {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

// Stats reports the point count per collection.
func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, 3)
	for _, t := range schema.AllKnowledgeTypes() {
		collection, _ := collectionFor(t)
		if err := s.ensureCollection(ctx, collection); err != nil {
			return nil, err
		}
		count, err := s.store.Stats(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("stats for %s failed, err: %w", collection, err)
		}
		stats[collection] = count
	}
	return stats, nil
}

// IsAvailable reports whether the backing store answers.
func (s *Service) IsAvailable(ctx context.Context) bool {
	return s.store.Ping(ctx) == nil
}

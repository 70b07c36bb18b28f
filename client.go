// Package legalrag analyzes Chinese legal cases with a retrieval-augmented
// pipeline: per-type knowledge collections, hybrid semantic/lexical search,
// and a multi-step agent producing dual-audience results with citations.
package legalrag

import (
	"context"
	"errors"
	"fmt"

	"github.com/legalsearch/legalrag/agent"
	"github.com/legalsearch/legalrag/cache"
	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/embedding"
	"github.com/legalsearch/legalrag/knowledge"
	"github.com/legalsearch/legalrag/llm"
	"github.com/legalsearch/legalrag/rag"
	"github.com/legalsearch/legalrag/schema"
	"github.com/legalsearch/legalrag/vectordb"
)

// Client wires the pipeline components together. All components are
// constructed explicitly and passed by reference, so tests can substitute
// any boundary.
type Client struct {
	cfg       *config.Config
	cases     CaseStore
	knowledge *knowledge.Service
	builder   *rag.Builder
	agent     *agent.Agent
	analyses  *cache.AnalysisCache
}

// NewClient builds a client from configuration. The case store is supplied
// by the caller; everything else is derived from cfg. An empty LLM provider
// leaves the completion-dependent steps disabled but retrieval working.
func NewClient(cfg *config.Config, cases CaseStore) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cases == nil {
		return nil, fmt.Errorf("nil case store")
	}
	cfg.ApplyDefaults()

	store, err := vectordb.NewStore(cfg.VectorDB)
	if err != nil {
		return nil, fmt.Errorf("create vector store failed, err: %w", err)
	}
	embedder, err := embedding.NewEmbeddingProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}
	var completer llm.Provider
	if cfg.LLM.Provider != "" {
		completer, err = llm.NewLLMProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider failed, err: %w", err)
		}
	}

	svc := knowledge.NewService(store, embedder, cfg.Retrieval)
	builder := rag.NewBuilder(svc, completer, cfg.Retrieval)
	return &Client{
		cfg:       cfg,
		cases:     cases,
		knowledge: svc,
		builder:   builder,
		agent:     agent.New(completer, builder, cfg.Agent),
		analyses:  cache.NewAnalysisCache(cfg.Retrieval.CacheEntries),
	}, nil
}

// AnalyzeCase runs the analysis pipeline for a stored case. A cached result
// is returned without running any pipeline step. Two concurrent misses for
// the same case both run the pipeline; the first Put wins and the loser
// adopts the cached result.
func (c *Client) AnalyzeCase(ctx context.Context, caseID string) (*schema.AnalysisResult, error) {
	record, err := c.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.analyses.Get(caseID); ok {
		return cached, nil
	}
	result, err := c.agent.Analyze(ctx, *record)
	if err != nil {
		return nil, fmt.Errorf("analyze case %s failed, err: %w", caseID, err)
	}
	if err := c.analyses.Put(caseID, result); err != nil {
		if errors.Is(err, cache.ErrExists) {
			if winner, ok := c.analyses.Get(caseID); ok {
				logger.Infof("concurrent analysis of case %s, adopting cached result", caseID)
				return winner, nil
			}
		} else {
			return nil, fmt.Errorf("cache analysis for case %s failed, err: %w", caseID, err)
		}
	}
	return result, nil
}

// InvalidateAnalysis drops any cached analysis for the case. The
// persistence layer calls this when case content changes.
func (c *Client) InvalidateAnalysis(caseID string) {
	c.analyses.Invalidate(caseID)
}

// IngestStatute stores a statute article in the knowledge base and returns
// its id.
func (c *Client) IngestStatute(ctx context.Context, lawName, lawCategory, articleNumber, content string) (string, error) {
	if lawName == "" || content == "" {
		return "", fmt.Errorf("law name and content are required")
	}
	return c.knowledge.UpsertItem(ctx, schema.KnowledgeItem{
		KnowledgeType: schema.KnowledgeTypeStatute,
		Content:       content,
		Metadata: map[string]interface{}{
			"title":          fmt.Sprintf("%s %s", lawName, articleNumber),
			"law_name":       lawName,
			"law_category":   lawCategory,
			"article_number": articleNumber,
		},
	})
}

// IngestCase stores a precedent case in the knowledge base. The record id,
// when set, becomes the knowledge item id so re-ingesting replaces the
// previous version.
func (c *Client) IngestCase(ctx context.Context, record schema.CaseRecord) (string, error) {
	if record.Title == "" || record.Content == "" {
		return "", fmt.Errorf("case title and content are required")
	}
	return c.knowledge.UpsertItem(ctx, schema.KnowledgeItem{
		ID:            record.ID,
		KnowledgeType: schema.KnowledgeTypeCase,
		Content:       record.Content,
		Metadata: map[string]interface{}{
			"title":       record.Title,
			"case_type":   record.CaseType,
			"court":       record.Court,
			"case_number": record.CaseNumber,
		},
	})
}

// IngestInterpretation stores a judicial interpretation in the knowledge
// base.
func (c *Client) IngestInterpretation(ctx context.Context, title, source, content string) (string, error) {
	if title == "" || content == "" {
		return "", fmt.Errorf("interpretation title and content are required")
	}
	return c.knowledge.UpsertItem(ctx, schema.KnowledgeItem{
		KnowledgeType: schema.KnowledgeTypeInterpretation,
		Content:       content,
		Metadata: map[string]interface{}{
			"title":  title,
			"source": source,
		},
	})
}

// SearchKnowledge runs the multi-source search and returns per-type lists
// plus the globally merged list.
func (c *Client) SearchKnowledge(ctx context.Context, query string, types []schema.KnowledgeType, topK int) (map[schema.KnowledgeType][]schema.SearchResult, []schema.SearchResult, error) {
	if topK <= 0 {
		topK = c.cfg.Retrieval.TopK
	}
	return c.knowledge.MultiSourceSearch(ctx, query, types, topK, nil)
}

// DeleteKnowledge removes one knowledge item.
func (c *Client) DeleteKnowledge(ctx context.Context, t schema.KnowledgeType, id string) error {
	return c.knowledge.DeleteItem(ctx, t, id)
}

// KnowledgeStats reports the point count per collection.
func (c *Client) KnowledgeStats(ctx context.Context) (map[string]int64, error) {
	return c.knowledge.Stats(ctx)
}

// Retrieve exposes the context builder directly, mainly for inspection and
// tooling.
func (c *Client) Retrieve(ctx context.Context, query string, opts rag.Options) (*schema.RAGContext, error) {
	return c.builder.Retrieve(ctx, query, opts)
}

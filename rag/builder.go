// Package rag builds citation-tracked retrieval contexts for the analysis
// agent: query expansion, multi-source retrieval, permutation reranking and
// bounded context assembly.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/legalsearch/legalrag/cache"
	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/knowledge"
	"github.com/legalsearch/legalrag/llm"
	"github.com/legalsearch/legalrag/schema"
)

const (
	// enhancePrefixChars bounds the case text shown to query expansion.
	enhancePrefixChars = 1500
	// citationExcerptChars bounds a citation's content preview.
	citationExcerptChars = 200
	// caseExcerptChars bounds case and interpretation excerpts in the
	// assembled context.
	caseExcerptChars = 300
	// rerankCandidateChars bounds each candidate shown to the reranker.
	rerankCandidateChars = 300
	// maxContextTokens bounds the assembled context text.
	maxContextTokens = 4096
)

// Options selects which knowledge sources participate in one retrieval.
type Options struct {
	TopK                   int
	IncludeStatutes        bool
	IncludeCases           bool
	IncludeInterpretations bool
	// CaseContent feeds query expansion; empty skips the expansion call.
	CaseContent string
}

// DefaultOptions enables every source with the configured top-k.
func DefaultOptions() Options {
	return Options{IncludeStatutes: true, IncludeCases: true, IncludeInterpretations: true}
}

// Builder assembles RAG contexts. The completion provider is optional;
// without one, query expansion and reranking are skipped and retrieval
// order stands.
type Builder struct {
	knowledge *knowledge.Service
	completer llm.Provider

	topK    int
	enhance bool
	rerank  bool

	l1     cache.Cache
	l1TTL  time.Duration
	tokens tokenCounter
}

func NewBuilder(svc *knowledge.Service, completer llm.Provider, cfg config.RetrievalConfig) *Builder {
	return &Builder{
		knowledge: svc,
		completer: completer,
		topK:      cfg.TopK,
		enhance:   flagEnabled(cfg.EnhanceQuery),
		rerank:    flagEnabled(cfg.Rerank),
		l1:        cache.NewLRU(cfg.CacheEntries, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		l1TTL:     time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}
}

// An unset flag counts as enabled, matching ApplyDefaults.
func flagEnabled(v *bool) bool { return v == nil || *v }

// Retrieve builds the retrieval context for a query. A knowledge-store
// outage returns an empty context together with the error so the caller can
// degrade instead of abort; partial source failures degrade silently to
// whatever was retrieved.
func (b *Builder) Retrieve(ctx context.Context, query string, opts Options) (*schema.RAGContext, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = b.topK
	}
	out := &schema.RAGContext{Query: query}

	if !b.knowledge.IsAvailable(ctx) {
		logger.Warnf("knowledge store unavailable, returning empty context for query %q", query)
		return out, fmt.Errorf("knowledge store unavailable")
	}

	key := b.cacheKey(query, opts, topK)
	if v, ok := b.l1.Get(key); ok {
		return v.(*schema.RAGContext), nil
	}

	enhanced := b.enhanceQuery(ctx, query, opts.CaseContent)

	var types []schema.KnowledgeType
	if opts.IncludeStatutes {
		types = append(types, schema.KnowledgeTypeStatute)
	}
	if opts.IncludeCases {
		types = append(types, schema.KnowledgeTypeCase)
	}
	if opts.IncludeInterpretations {
		types = append(types, schema.KnowledgeTypeInterpretation)
	}
	if len(types) == 0 {
		return out, nil
	}

	// Over-fetch for reranking headroom.
	perType, err := b.knowledge.Search(ctx, enhanced, types, topK*2, nil)
	if err != nil {
		logger.Warnf("retrieval failed for query %q: %v", query, err)
		return out, fmt.Errorf("retrieval failed, err: %w", err)
	}

	out.Statutes = b.selectTop(ctx, query, perType[schema.KnowledgeTypeStatute], topK)
	out.Cases = b.selectTop(ctx, query, perType[schema.KnowledgeTypeCase], topK)
	out.Interpretations = truncateResults(perType[schema.KnowledgeTypeInterpretation], topK)

	out.Citations = buildCitations(out)
	out.ContextText = b.tokens.Truncate(buildContextText(out), maxContextTokens)

	b.l1.Set(key, out, b.l1TTL)
	return out, nil
}

func (b *Builder) cacheKey(query string, opts Options, topK int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%t%t%t|%s", query, topK,
		opts.IncludeStatutes, opts.IncludeCases, opts.IncludeInterpretations,
		prefixRunes(opts.CaseContent, enhancePrefixChars))
	return hex.EncodeToString(h.Sum(nil))
}

// enhanceQuery appends provider-extracted legal keywords to the query. Any
// failure leaves the query unmodified.
func (b *Builder) enhanceQuery(ctx context.Context, query, caseContent string) string {
	if !b.enhance || b.completer == nil || caseContent == "" {
		return query
	}
	prompt := fmt.Sprintf(`从以下法律案例中提取最关键的法律检索词，用于检索相关法条和判例。

案例摘要：
%s

原始查询：%s

请提取 3-5 个最相关的法律关键词，用空格分隔。只返回关键词，不要其他内容。
例如：劳动合同解除 经济补偿 违法辞退`, prefixRunes(caseContent, enhancePrefixChars), query)

	keywords, err := b.completer.GenerateCompletion(ctx, prompt, 100)
	if err != nil {
		logger.Warnf("query enhancement failed, using original query: %v", err)
		return query
	}
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return query
	}
	return query + " " + keywords
}

func (b *Builder) selectTop(ctx context.Context, query string, results []schema.SearchResult, topK int) []schema.SearchResult {
	if len(results) > topK && b.rerank && b.completer != nil {
		return b.rerankResults(ctx, query, results, topK)
	}
	return truncateResults(results, topK)
}

func truncateResults(results []schema.SearchResult, topK int) []schema.SearchResult {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}

func buildCitations(c *schema.RAGContext) []schema.Citation {
	citations := make([]schema.Citation, 0, len(c.Statutes)+len(c.Cases)+len(c.Interpretations))
	for _, r := range c.Statutes {
		citations = append(citations, schema.Citation{
			SourceType:     schema.KnowledgeTypeStatute,
			SourceID:       r.Item.ID,
			Title:          strings.TrimSpace(metaString(r.Item, "law_name") + " " + metaString(r.Item, "article_number")),
			ContentExcerpt: prefixRunes(r.Item.Content, citationExcerptChars),
			RelevanceScore: round3(r.Score),
		})
	}
	for _, r := range c.Cases {
		citations = append(citations, schema.Citation{
			SourceType:     schema.KnowledgeTypeCase,
			SourceID:       r.Item.ID,
			Title:          metaString(r.Item, "title"),
			ContentExcerpt: prefixRunes(r.Item.Content, citationExcerptChars),
			RelevanceScore: round3(r.Score),
		})
	}
	for _, r := range c.Interpretations {
		citations = append(citations, schema.Citation{
			SourceType:     schema.KnowledgeTypeInterpretation,
			SourceID:       r.Item.ID,
			Title:          metaString(r.Item, "title"),
			ContentExcerpt: prefixRunes(r.Item.Content, citationExcerptChars),
			RelevanceScore: round3(r.Score),
		})
	}
	return citations
}

// buildContextText renders one section per non-empty source, in a fixed
// order: statutes, cases, interpretations.
func buildContextText(c *schema.RAGContext) string {
	var sections []string

	if len(c.Statutes) > 0 {
		parts := make([]string, 0, len(c.Statutes))
		for _, r := range c.Statutes {
			header := strings.TrimSpace(metaString(r.Item, "law_name") + " " + metaString(r.Item, "article_number"))
			parts = append(parts, fmt.Sprintf("【%s】\n%s", header, r.Item.Content))
		}
		sections = append(sections, "【相关法律条文】\n"+strings.Join(parts, "\n\n"))
	}
	if len(c.Cases) > 0 {
		parts := make([]string, 0, len(c.Cases))
		for _, r := range c.Cases {
			parts = append(parts, fmt.Sprintf("【%s】(%s)\n%s...",
				metaString(r.Item, "title"), metaString(r.Item, "case_number"),
				prefixRunes(r.Item.Content, caseExcerptChars)))
		}
		sections = append(sections, "【相似案例参考】\n"+strings.Join(parts, "\n\n"))
	}
	if len(c.Interpretations) > 0 {
		parts := make([]string, 0, len(c.Interpretations))
		for _, r := range c.Interpretations {
			parts = append(parts, fmt.Sprintf("【%s】\n%s...",
				metaString(r.Item, "title"), prefixRunes(r.Item.Content, caseExcerptChars)))
		}
		sections = append(sections, "【相关司法解释】\n"+strings.Join(parts, "\n\n"))
	}
	return strings.Join(sections, "\n\n")
}

func metaString(item schema.KnowledgeItem, key string) string {
	if v, ok := item.Metadata[key].(string); ok {
		return v
	}
	return ""
}

func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

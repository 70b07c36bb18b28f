// Package agent runs the deterministic multi-step case analysis: element
// extraction, knowledge retrieval, projection of legal basis and similar
// cases, and dual-audience synthesis.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/jsonx"
	"github.com/legalsearch/legalrag/llm"
	"github.com/legalsearch/legalrag/rag"
	"github.com/legalsearch/legalrag/schema"
)

// State is the analysis run state. Failed is reachable only from a missing
// case record, never from a provider error.
type State string

const (
	StateInit              State = "init"
	StateElementsExtracted State = "elements_extracted"
	StateRetrieved         State = "retrieved"
	StateSynthesized       State = "synthesized"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

const unknownCaseType = "未知"

// Retriever is the context-building boundary the agent depends on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts rag.Options) (*schema.RAGContext, error)
}

// Agent drives analysis runs. It is stateless across runs; each Analyze
// call owns a private run record.
type Agent struct {
	completer llm.Provider
	retriever Retriever

	extractionChars int
	synthesisTokens int
}

func New(completer llm.Provider, retriever Retriever, cfg config.AgentConfig) *Agent {
	return &Agent{
		completer:       completer,
		retriever:       retriever,
		extractionChars: cfg.ExtractionPrefixChars,
		synthesisTokens: cfg.SynthesisMaxTokens,
	}
}

type run struct {
	state State
	steps []string
}

func (r *run) advance(s State, step string) {
	r.state = s
	if step != "" {
		r.steps = append(r.steps, step)
	}
}

// Analyze executes the full pipeline over a case record. Provider failures
// along the way degrade to defined fallbacks; Analyze itself only returns
// an error when the context is cancelled.
func (a *Agent) Analyze(ctx context.Context, record schema.CaseRecord) (*schema.AnalysisResult, error) {
	r := &run{state: StateInit}

	elements := a.extractElements(ctx, record.Content)
	r.advance(StateElementsExtracted, "提取关键要素")

	ragCtx, ragEnabled := a.retrieve(ctx, record, elements)
	r.advance(StateRetrieved, fmt.Sprintf("找到 %d 个相似案例", len(ragCtx.Cases)))
	r.steps = append(r.steps, fmt.Sprintf("找到 %d 条法律依据", len(ragCtx.Statutes)))

	legalBasis := deriveLegalBasis(ragCtx)
	similarCases := deriveSimilarCases(ragCtx)

	result := a.synthesize(ctx, record.Content, ragCtx, elements, legalBasis, similarCases)
	r.advance(StateSynthesized, "综合分析")
	backfillPlainFields(result)
	r.advance(StateDone, "")

	result.Citations = ragCtx.Citations
	result.Metadata = schema.AgentMetadata{
		StepsExecuted:     r.steps,
		SimilarCasesFound: len(similarCases),
		LegalBasisFound:   len(legalBasis),
		RAGEnabled:        ragEnabled,
		StatutesRetrieved: len(ragCtx.Statutes),
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// extractElements asks the completion provider for the structured case
// elements. Any failure yields the all-empty default with an unknown case
// type; extraction never aborts a run.
func (a *Agent) extractElements(ctx context.Context, caseContent string) schema.LegalElements {
	fallback := schema.LegalElements{CaseType: unknownCaseType}
	if a.completer == nil {
		return fallback
	}
	text, err := a.completer.GenerateCompletion(ctx, extractionPrompt(caseContent, a.extractionChars), 1000)
	if err != nil {
		logger.Warnf("element extraction failed, using defaults: %v", err)
		return fallback
	}
	var elements schema.LegalElements
	if err := jsonx.Unmarshal(text, &elements); err != nil {
		logger.Warnf("parse extracted elements failed, using defaults: %v", err)
		return fallback
	}
	if elements.CaseType == "" {
		elements.CaseType = unknownCaseType
	}
	return elements
}

func (a *Agent) retrieve(ctx context.Context, record schema.CaseRecord, elements schema.LegalElements) (*schema.RAGContext, bool) {
	query := buildQuery(record, elements)
	ragCtx, err := a.retriever.Retrieve(ctx, query, rag.Options{
		IncludeStatutes:        true,
		IncludeCases:           true,
		IncludeInterpretations: true,
		CaseContent:            record.Content,
	})
	if err != nil {
		logger.Warnf("retrieval degraded for case %s: %v", record.ID, err)
		if ragCtx == nil {
			ragCtx = &schema.RAGContext{Query: query}
		}
		return ragCtx, false
	}
	return ragCtx, true
}

// buildQuery joins the non-empty extracted fields into one retrieval query,
// falling back to the case title when extraction produced nothing usable.
func buildQuery(record schema.CaseRecord, elements schema.LegalElements) string {
	var parts []string
	if elements.CaseType != "" && elements.CaseType != unknownCaseType {
		parts = append(parts, elements.CaseType)
	}
	parts = append(parts, elements.DisputePoints...)
	parts = append(parts, elements.LegalRelations...)
	parts = append(parts, elements.SearchKeywords...)
	if len(parts) == 0 {
		if record.Title != "" {
			return record.Title
		}
		return prefixRunes(record.Content, 100)
	}
	return strings.Join(parts, " ")
}

func deriveLegalBasis(c *schema.RAGContext) []schema.LegalBasisEntry {
	entries := make([]schema.LegalBasisEntry, 0, len(c.Statutes))
	for _, r := range c.Statutes {
		entries = append(entries, schema.LegalBasisEntry{
			LawName:       metaString(r.Item, "law_name"),
			ArticleNumber: metaString(r.Item, "article_number"),
			Content:       r.Item.Content,
			Score:         r.Score,
		})
	}
	return entries
}

func deriveSimilarCases(c *schema.RAGContext) []schema.SimilarCaseEntry {
	entries := make([]schema.SimilarCaseEntry, 0, len(c.Cases))
	for _, r := range c.Cases {
		entries = append(entries, schema.SimilarCaseEntry{
			Title:      metaString(r.Item, "title"),
			CaseNumber: metaString(r.Item, "case_number"),
			Court:      metaString(r.Item, "court"),
			Excerpt:    prefixRunes(r.Item.Content, 200),
			Score:      r.Score,
		})
	}
	return entries
}

// synthesize produces the dual-audience result. A provider failure or
// unparsable response yields a best-effort fallback carrying the raw text
// instead of an error.
func (a *Agent) synthesize(ctx context.Context, caseContent string, ragCtx *schema.RAGContext, elements schema.LegalElements, legalBasis []schema.LegalBasisEntry, similarCases []schema.SimilarCaseEntry) *schema.AnalysisResult {
	if a.completer == nil {
		return fallbackResult("", elements, legalBasis, similarCases)
	}
	prompt := synthesisPrompt(caseContent, ragCtx.ContextText, elements, legalBasis, similarCases)
	text, err := a.completer.GenerateCompletion(ctx, prompt, a.synthesisTokens)
	if err != nil {
		logger.Warnf("synthesis failed, building fallback result: %v", err)
		return fallbackResult("", elements, legalBasis, similarCases)
	}
	var result schema.AnalysisResult
	if err := jsonx.Unmarshal(text, &result); err != nil {
		logger.Warnf("parse synthesis failed, building fallback result: %v", err)
		return fallbackResult(text, elements, legalBasis, similarCases)
	}
	return &result
}

// fallbackResult carries whatever raw synthesis text exists so the caller
// still receives a low-confidence payload rather than an empty response.
func fallbackResult(raw string, elements schema.LegalElements, legalBasis []schema.LegalBasisEntry, similarCases []schema.SimilarCaseEntry) *schema.AnalysisResult {
	basisStrings := make([]string, 0, len(legalBasis))
	for _, b := range legalBasis {
		basisStrings = append(basisStrings, strings.TrimSpace(b.LawName+" "+b.ArticleNumber))
	}
	summary := prefixRunes(raw, 200)
	if summary == "" {
		summary = "分析失败"
	}
	return &schema.AnalysisResult{
		Summary:      summary,
		SummaryPlain: "抱歉，分析结果的格式有问题，无法解析",
		KeyElements: schema.KeyElements{
			Parties:      strings.Join(elements.Parties, "、"),
			CaseCause:    elements.CaseType,
			DisputeFocus: strings.Join(elements.DisputePoints, "；"),
		},
		LegalReasoning:        raw,
		LegalReasoningPlain:   "抱歉，分析结果解析失败",
		LegalBasis:            basisStrings,
		SimilarCasesReference: fmt.Sprintf("找到 %d 个相似案例", len(similarCases)),
	}
}

// backfillPlainFields fills each missing plain-language field from its
// professional counterpart. Already-filled fields are never overwritten.
func backfillPlainFields(r *schema.AnalysisResult) {
	if r.SummaryPlain == "" {
		r.SummaryPlain = r.Summary
	}
	if r.LegalReasoningPlain == "" {
		r.LegalReasoningPlain = r.LegalReasoning
	}
	if len(r.LegalBasisPlain) == 0 {
		r.LegalBasisPlain = r.LegalBasis
	}
	if r.JudgmentResultPlain == "" {
		r.JudgmentResultPlain = r.JudgmentResult
	}
	if (r.KeyElementsPlain == schema.KeyElementsPlain{}) {
		r.KeyElementsPlain = schema.KeyElementsPlain{
			Who:          r.KeyElements.Parties,
			WhatHappened: r.KeyElements.CaseCause,
			WhatTheyWant: r.KeyElements.DisputeFocus,
		}
	}
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

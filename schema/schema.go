package schema

import "time"

// KnowledgeType identifies one of the three legal knowledge collections.
type KnowledgeType string

const (
	KnowledgeTypeStatute        KnowledgeType = "statute"
	KnowledgeTypeCase           KnowledgeType = "case"
	KnowledgeTypeInterpretation KnowledgeType = "interpretation"
)

// AllKnowledgeTypes lists every knowledge type in context assembly order.
func AllKnowledgeTypes() []KnowledgeType {
	return []KnowledgeType{KnowledgeTypeStatute, KnowledgeTypeCase, KnowledgeTypeInterpretation}
}

// Valid reports whether t names a known knowledge type.
func (t KnowledgeType) Valid() bool {
	switch t {
	case KnowledgeTypeStatute, KnowledgeTypeCase, KnowledgeTypeInterpretation:
		return true
	}
	return false
}

// KnowledgeItem is one point in a knowledge collection. Items are immutable
// once written; a repeated Upsert with the same ID is a full replace.
type KnowledgeItem struct {
	ID            string                 `json:"id"`
	KnowledgeType KnowledgeType          `json:"knowledge_type"`
	Content       string                 `json:"content"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Vector        []float32              `json:"-"`
	CreatedAt     time.Time              `json:"created_at,omitempty"`
}

// SearchResult pairs an item with its retrieval score. Vector search scores
// are cosine similarities; fused scores are RRF sums.
type SearchResult struct {
	Item  KnowledgeItem `json:"item"`
	Score float64       `json:"score"`
}

// Filter restricts a search by metadata equality or set membership.
// A nil map matches everything. A []string value means "any of".
type Filter map[string]interface{}

// SearchOptions carries the per-query knobs for a vector or text search.
type SearchOptions struct {
	TopK   int
	Filter Filter
}

// Citation links a generated statement to a retrieved source item.
type Citation struct {
	SourceType     KnowledgeType `json:"type"`
	SourceID       string        `json:"id"`
	Title          string        `json:"title"`
	ContentExcerpt string        `json:"content_preview"`
	RelevanceScore float64       `json:"relevance_score"`
}

// RAGContext is the assembled retrieval context for one analysis run.
// It is built once, consumed immediately, and never persisted.
type RAGContext struct {
	Query           string         `json:"query"`
	Statutes        []SearchResult `json:"statutes"`
	Cases           []SearchResult `json:"cases"`
	Interpretations []SearchResult `json:"interpretations"`
	Citations       []Citation     `json:"citations"`
	ContextText     string         `json:"context_text"`
}

// Empty reports whether no knowledge was retrieved at all.
func (c *RAGContext) Empty() bool {
	return len(c.Statutes) == 0 && len(c.Cases) == 0 && len(c.Interpretations) == 0
}

// CaseRecord is the consumed shape of a case held by the persistence layer.
type CaseRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CaseType   string `json:"case_type,omitempty"`
	Court      string `json:"court,omitempty"`
	CaseNumber string `json:"case_number,omitempty"`
}

// LegalElements is the structured extraction of a case text.
type LegalElements struct {
	CaseType       string   `json:"case_type"`
	Parties        []string `json:"parties"`
	DisputePoints  []string `json:"dispute_points"`
	LegalRelations []string `json:"legal_relations"`
	SearchKeywords []string `json:"search_keywords"`
}

// KeyElements is the professional-register element summary of a judgment.
type KeyElements struct {
	Parties      string `json:"parties"`
	CaseCause    string `json:"case_cause"`
	DisputeFocus string `json:"dispute_focus"`
}

// KeyElementsPlain is the plain-language counterpart of KeyElements.
type KeyElementsPlain struct {
	Who          string `json:"who"`
	WhatHappened string `json:"what_happened"`
	WhatTheyWant string `json:"what_they_want"`
}

// LegalBasisEntry is a statute projected from the retrieval context.
type LegalBasisEntry struct {
	LawName       string  `json:"law_name"`
	ArticleNumber string  `json:"article_number"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
}

// SimilarCaseEntry is a precedent projected from the retrieval context.
type SimilarCaseEntry struct {
	Title      string  `json:"title"`
	CaseNumber string  `json:"case_number"`
	Court      string  `json:"court"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

// AgentMetadata records the provenance of one agent run.
type AgentMetadata struct {
	StepsExecuted     []string `json:"steps_executed"`
	SimilarCasesFound int      `json:"similar_cases_found"`
	LegalBasisFound   int      `json:"legal_basis_found"`
	RAGEnabled        bool     `json:"rag_enabled"`
	StatutesRetrieved int      `json:"statutes_retrieved"`
}

// AnalysisResult is the dual-audience analysis payload.
type AnalysisResult struct {
	Summary      string `json:"summary"`
	SummaryPlain string `json:"summary_plain"`

	KeyElements      KeyElements      `json:"key_elements"`
	KeyElementsPlain KeyElementsPlain `json:"key_elements_plain"`

	LegalReasoning      string `json:"legal_reasoning"`
	LegalReasoningPlain string `json:"legal_reasoning_plain"`

	LegalBasis      []string `json:"legal_basis"`
	LegalBasisPlain []string `json:"legal_basis_plain"`

	JudgmentResult      string `json:"judgment_result"`
	JudgmentResultPlain string `json:"judgment_result_plain"`

	SimilarCasesReference string `json:"similar_cases_reference"`
	PlainLanguageTips     string `json:"plain_language_tips"`

	Citations []Citation    `json:"citations"`
	Metadata  AgentMetadata `json:"agent_metadata"`
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/embedding"
	"github.com/legalsearch/legalrag/knowledge"
	"github.com/legalsearch/legalrag/schema"
	"github.com/legalsearch/legalrag/vectordb"
)

type scriptedLLM struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) GenerateCompletion(_ context.Context, prompt string, _ int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func (s *scriptedLLM) GetProviderType() string { return "scripted" }

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK: 5, SemanticWeight: 0.7, RRFK: 60,
		CacheEntries: 16, CacheTTLSeconds: 60,
	}
}

func newTestKnowledge(t *testing.T, statuteCount int) *knowledge.Service {
	t.Helper()
	svc := knowledge.NewService(vectordb.NewMemoryStore(), embedding.NewMockProvider(64), testConfig())
	ctx := context.Background()
	for i := 0; i < statuteCount; i++ {
		_, err := svc.UpsertItem(ctx, schema.KnowledgeItem{
			ID:            fmt.Sprintf("statute-%d", i),
			KnowledgeType: schema.KnowledgeTypeStatute,
			Content:       fmt.Sprintf("劳动合同解除相关规定第%d条，用人单位应当依法支付经济补偿。", i+1),
			Metadata: map[string]interface{}{
				"title": fmt.Sprintf("劳动合同法 第%d条", i+1), "law_name": "劳动合同法",
				"article_number": fmt.Sprintf("第%d条", i+1), "law_category": "劳动法",
			},
		})
		require.NoError(t, err)
	}
	return svc
}

func TestRetrieveEndToEnd(t *testing.T) {
	svc := newTestKnowledge(t, 8)
	b := NewBuilder(svc, nil, testConfig())

	got, err := b.Retrieve(context.Background(), "劳动合同解除", DefaultOptions())
	require.NoError(t, err)

	require.NotEmpty(t, got.Statutes)
	assert.LessOrEqual(t, len(got.Statutes), 5)
	for i, r := range got.Statutes {
		assert.GreaterOrEqual(t, r.Score, -1.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, got.Statutes[i-1].Score, r.Score)
		}
	}

	// One citation per retained result, each with a non-empty title.
	used := len(got.Statutes) + len(got.Cases) + len(got.Interpretations)
	require.Len(t, got.Citations, used)
	for _, c := range got.Citations {
		assert.NotEmpty(t, c.Title)
	}

	assert.Contains(t, got.ContextText, "【相关法律条文】")
	assert.NotContains(t, got.ContextText, "【相似案例参考】")
}

func TestRetrieveCachesContext(t *testing.T) {
	svc := newTestKnowledge(t, 3)
	b := NewBuilder(svc, nil, testConfig())
	ctx := context.Background()

	first, err := b.Retrieve(ctx, "经济补偿", DefaultOptions())
	require.NoError(t, err)
	second, err := b.Retrieve(ctx, "经济补偿", DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestEnhanceQueryAppendsKeywords(t *testing.T) {
	svc := newTestKnowledge(t, 2)
	provider := &scriptedLLM{responses: []string{"劳动合同解除 经济补偿 违法辞退"}}
	b := NewBuilder(svc, provider, testConfig())

	opts := DefaultOptions()
	opts.CaseContent = "原告主张被告违法解除劳动合同。"
	_, err := b.Retrieve(context.Background(), "劳动纠纷", opts)
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)
	assert.Contains(t, provider.prompts[0], "原告主张被告违法解除劳动合同。")
}

func TestEnhanceQueryFailureKeepsOriginal(t *testing.T) {
	b := NewBuilder(nil, &scriptedLLM{err: errors.New("provider down")}, testConfig())
	b.enhance = true
	got := b.enhanceQuery(context.Background(), "劳动纠纷", "案情")
	assert.Equal(t, "劳动纠纷", got)
}

func TestRerankRunsWithUnsetFlags(t *testing.T) {
	svc := newTestKnowledge(t, 8)
	provider := &scriptedLLM{responses: []string{"[0, 1, 2, 3, 4]"}}
	b := NewBuilder(svc, provider, testConfig())

	got, err := b.Retrieve(context.Background(), "劳动合同解除", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got.Statutes, 5)
	// The over-fetched statute list went through the reranker.
	require.Equal(t, 1, provider.calls)
	assert.Contains(t, provider.prompts[0], "请按相关性从高到低排序")
}

func TestRerankDisabledKeepsScoreOrder(t *testing.T) {
	svc := newTestKnowledge(t, 8)
	cfg := testConfig()
	off := false
	cfg.Rerank = &off
	cfg.EnhanceQuery = &off
	provider := &scriptedLLM{responses: []string{"[4, 3, 2, 1, 0]"}}
	b := NewBuilder(svc, provider, cfg)

	got, err := b.Retrieve(context.Background(), "劳动合同解除", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got.Statutes, 5)
	assert.Zero(t, provider.calls)
}

func TestRerankAppliesValidPermutation(t *testing.T) {
	results := makeResults(8)
	provider := &scriptedLLM{responses: []string{"[2, 0, 4, 1, 3]"}}
	b := &Builder{completer: provider, rerank: true}

	got := b.rerankResults(context.Background(), "q", results, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "id-2", got[0].Item.ID)
	assert.Equal(t, "id-0", got[1].Item.ID)
	assert.Equal(t, "id-4", got[2].Item.ID)
}

func TestRerankInvalidPermutationFallsBackToScoreOrder(t *testing.T) {
	results := makeResults(8)
	provider := &scriptedLLM{responses: []string{"[10, 2, 2, -1]"}}
	b := &Builder{completer: provider, rerank: true}

	got := b.rerankResults(context.Background(), "q", results, 5)
	require.LessOrEqual(t, len(got), 5)

	seen := map[string]bool{}
	for i, r := range got {
		assert.False(t, seen[r.Item.ID], "duplicate id %s", r.Item.ID)
		seen[r.Item.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, r.Score)
		}
	}
	// Score order puts the highest-scored candidate first.
	assert.Equal(t, "id-7", got[0].Item.ID)
}

func TestRerankUnparsableOutputFallsBack(t *testing.T) {
	results := makeResults(4)
	provider := &scriptedLLM{responses: []string{"抱歉，我无法排序。"}}
	b := &Builder{completer: provider, rerank: true}

	got := b.rerankResults(context.Background(), "q", results, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "id-3", got[0].Item.ID)
	assert.Equal(t, "id-2", got[1].Item.ID)
}

func TestContextTextSectionOrder(t *testing.T) {
	c := &schema.RAGContext{
		Statutes: makeResults(1),
		Cases: []schema.SearchResult{{Item: schema.KnowledgeItem{
			ID: "case-1", Content: "判决内容",
			Metadata: map[string]interface{}{"title": "某案", "case_number": "(2024)京01民终123号"},
		}}},
		Interpretations: []schema.SearchResult{{Item: schema.KnowledgeItem{
			ID: "interp-1", Content: "解释内容",
			Metadata: map[string]interface{}{"title": "最高法解释"},
		}}},
	}
	text := buildContextText(c)
	statutePos := strings.Index(text, "【相关法律条文】")
	casePos := strings.Index(text, "【相似案例参考】")
	interpPos := strings.Index(text, "【相关司法解释】")
	require.GreaterOrEqual(t, statutePos, 0)
	assert.Greater(t, casePos, statutePos)
	assert.Greater(t, interpPos, casePos)
}

func makeResults(n int) []schema.SearchResult {
	results := make([]schema.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, schema.SearchResult{
			Item: schema.KnowledgeItem{
				ID:      fmt.Sprintf("id-%d", i),
				Content: fmt.Sprintf("第%d条内容", i),
				Metadata: map[string]interface{}{
					"law_name": "劳动合同法", "article_number": fmt.Sprintf("第%d条", i),
				},
			},
			Score: float64(i) / 10,
		})
	}
	return results
}

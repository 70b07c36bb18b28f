package legalrag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalsearch/legalrag/agent"
	"github.com/legalsearch/legalrag/cache"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/embedding"
	"github.com/legalsearch/legalrag/knowledge"
	"github.com/legalsearch/legalrag/rag"
	"github.com/legalsearch/legalrag/schema"
	"github.com/legalsearch/legalrag/vectordb"
)

type countingLLM struct {
	responses map[string]string // keyed by a prompt substring
	calls     int
}

func (c *countingLLM) GenerateCompletion(_ context.Context, prompt string, _ int) (string, error) {
	c.calls++
	for marker, resp := range c.responses {
		if marker != "" && strings.Contains(prompt, marker) {
			return resp, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (c *countingLLM) GetProviderType() string { return "counting" }

const testExtraction = `{"case_type": "民事", "parties": ["张某"], "dispute_points": ["违法解除"], "legal_relations": ["劳动合同关系"], "search_keywords": ["经济补偿"]}`

const testSynthesis = `{"summary": "专业摘要", "summary_plain": "通俗摘要", "legal_reasoning": "专业推理", "judgment_result": "判决结果"}`

func newTestClient(t *testing.T, completer *countingLLM) (*Client, *MemoryCaseStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Embedding.Dimensions = 64

	cases := NewMemoryCaseStore()
	svc := knowledge.NewService(vectordb.NewMemoryStore(), embedding.NewMockProvider(64), cfg.Retrieval)
	builder := rag.NewBuilder(svc, completer, cfg.Retrieval)
	c := &Client{
		cfg:       cfg,
		cases:     cases,
		knowledge: svc,
		builder:   builder,
		agent:     agent.New(completer, builder, cfg.Agent),
		analyses:  cache.NewAnalysisCache(cfg.Retrieval.CacheEntries),
	}
	return c, cases
}

func seedCase(cases *MemoryCaseStore) {
	cases.PutCase(schema.CaseRecord{
		ID:      "case-7",
		Title:   "张某诉某科技公司劳动争议案",
		Content: "本院经审理查明，被告于2024年3月单方解除与原告的劳动合同……",
	})
}

func TestAnalyzeCaseNotFound(t *testing.T) {
	c, _ := newTestClient(t, &countingLLM{})
	_, err := c.AnalyzeCase(context.Background(), "missing")
	require.ErrorIs(t, err, ErrCaseNotFound)
}

func TestAnalyzeCaseCached(t *testing.T) {
	completer := &countingLLM{responses: map[string]string{
		"提取关键要素": testExtraction,
		"法律检索词": "劳动合同解除 经济补偿",
		"资深法律专家": testSynthesis,
	}}
	c, cases := newTestClient(t, completer)
	seedCase(cases)
	ctx := context.Background()

	first, err := c.AnalyzeCase(ctx, "case-7")
	require.NoError(t, err)
	callsAfterFirst := completer.calls
	require.Greater(t, callsAfterFirst, 0)

	second, err := c.AnalyzeCase(ctx, "case-7")
	require.NoError(t, err)

	// The second call is a cache hit: the identical result, no pipeline
	// steps, no provider calls.
	assert.Same(t, first, second)
	assert.Equal(t, callsAfterFirst, completer.calls)
}

func TestInvalidateAnalysisForcesRerun(t *testing.T) {
	completer := &countingLLM{responses: map[string]string{
		"提取关键要素": testExtraction,
		"法律检索词": "劳动合同解除 经济补偿",
		"资深法律专家": testSynthesis,
	}}
	c, cases := newTestClient(t, completer)
	seedCase(cases)
	ctx := context.Background()

	_, err := c.AnalyzeCase(ctx, "case-7")
	require.NoError(t, err)
	callsAfterFirst := completer.calls

	c.InvalidateAnalysis("case-7")
	_, err = c.AnalyzeCase(ctx, "case-7")
	require.NoError(t, err)
	assert.Greater(t, completer.calls, callsAfterFirst)
}

func TestAnalyzeCaseResultShape(t *testing.T) {
	completer := &countingLLM{responses: map[string]string{
		"提取关键要素": testExtraction,
		"法律检索词": "劳动合同解除 经济补偿",
		"资深法律专家": testSynthesis,
	}}
	c, cases := newTestClient(t, completer)
	seedCase(cases)

	_, err := c.IngestStatute(context.Background(), "劳动合同法", "劳动法", "第八十七条",
		"用人单位违反本法规定解除或者终止劳动合同的，应当依照经济补偿标准的二倍向劳动者支付赔偿金。")
	require.NoError(t, err)

	result, err := c.AnalyzeCase(context.Background(), "case-7")
	require.NoError(t, err)

	assert.Equal(t, "专业摘要", result.Summary)
	// Plain fields omitted by synthesis are backfilled from the
	// professional register.
	assert.Equal(t, "专业推理", result.LegalReasoningPlain)
	assert.Equal(t, "判决结果", result.JudgmentResultPlain)
	assert.True(t, result.Metadata.RAGEnabled)
	assert.Equal(t, 1, result.Metadata.StatutesRetrieved)
	assert.Len(t, result.Citations, 1)
	assert.Equal(t, "劳动合同法 第八十七条", result.Citations[0].Title)
}

func TestIngestAndSearchKnowledge(t *testing.T) {
	c, _ := newTestClient(t, &countingLLM{})
	ctx := context.Background()

	statuteID, err := c.IngestStatute(ctx, "劳动合同法", "劳动法", "第四十七条", "经济补偿按劳动者在本单位工作的年限计算。")
	require.NoError(t, err)
	caseID, err := c.IngestCase(ctx, schema.CaseRecord{
		Title: "某劳动争议案", Content: "劳动者胜诉。", CaseType: "民事", CaseNumber: "(2024)京01民终1号",
	})
	require.NoError(t, err)
	_, err = c.IngestInterpretation(ctx, "关于审理劳动争议案件的解释", "最高人民法院", "用人单位应承担举证责任。")
	require.NoError(t, err)

	perType, merged, err := c.SearchKnowledge(ctx, "劳动争议", nil, 5)
	require.NoError(t, err)
	assert.Len(t, perType, 3)
	assert.Len(t, merged, 3)

	stats, err := c.KnowledgeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[knowledge.CollectionStatutes])
	assert.Equal(t, int64(1), stats[knowledge.CollectionCases])
	assert.Equal(t, int64(1), stats[knowledge.CollectionInterpretations])

	require.NoError(t, c.DeleteKnowledge(ctx, schema.KnowledgeTypeStatute, statuteID))
	require.NoError(t, c.DeleteKnowledge(ctx, schema.KnowledgeTypeCase, caseID))
	stats, err = c.KnowledgeStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats[knowledge.CollectionStatutes])
}

func TestIngestValidation(t *testing.T) {
	c, _ := newTestClient(t, &countingLLM{})
	_, err := c.IngestStatute(context.Background(), "", "", "第一条", "内容")
	assert.Error(t, err)
	_, err = c.IngestCase(context.Background(), schema.CaseRecord{Title: "无内容"})
	assert.Error(t, err)
}

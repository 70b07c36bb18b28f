package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/jsonx"
	"github.com/legalsearch/legalrag/schema"
)

// rerankResults asks the completion provider for a relevance permutation of
// the candidates and applies it. Provider failure, unparsable output, or an
// invalid permutation all fall back to raw score order. Either way the
// output is truncated to topK.
func (b *Builder) rerankResults(ctx context.Context, query string, results []schema.SearchResult, topK int) []schema.SearchResult {
	candidates := make([]string, 0, len(results))
	for i, r := range results {
		candidates = append(candidates, fmt.Sprintf("[%d] %s...", i, prefixRunes(r.Item.Content, rerankCandidateChars)))
	}
	prompt := fmt.Sprintf(`评估以下法律条文与查询的相关性。

查询：%s

候选条文：
%s

请按相关性从高到低排序，返回序号列表（如：[2, 0, 4, 1, 3]）。
只返回 JSON 数组，不要其他内容。`, query, strings.Join(candidates, "\n"))

	text, err := b.completer.GenerateCompletion(ctx, prompt, 100)
	if err != nil {
		logger.Warnf("reranking failed, keeping score order: %v", err)
		return scoreOrder(results, topK)
	}
	var ranking []int
	if err := jsonx.Unmarshal(text, &ranking); err != nil {
		logger.Warnf("parse rerank permutation failed, keeping score order: %v", err)
		return scoreOrder(results, topK)
	}
	if !validPermutation(ranking, len(results)) {
		logger.Warnf("invalid rerank permutation %v for %d candidates, keeping score order", ranking, len(results))
		return scoreOrder(results, topK)
	}
	if len(ranking) > topK {
		ranking = ranking[:topK]
	}
	reranked := make([]schema.SearchResult, 0, len(ranking))
	for _, idx := range ranking {
		reranked = append(reranked, results[idx])
	}
	return reranked
}

// validPermutation requires every index in range and no duplicates. A
// partial permutation is acceptable; the missing tail is simply dropped.
func validPermutation(ranking []int, n int) bool {
	if len(ranking) == 0 {
		return false
	}
	seen := make(map[int]bool, len(ranking))
	for _, idx := range ranking {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

func scoreOrder(results []schema.SearchResult, topK int) []schema.SearchResult {
	sorted := make([]schema.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return truncateResults(sorted, topK)
}

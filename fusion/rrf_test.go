package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalsearch/legalrag/schema"
)

func result(id string, score float64) schema.SearchResult {
	return schema.SearchResult{Item: schema.KnowledgeItem{ID: id}, Score: score}
}

func TestReciprocalRankFusionScores(t *testing.T) {
	semantic := RankedList{
		Weight:  0.7,
		Results: []schema.SearchResult{result("a", 0.95), result("b", 0.80)},
	}
	lexical := RankedList{
		Weight:  0.3,
		Results: []schema.SearchResult{result("b", 0), result("c", 0)},
	}

	fused := ReciprocalRankFusion([]RankedList{semantic, lexical}, 60)
	require.Len(t, fused, 3)

	// b: 0.7/61 from semantic rank 1 plus 0.3/60 from lexical rank 0.
	byID := map[string]float64{}
	for _, r := range fused {
		byID[r.Item.ID] = r.Score
	}
	assert.InDelta(t, 0.7/60.0, byID["a"], 1e-12)
	assert.InDelta(t, 0.7/61.0+0.3/60.0, byID["b"], 1e-12)
	assert.InDelta(t, 0.3/61.0, byID["c"], 1e-12)

	// Multi-channel membership outranks a single channel's top rank here.
	assert.Equal(t, "b", fused[0].Item.ID)
	assert.Equal(t, "a", fused[1].Item.ID)
	assert.Equal(t, "c", fused[2].Item.ID)
}

func TestReciprocalRankFusionWeightMonotonicity(t *testing.T) {
	lists := func(w float64) []RankedList {
		return []RankedList{
			{Weight: w, Results: []schema.SearchResult{result("x", 1)}},
			{Weight: 1 - w, Results: []schema.SearchResult{result("y", 1)}},
		}
	}
	lo := ReciprocalRankFusion(lists(0.3), 60)
	hi := ReciprocalRankFusion(lists(0.7), 60)
	require.Len(t, lo, 2)
	require.Len(t, hi, 2)

	score := func(rs []schema.SearchResult, id string) float64 {
		for _, r := range rs {
			if r.Item.ID == id {
				return r.Score
			}
		}
		t.Fatalf("id %s missing", id)
		return math.NaN()
	}
	assert.Greater(t, score(hi, "x"), score(lo, "x"))
	assert.Less(t, score(hi, "y"), score(lo, "y"))
}

func TestReciprocalRankFusionDefaults(t *testing.T) {
	fused := ReciprocalRankFusion([]RankedList{
		{Weight: 1, Results: []schema.SearchResult{result("only", 0.5)}},
	}, 0)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/float64(DefaultK), fused[0].Score, 1e-12)
}

func TestReciprocalRankFusionEmpty(t *testing.T) {
	assert.Empty(t, ReciprocalRankFusion(nil, 60))
	assert.Empty(t, ReciprocalRankFusion([]RankedList{{Weight: 0.7}}, 60))
}

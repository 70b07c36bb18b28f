// Package fusion merges ranked result lists from multiple retrieval channels.
package fusion

import (
	"sort"

	"github.com/legalsearch/legalrag/schema"
)

// DefaultK is the standard reciprocal rank fusion constant.
const DefaultK = 60

// RankedList is one retrieval channel's output with its fusion weight.
type RankedList struct {
	Results []schema.SearchResult
	Weight  float64
}

// ReciprocalRankFusion fuses the lists by summing weight/(rank+k) per item
// id, with ranks counted from zero. Items appearing in several lists
// accumulate score from each; the item payload is taken from its first
// appearance. Output is sorted by fused score descending and carries the
// fused score, not the channel scores.
func ReciprocalRankFusion(lists []RankedList, k int) []schema.SearchResult {
	if k <= 0 {
		k = DefaultK
	}
	scores := make(map[string]float64)
	items := make(map[string]schema.KnowledgeItem)
	var order []string
	for _, list := range lists {
		for rank, r := range list.Results {
			id := r.Item.ID
			if _, seen := scores[id]; !seen {
				items[id] = r.Item
				order = append(order, id)
			}
			scores[id] += list.Weight / float64(rank+k)
		}
	}
	fused := make([]schema.SearchResult, 0, len(order))
	for _, id := range order {
		fused = append(fused, schema.SearchResult{Item: items[id], Score: scores[id]})
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

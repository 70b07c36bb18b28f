package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/legalsearch/legalrag/schema"
)

// MemoryStore is an in-process Store used for development and tests. Points
// are kept in insertion order per collection; upserting an existing id
// replaces the point without changing its position.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dim   int
	order []string
	items map[string]schema.KnowledgeItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = &memoryCollection{
			dim:   dim,
			items: make(map[string]schema.KnowledgeItem),
		}
	}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, item schema.KnowledgeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s not found", collection)
	}
	if c.dim > 0 && len(item.Vector) != c.dim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(item.Vector), c.dim)
	}
	if _, exists := c.items[item.ID]; !exists {
		c.order = append(c.order, item.ID)
	}
	c.items[item.ID] = item
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s not found", collection)
	}
	if _, exists := c.items[id]; !exists {
		return nil
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}
	topK, filter := searchParams(opts)
	results := make([]schema.SearchResult, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if !matchFilter(item.Metadata, filter) {
			continue
		}
		results = append(results, schema.SearchResult{
			Item:  item,
			Score: cosineSimilarity(vector, item.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) TextSearch(_ context.Context, collection string, query string, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}
	topK, filter := searchParams(opts)
	results := make([]schema.SearchResult, 0, topK)
	for _, id := range c.order {
		item := c.items[id]
		if !strings.Contains(item.Content, query) {
			continue
		}
		if !matchFilter(item.Metadata, filter) {
			continue
		}
		results = append(results, schema.SearchResult{Item: item})
		if len(results) >= topK {
			break
		}
	}
	return results, nil
}

func (s *MemoryStore) Stats(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection %s not found", collection)
	}
	return int64(len(c.items)), nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func searchParams(opts *schema.SearchOptions) (int, schema.Filter) {
	if opts == nil {
		return 10, nil
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	return topK, opts.Filter
}

// matchFilter treats a []string filter value as membership, anything else as
// equality against the metadata value's string form.
func matchFilter(metadata map[string]interface{}, filter schema.Filter) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case []string:
			if !containsString(w, fmt.Sprintf("%v", got)) {
				return false
			}
		default:
			if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", w) {
				return false
			}
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

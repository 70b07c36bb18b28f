package cache

import (
	"errors"
	"sync"

	"github.com/legalsearch/legalrag/schema"
)

// ErrExists is returned by Put when an analysis result is already cached
// for the case id. Callers racing on the same case treat it as benign: the
// first writer wins and the loser's result is discarded.
var ErrExists = errors.New("analysis result already cached for case")

// AnalysisCache stores at most one analysis result per case id. Entries
// never expire; they leave the cache only through Invalidate or capacity
// eviction.
type AnalysisCache struct {
	mu    sync.Mutex
	inner Cache
}

func NewAnalysisCache(capacity int) *AnalysisCache {
	return &AnalysisCache{inner: NewLRU(capacity, 0)}
}

func (c *AnalysisCache) Get(caseID string) (*schema.AnalysisResult, bool) {
	v, ok := c.inner.Get(caseID)
	if !ok {
		return nil, false
	}
	return v.(*schema.AnalysisResult), true
}

// Put stores the result for the case id. It fails with ErrExists when an
// entry is already present; it never overwrites.
func (c *AnalysisCache) Put(caseID string, result *schema.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inner.Get(caseID); ok {
		return ErrExists
	}
	c.inner.Set(caseID, result, 0)
	return nil
}

// Invalidate drops the cached result for the case id, if any. The
// persistence layer calls this when case content changes.
func (c *AnalysisCache) Invalidate(caseID string) {
	c.inner.Delete(caseID)
}

func (c *AnalysisCache) Len() int {
	return c.inner.Len()
}

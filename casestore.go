package legalrag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/legalsearch/legalrag/schema"
)

// ErrCaseNotFound is the only fatal error class of an analysis run: the
// requested case record does not exist.
var ErrCaseNotFound = errors.New("case not found")

// CaseStore is the boundary to the case persistence layer. Implementations
// return ErrCaseNotFound (possibly wrapped) for unknown ids.
type CaseStore interface {
	GetCase(ctx context.Context, id string) (*schema.CaseRecord, error)
}

// MemoryCaseStore holds case records in memory. It serves tests and the
// CLI's offline mode.
type MemoryCaseStore struct {
	mu    sync.RWMutex
	cases map[string]schema.CaseRecord
}

func NewMemoryCaseStore() *MemoryCaseStore {
	return &MemoryCaseStore{cases: make(map[string]schema.CaseRecord)}
}

func (s *MemoryCaseStore) PutCase(record schema.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[record.ID] = record
}

func (s *MemoryCaseStore) GetCase(_ context.Context, id string) (*schema.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", id, ErrCaseNotFound)
	}
	return &record, nil
}

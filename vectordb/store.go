package vectordb

import (
	"context"
	"fmt"

	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/schema"
)

// Store is the collection-scoped vector + lexical index backend.
//
// Vector search scores are cosine similarities, strictly descending, with no
// duplicate ids. Text search ranking order is store-defined; backends without
// a native lexical score return candidates in insertion order with zero
// scores, leaving ranking to rank-based fusion.
type Store interface {
	// EnsureCollection creates the collection if missing. Idempotent.
	EnsureCollection(ctx context.Context, collection string, dim int) error
	// Upsert fully replaces any existing point with the same id.
	Upsert(ctx context.Context, collection string, item schema.KnowledgeItem) error
	Delete(ctx context.Context, collection string, id string) error
	Search(ctx context.Context, collection string, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error)
	TextSearch(ctx context.Context, collection string, query string, opts *schema.SearchOptions) ([]schema.SearchResult, error)
	// Stats returns the number of points in the collection.
	Stats(ctx context.Context, collection string) (int64, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// NewStore creates a vector store backend from configuration.
func NewStore(cfg config.VectorDBConfig) (Store, error) {
	switch cfg.Provider {
	case "", "memory":
		return NewMemoryStore(), nil
	case "milvus":
		return NewMilvusStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported vectordb provider: %s", cfg.Provider)
	}
}

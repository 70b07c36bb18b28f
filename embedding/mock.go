package embedding

import (
	"context"
	"crypto/md5"
	"math"
)

// MockProvider produces deterministic pseudo-embeddings from a digest of the
// input text. Identical text always maps to an identical vector, so vector
// search stays meaningful for exact re-queries without a live provider.
type MockProvider struct {
	dim int
}

// NewMockProvider creates a mock provider with the given dimension.
func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1024
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return mockVector(text, m.dim), nil
}

func (m *MockProvider) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, mockVector(t, m.dim))
	}
	return out, nil
}

func (m *MockProvider) Dimensions() int { return m.dim }

// mockVector maps the md5 digest bytes cyclically into [-1, 1] components
// and L2-normalizes the result.
func mockVector(text string, dim int) []float32 {
	digest := md5.Sum([]byte(text))

	vec := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		b := digest[i%len(digest)]
		v := float64(b)/127.5 - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

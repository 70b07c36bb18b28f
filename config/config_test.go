package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultSemanticWeight, cfg.Retrieval.SemanticWeight)
	assert.Equal(t, DefaultRRFK, cfg.Retrieval.RRFK)
	assert.Equal(t, DefaultEmbeddingDim, cfg.Embedding.Dimensions)
	assert.Equal(t, DefaultExtractionChars, cfg.Agent.ExtractionPrefixChars)

	// Query enhancement and reranking run unless explicitly disabled.
	require.NotNil(t, cfg.Retrieval.EnhanceQuery)
	require.NotNil(t, cfg.Retrieval.Rerank)
	assert.True(t, *cfg.Retrieval.EnhanceQuery)
	assert.True(t, *cfg.Retrieval.Rerank)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: openai
  model: gpt-4o-mini
vectordb:
  provider: milvus
  host: milvus.internal
  port: 19530
retrieval:
  top_k: 8
  semantic_weight: 0.6
  rerank: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "milvus.internal", cfg.VectorDB.Host)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.6, cfg.Retrieval.SemanticWeight, 1e-9)
	// An explicit false survives defaulting; the unset flag picks it up.
	require.NotNil(t, cfg.Retrieval.Rerank)
	assert.False(t, *cfg.Retrieval.Rerank)
	require.NotNil(t, cfg.Retrieval.EnhanceQuery)
	assert.True(t, *cfg.Retrieval.EnhanceQuery)
	// Unset knobs still pick up defaults.
	assert.Equal(t, DefaultRRFK, cfg.Retrieval.RRFK)
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("LEGALRAG_LLM_API_KEY", "sk-test")
	t.Setenv("LEGALRAG_MILVUS_HOST", "milvus.env")

	path := writeConfig(t, `
llm:
  provider: openai
  model: gpt-4o-mini
vectordb:
  provider: milvus
  host: milvus.file
  port: 19530
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "milvus.env", cfg.VectorDB.Host)
}

func TestValidateErrors(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.Provider = "openai" // model missing
	cfg.VectorDB.Provider = "milvus"
	cfg.ApplyDefaults()
	cfg.Retrieval.SemanticWeight = 2

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["llm.model"])
	assert.True(t, fields["vectordb.host"])
	assert.True(t, fields["retrieval.semantic_weight"])
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "llm: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

package config

// Config is the top-level configuration for the legal analysis engine.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
}

// LLMConfig defines the completion provider used for extraction, query
// enhancement, reranking and synthesis. An empty Provider disables the
// completion-dependent steps; retrieval still works.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai, dashscope, siliconflow
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines the embedding provider. With an empty Provider the
// engine runs on deterministic mock vectors, which keeps development and
// tests fully offline.
type EmbeddingConfig struct {
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: openai, dashscope, "" (mock)
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines the knowledge store backend.
type VectorDBConfig struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: milvus, memory
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// RetrievalConfig carries the retrieval and fusion knobs.
type RetrievalConfig struct {
	TopK           int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	SemanticWeight float64 `json:"semantic_weight,omitempty" yaml:"semantic_weight,omitempty"`
	RRFK           int     `json:"rrf_k,omitempty" yaml:"rrf_k,omitempty"`
	// EnhanceQuery toggles LLM keyword extraction before retrieval.
	// Unset means enabled; both steps additionally need a completion
	// provider to run.
	EnhanceQuery *bool `json:"enhance_query,omitempty" yaml:"enhance_query,omitempty"`
	// Rerank toggles LLM permutation reranking of over-fetched candidates.
	// Unset means enabled.
	Rerank *bool `json:"rerank,omitempty" yaml:"rerank,omitempty"`
	// CacheEntries and CacheTTLSeconds size the L1 retrieval cache.
	CacheEntries    int `json:"cache_entries,omitempty" yaml:"cache_entries,omitempty"`
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty" yaml:"cache_ttl_seconds,omitempty"`
}

// AgentConfig carries the analysis agent knobs.
type AgentConfig struct {
	// ExtractionPrefixChars bounds the case text sent to element extraction.
	ExtractionPrefixChars int `json:"extraction_prefix_chars,omitempty" yaml:"extraction_prefix_chars,omitempty"`
	// SynthesisMaxTokens bounds the synthesis completion.
	SynthesisMaxTokens int `json:"synthesis_max_tokens,omitempty" yaml:"synthesis_max_tokens,omitempty"`
}

const (
	DefaultTopK            = 5
	DefaultSemanticWeight  = 0.7
	DefaultRRFK            = 60
	DefaultEmbeddingDim    = 1024
	DefaultExtractionChars = 2000
	DefaultSynthesisTokens = 8192
	DefaultCacheEntries    = 500
	DefaultCacheTTLSeconds = 120
	DefaultLLMMaxTokens    = 2048
	DefaultLLMTemperature  = 0.5
)

// ApplyDefaults fills zero-valued knobs with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if c.Retrieval.SemanticWeight <= 0 || c.Retrieval.SemanticWeight > 1 {
		c.Retrieval.SemanticWeight = DefaultSemanticWeight
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = DefaultRRFK
	}
	if c.Retrieval.EnhanceQuery == nil {
		c.Retrieval.EnhanceQuery = boolPtr(true)
	}
	if c.Retrieval.Rerank == nil {
		c.Retrieval.Rerank = boolPtr(true)
	}
	if c.Retrieval.CacheEntries <= 0 {
		c.Retrieval.CacheEntries = DefaultCacheEntries
	}
	if c.Retrieval.CacheTTLSeconds <= 0 {
		c.Retrieval.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = DefaultEmbeddingDim
	}
	if c.Agent.ExtractionPrefixChars <= 0 {
		c.Agent.ExtractionPrefixChars = DefaultExtractionChars
	}
	if c.Agent.SynthesisMaxTokens <= 0 {
		c.Agent.SynthesisMaxTokens = DefaultSynthesisTokens
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = DefaultLLMTemperature
	}
}

func boolPtr(b bool) *bool { return &b }

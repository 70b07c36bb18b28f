package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, applies environment overrides for secrets,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config failed, err: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config failed, err: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays credentials and endpoints from the environment so they
// never have to live in the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("LEGALRAG_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LEGALRAG_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LEGALRAG_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("LEGALRAG_EMBEDDING_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("LEGALRAG_MILVUS_HOST"); v != "" {
		c.VectorDB.Host = v
	}
	if v := os.Getenv("LEGALRAG_MILVUS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.VectorDB.Port = p
		}
	}
	if v := os.Getenv("LEGALRAG_MILVUS_PASSWORD"); v != "" {
		c.VectorDB.Password = v
	}
}

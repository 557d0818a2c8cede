// Package config loads the YAML runtime configuration, expanding ~ paths and
// scy secret references.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"

	"github.com/lexius/lexius/chunker"
	"github.com/lexius/lexius/pipeline"
)

// Config is the root configuration document.
type Config struct {
	Store      StoreConfig                `yaml:"store"`
	Embedding  EmbeddingConfig            `yaml:"embedding"`
	Completion CompletionConfig           `yaml:"completion"`
	Chunking   chunker.Config             `yaml:"chunking"`
	Ranking    pipeline.RankWeights       `yaml:"ranking"`
	Confidence pipeline.ConfidenceWeights `yaml:"confidence"`
	Ingest     IngestConfig               `yaml:"ingest"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	// DSN locates the sqlite database.
	DSN string `yaml:"dsn"`
	// Dataset scopes records within the sqlite store.
	Dataset string `yaml:"dataset"`
	// BaseURL enables snapshot persistence for the memory store.
	BaseURL string `yaml:"baseURL"`
	Secret  string `yaml:"secret,omitempty"`
}

// EmbeddingConfig selects the embedding strategy.
type EmbeddingConfig struct {
	// Strategy is "auto", "dense", "tfidf" or "hash".
	Strategy string `yaml:"strategy"`
	// Provider selects the dense backend: "openai", "ollama" or "vertexai".
	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Secret   string `yaml:"secret,omitempty"`
	// Project and Location apply to the vertexai provider.
	Project  string `yaml:"project,omitempty"`
	Location string `yaml:"location,omitempty"`
	// ProbeTimeoutSeconds bounds the startup availability probe.
	ProbeTimeoutSeconds int `yaml:"probeTimeoutSeconds"`
	// MaxFeatures bounds the tfidf vocabulary.
	MaxFeatures int `yaml:"maxFeatures"`
	NgramMax    int `yaml:"ngramMax"`
}

// CompletionConfig configures the generation service.
type CompletionConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"apiKey"`
	Secret         string  `yaml:"secret,omitempty"`
	MaxTokens      int     `yaml:"maxTokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// IngestConfig filters batch ingestion walks.
type IngestConfig struct {
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	MaxSizeBytes int      `yaml:"maxSizeBytes"`
}

// Load reads, parses and expands the configuration at path.
func Load(ctx context.Context, path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if cfg.Store.DSN != "" {
		if cfg.Store.DSN, err = expandUserPath(cfg.Store.DSN); err != nil {
			return nil, err
		}
	}
	if cfg.Store.BaseURL != "" {
		if cfg.Store.BaseURL, err = expandUserPath(cfg.Store.BaseURL); err != nil {
			return nil, err
		}
	}
	if cfg.Store.Secret != "" {
		if cfg.Store.DSN, err = ExpandWithSecret(ctx, cfg.Store.DSN, cfg.Store.Secret); err != nil {
			return nil, err
		}
	}
	if cfg.Embedding.Secret != "" {
		if cfg.Embedding.APIKey, err = ExpandWithSecret(ctx, cfg.Embedding.APIKey, cfg.Embedding.Secret); err != nil {
			return nil, err
		}
	}
	if cfg.Completion.Secret != "" {
		if cfg.Completion.APIKey, err = ExpandWithSecret(ctx, cfg.Completion.APIKey, cfg.Completion.Secret); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Default returns a configuration with every defaultable field populated.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Embedding.Strategy == "" {
		c.Embedding.Strategy = "auto"
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = 2048
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = 0.1
	}
	if c.Completion.TimeoutSeconds == 0 {
		c.Completion.TimeoutSeconds = 8
	}
	if c.Chunking.SizeWords == 0 && c.Chunking.OverlapWords == 0 {
		c.Chunking = chunker.DefaultConfig()
	}
	if c.Ranking == (pipeline.RankWeights{}) {
		c.Ranking = pipeline.DefaultRankWeights()
	}
	if c.Confidence == (pipeline.ConfidenceWeights{}) {
		c.Confidence = pipeline.DefaultConfidenceWeights()
	}
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return path, nil
	}
	if trimmed[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	if !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	return filepath.Join(home, trimmed[2:]), nil
}

// ExpandWithSecret loads a secret and expands placeholders in value. When
// value is empty, the secret itself is returned.
func ExpandWithSecret(ctx context.Context, value, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return value, nil
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return sec.String(), nil
	}
	return sec.Expand(value), nil
}

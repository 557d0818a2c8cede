package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexius.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  dsn: /var/lib/lexius/index.sqlite
  dataset: contracts
embedding:
  strategy: tfidf
  maxFeatures: 2000
completion:
  model: gpt-4o-mini
  maxTokens: 1024
  temperature: 0.2
  timeoutSeconds: 12
chunking:
  sizeWords: 300
  overlapWords: 60
ranking:
  similarity: 0.6
  legal: 0.3
  complexity: 0.1
ingest:
  include:
    - "*.pdf"
  exclude:
    - "drafts/"
  maxSizeBytes: 1048576
`)
	cfg, err := Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/lexius/index.sqlite", cfg.Store.DSN)
	assert.Equal(t, "contracts", cfg.Store.Dataset)
	assert.Equal(t, "tfidf", cfg.Embedding.Strategy)
	assert.Equal(t, 2000, cfg.Embedding.MaxFeatures)
	assert.Equal(t, 1024, cfg.Completion.MaxTokens)
	assert.Equal(t, 0.2, cfg.Completion.Temperature)
	assert.Equal(t, 12, cfg.Completion.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Chunking.SizeWords)
	assert.Equal(t, 60, cfg.Chunking.OverlapWords)
	assert.Equal(t, 0.6, cfg.Ranking.Similarity)
	assert.Equal(t, []string{"*.pdf"}, cfg.Ingest.Include)
	assert.Equal(t, 1048576, cfg.Ingest.MaxSizeBytes)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `store: {}`)
	cfg, err := Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "auto", cfg.Embedding.Strategy)
	assert.Equal(t, 200, cfg.Chunking.SizeWords)
	assert.Equal(t, 40, cfg.Chunking.OverlapWords)
	assert.Equal(t, 0.7, cfg.Ranking.Similarity)
	assert.Equal(t, 0.2, cfg.Ranking.Legal)
	assert.Equal(t, 0.1, cfg.Ranking.Complexity)
	assert.Equal(t, 0.7, cfg.Confidence.Similarity)
	assert.Equal(t, 0.3, cfg.Confidence.Coverage)
	assert.Equal(t, 2048, cfg.Completion.MaxTokens)
	assert.Equal(t, 0.1, cfg.Completion.Temperature)
	assert.Equal(t, 8, cfg.Completion.TimeoutSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadExpandsHomePaths(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: memory
  baseURL: ~/lexius-snapshots
`)
	cfg, err := Load(context.Background(), path)
	assert.NoError(t, err)
	home, err := os.UserHomeDir()
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "lexius-snapshots"), cfg.Store.BaseURL)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "auto", cfg.Embedding.Strategy)
	assert.Equal(t, 200, cfg.Chunking.SizeWords)
}

func TestExpandWithSecretNoRef(t *testing.T) {
	got, err := ExpandWithSecret(context.Background(), "plain-value", "")
	assert.NoError(t, err)
	assert.Equal(t, "plain-value", got)
}

func TestExpandUserPath(t *testing.T) {
	got, err := expandUserPath("/absolute/path")
	assert.NoError(t, err)
	assert.Equal(t, "/absolute/path", got)

	got, err = expandUserPath("")
	assert.NoError(t, err)
	assert.Equal(t, "", got)

	home, _ := os.UserHomeDir()
	got, err = expandUserPath("~/data")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), got)

	got, err = expandUserPath("~")
	assert.NoError(t, err)
	assert.Equal(t, home, got)

	_, err = expandUserPath("~otheruser/data")
	assert.Error(t, err)
}

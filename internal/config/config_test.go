package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigExpandsEnvAndParsesDurations(t *testing.T) {
	t.Setenv("TEST_EMBED_URL", "http://localhost:11434")

	cfg, err := LoadConfig(writeConfig(t, `
embed_llm:
  provider: ollama
  base_url: ${TEST_EMBED_URL}
  model: nomic-embed-text
  dimension: 768
  initial_delay: 250ms
  timeout: 45s
`))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.EmbedLLM.InitialDelay.Std())
	assert.Equal(t, 45*time.Second, cfg.EmbedLLM.Timeout.Std())
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
  dimension: 768
`))
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.EmbedLLM.MaxBatchSize)
	assert.Equal(t, 8000, cfg.EmbedLLM.MaxInputChars)
	assert.Equal(t, 4, cfg.EmbedLLM.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.EmbedLLM.InitialDelay.Std())
	assert.Equal(t, 30*time.Second, cfg.EmbedLLM.Timeout.Std())
	assert.Equal(t, "study_chunks", cfg.Vector.Collection)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 0.15, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 6000, cfg.RAG.MaxContextChars)
	assert.Equal(t, 4, cfg.RAG.MaxConcurrency)
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
embed_llm:
  provider: cohere
  base_url: http://localhost:11434
  model: embed-v3
  dimension: 1024
`))
	assert.Error(t, err)
}

func TestLoadConfigRejectsOverlapAtOrAboveHalf(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
  dimension: 768
rag:
  chunk_overlap: 0.5
`))
	assert.Error(t, err, "overlap must stay below half the chunk size")
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
  dimension: 768
  timeout: soon
`))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

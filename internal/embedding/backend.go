package embedding

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"studi-rag/internal/config"
)

// Backend is the raw batch text-to-vector inference surface. The
// langchaingo embedder implementations satisfy it.
type Backend interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// NewBackend builds the configured langchaingo embedding backend.
func NewBackend(cfg *config.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIBackend(cfg)
	default:
		return newOllamaBackend(cfg)
	}
}

func newOllamaBackend(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

func newOpenAIBackend(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

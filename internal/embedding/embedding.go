package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"manual-rag/internal/config"
	"manual-rag/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates an embedder for the configured provider
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	client, err := newEmbedderClient(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding backend: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func newEmbedderClient(llmConfig *config.LLMConfig) (embeddings.EmbedderClient, error) {
	httpClient := &http.Client{Timeout: llmConfig.Timeout}
	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(llmConfig.Model),
			openai.WithHTTPClient(httpClient),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	case config.ProviderOllama, "":
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
			ollama.WithHTTPClient(httpClient),
		)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", llmConfig.Provider)
	}
}

// GenerateEmbeddings embeds every chunk in a single batch. Either all chunks
// get a vector or an error is returned.
func GenerateEmbeddings(ctx context.Context, embedder embeddings.Embedder, source string, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	start := time.Now()
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", models.ErrEmbeddingMismatch, len(vectors), len(texts))
	}
	log.Info().Int("chunks", len(chunks)).Dur("elapsed", time.Since(start)).Msg("Generated embeddings")

	chunkEmbeddings := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		chunkEmbeddings[i] = models.ChunkEmbedding{
			Chunk:     chunk,
			Source:    source,
			Embedding: vectors[i],
		}
	}
	return chunkEmbeddings, nil
}

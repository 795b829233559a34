package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"manual-rag/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewLLM creates the text generation model for the configured provider
func NewLLM(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating LLM")

	httpClient := &http.Client{Timeout: llmConfig.Timeout}
	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
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
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
}

// Generator sends a single prompt to the model and returns the full reply.
type Generator struct {
	llm     llms.Model
	timeout time.Duration
	opts    []llms.CallOption
}

func NewGenerator(llmConfig *config.LLMConfig) (*Generator, error) {
	llm, err := NewLLM(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation backend: %w", err)
	}
	return NewGeneratorWithModel(llm, llmConfig.Timeout, llms.WithTemperature(llmConfig.Temperature)), nil
}

func NewGeneratorWithModel(llm llms.Model, timeout time.Duration, opts ...llms.CallOption) *Generator {
	return &Generator{llm: llm, timeout: timeout, opts: opts}
}

// Generate is a blocking, non-streaming completion of prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	answer, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, g.opts...)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

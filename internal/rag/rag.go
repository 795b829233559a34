package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"manual-rag/internal/models"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options holds the answer-side settings.
type Options struct {
	ManualName    string
	MinSimilarity float64
}

type RAG struct {
	retriever *Retriever
	generator Generator
	opts      Options
}

func NewRAG(retriever *Retriever, generator Generator, opts Options) *RAG {
	return &RAG{retriever: retriever, generator: generator, opts: opts}
}

// Query answers question from the manual. When nothing relevant enough is
// retrieved the fixed refusal is returned and the generator is not called.
func (r *RAG) Query(ctx context.Context, question string) (*models.QueryOutcome, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.ErrEmptyQuestion
	}

	retrieval, err := r.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	outcome := &models.QueryOutcome{
		Sources:              retrieval.Results,
		RetrievalLatency:     retrieval.Latency,
		AppliedChapterFilter: retrieval.Chapter,
	}

	if !r.confident(retrieval.Results) {
		outcome.Answer = models.RefusalAnswer
		return outcome, nil
	}

	prompt := BuildPrompt(r.opts.ManualName, question, retrieval.Results)
	log.Debug().Int("prompt_chars", len(prompt)).Msg("Generating answer")

	start := time.Now()
	answer, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	outcome.GenerationLatency = time.Since(start)
	outcome.Answer = strings.TrimSpace(answer)
	return outcome, nil
}

// confident reports whether the best result clears the similarity threshold.
func (r *RAG) confident(results []models.RetrievalResult) bool {
	if len(results) == 0 {
		return false
	}
	best := results[0].Score
	for _, res := range results[1:] {
		best = max(best, res.Score)
	}
	return best >= r.opts.MinSimilarity
}

// LogOutcome writes the per-query summary.
func LogOutcome(question string, outcome *models.QueryOutcome) {
	chapter := ""
	if outcome.AppliedChapterFilter != nil {
		chapter = *outcome.AppliedChapterFilter
	}
	log.Info().
		Str("question", question).
		Str("chapter_filter", chapter).
		Dur("retrieval", outcome.RetrievalLatency).
		Dur("generation", outcome.GenerationLatency).
		Int("sources", len(outcome.Sources)).
		Msg("Answered query")
	for _, s := range outcome.Sources {
		log.Debug().Str("chapter", s.Chapter).Int("page", s.Page).Float64("score", s.Score).Msg("Source")
	}
}

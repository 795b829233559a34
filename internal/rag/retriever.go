package rag

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"manual-rag/internal/models"
)

// StoreOpener opens a vector store for the duration of one call.
type StoreOpener func(ctx context.Context) (models.VectorStore, error)

// Retrieval is the outcome of one similarity search.
type Retrieval struct {
	Results []models.RetrievalResult
	Latency time.Duration
	Chapter *string
}

type Retriever struct {
	open     StoreOpener
	topK     int
	score    ScoreFunc
	fallback bool
}

type RetrieverOption func(*Retriever)

// WithScoreFunc overrides the default 1/(1+d) scoring.
func WithScoreFunc(fn ScoreFunc) RetrieverOption {
	return func(r *Retriever) {
		if fn != nil {
			r.score = fn
		}
	}
}

// WithFallbackWithoutFilter retries without the chapter filter when the
// filtered search returns nothing.
func WithFallbackWithoutFilter(enabled bool) RetrieverOption {
	return func(r *Retriever) { r.fallback = enabled }
}

func NewRetriever(open StoreOpener, topK int, opts ...RetrieverOption) *Retriever {
	r := &Retriever{open: open, topK: topK, score: InverseDistance}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve resolves a chapter filter from the question and returns the
// nearest chunks in store order.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*Retrieval, error) {
	store, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing vector store")
		}
	}()

	metas, err := store.ListMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	var applied *string
	var where map[string]string
	if chapter, ok := ResolveChapter(question, DistinctChapters(metas)); ok {
		applied = &chapter
		where = map[string]string{models.MetaChapter: chapter}
	}

	start := time.Now()
	matches, err := store.Query(ctx, question, r.topK, where)
	if err == nil && len(matches) == 0 && where != nil && r.fallback {
		log.Debug().Str("chapter", *applied).Msg("Chapter filter returned nothing, retrying without it")
		applied = nil
		matches, err = store.Query(ctx, question, r.topK, nil)
	}
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	results := make([]models.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		page, _ := strconv.Atoi(m.Metadata[models.MetaPage])
		results = append(results, models.RetrievalResult{
			Text:    m.Content,
			Chapter: m.Metadata[models.MetaChapter],
			Page:    page,
			Score:   r.score(m.Distance),
		})
	}
	return &Retrieval{Results: results, Latency: latency, Chapter: applied}, nil
}

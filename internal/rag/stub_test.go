package rag

import (
	"context"
	"errors"

	"manual-rag/internal/models"
)

type queryCall struct {
	text  string
	topK  int
	where map[string]string
}

type stubStore struct {
	metas    []map[string]string
	matches  map[string][]models.Match // keyed by chapter filter, "" for none
	queryErr error
	listErr  error
	calls    []queryCall
	closed   int
}

func (s *stubStore) Upsert(context.Context, []string, []string, [][]float32, []map[string]string) error {
	return errors.New("read only")
}

func (s *stubStore) Query(_ context.Context, text string, topK int, where map[string]string) ([]models.Match, error) {
	s.calls = append(s.calls, queryCall{text: text, topK: topK, where: where})
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.matches[where[models.MetaChapter]], nil
}

func (s *stubStore) ListMetadata(context.Context) ([]map[string]string, error) {
	return s.metas, s.listErr
}

func (s *stubStore) Reset(context.Context) error { return nil }

func (s *stubStore) Close() error {
	s.closed++
	return nil
}

func (s *stubStore) opener() StoreOpener {
	return func(context.Context) (models.VectorStore, error) { return s, nil }
}

type stubGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

func meta(chapter string, page string) map[string]string {
	return map[string]string{models.MetaChapter: chapter, models.MetaPage: page, models.MetaSource: "manual.pdf"}
}

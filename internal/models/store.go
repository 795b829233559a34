package models

import "context"

// VectorStore persists chunk embeddings with metadata and answers similarity queries.
//
// Upsert is idempotent per id. Query embeds queryText itself and returns at most
// topK matches ordered best first; where is an equality filter on metadata.
type VectorStore interface {
	Upsert(ctx context.Context, ids, texts []string, embeddings [][]float32, metadatas []map[string]string) error
	Query(ctx context.Context, queryText string, topK int, where map[string]string) ([]Match, error)
	ListMetadata(ctx context.Context) ([]map[string]string, error)
	Reset(ctx context.Context) error
	Close() error
}

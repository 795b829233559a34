package store

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"manual-rag/internal/chromemdb"
	"manual-rag/internal/config"
	"manual-rag/internal/db"
	"manual-rag/internal/helper"
	"manual-rag/internal/models"
	"manual-rag/internal/rag"
)

// NewOpener returns a StoreOpener for the configured vector store type.
// Every call opens a fresh handle that the caller closes.
func NewOpener(cfg *config.Config, embedder embeddings.Embedder) (rag.StoreOpener, error) {
	switch cfg.VectorStore.Type {
	case config.StoreChromem, "":
		vs := cfg.VectorStore
		if !vs.InMemory {
			if err := helper.CreateFolder(vs.Path); err != nil {
				return nil, err
			}
		}
		opts := chromemdb.Options{
			Path:          vs.Path,
			Collection:    vs.Collection,
			Compress:      vs.Compress,
			InMemory:      vs.InMemory,
			ExportFile:    vs.ExportFile,
			EncryptionKey: vs.EncryptionKey,
		}
		return func(context.Context) (models.VectorStore, error) {
			return chromemdb.NewVectorDBManager(opts, embedder)
		}, nil
	case config.StorePgvector:
		dbCfg := cfg.Database
		return func(ctx context.Context) (models.VectorStore, error) {
			return db.Open(ctx, &dbCfg, embedder)
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.VectorStore.Type)
	}
}

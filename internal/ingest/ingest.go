package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"manual-rag/internal/config"
	"manual-rag/internal/embedding"
	"manual-rag/internal/helper"
	"manual-rag/internal/models"
	"manual-rag/internal/parser"
	"manual-rag/internal/rag"
)

// Indexer embeds chunks and writes them to a vector store.
type Indexer struct {
	embedder embeddings.Embedder
	store    models.VectorStore
	source   string
}

func NewIndexer(embedder embeddings.Embedder, store models.VectorStore, source string) *Indexer {
	return &Indexer{embedder: embedder, store: store, source: source}
}

// Build embeds every chunk and upserts them in a single call. Nothing is
// written if embedding fails.
func (ix *Indexer) Build(ctx context.Context, chunks []models.Chunk) (int, error) {
	return ix.index(ctx, chunks, false)
}

// Rebuild is Build with the store reset once every chunk has been embedded.
func (ix *Indexer) Rebuild(ctx context.Context, chunks []models.Chunk) (int, error) {
	return ix.index(ctx, chunks, true)
}

func (ix *Indexer) index(ctx context.Context, chunks []models.Chunk, reset bool) (int, error) {
	chunkEmbeddings, err := embedding.GenerateEmbeddings(ctx, ix.embedder, ix.source, chunks)
	if err != nil {
		return 0, err
	}
	if reset {
		if err := ix.store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("failed to reset vector store: %w", err)
		}
	}
	if len(chunkEmbeddings) == 0 {
		return 0, nil
	}

	ids := make([]string, len(chunkEmbeddings))
	texts := make([]string, len(chunkEmbeddings))
	vectors := make([][]float32, len(chunkEmbeddings))
	metadatas := make([]map[string]string, len(chunkEmbeddings))
	for i, ce := range chunkEmbeddings {
		ids[i] = ce.ID
		texts[i] = ce.Text
		vectors[i] = ce.Embedding
		metadatas[i] = map[string]string{
			models.MetaSource:  ce.Source,
			models.MetaChapter: ce.Chapter,
			models.MetaPage:    strconv.Itoa(ce.PageNumber),
		}
	}

	if err := ix.store.Upsert(ctx, ids, texts, vectors, metadatas); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}
	return len(ids), nil
}

// Deps are the backends an ingestion run writes to.
type Deps struct {
	Embedder embeddings.Embedder
	Open     rag.StoreOpener
}

// LoadChunks extracts, segments and chunks the document at path.
func LoadChunks(cfg *config.Config, path string) ([]models.Chunk, error) {
	var (
		pages    []models.Page
		headings []string
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		pages, headings, err = parser.ExtractMarkdown(path)
	default:
		pages, err = parser.ExtractPages(path)
	}
	if err != nil {
		return nil, err
	}

	var cls parser.HeadingClassifier = parser.NewHeuristic(cfg.Document.HeadingPhrases)
	if len(headings) > 0 {
		cls = parser.AnyOf(parser.NewHeadingSet(headings), cls)
	}

	chunker := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, helper.NewChunkID)
	chunks := chunker.Chunk(parser.Segment(pages, cls))
	log.Info().Str("file", path).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Parsed document")
	return chunks, nil
}

// Run rebuilds the index from cfg.Document.Path, replacing what was stored.
// With dryRun set the chunks are printed and no backend is touched.
func Run(ctx context.Context, cfg *config.Config, deps Deps, dryRun bool) ([]models.Chunk, error) {
	path := cfg.Document.Path
	if path == "" {
		return nil, errors.New("no document path configured")
	}

	chunks, err := LoadChunks(cfg, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if dryRun {
		helper.PrettyPrint(chunks)
		return chunks, nil
	}
	if deps.Embedder == nil || deps.Open == nil {
		return nil, models.ErrStoreNotConfigured
	}

	store, err := deps.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing vector store")
		}
	}()

	start := time.Now()
	n, err := NewIndexer(deps.Embedder, store, path).Rebuild(ctx, chunks)
	if err != nil {
		return nil, err
	}
	log.Info().Int("stored", n).Dur("elapsed", time.Since(start)).Msg("Index built")
	return chunks, nil
}

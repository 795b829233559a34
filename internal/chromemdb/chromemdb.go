package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"gopkg.in/yaml.v3"

	"manual-rag/internal/models"
)

// Options configures where and how the collection is kept.
type Options struct {
	Path          string
	Collection    string
	Compress      bool
	InMemory      bool
	ExportFile    string
	EncryptionKey string
}

// manifest records the metadata of every stored chunk so the store can be
// scanned without a query vector.
type manifest struct {
	Documents map[string]map[string]string `yaml:"documents"`
}

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db           *chromem.DB
	collection   *chromem.Collection
	embedder     embeddings.Embedder
	opts         Options
	manifestPath string
	manifest     manifest
}

// NewVectorDBManager opens (or creates) the collection described by opts.
// In-memory databases are seeded from opts.ExportFile when it exists.
func NewVectorDBManager(opts Options, embedder embeddings.Embedder) (*VectorDBManager, error) {
	if opts.Collection == "" {
		return nil, errors.New("collection name is required")
	}

	m := &VectorDBManager{
		embedder: embedder,
		opts:     opts,
		manifest: manifest{Documents: map[string]map[string]string{}},
	}

	var err error
	if opts.InMemory {
		m.db = chromem.NewDB()
		if opts.ExportFile != "" {
			m.manifestPath = opts.ExportFile + ".manifest.yaml"
			if err := m.importExport(); err != nil {
				return nil, err
			}
		}
	} else {
		m.db, err = chromem.NewPersistentDB(opts.Path, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
		m.manifestPath = filepath.Join(opts.Path, opts.Collection+".manifest.yaml")
	}

	if _, err := m.GetOrCreateCollection(opts.Collection); err != nil {
		return nil, err
	}
	if err := m.loadManifest(); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = c
	return c, nil
}

func (m *VectorDBManager) embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	return m.embedder.EmbedQuery(ctx, text)
}

// Upsert adds all documents in one call. Existing ids are overwritten.
func (m *VectorDBManager) Upsert(ctx context.Context, ids, texts []string, vectors [][]float32, metadatas []map[string]string) error {
	if len(ids) != len(texts) || len(ids) != len(vectors) || len(ids) != len(metadatas) {
		return fmt.Errorf("mismatched upsert lengths: %d ids, %d texts, %d embeddings, %d metadatas",
			len(ids), len(texts), len(vectors), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(ids))
	for i := range ids {
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   texts[i],
			Metadata:  metadatas[i],
			Embedding: vectors[i],
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		if rbErr := m.rollback(ctx, ids); rbErr != nil {
			return fmt.Errorf("failed to add documents: %w (rollback failed: %v)", err, rbErr)
		}
		return fmt.Errorf("failed to add documents: %w", err)
	}

	for i, id := range ids {
		m.manifest.Documents[id] = copyMetadata(metadatas[i])
	}
	if err := m.saveManifest(); err != nil {
		return err
	}

	if m.opts.InMemory && m.opts.ExportFile != "" {
		return m.Export(ctx)
	}
	return nil
}

// rollback removes every id of a failed batch from the collection and the
// manifest. AddDocuments persists documents one by one, so some may exist.
func (m *VectorDBManager) rollback(ctx context.Context, ids []string) error {
	if err := m.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	for _, id := range ids {
		delete(m.manifest.Documents, id)
	}
	return m.saveManifest()
}

// Query embeds queryText and returns the topK closest documents. The
// reported distance is the cosine distance 1 - similarity.
func (m *VectorDBManager) Query(ctx context.Context, queryText string, topK int, where map[string]string) ([]models.Match, error) {
	if queryText == "" {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}

	queryEmbedding, err := m.embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       min(topK, count),
		Where:          where,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, len(results))
	for i, r := range results {
		matches[i] = models.Match{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Distance: 1 - float64(r.Similarity),
		}
	}
	return matches, nil
}

// SearchWithQueryOptions runs a raw similarity search
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	return results, nil
}

// ListMetadata returns the metadata of every stored document ordered by id.
func (m *VectorDBManager) ListMetadata(_ context.Context) ([]map[string]string, error) {
	ids := make([]string, 0, len(m.manifest.Documents))
	for id := range m.manifest.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyMetadata(m.manifest.Documents[id]))
	}
	return out, nil
}

// Reset drops and recreates the collection.
func (m *VectorDBManager) Reset(_ context.Context) error {
	if err := m.DeleteCollection(); err != nil {
		return err
	}
	if _, err := m.GetOrCreateCollection(m.opts.Collection); err != nil {
		return err
	}
	m.manifest.Documents = map[string]map[string]string{}
	if m.manifestPath != "" {
		if err := os.Remove(m.manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove manifest: %w", err)
		}
	}
	return nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	err := m.db.DeleteCollection(m.opts.Collection)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// Close releases nothing; chromem persists on write.
func (m *VectorDBManager) Close() error { return nil }

// export to file
func (m *VectorDBManager) Export(_ context.Context) error {
	if m.opts.ExportFile == "" {
		return fmt.Errorf("export file is required")
	}
	if m.opts.EncryptionKey == "" {
		log.Warn().Str("file", m.opts.ExportFile).Msg("Exporting collection without encryption")
	}

	log.Debug().
		Str("collection", m.opts.Collection).
		Str("file", m.opts.ExportFile).
		Bool("compress", m.opts.Compress).
		Msg("Exporting collection")
	err := m.db.ExportToFile(m.opts.ExportFile, m.opts.Compress, m.opts.EncryptionKey, m.opts.Collection)
	if err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

func (m *VectorDBManager) importExport() error {
	if _, err := os.Stat(m.opts.ExportFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := m.db.ImportFromFile(m.opts.ExportFile, m.opts.EncryptionKey); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	return nil
}

func (m *VectorDBManager) loadManifest() error {
	if m.manifestPath == "" {
		return nil
	}
	data, err := os.ReadFile(m.manifestPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	var mf manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if mf.Documents != nil {
		m.manifest = mf
	}
	return nil
}

func (m *VectorDBManager) saveManifest() error {
	if m.manifestPath == "" {
		return nil
	}
	data, err := yaml.Marshal(&m.manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.manifestPath), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest folder: %w", err)
	}
	if err := os.WriteFile(m.manifestPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func copyMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

var _ models.VectorStore = (*VectorDBManager)(nil)

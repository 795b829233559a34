package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"manual-rag/internal/config"
	"manual-rag/internal/models"
)

// Vector is a pgvector value encoded in its text form, e.g. [1,2,3].
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func (v *Vector) Scan(src any) error {
	var s string
	switch t := src.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		*v = Vector{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}

type Document struct {
	bun.BaseModel `bun:"table:manual_chunks,alias:mc"`
	ID            string  `bun:"id,pk"`
	Content       string  `bun:"content,notnull"`
	Source        string  `bun:"source"`
	Chapter       string  `bun:"chapter,notnull"`
	PageNumber    int     `bun:"page"`
	Embedding     Vector  `bun:"embedding,notnull,type:vector"`
	Distance      float64 `bun:"distance,scanonly"`
}

// filterColumns maps metadata keys to the columns they are stored in.
var filterColumns = map[string]string{
	models.MetaSource:  "source",
	models.MetaChapter: "chapter",
	models.MetaPage:    "page",
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn: %w", models.ErrStoreNotConfigured)
	}
	switch cfg.Driver {
	case config.DriverPq:
		dsn, err := withPassword(cfg.DSN, cfg.Password)
		if err != nil {
			return nil, err
		}
		return sql.Open("postgres", dsn)
	case config.DriverPgdriver, "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// withPassword adds password to a URL or key/value style DSN.
func withPassword(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	if !strings.Contains(dsn, "://") {
		return dsn + " password=" + pq.QuoteLiteral(password), nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid database dsn: %w", err)
	}
	user := ""
	if u.User != nil {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, password)
	return u.String(), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// drop table documents
func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

// Store is a VectorStore backed by Postgres with the pgvector extension.
// Distances are Euclidean (the <-> operator).
type Store struct {
	db       *bun.DB
	embedder embeddings.Embedder
}

func NewStore(db *bun.DB, embedder embeddings.Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

// Open connects and makes sure the table exists.
func Open(ctx context.Context, cfg *config.DatabaseConfig, embedder embeddings.Embedder) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return NewStore(db, embedder), nil
}

// Upsert writes all rows in one transaction; existing ids are replaced.
func (s *Store) Upsert(ctx context.Context, ids, texts []string, vectors [][]float32, metadatas []map[string]string) error {
	if len(ids) != len(texts) || len(ids) != len(vectors) || len(ids) != len(metadatas) {
		return fmt.Errorf("mismatched upsert lengths: %d ids, %d texts, %d embeddings, %d metadatas",
			len(ids), len(texts), len(vectors), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}

	docs := make([]Document, len(ids))
	for i := range ids {
		page, _ := strconv.Atoi(metadatas[i][models.MetaPage])
		docs[i] = Document{
			ID:         ids[i],
			Content:    texts[i],
			Source:     metadatas[i][models.MetaSource],
			Chapter:    metadatas[i][models.MetaChapter],
			PageNumber: page,
			Embedding:  Vector(vectors[i]),
		}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&docs).
			On("CONFLICT (id) DO UPDATE").
			Set("content = EXCLUDED.content").
			Set("source = EXCLUDED.source").
			Set("chapter = EXCLUDED.chapter").
			Set("page = EXCLUDED.page").
			Set("embedding = EXCLUDED.embedding").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to store documents: %w", err)
		}
		return nil
	})
}

func (s *Store) Query(ctx context.Context, queryText string, topK int, where map[string]string) ([]models.Match, error) {
	if queryText == "" {
		return nil, errors.New("query text must be provided")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if s.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchDocuments(ctx, queryEmbedding, topK, where)
}

// SearchDocuments returns the limit nearest rows to queryEmbedding.
func (s *Store) SearchDocuments(ctx context.Context, queryEmbedding []float32, limit int, where map[string]string) ([]models.Match, error) {
	var docs []Document
	q := s.db.NewSelect().
		Model(&docs).
		Column("id", "content", "source", "chapter", "page").
		ColumnExpr("embedding <-> ? AS distance", Vector(queryEmbedding))
	for key, value := range where {
		column, ok := filterColumns[key]
		if !ok {
			return nil, fmt.Errorf("unsupported metadata filter %q", key)
		}
		if column == "page" {
			page, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid page filter %q: %w", value, err)
			}
			q = q.Where("? = ?", bun.Ident(column), page)
			continue
		}
		q = q.Where("? = ?", bun.Ident(column), value)
	}
	err := q.OrderExpr("distance ASC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	matches := make([]models.Match, len(docs))
	for i, d := range docs {
		matches[i] = models.Match{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.metadata(),
			Distance: d.Distance,
		}
	}
	return matches, nil
}

func (s *Store) ListMetadata(ctx context.Context) ([]map[string]string, error) {
	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		Column("id", "source", "chapter", "page").
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	out := make([]map[string]string, len(docs))
	for i, d := range docs {
		out[i] = d.metadata()
	}
	return out, nil
}

// Reset drops and recreates the table.
func (s *Store) Reset(ctx context.Context) error {
	if err := DropDocuments(ctx, s.db); err != nil {
		return fmt.Errorf("failed to drop documents: %w", err)
	}
	return InitDB(ctx, s.db)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (d Document) metadata() map[string]string {
	return map[string]string{
		models.MetaSource:  d.Source,
		models.MetaChapter: d.Chapter,
		models.MetaPage:    strconv.Itoa(d.PageNumber),
	}
}

var _ models.VectorStore = (*Store)(nil)

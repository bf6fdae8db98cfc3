package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("meetextract.vectorstore.chromem")

// ChromemConfig configures the embedded store.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path     string
	Compress bool
}

// ChromemStore implements Store with chromem-go.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewChromemStore opens (or creates) the database.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	logger.Debug("chromem store initialized", zap.String("path", config.Path), zap.Bool("persistent", config.Path != ""))
	return &ChromemStore{db: db, embedder: embedder, logger: logger}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// AddDocuments implements Store.
func (s *ChromemStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AddDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("document_count", len(docs)))

	if err := validateAdd(collection, docs); err != nil {
		return err
	}

	col, err := s.db.GetOrCreateCollection(collection, nil, s.embeddingFunc())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("getting/creating collection %s: %w", collection, err)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: got %d vectors for %d documents", ErrEmbeddingFailed, len(vectors), len(docs))
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: vectors[i],
		}
	}
	// Embeddings are precomputed, so one goroutine is enough.
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Search implements Store.
func (s *ChromemStore) Search(ctx context.Context, collection, query string, k int, filter map[string]string) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("k", k))

	if err := validateSearch(collection, query, k); err != nil {
		return nil, err
	}

	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return []SearchResult{}, nil
	}

	// chromem requires nResults <= matching documents.
	n := col.Count()
	if n == 0 {
		return []SearchResult{}, nil
	}
	k = min(k, n)

	results, err := s.query(ctx, col, query, k, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{ID: r.ID, Content: r.Content, Score: r.Similarity, Metadata: r.Metadata}
	}
	span.SetAttributes(attribute.Int("results_count", len(out)))
	return out, nil
}

// query retries with a smaller k when the filter matches fewer documents
// than requested.
func (s *ChromemStore) query(ctx context.Context, col *chromem.Collection, query string, k int, filter map[string]string) ([]chromem.Result, error) {
	for {
		results, err := col.Query(ctx, query, k, filter, nil)
		if err == nil || k <= 1 || !strings.Contains(err.Error(), "nResults") {
			return results, err
		}
		k--
	}
}

// DeleteByMetadata implements Store.
func (s *ChromemStore) DeleteByMetadata(ctx context.Context, collection, key, value string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{key: value}, nil); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

// Close implements Store. chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}

var _ Store = (*ChromemStore)(nil)

package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var qdrantTracer = otel.Tracer("meetextract.vectorstore.qdrant")

// payloadContent holds the document text; payloadID the caller's ID, since
// Qdrant only accepts UUID or integer point IDs.
const (
	payloadContent = "content"
	payloadID      = "doc_id"
)

// QdrantConfig configures the Qdrant gRPC client.
type QdrantConfig struct {
	Host           string
	Port           int
	UseTLS         bool
	APIKey         string
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxMessageSize int
}

// ApplyDefaults fills zero fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate checks the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// pointID maps an arbitrary document ID to a stable UUID.
func pointID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// QdrantStore implements Store over Qdrant's native gRPC API.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger

	// collections caches names known to exist.
	collections sync.Map
}

// NewQdrantStore connects and health-checks the server.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled)", zap.String("host", config.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{client: client, embedder: embedder, config: config, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}
	return store, nil
}

// retry runs op with exponential backoff while it fails transiently.
func (s *QdrantStore) retry(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt >= s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}
		s.logger.Debug("retrying qdrant operation", zap.String("operation", name), zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

func (s *QdrantStore) ensureCollection(ctx context.Context, name string, size int) error {
	if _, ok := s.collections.Load(name); ok {
		return nil
	}
	var exists bool
	err := s.retry(ctx, "collection_exists", func() error {
		_, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			if isNotFound(err) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return err
	}
	if !exists {
		err = s.retry(ctx, "create_collection", func() error {
			return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: name,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     uint64(size),
					Distance: qdrant.Distance_Cosine,
				}),
			})
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", name, err)
		}
		s.logger.Info("created qdrant collection", zap.String("collection", name), zap.Int("vector_size", size))
	}
	s.collections.Store(name, true)
	return nil
}

// AddDocuments implements Store.
func (s *QdrantStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.AddDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("document_count", len(docs)))

	if err := validateAdd(collection, docs); err != nil {
		return err
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
	if len(vectors) != len(docs) || len(vectors[0]) == 0 {
		return fmt.Errorf("%w: got %d vectors for %d documents", ErrEmbeddingFailed, len(vectors), len(docs))
	}

	if err := s.ensureCollection(ctx, collection, len(vectors[0])); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		payload := make(map[string]*qdrant.Value, len(d.Metadata)+2)
		for k, v := range d.Metadata {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		payload[payloadContent] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: d.Content}}
		payload[payloadID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: d.ID}}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(d.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	err = s.retry(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting to %s: %w", collection, err)
	}
	return nil
}

func keywordFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   k,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

// Search implements Store.
func (s *QdrantStore) Search(ctx context.Context, collection, query string, k int, filter map[string]string) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("k", k))

	if err := validateSearch(collection, query, k); err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var points []*qdrant.ScoredPoint
	err = s.retry(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         keywordFilter(filter),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return []SearchResult{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", collection, err)
	}

	out := make([]SearchResult, 0, len(points))
	for _, p := range points {
		r := SearchResult{Score: p.Score, Metadata: map[string]string{}}
		for key, v := range p.Payload {
			sv, ok := v.Kind.(*qdrant.Value_StringValue)
			if !ok {
				continue
			}
			switch key {
			case payloadContent:
				r.Content = sv.StringValue
			case payloadID:
				r.ID = sv.StringValue
			default:
				r.Metadata[key] = sv.StringValue
			}
		}
		out = append(out, r)
	}
	span.SetAttributes(attribute.Int("results_count", len(out)))
	return out, nil
}

// DeleteByMetadata implements Store.
func (s *QdrantStore) DeleteByMetadata(ctx context.Context, collection, key, value string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	err := s.retry(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: keywordFilter(map[string]string{key: value}),
				},
			},
		})
		return err
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*QdrantStore)(nil)

package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document is one stored text.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SearchResult is one hit, Score being cosine similarity.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Store is the interface both backends implement.
type Store interface {
	// AddDocuments embeds and upserts docs into collection, creating it on
	// first use.
	AddDocuments(ctx context.Context, collection string, docs []Document) error
	// Search returns up to k hits whose metadata matches every filter entry.
	// A missing collection yields no hits.
	Search(ctx context.Context, collection, query string, k int, filter map[string]string) ([]SearchResult, error)
	// DeleteByMetadata removes every document whose key equals value.
	DeleteByMetadata(ctx context.Context, collection, key, value string) error
	Close() error
}

// collectionNamePattern: lowercase letters, numbers, underscores, 1-64 chars.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName rejects names outside ^[a-z0-9_]{1,64}$.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

func validateAdd(collection string, docs []Document) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrEmptyDocuments
	}
	return nil
}

func validateSearch(collection, query string, k int) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

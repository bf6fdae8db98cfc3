package vectorstore

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// wordEmbedder hashes words into a fixed number of buckets so texts that
// share words have high cosine similarity.
type wordEmbedder struct {
	fail bool
}

func (e *wordEmbedder) vector(text string) []float32 {
	v := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,!?")))
		v[h.Sum32()%64]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("model offline")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("model offline")
	}
	return e.vector(text), nil
}

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "segments", false},
		{"digits and underscore", "run_2024_01", false},
		{"empty", "", true},
		{"uppercase", "Segments", true},
		{"path traversal", "../etc", true},
		{"too long", strings.Repeat("a", 65), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCollectionName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newMemoryStore(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(ChromemConfig{}, &wordEmbedder{}, nil)
	require.NoError(t, err)
	return s
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	docs := []Document{
		{ID: "r1-0", Content: "We decided to migrate the database to Postgres.", Metadata: map[string]string{"run_id": "r1", "speaker": "Alice"}},
		{ID: "r1-1", Content: "Bob will write the rollout plan by Friday.", Metadata: map[string]string{"run_id": "r1", "speaker": "Bob"}},
		{ID: "r2-0", Content: "We decided to migrate the database to Postgres.", Metadata: map[string]string{"run_id": "r2", "speaker": "Carol"}},
	}
	require.NoError(t, s.AddDocuments(ctx, "segments", docs))

	t.Run("ranks by similarity", func(t *testing.T) {
		res, err := s.Search(ctx, "segments", "migrate the database to Postgres", 2, map[string]string{"run_id": "r1"})
		require.NoError(t, err)
		require.NotEmpty(t, res)
		assert.Equal(t, "r1-0", res[0].ID)
		assert.Equal(t, "Alice", res[0].Metadata["speaker"])
		assert.Greater(t, res[0].Score, float32(0.5))
	})

	t.Run("filter scopes to run", func(t *testing.T) {
		res, err := s.Search(ctx, "segments", "migrate the database", 3, map[string]string{"run_id": "r2"})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "r2-0", res[0].ID)
	})

	t.Run("k larger than collection", func(t *testing.T) {
		res, err := s.Search(ctx, "segments", "rollout plan", 10, nil)
		require.NoError(t, err)
		assert.Len(t, res, 3)
	})

	t.Run("missing collection", func(t *testing.T) {
		res, err := s.Search(ctx, "nothing_here", "anything", 3, nil)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("delete by metadata", func(t *testing.T) {
		require.NoError(t, s.DeleteByMetadata(ctx, "segments", "run_id", "r2"))
		res, err := s.Search(ctx, "segments", "migrate the database", 3, nil)
		require.NoError(t, err)
		for _, r := range res {
			assert.NotEqual(t, "r2", r.Metadata["run_id"])
		}
	})
}

func TestChromemStore_Validation(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	assert.ErrorIs(t, s.AddDocuments(ctx, "segments", nil), ErrEmptyDocuments)
	assert.ErrorIs(t, s.AddDocuments(ctx, "Bad-Name", []Document{{ID: "a", Content: "x"}}), ErrInvalidCollectionName)

	_, err := s.Search(ctx, "segments", "", 3, nil)
	assert.Error(t, err)
	_, err = s.Search(ctx, "segments", "query", 0, nil)
	assert.Error(t, err)

	_, err = NewChromemStore(ChromemConfig{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_EmbeddingFailure(t *testing.T) {
	s, err := NewChromemStore(ChromemConfig{}, &wordEmbedder{fail: true}, nil)
	require.NoError(t, err)
	err = s.AddDocuments(context.Background(), "segments", []Document{{ID: "a", Content: "hello"}})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestChromemStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewChromemStore(ChromemConfig{Path: dir}, &wordEmbedder{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.AddDocuments(ctx, "segments", []Document{{ID: "a", Content: "budget approved", Metadata: map[string]string{"run_id": "r"}}}))
	require.NoError(t, s.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir}, &wordEmbedder{}, nil)
	require.NoError(t, err)
	res, err := reopened.Search(ctx, "segments", "budget approved", 1, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].ID)
}

func TestQdrantConfig(t *testing.T) {
	var c QdrantConfig
	c.ApplyDefaults()
	assert.Equal(t, "localhost", c.Host)
	assert.Equal(t, 6334, c.Port)
	assert.Equal(t, 3, c.MaxRetries)
	require.NoError(t, c.Validate())

	c.Port = 70000
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(errors.New("plain")))
	assert.True(t, IsTransientError(status.Error(grpccodes.Unavailable, "down")))
	assert.True(t, IsTransientError(status.Error(grpccodes.DeadlineExceeded, "slow")))
	assert.False(t, IsTransientError(status.Error(grpccodes.NotFound, "gone")))
	assert.False(t, IsTransientError(status.Error(grpccodes.InvalidArgument, "bad")))
}

func TestPointID(t *testing.T) {
	assert.Equal(t, pointID("run-1-seg-0"), pointID("run-1-seg-0"))
	assert.NotEqual(t, pointID("run-1-seg-0"), pointID("run-1-seg-1"))
	assert.NotEmpty(t, pointID(""))
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "pinecone"}, &wordEmbedder{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := New(Config{}, &wordEmbedder{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ChromemStore{}, s)
}

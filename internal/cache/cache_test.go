package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

var segments = []transcript.Segment{
	{Speaker: "Alice", Text: "We will ship on Friday."},
	{Speaker: "Bob", Text: "I'll update the changelog."},
}

func result(decision string) *extraction.Result {
	res := extraction.EmptyResult()
	res.Decisions = append(res.Decisions, extraction.Decision{Text: decision, Participants: []string{"Alice"}})
	return res
}

func TestKey(t *testing.T) {
	k := Key("heuristic", segments)
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key("heuristic", append([]transcript.Segment(nil), segments...)))
	assert.NotEqual(t, k, Key("hybrid", segments))

	changed := append([]transcript.Segment(nil), segments...)
	changed[1].Speaker = "Carol"
	assert.NotEqual(t, k, Key("heuristic", changed))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute, 2)
	m.now = func() time.Time { return now }

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "a", result("one")))
	got, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", got.Decisions[0].Text)

	t.Run("expiry", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, ok, _ := m.Get(ctx, "a")
		assert.False(t, ok)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("eviction keeps size bounded", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "b", result("b")))
		now = now.Add(time.Second)
		require.NoError(t, m.Set(ctx, "c", result("c")))
		now = now.Add(time.Second)
		require.NoError(t, m.Set(ctx, "d", result("d")))
		assert.Equal(t, 2, m.Len())
		_, ok, _ := m.Get(ctx, "b")
		assert.False(t, ok, "entry closest to expiry is evicted")
		_, ok, _ = m.Get(ctx, "d")
		assert.True(t, ok)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{Backend: "none"}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", result("x")))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err = New(ctx, Config{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New(ctx, Config{Backend: "memcached"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(ctx, Config{Backend: "redis"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, Config{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}

// Set MEETEXTRACT_TEST_REDIS=host:port to run against a live server.
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("MEETEXTRACT_TEST_REDIS")
	if addr == "" {
		t.Skip("MEETEXTRACT_TEST_REDIS not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, Config{Addr: addr, TTL: time.Minute}, nil)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	key := Key("heuristic", segments)
	require.NoError(t, r.Set(ctx, key, result("cached")))
	got, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cached", got.Decisions[0].Text)

	_, ok, err = r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

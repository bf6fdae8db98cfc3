package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/meetextract/internal/cache"
	"github.com/fyrsmithlabs/meetextract/internal/config"
	"github.com/fyrsmithlabs/meetextract/internal/events"
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/logging"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
	"github.com/fyrsmithlabs/meetextract/internal/secrets"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

type mockGenerative struct {
	mock.Mock
}

func (m *mockGenerative) Extract(ctx context.Context, segments []transcript.Segment) (*extraction.Result, error) {
	args := m.Called(ctx, segments)
	res, _ := args.Get(0).(*extraction.Result)
	return res, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var standup = []transcript.Segment{
	{Speaker: "Alice", Timestamp: "0:01", Text: "We decided to move the launch to March."},
	{Speaker: "Bob", Timestamp: "0:15", Text: "I will update the release checklist by Friday."},
	{Speaker: "Carol", Timestamp: "0:40", Text: "There is a risk that the vendor API is not ready in time."},
}

func generativeResult() *extraction.Result {
	res := extraction.EmptyResult()
	res.Stats.Source = extraction.SourceGenerative
	res.Decisions = append(res.Decisions, extraction.Decision{Text: "We decided to move the launch to March.", Participants: []string{"Alice"}, Confidence: 0.9})
	return res
}

func newPipeline(t *testing.T) *extraction.Pipeline {
	t.Helper()
	p, err := extraction.NewPipeline(context.Background(), extraction.Options{})
	require.NoError(t, err)
	return p
}

func newService(t *testing.T, mode extraction.Mode, opts Options) *Service {
	t.Helper()
	if opts.Pipeline == nil {
		opts.Pipeline = newPipeline(t)
	}
	svc, err := NewService(NewRegistry(opts), mode, nil)
	require.NoError(t, err)
	n := 0
	svc.newID = func() string {
		n++
		return "run-" + string(rune('0'+n))
	}
	return svc
}

func TestService_Heuristic(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(t, extraction.ModeHeuristic, Options{
		Cache:      cache.NewMemory(0, 0),
		Provenance: provenance.NewTracker(nil, provenance.DefaultConfig(), nil),
		Publisher:  pub,
	})

	out, err := svc.Extract(ctx, Request{Segments: standup})
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, extraction.ModeHeuristic, out.Mode)
	assert.False(t, out.Cached)
	require.NotNil(t, out.Result)
	assert.Equal(t, extraction.SourceHeuristic, out.Result.Stats.Source)
	require.NotNil(t, out.Provenance)
	assert.Len(t, out.Provenance.Items, len(out.Result.Decisions)+len(out.Result.Actions)+len(out.Result.Risks))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "run-1", pub.events[0].RunID)
	assert.Equal(t, extraction.SourceHeuristic, pub.events[0].Source)

	t.Run("second call hits the cache", func(t *testing.T) {
		again, err := svc.Extract(ctx, Request{Segments: standup})
		require.NoError(t, err)
		assert.True(t, again.Cached)
		assert.Equal(t, "run-2", again.RunID)
		assert.Equal(t, out.Result, again.Result)
	})

	t.Run("NoCache bypasses the lookup", func(t *testing.T) {
		fresh, err := svc.Extract(ctx, Request{Segments: standup, NoCache: true})
		require.NoError(t, err)
		assert.False(t, fresh.Cached)
	})
}

func TestService_Generative(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		gen := &mockGenerative{}
		gen.On("Extract", mock.Anything, standup).Return(generativeResult(), nil).Once()
		svc := newService(t, extraction.ModeGenerative, Options{Generative: gen})

		out, err := svc.Extract(ctx, Request{Segments: standup})
		require.NoError(t, err)
		assert.Equal(t, extraction.SourceGenerative, out.Result.Stats.Source)
		assert.Empty(t, out.Fallback)
		gen.AssertExpectations(t)
	})

	t.Run("failure is returned", func(t *testing.T) {
		gen := &mockGenerative{}
		gen.On("Extract", mock.Anything, standup).Return(nil, errors.New("provider unavailable")).Once()
		svc := newService(t, extraction.ModeGenerative, Options{Generative: gen})

		_, err := svc.Extract(ctx, Request{Segments: standup})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider unavailable")
	})

	t.Run("not configured", func(t *testing.T) {
		svc := newService(t, extraction.ModeGenerative, Options{})
		_, err := svc.Extract(ctx, Request{Segments: standup})
		assert.ErrorIs(t, err, ErrGenerativeUnavailable)
	})
}

func TestService_Hybrid(t *testing.T) {
	ctx := context.Background()

	t.Run("generative answer wins", func(t *testing.T) {
		gen := &mockGenerative{}
		gen.On("Extract", mock.Anything, standup).Return(generativeResult(), nil).Once()
		svc := newService(t, extraction.ModeHybrid, Options{Generative: gen})

		out, err := svc.Extract(ctx, Request{Segments: standup})
		require.NoError(t, err)
		assert.Equal(t, extraction.SourceGenerative, out.Result.Stats.Source)
	})

	t.Run("falls back on failure", func(t *testing.T) {
		gen := &mockGenerative{}
		gen.On("Extract", mock.Anything, standup).Return(nil, errors.New("rate limited")).Once()
		logger := logging.NewTestLogger()
		svc, err := NewService(NewRegistry(Options{Pipeline: newPipeline(t), Generative: gen}), extraction.ModeHybrid, logger.Underlying())
		require.NoError(t, err)

		out, err := svc.Extract(ctx, Request{Segments: standup})
		require.NoError(t, err)
		assert.Equal(t, extraction.SourceHeuristic, out.Result.Stats.Source)
		assert.Equal(t, "rate limited", out.Fallback)
		logger.AssertLogged(t, zapcore.WarnLevel, "generative extraction failed, falling back to heuristics")
	})

	t.Run("request overrides mode", func(t *testing.T) {
		gen := &mockGenerative{}
		svc := newService(t, extraction.ModeHybrid, Options{Generative: gen})
		out, err := svc.Extract(ctx, Request{Segments: standup, Mode: extraction.ModeHeuristic})
		require.NoError(t, err)
		assert.Equal(t, extraction.SourceHeuristic, out.Result.Stats.Source)
		gen.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	})
}

func TestService_RedactsBeforeGenerative(t *testing.T) {
	redactor, err := secrets.NewRedactor(nil)
	require.NoError(t, err)
	token := "ghp_" + strings.Repeat("aB3dE5fG7h", 3) + "iJ9kLm"
	if _, found := redactor.Redact(token); len(found) == 0 {
		t.Skip("gitleaks did not flag the sample token")
	}

	segments := append([]transcript.Segment(nil), standup...)
	segments[1].Text = "I will rotate " + token + " by Friday."

	gen := &mockGenerative{}
	gen.On("Extract", mock.Anything, mock.MatchedBy(func(segs []transcript.Segment) bool {
		for _, s := range segs {
			if strings.Contains(s.Text, token) {
				return false
			}
		}
		return len(segs) == len(segments)
	})).Return(generativeResult(), nil).Once()

	svc := newService(t, extraction.ModeGenerative, Options{Generative: gen, Redactor: redactor})
	out, err := svc.Extract(context.Background(), Request{Segments: segments})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Redactions, 1)
	gen.AssertExpectations(t)
	assert.Contains(t, segments[1].Text, token, "caller's segments must not be modified")
}

func TestService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := newService(t, extraction.ModeHeuristic, Options{Publisher: pub})
	out, err := svc.Extract(context.Background(), Request{Segments: standup})
	require.NoError(t, err)
	assert.NotNil(t, out.Result)
	assert.Len(t, pub.events, 1)
}

func TestService_NoPublish(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(t, extraction.ModeHeuristic, Options{Publisher: pub})
	_, err := svc.Extract(context.Background(), Request{Segments: standup, NoPublish: true})
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestService_Tag(t *testing.T) {
	svc := newService(t, extraction.ModeHeuristic, Options{})
	tags := svc.Tag(context.Background(), standup)
	require.NotEmpty(t, tags)
	assert.Equal(t, "Alice", tags[0].Speaker)
}

func TestNewService_RequiresPipeline(t *testing.T) {
	_, err := NewService(NewRegistry(Options{}), extraction.ModeHeuristic, nil)
	assert.Error(t, err)
	_, err = NewService(nil, extraction.ModeHeuristic, nil)
	assert.Error(t, err)
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestRegistry_Close(t *testing.T) {
	a := &closeRecorder{}
	b := &closeRecorder{err: errors.New("boom")}
	reg := NewRegistry(Options{Closers: []io.Closer{a, b}})
	err := reg.Close()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.EqualError(t, err, "boom")
	assert.IsType(t, cache.Nop{}, reg.Cache())
}

func TestBuild(t *testing.T) {
	cfg := config.Default()
	cfg.Embeddings.Provider = "none"
	cfg.Redaction.Enabled = false
	cfg.Provenance.Enabled = true

	svc, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = svc.Registry().Close() }()

	assert.Equal(t, extraction.ModeHeuristic, svc.Mode())
	assert.Nil(t, svc.Registry().Generative())
	assert.NotNil(t, svc.Registry().Provenance())
	assert.IsType(t, &cache.Memory{}, svc.Registry().Cache())
	assert.True(t, svc.Registry().Pipeline().KeywordOnly())

	out, err := svc.Extract(context.Background(), Request{Segments: standup})
	require.NoError(t, err)
	assert.Equal(t, extraction.SourceHeuristic, out.Result.Stats.Source)

	t.Run("hybrid builds a generative extractor", func(t *testing.T) {
		cfg := config.Default()
		cfg.Embeddings.Provider = "none"
		cfg.Extraction.Mode = "hybrid"
		svc, err := Build(context.Background(), cfg, nil)
		require.NoError(t, err)
		defer func() { _ = svc.Registry().Close() }()
		assert.NotNil(t, svc.Registry().Generative())
	})

	t.Run("bad mode", func(t *testing.T) {
		cfg := config.Default()
		cfg.Extraction.Mode = "magic"
		_, err := Build(context.Background(), cfg, nil)
		assert.Error(t, err)
	})
}

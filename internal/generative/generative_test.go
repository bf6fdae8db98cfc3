package generative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func promptFor(kind Kind) interface{} {
	marker := map[Kind]string{
		KindDecisions: "Extract DECISIONS",
		KindActions:   "Extract ACTION ITEMS",
		KindRisks:     "Extract RISKS",
	}[kind]
	return mock.MatchedBy(func(p string) bool { return strings.HasPrefix(p, marker) })
}

var meeting = []transcript.Segment{
	{Speaker: "Ann", Text: "We decided to ship on the 29th."},
	{Speaker: "Bob", Text: "I'll update the release notes by Friday."},
	{Speaker: "Ann", Text: "The audit might delay us."},
}

func TestExtractor_Extract(t *testing.T) {
	client := &mockClient{}
	client.On("Complete", mock.Anything, promptFor(KindDecisions)).Return(
		"```json\n{\"decisions\": [{\"text\": \"Ship on the 29th\", \"speaker\": \"Ann\", \"confidence\": 1.4}, {\"text\": \"\"}]}\n```", nil)
	client.On("Complete", mock.Anything, promptFor(KindActions)).Return(
		`Sure! {"action_items": [{"action": "Update the release notes", "owner": "Bob", "due_date": "Friday", "priority": "HIGH", "confidence": 0.9}, {"action": "Book a room", "owner": null, "priority": "whenever"}]}`, nil)
	client.On("Complete", mock.Anything, promptFor(KindRisks)).Return(
		`{"risks": [{"risk": "The audit might delay launch", "category": "timeline", "priority": "urgent", "mentioned_by": "Ann", "mitigation": ["", "Start early"]}]}`, nil)

	res, err := NewExtractor(client).Extract(context.Background(), meeting)
	require.NoError(t, err)
	client.AssertExpectations(t)

	assert.Equal(t, extraction.SourceGenerative, res.Stats.Source)

	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "Ship on the 29th", res.Decisions[0].Text)
	assert.Equal(t, 1.0, res.Decisions[0].Confidence)
	assert.Equal(t, []string{"Ann"}, res.Decisions[0].Participants)

	require.Len(t, res.Actions, 2)
	assert.Equal(t, "Bob", res.Actions[0].Owner)
	assert.Equal(t, extraction.PriorityHigh, res.Actions[0].Priority)
	assert.Equal(t, "Friday", res.Actions[0].DueDate)
	assert.Equal(t, extraction.Unclear, res.Actions[1].Owner)
	assert.Equal(t, 0.7, res.Actions[1].Confidence)

	require.Len(t, res.Risks, 1)
	assert.Equal(t, extraction.CategoryTimeline, res.Risks[0].Category)
	assert.Equal(t, []string{"Start early"}, res.Risks[0].Mitigation)
	assert.Equal(t, "Ann", res.Risks[0].MentionedBy)
}

func TestExtractor_ContractFields(t *testing.T) {
	client := &mockClient{}
	client.On("Complete", mock.Anything, promptFor(KindDecisions)).Return(
		`{"decisions": [{"text": "Adopt Postgres", "title": "Database choice", "timestamp": "0:42", "speaker": "Ann",
			"participants": ["Ann", "ann", "Unclear", "Bob"], "rationale": "the team knows it", "confidence": 0.876}]}`, nil)
	client.On("Complete", mock.Anything, promptFor(KindActions)).Return(`{"action_items": []}`, nil)
	client.On("Complete", mock.Anything, promptFor(KindRisks)).Return(
		`{"risks": [
			{"risk": "Vendor API may slip", "title": "Vendor Delay", "impact": "launch moves a week",
			 "owner": "Ana", "owners": ["Ana", "Raj"], "mentioned_by": "Bob", "mitigation": "Ask for a beta build",
			 "confidence": 0.876},
			{"risk": "Audit could block release", "mentioned_by": "Cy",
			 "mitigation": ["a plan", "A plan", "b plan", "c plan", "d plan", "e plan", "f plan"]},
			{"risk": "Budget is tight", "mitigation": null}
		]}`, nil)

	res, err := NewExtractor(client).Extract(context.Background(), meeting)
	require.NoError(t, err)

	require.Len(t, res.Decisions, 1)
	d := res.Decisions[0]
	assert.Equal(t, "Database choice", d.Title)
	assert.Equal(t, "0:42", d.Timestamp)
	assert.Equal(t, "the team knows it", d.Rationale)
	assert.Equal(t, []string{"Ann", "Bob"}, d.Participants)
	assert.Equal(t, 0.88, d.Confidence)

	require.Len(t, res.Risks, 3)
	first := res.Risks[0]
	assert.Equal(t, "Vendor Delay", first.Title)
	assert.Equal(t, "launch moves a week", first.Impact)
	assert.Equal(t, "Ana", first.Owner)
	assert.Equal(t, []string{"Ana", "Raj"}, first.Owners)
	assert.Equal(t, "Bob", first.MentionedBy)
	assert.Equal(t, []string{"Ask for a beta build"}, first.Mitigation)
	assert.Equal(t, 0.88, first.Confidence)

	second := res.Risks[1]
	assert.Equal(t, []string{"a plan", "b plan", "c plan", "d plan", "e plan"}, second.Mitigation)
	assert.Equal(t, "Cy", second.Owner, "owner falls back to whoever raised the risk")
	assert.Nil(t, second.Owners)

	third := res.Risks[2]
	assert.Equal(t, []string{}, third.Mitigation)
	assert.Equal(t, extraction.Unclear, third.Owner)
	assert.Equal(t, extraction.Unclear, third.MentionedBy)
}

func TestStringList(t *testing.T) {
	tests := []struct {
		in   string
		want stringList
		err  bool
	}{
		{`"one plan"`, stringList{"one plan"}, false},
		{`["a", " ", null, "b"]`, stringList{"a", "b"}, false},
		{`null`, nil, false},
		{`""`, nil, false},
		{`42`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got stringList
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_Failures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).Return("", ErrProviderUnavailable)

		_, err := NewExtractor(client).Extract(context.Background(), meeting)
		require.ErrorIs(t, err, ErrProviderUnavailable)
		client.AssertNumberOfCalls(t, "Complete", 1)
	})

	t.Run("prose answer", func(t *testing.T) {
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).Return("I could not find any decisions.", nil)

		_, err := NewExtractor(client).Extract(context.Background(), meeting)
		require.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("empty transcript skips the model", func(t *testing.T) {
		client := &mockClient{}
		res, err := NewExtractor(client).Extract(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, res.Decisions)
		client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})
}

func TestBuildContext(t *testing.T) {
	segs := []transcript.Segment{
		{Speaker: "Ann", Text: "one two three"},
		{Text: "four five"},
		{Speaker: "Cy", Text: strings.Repeat("word ", 50)},
	}

	out := BuildContext(segs, 20)
	assert.Equal(t, "Ann: one two three\n\nSpeaker: four five", out)

	all := BuildContext(segs, 0)
	assert.Contains(t, all, "Cy: word")
}

func TestPrompt(t *testing.T) {
	for _, kind := range Kinds {
		p, err := Prompt(kind, "Ann: hello")
		require.NoError(t, err)
		assert.Contains(t, p, "Ann: hello")
		assert.Contains(t, p, string(kind))
	}
	risk, err := Prompt(KindRisks, "x")
	require.NoError(t, err)
	assert.Contains(t, risk, "Timeline, Resource, Data, Process, Technical, Other")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose around", `Here you go: {"a":{"b":2}} thanks`, `{"a":{"b":2}}`, false},
		{"none", "nothing here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrBadResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{Provider: "anthropic"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewClient(Config{Provider: "openai"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewClient(Config{Provider: "bard"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	c, err := NewClient(Config{Provider: "ollama", Model: "llama3.1", BaseURL: "http://127.0.0.1:11434"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestAnthropicClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, systemPrompt, req.System)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"decisions\":[]}"}]}`))
	}))
	defer srv.Close()

	c, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: srv.URL, MaxTokens: 100, Timeout: time.Second})
	require.NoError(t, err)
	c.backoff = time.Millisecond

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"decisions":[]}`, out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer sk-secret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key sk-secret"}}`))
	}))
	defer srv.Close()

	c, err := newOpenAIClient(Config{APIKey: "sk-secret", BaseURL: srv.URL, MaxTokens: 100, Timeout: time.Second})
	require.NoError(t, err)
	c.backoff = time.Millisecond

	_, err = c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotContains(t, err.Error(), "sk-secret")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := newOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL, MaxTokens: 100, Timeout: time.Second})
	require.NoError(t, err)
	c.backoff = time.Millisecond

	_, err = c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.Equal(t, int32(defaultMaxRetries+1), calls.Load())
}

func TestOpenAIClient_StopsRetryingWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := newOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL, MaxTokens: 100, Timeout: time.Second})
	require.NoError(t, err)
	c.backoff = time.Hour

	_, err = c.Complete(ctx, "prompt")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

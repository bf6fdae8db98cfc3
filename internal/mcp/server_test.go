package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/services"
)

const standup = `Alice: We decided to move the launch to March.
Bob: I will update the release checklist by Friday.
Carol: There is a risk that the vendor API is not ready in time.
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	pipeline, err := extraction.NewPipeline(context.Background(), extraction.Options{})
	require.NoError(t, err)
	svc, err := services.NewService(services.NewRegistry(services.Options{Pipeline: pipeline}), extraction.ModeHeuristic, nil)
	require.NoError(t, err)
	s, err := NewServer(nil, svc)
	require.NoError(t, err)
	return s
}

// connect returns a client session talking to s over in-memory transports.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverT)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// decode round-trips structured content into v.
func decode(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.NotNil(t, res.StructuredContent)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction service is required")

	s := newTestServer(t)
	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.metrics)
}

func TestListTools(t *testing.T) {
	cs := connect(t, newTestServer(t))
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolExtractMeeting, toolTagTranscript}, names)
}

func TestExtractMeetingTool(t *testing.T) {
	cs := connect(t, newTestServer(t))
	ctx := context.Background()

	t.Run("returns structured result and markdown", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      toolExtractMeeting,
			Arguments: map[string]any{"transcript": standup, "format": "txt"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)

		var out extractMeetingOutput
		decode(t, res, &out)
		assert.NotEmpty(t, out.RunID)
		assert.Equal(t, "heuristic", out.Mode)
		assert.Equal(t, 3, out.Stats.Segments)

		require.NotEmpty(t, res.Content)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "# Meeting Intelligence Report")
	})

	failures := []struct {
		name string
		args map[string]any
	}{
		{"blank transcript", map[string]any{"transcript": "   "}},
		{"unknown format", map[string]any{"transcript": standup, "format": "pdf"}},
		{"unknown mode", map[string]any{"transcript": standup, "mode": "magic"}},
		{"generative without client", map[string]any{"transcript": standup, "mode": "generative"}},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: toolExtractMeeting, Arguments: tt.args})
			if err == nil {
				assert.True(t, res.IsError)
			}
		})
	}
}

func TestTagTranscriptTool(t *testing.T) {
	cs := connect(t, newTestServer(t))
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      toolTagTranscript,
		Arguments: map[string]any{"transcript": standup},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out tagTranscriptOutput
	decode(t, res, &out)
	require.NotEmpty(t, out.Tags)
	assert.Equal(t, "Alice", out.Tags[0].Speaker)
}

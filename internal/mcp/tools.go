package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/report"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

const (
	toolExtractMeeting = "extract_meeting"
	toolTagTranscript  = "tag_transcript"
)

type extractMeetingInput struct {
	Transcript string `json:"transcript" jsonschema:"Meeting transcript text"`
	Format     string `json:"format,omitempty" jsonschema:"Transcript format: txt, json, srt or auto (default: auto)"`
	Mode       string `json:"mode,omitempty" jsonschema:"Extraction mode: heuristic, generative or hybrid (default: server setting)"`
}

type extractMeetingOutput struct {
	RunID     string                `json:"run_id"`
	Mode      string                `json:"mode"`
	Cached    bool                  `json:"cached"`
	Fallback  string                `json:"fallback,omitempty"`
	Decisions []extraction.Decision `json:"decisions"`
	Actions   []extraction.Action   `json:"action_items"`
	Risks     []extraction.Risk     `json:"risks"`
	Stats     extraction.Stats      `json:"stats"`
}

type tagTranscriptInput struct {
	Transcript string `json:"transcript" jsonschema:"Meeting transcript text"`
	Format     string `json:"format,omitempty" jsonschema:"Transcript format: txt, json, srt or auto (default: auto)"`
}

type tagTranscriptOutput struct {
	Tags []extraction.IntentTag `json:"tags"`
}

// registerTools registers all MCP tools with the server. Outputs are typed
// any, so the tools publish no output schema.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolExtractMeeting,
		Description: "Extract decisions, action items and risks from a meeting transcript",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args extractMeetingInput) (_ *mcp.CallToolResult, _ any, err error) {
		done := s.metrics.observe(ctx, toolExtractMeeting)
		defer func() { done(err) }()

		segments, err := parseTranscript(args.Transcript, args.Format)
		if err != nil {
			return nil, nil, err
		}
		var mode extraction.Mode
		if args.Mode != "" {
			if mode, err = extraction.ParseMode(args.Mode); err != nil {
				return nil, nil, err
			}
		}

		out, err := s.service.Extract(ctx, services.Request{Segments: segments, Mode: mode})
		if err != nil {
			return nil, nil, fmt.Errorf("extraction failed: %w", err)
		}
		s.metrics.recordItems(ctx, out.Result)

		result := extractMeetingOutput{
			RunID:     out.RunID,
			Mode:      string(out.Mode),
			Cached:    out.Cached,
			Fallback:  out.Fallback,
			Decisions: out.Result.Decisions,
			Actions:   out.Result.Actions,
			Risks:     out.Result.Risks,
			Stats:     out.Result.Stats,
		}

		var md strings.Builder
		if err = report.New(out.RunID, "", out.Result, out.Provenance).WriteMarkdown(&md); err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: md.String()}},
		}, result, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolTagTranscript,
		Description: "Label each transcript sentence with decision, action, risk or discussion intents",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args tagTranscriptInput) (_ *mcp.CallToolResult, _ any, err error) {
		done := s.metrics.observe(ctx, toolTagTranscript)
		defer func() { done(err) }()

		segments, err := parseTranscript(args.Transcript, args.Format)
		if err != nil {
			return nil, nil, err
		}
		tags := s.service.Tag(ctx, segments)
		if tags == nil {
			tags = []extraction.IntentTag{}
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Tagged %d sentences", len(tags))}},
		}, tagTranscriptOutput{Tags: tags}, nil
	})
}

// parseTranscript turns tool input into segments.
func parseTranscript(text, format string) ([]transcript.Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errTranscriptRequired
	}
	f, err := transcript.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return transcript.Parse(strings.NewReader(text), f)
}

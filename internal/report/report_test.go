package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
)

func sample() Report {
	res := extraction.EmptyResult()
	res.Stats.Source = extraction.SourceHeuristic
	res.Decisions = append(res.Decisions, extraction.Decision{
		Text: "Move the launch to March.", Speaker: "Alice", Participants: []string{"Alice", "Bob"}, Confidence: 0.85,
	})
	res.Actions = append(res.Actions, extraction.Action{
		Action: "Update the release checklist", Owner: "Bob", DueDate: "Friday", Priority: extraction.PriorityHigh, Confidence: 0.65,
	})
	res.Risks = append(res.Risks, extraction.Risk{
		Risk: "Vendor API may slip", Category: extraction.CategoryTimeline, Priority: extraction.RiskHigh,
		Owner: "Carol", MentionedBy: "Carol", Mitigation: []string{"Ask for a weekly status"}, Confidence: 0.4,
	})
	r := New("run-7", "standup.txt", res, &provenance.Summary{
		Items:                  make([]provenance.Item, 3),
		WithSources:            2,
		PossibleHallucinations: 1,
	})
	r.GeneratedAt = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	return r
}

func TestLevel(t *testing.T) {
	tests := []struct {
		conf float64
		want string
	}{
		{0.95, LevelHigh},
		{0.8, LevelHigh},
		{0.79, LevelMedium},
		{0.6, LevelMedium},
		{0.59, LevelLow},
		{0, LevelLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.conf), "confidence %v", tt.conf)
	}
	assert.Equal(t, "🟢 High Confidence", Badge(0.9))
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().WriteMarkdown(&buf))
	md := buf.String()

	assert.True(t, strings.HasPrefix(md, "# Meeting Intelligence Report\n"))
	assert.Contains(t, md, "**Generated:** 2024-03-01 10:30:00 UTC")
	assert.Contains(t, md, "- Decisions: 1\n- Action items: 1\n- Risks: 1\n")
	assert.Contains(t, md, "1. Move the launch to March. (Alice) 🟢 High Confidence")
	assert.Contains(t, md, "1. **Update the release checklist**\n   - Owner: Bob\n   - Due: Friday\n   - Priority: HIGH 🟡 Medium Confidence")
	assert.Contains(t, md, "1. Vendor API may slip (mentioned by: Carol) 🔴 Low Confidence")
	assert.Contains(t, md, "Mitigation: Ask for a weekly status")
	assert.Contains(t, md, "Source coverage: 67%")

	decisions := strings.Index(md, "## Decisions")
	actions := strings.Index(md, "## Action Items")
	risks := strings.Index(md, "## Risks")
	assert.True(t, decisions < actions && actions < risks)
}

func TestWriteMarkdown_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("", "", nil, nil).WriteMarkdown(&buf))
	md := buf.String()
	assert.Contains(t, md, "- Decisions: 0")
	assert.NotContains(t, md, "## Decisions")
	assert.NotContains(t, md, "## Risks")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().WriteJSON(&buf))

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	for _, key := range []string{"run_id", "decisions", "action_items", "risks", "stats", "provenance"} {
		assert.Contains(t, got, key)
	}
	assert.JSONEq(t, `"run-7"`, string(got["run_id"]))
}

func TestRenderTerminal(t *testing.T) {
	out := sample().RenderTerminal()
	assert.Contains(t, out, "Meeting Intelligence Report")
	assert.Contains(t, out, "Move the launch to March.")
	assert.Contains(t, out, "Update the release checklist")
	assert.Contains(t, out, "Vendor API may slip")
	assert.Contains(t, out, "low similarity")
}

func TestWrite(t *testing.T) {
	r := sample()
	for _, f := range []string{FormatJSON, FormatMarkdown, FormatTerminal} {
		var buf bytes.Buffer
		require.NoError(t, r.Write(&buf, f), f)
		assert.NotEmpty(t, buf.String(), f)
	}
	assert.Error(t, r.Write(&bytes.Buffer{}, "pdf"))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	jobDir, err := sample().Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-7"), jobDir)

	for _, name := range []string{FullReportFile, MarkdownFile, ItemsFile} {
		data, err := os.ReadFile(filepath.Join(jobDir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	data, err := os.ReadFile(filepath.Join(jobDir, ItemsFile))
	require.NoError(t, err)
	var items map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &items))
	assert.Len(t, items, 3)
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/report"
)

const standup = `Alice: We decided to move the launch to March.
Bob: I will update the release checklist by Friday.
Carol: There is a risk that the vendor API is not ready in time.
`

// offline points config at a fresh home and disables networked components.
func offline(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MEETEXTRACT_EMBEDDINGS_PROVIDER", "none")
	t.Setenv("MEETEXTRACT_CACHE_BACKEND", "none")
	t.Setenv("MEETEXTRACT_PROVENANCE_ENABLED", "false")
	t.Setenv("MEETEXTRACT_REDACTION_ENABLED", "false")

	path := filepath.Join(home, "standup.txt")
	require.NoError(t, os.WriteFile(path, []byte(standup), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return stdout.String(), err
}

func TestExtractCmd_JSON(t *testing.T) {
	path := offline(t)
	out, err := execute(t, "extract", path, "--output", "json")
	require.NoError(t, err)

	var doc struct {
		RunID       string            `json:"run_id"`
		Decisions   []json.RawMessage `json:"decisions"`
		ActionItems []json.RawMessage `json:"action_items"`
		Risks       []json.RawMessage `json:"risks"`
		Stats       extraction.Stats  `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, 3, doc.Stats.Segments)
	assert.True(t, doc.Stats.KeywordOnly)
}

func TestExtractCmd_MarkdownAndOutDir(t *testing.T) {
	path := offline(t)
	outDir := t.TempDir()
	out, err := execute(t, "extract", path, "-o", "markdown", "--out-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Meeting Intelligence Report")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.FileExists(t, filepath.Join(outDir, entries[0].Name(), report.MarkdownFile))
}

func TestExtractCmd_Errors(t *testing.T) {
	path := offline(t)

	_, err := execute(t, "extract", path, "--output", "pdf")
	assert.ErrorContains(t, err, "unknown output")

	_, err = execute(t, "extract", path, "--mode", "magic")
	assert.Error(t, err)

	_, err = execute(t, "extract", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = execute(t, "extract")
	assert.Error(t, err)
}

func TestTagCmd(t *testing.T) {
	path := offline(t)
	out, err := execute(t, "tag", path)
	require.NoError(t, err)

	var tags []extraction.IntentTag
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	require.NotEmpty(t, tags)
	assert.Equal(t, "Alice", tags[0].Speaker)
}

func TestSubmitCmd_MissingFile(t *testing.T) {
	offline(t)
	_, err := execute(t, "submit", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}

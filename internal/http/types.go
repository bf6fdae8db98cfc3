package http

import (
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// TranscriptRequest carries a transcript as segments or as raw content in
// one of the transcript formats. Segments win when both are set.
type TranscriptRequest struct {
	Segments []transcript.Segment `json:"segments" validate:"required_without=Content,max=20000"`
	Content  string               `json:"content" validate:"required_without=Segments"`
	Format   string               `json:"format" validate:"omitempty,oneof=txt json srt auto"`
}

// ExtractRequest is the request body for POST /api/v1/extract.
type ExtractRequest struct {
	TranscriptRequest
	Mode    string `json:"mode" validate:"omitempty,oneof=heuristic generative hybrid"`
	NoCache bool   `json:"no_cache"`
}

// ExtractResponse is the response body for POST /api/v1/extract. The
// result fields are inlined.
type ExtractResponse struct {
	RunID      string          `json:"run_id"`
	Mode       extraction.Mode `json:"mode"`
	Cached     bool            `json:"cached"`
	Fallback   string          `json:"fallback,omitempty"`
	Redactions int             `json:"redactions,omitempty"`
	*extraction.Result
	Provenance *provenance.Summary `json:"provenance,omitempty"`
}

// TagResponse is the response body for POST /api/v1/tag.
type TagResponse struct {
	Tags []extraction.IntentTag `json:"tags"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

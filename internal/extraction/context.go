package extraction

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/entities"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// run carries the inputs and collaborators of one extraction pass.
type run struct {
	ctx      context.Context
	segments []transcript.Segment
	th       Thresholds
	embedder Embedder
	entities EntityService
	logger   *zap.Logger
	dl       *degradeLog
}

// locate returns the index of the first segment whose text contains
// sentence, or -1.
func (r *run) locate(sentence string) int {
	for i, s := range r.segments {
		if strings.Contains(s.Text, sentence) {
			return i
		}
	}
	return -1
}

// window joins the text of segments within n positions of idx. An unknown
// origin yields fallback unchanged.
func (r *run) window(idx, n int, fallback string) string {
	if idx < 0 {
		return fallback
	}
	lo, hi := max(0, idx-n), min(len(r.segments), idx+n+1)
	parts := make([]string, 0, hi-lo)
	for _, s := range r.segments[lo:hi] {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}

// origin returns the text of segment idx, or fallback when idx is unknown.
func (r *run) origin(idx int, fallback string) string {
	if idx < 0 {
		return fallback
	}
	return r.segments[idx].Text
}

// ContextWindow returns the text of the segments within n positions of the
// segment containing sentence, or sentence itself when no segment does.
func ContextWindow(segments []transcript.Segment, sentence string, n int) string {
	r := &run{segments: segments}
	return r.window(r.locate(sentence), n, sentence)
}

// persons asks the entity service for PERSON entities in text. Failures are
// recorded and yield nothing.
func (r *run) persons(text string) []string {
	if r.entities == nil {
		return nil
	}
	res := attempt(func() ([]entities.Entity, error) {
		return r.entities.ExtractEntities(r.ctx, text)
	}, nil)
	if !res.OK() {
		r.dl.note(r.ctx, "entities", res.Reason, res.Err)
		return nil
	}
	var out []string
	for _, e := range res.Value {
		if e.IsPerson() && strings.TrimSpace(e.Text) != "" {
			out = append(out, strings.TrimSpace(e.Text))
		}
	}
	return out
}

package provenance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
	"github.com/fyrsmithlabs/meetextract/internal/vectorstore"
)

var tracer = otel.Tracer("meetextract.provenance")

// minKeywordOverlap is the Jaccard floor for the lexical fallback.
const minKeywordOverlap = 0.1

// Metadata keys stored with each segment document.
const (
	metaRunID     = "run_id"
	metaSegment   = "segment"
	metaSpeaker   = "speaker"
	metaTimestamp = "timestamp"
)

// Config tunes source lookup and validation.
type Config struct {
	Collection      string
	TopK            int
	MinSimilarity   float64
	SupportedAbove  float64
	SuspiciousBelow float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Collection:      "meetextract_segments",
		TopK:            3,
		MinSimilarity:   0.3,
		SupportedAbove:  0.5,
		SuspiciousBelow: 0.3,
	}
}

// Source is one supporting segment.
type Source struct {
	Segment    int     `json:"segment"`
	Speaker    string  `json:"speaker,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	// Method is "semantic" or "keyword".
	Method string `json:"method"`
}

// Tracker indexes segments per run and finds sources for extracted text.
type Tracker struct {
	store  vectorstore.Store
	cfg    Config
	logger *zap.Logger

	mu   sync.RWMutex
	runs map[string][]transcript.Segment
}

// NewTracker builds a tracker. A nil store means keyword overlap only.
func NewTracker(store vectorstore.Store, cfg Config, logger *zap.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, cfg: cfg, logger: logger, runs: map[string][]transcript.Segment{}}
}

// Index remembers segments for runID and, with a store, embeds them.
// A store failure is logged and leaves the keyword fallback in place.
func (t *Tracker) Index(ctx context.Context, runID string, segments []transcript.Segment) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	ctx, span := tracer.Start(ctx, "provenance.index")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.Int("segments", len(segments)))

	kept := make([]transcript.Segment, len(segments))
	copy(kept, segments)
	t.mu.Lock()
	t.runs[runID] = kept
	t.mu.Unlock()

	if t.store == nil {
		return nil
	}
	docs := make([]vectorstore.Document, 0, len(segments))
	for i, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		docs = append(docs, vectorstore.Document{
			ID:      runID + "-" + strconv.Itoa(i),
			Content: s.Text,
			Metadata: map[string]string{
				metaRunID:     runID,
				metaSegment:   strconv.Itoa(i),
				metaSpeaker:   s.Speaker,
				metaTimestamp: s.Timestamp,
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := t.store.AddDocuments(ctx, t.cfg.Collection, docs); err != nil {
		span.RecordError(err)
		t.logger.Warn("indexing segments failed, using keyword overlap",
			zap.String("run.id", runID), zap.Error(err))
	}
	return nil
}

// Release drops the in-memory copy of a run. Indexed documents stay in
// the store.
func (t *Tracker) Release(runID string) {
	t.mu.Lock()
	delete(t.runs, runID)
	t.mu.Unlock()
}

// Forget drops a run from memory and from the store.
func (t *Tracker) Forget(ctx context.Context, runID string) error {
	t.Release(runID)
	if t.store == nil {
		return nil
	}
	return t.store.DeleteByMetadata(ctx, t.cfg.Collection, metaRunID, runID)
}

// Sources returns up to TopK supporting segments for text, best first.
func (t *Tracker) Sources(ctx context.Context, runID, text string) []Source {
	if strings.TrimSpace(text) == "" {
		return []Source{}
	}
	if t.store != nil {
		out, err := t.semantic(ctx, runID, text)
		if err == nil {
			return out
		}
		t.logger.Debug("semantic provenance failed, using keyword overlap",
			zap.String("run.id", runID), zap.Error(err))
	}
	return t.keyword(runID, text)
}

func (t *Tracker) semantic(ctx context.Context, runID, text string) ([]Source, error) {
	hits, err := t.store.Search(ctx, t.cfg.Collection, text, t.cfg.TopK, map[string]string{metaRunID: runID})
	if err != nil {
		return nil, err
	}
	out := make([]Source, 0, len(hits))
	for _, h := range hits {
		sim := float64(h.Score)
		if sim <= t.cfg.MinSimilarity {
			continue
		}
		idx, _ := strconv.Atoi(h.Metadata[metaSegment])
		out = append(out, Source{
			Segment:    idx,
			Speaker:    h.Metadata[metaSpeaker],
			Timestamp:  h.Metadata[metaTimestamp],
			Text:       h.Content,
			Similarity: sim,
			Method:     "semantic",
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

func (t *Tracker) keyword(runID, text string) []Source {
	t.mu.RLock()
	segments := t.runs[runID]
	t.mu.RUnlock()

	words := wordSet(text)
	out := []Source{}
	for i, s := range segments {
		sim := jaccard(words, wordSet(s.Text))
		if sim <= minKeywordOverlap {
			continue
		}
		out = append(out, Source{
			Segment:    i,
			Speaker:    s.Speaker,
			Timestamp:  s.Timestamp,
			Text:       s.Text,
			Similarity: sim,
			Method:     "keyword",
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > t.cfg.TopK {
		out = out[:t.cfg.TopK]
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

package extraction

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

var tagKeywordPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(tagKeywords))
	for i, k := range tagKeywords {
		out[i] = wordsPattern(k.words)
	}
	return out
}()

// IntentTagger labels sentences with coarse intents. Centroids are computed
// once in NewIntentTagger and only read afterwards.
type IntentTagger struct {
	embedder  Embedder
	th        Thresholds
	logger    *zap.Logger
	centroids map[Intent][]float32

	setup Fallible[struct{}]
}

// NewIntentTagger precomputes one centroid per intent. If the embedder is nil
// or fails, the tagger runs in keyword-only mode for its lifetime.
func NewIntentTagger(ctx context.Context, embedder Embedder, th Thresholds, logger *zap.Logger) *IntentTagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &IntentTagger{embedder: embedder, th: th, logger: logger}

	var texts []string
	var owners []Intent
	for _, intent := range intentOrder {
		for _, ex := range intentExamples[intent] {
			texts = append(texts, ex)
			owners = append(owners, intent)
		}
	}

	res := embed(ctx, embedder, texts)
	if !res.OK() {
		t.setup = Fallible[struct{}]{Reason: res.Reason, Err: res.Err}
		if res.Reason != ReasonUnavailable {
			logger.Warn("intent centroids unavailable, tagging by keyword", zap.Error(res.Err))
		}
		return t
	}

	grouped := make(map[Intent][][]float32, len(intentOrder))
	for i, v := range res.Value {
		grouped[owners[i]] = append(grouped[owners[i]], v)
	}
	t.centroids = make(map[Intent][]float32, len(grouped))
	for intent, vecs := range grouped {
		t.centroids[intent] = mean(vecs)
	}
	logger.Debug("intent centroids ready", zap.Int("dimensions", len(res.Value[0])))
	return t
}

// KeywordOnly reports whether the tagger has no centroids.
func (t *IntentTagger) KeywordOnly() bool {
	return t.centroids == nil
}

// Tag splits every segment into sentences and labels each one.
func (t *IntentTagger) Tag(ctx context.Context, segments []transcript.Segment) []IntentTag {
	return t.tag(ctx, segments, newDegradeLog(t.logger, nil))
}

type sentenceRef struct {
	text string
	seg  transcript.Segment
}

func (t *IntentTagger) tag(ctx context.Context, segments []transcript.Segment, dl *degradeLog) []IntentTag {
	var refs []sentenceRef
	for _, seg := range segments {
		for _, s := range SplitSentences(seg.Text, t.th.MinSentenceLength) {
			refs = append(refs, sentenceRef{text: s, seg: seg})
		}
	}
	tags := make([]IntentTag, 0, len(refs))
	if len(refs) == 0 {
		return tags
	}

	if t.KeywordOnly() {
		dl.note(ctx, "tag", t.setup.Reason, t.setup.Err)
		for _, r := range refs {
			intents, conf := t.keywordIntents(r.text, t.th.KeywordOnlyScore)
			tags = append(tags, t.newTag(r, intents, conf))
		}
		return tags
	}

	texts := make([]string, len(refs))
	for i, r := range refs {
		texts[i] = r.text
	}
	vecs := t.embedSentences(ctx, texts, dl)
	for i, r := range refs {
		var intents []Intent
		var conf float64
		if vecs[i] == nil {
			intents, conf = t.keywordIntents(r.text, t.th.SentenceFallback)
		} else {
			intents, conf = t.similarityIntents(vecs[i])
		}
		tags = append(tags, t.newTag(r, intents, conf))
	}
	return tags
}

// embedSentences batches the whole run and retries sentence by sentence if
// the batch fails. A nil vector marks a sentence that needs the keyword rule.
func (t *IntentTagger) embedSentences(ctx context.Context, texts []string, dl *degradeLog) [][]float32 {
	batch := embed(ctx, t.embedder, texts)
	if batch.OK() && len(batch.Value[0]) == t.dims() {
		return batch.Value
	}
	t.logger.Debug("batch sentence embedding failed, retrying per sentence",
		zap.Int("sentences", len(texts)), zap.Error(batch.Err))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		one := embed(ctx, t.embedder, []string{text})
		if one.OK() && len(one.Value[0]) != t.dims() {
			one = Fallible[[][]float32]{Reason: ReasonBadShape, Err: ErrBadShape}
		}
		if !one.OK() {
			dl.note(ctx, "tag", one.Reason, one.Err)
			continue
		}
		out[i] = one.Value[0]
	}
	return out
}

func (t *IntentTagger) dims() int {
	return len(t.centroids[IntentDecision])
}

type scoredIntent struct {
	intent Intent
	score  float64
}

func (t *IntentTagger) similarityIntents(vec []float32) ([]Intent, float64) {
	scores := make([]scoredIntent, 0, len(intentOrder))
	best := 0.0
	for _, intent := range intentOrder {
		s := cosine(vec, t.centroids[intent])
		scores = append(scores, scoredIntent{intent, s})
		if s > best {
			best = s
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	var intents []Intent
	for _, s := range scores {
		if s.score <= t.th.TagSimilarity || len(intents) == t.th.TagMaxIntents {
			break
		}
		intents = append(intents, s.intent)
	}
	if len(intents) == 0 {
		return []Intent{IntentDiscussion}, t.th.DiscussionScore
	}
	return intents, best
}

// keywordIntents applies the keyword rules. A match scores score; no match
// is discussion. In keyword-only mode that default keeps the discussion
// score, while a per-sentence fallback keeps its fixed score either way.
func (t *IntentTagger) keywordIntents(text string, score float64) ([]Intent, float64) {
	if intent, ok := KeywordIntent(text); ok {
		return []Intent{intent}, score
	}
	if t.KeywordOnly() {
		return []Intent{IntentDiscussion}, t.th.DiscussionScore
	}
	return []Intent{IntentDiscussion}, score
}

func (t *IntentTagger) newTag(r sentenceRef, intents []Intent, confidence float64) IntentTag {
	return IntentTag{
		Sentence:   r.text,
		Speaker:    r.seg.Speaker,
		Timestamp:  r.seg.Timestamp,
		Intents:    intents,
		Confidence: clamp01(confidence),
	}
}

// KeywordIntent returns the first intent whose keywords occur in text,
// checking decision, then action, then risk.
func KeywordIntent(text string) (Intent, bool) {
	for i, re := range tagKeywordPatterns {
		if re.MatchString(text) {
			return tagKeywords[i].intent, true
		}
	}
	return "", false
}

// SplitSentences splits text after sentence-ending punctuation and drops
// sentences shorter than minLen. Punctuation stays with its sentence.
func SplitSentences(text string, minLen int) []string {
	var out []string
	keep := func(s string) {
		if s = strings.TrimSpace(s); len(s) >= minLen {
			out = append(out, s)
		}
	}
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		end := loc[0] + strings.IndexFunc(text[loc[0]:loc[1]], unicode.IsSpace)
		keep(text[start:end])
		start = loc[1]
	}
	keep(text[start:])
	return out
}

package extraction

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/entities"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// axisEmbedder puts each intent on its own axis by counting stems, so
// centroids are nearly orthogonal and keyword sentences land close to them.
type axisEmbedder struct {
	failOn string
	calls  int
}

var axisStems = [][]string{
	{"decid", "agree", "approv", "conclu", "finaliz", "settl"},
	{"will", "need to", "responsible", "handle", "i'll", "send", "take care"},
	{"risk", "concern", "blocker", "issue", "problem", "challeng", "block"},
	{"think", "discuss", "question", "consider", "thoughts", "how about"},
}

func (e *axisEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		if e.failOn != "" && strings.Contains(lower, e.failOn) {
			return nil, errors.New("embedding backend rejected input")
		}
		v := make([]float32, len(axisStems)+1)
		for axis, stems := range axisStems {
			for _, s := range stems {
				if strings.Contains(lower, s) {
					v[axis]++
				}
			}
		}
		v[len(axisStems)] = 0.05
		out[i] = v
	}
	return out, nil
}

// tableEmbedder returns fixed vectors per text and a default otherwise.
type tableEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (e *tableEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vecs[t]; ok {
			out[i] = v
			continue
		}
		// Distinct texts get distinct axes so they never merge.
		v := make([]float32, 64)
		v[len(t)%64] = 1
		v[(len(t)*7+int(t[0]))%64] += 1
		out[i] = v
	}
	return out, nil
}

type failingEntities struct{ panic bool }

func (f failingEntities) ExtractEntities(context.Context, string) ([]entities.Entity, error) {
	if f.panic {
		panic("recognizer crashed")
	}
	return nil, errors.New("entity backend down")
}

type staticEntities []entities.Entity

func (s staticEntities) ExtractEntities(context.Context, string) ([]entities.Entity, error) {
	return s, nil
}

func segs(texts ...string) []transcript.Segment {
	out := make([]transcript.Segment, len(texts))
	for i, t := range texts {
		out[i] = transcript.Segment{Text: t}
	}
	return out
}

func spoken(pairs ...string) []transcript.Segment {
	out := make([]transcript.Segment, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, transcript.Segment{Speaker: pairs[i], Text: pairs[i+1]})
	}
	return out
}

func testRun(segments []transcript.Segment, e Embedder, ents EntityService) *run {
	return &run{
		ctx:      context.Background(),
		segments: segments,
		th:       DefaultThresholds(),
		embedder: e,
		entities: ents,
		logger:   zap.NewNop(),
		dl:       newDegradeLog(zap.NewNop(), nil),
	}
}

func keywordTags(segments []transcript.Segment) []IntentTag {
	return NewIntentTagger(context.Background(), nil, DefaultThresholds(), nil).Tag(context.Background(), segments)
}

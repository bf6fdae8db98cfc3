package extraction

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// deps are the collaborators shared by the extractors.
type deps struct {
	embedder Embedder
	entities EntityService
	th       Thresholds
	logger   *zap.Logger
}

func newDeps(embedder Embedder, ents EntityService, th Thresholds, logger *zap.Logger) deps {
	if logger == nil {
		logger = zap.NewNop()
	}
	return deps{embedder: embedder, entities: ents, th: th, logger: logger}
}

func (d deps) newRun(ctx context.Context, segments []transcript.Segment, dl *degradeLog) *run {
	if dl == nil {
		dl = newDegradeLog(d.logger, nil)
	}
	return &run{
		ctx:      ctx,
		segments: transcript.Usable(segments),
		th:       d.th,
		embedder: d.embedder,
		entities: d.entities,
		logger:   d.logger,
		dl:       dl,
	}
}

// Options configures a Pipeline. Embedder and Entities may be nil, in
// which case the pipeline runs on keyword and pattern heuristics.
type Options struct {
	Embedder   Embedder
	Entities   EntityService
	Thresholds *Thresholds
	Logger     *zap.Logger
	Metrics    *Metrics
	Tracer     trace.Tracer
}

// Pipeline tags a transcript and runs the three extractors over it.
type Pipeline struct {
	deps
	tagger    *IntentTagger
	decisions *DecisionExtractor
	actions   *ActionExtractor
	risks     *RiskExtractor
	metrics   *Metrics
	tracer    trace.Tracer
}

// NewPipeline validates the thresholds and precomputes intent centroids.
func NewPipeline(ctx context.Context, opts Options) (*Pipeline, error) {
	th := DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}

	d := newDeps(opts.Embedder, opts.Entities, th, opts.Logger)
	p := &Pipeline{
		deps:      d,
		tagger:    NewIntentTagger(ctx, opts.Embedder, th, d.logger.Named("tagger")),
		decisions: &DecisionExtractor{deps: d},
		actions:   &ActionExtractor{deps: d},
		risks:     &RiskExtractor{deps: d},
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil, d.logger)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(instrumentationName)
	}
	return p, nil
}

// KeywordOnly reports whether tagging runs without centroids.
func (p *Pipeline) KeywordOnly() bool {
	return p.tagger.KeywordOnly()
}

// Tag labels every sentence of the transcript.
func (p *Pipeline) Tag(ctx context.Context, segments []transcript.Segment) []IntentTag {
	ctx, span := p.tracer.Start(ctx, "extraction.tag")
	defer span.End()

	dl := newDegradeLog(p.logger, p.metrics)
	tags := p.tagger.tag(ctx, transcript.Usable(segments), dl)
	span.SetAttributes(attribute.Int("sentences", len(tags)))
	return tags
}

// Extract runs tagging and all three extractors. It never fails: every
// external call that breaks degrades to a heuristic and is counted in
// Stats.Degraded.
func (p *Pipeline) Extract(ctx context.Context, segments []transcript.Segment) *Result {
	ctx, span := p.tracer.Start(ctx, "extraction.extract")
	defer span.End()

	res := EmptyResult()
	dl := newDegradeLog(p.logger, p.metrics)
	r := p.newRun(ctx, segments, dl)
	res.Stats.Source = SourceHeuristic
	res.Stats.Segments = len(r.segments)
	res.Stats.KeywordOnly = p.KeywordOnly()
	if len(r.segments) == 0 {
		return res
	}
	if p.entities == nil {
		dl.note(ctx, "entities", ReasonUnavailable, nil)
	}

	tags := p.tagger.tag(ctx, r.segments, dl)
	res.Stats.Sentences = len(tags)

	res.Decisions = stage(p, r, "decisions", func(r *run) []Decision { return p.decisions.extract(r, tags) })
	res.Actions = stage(p, r, "actions", func(r *run) []Action { return p.actions.extract(r, tags) })
	res.Risks = stage(p, r, "risks", func(r *run) []Risk { return p.risks.extract(r, tags) })
	res.Stats.Degraded = dl.summary()

	span.SetAttributes(
		attribute.Int("segments", res.Stats.Segments),
		attribute.Int("decisions", len(res.Decisions)),
		attribute.Int("actions", len(res.Actions)),
		attribute.Int("risks", len(res.Risks)),
		attribute.Bool("keyword_only", res.Stats.KeywordOnly),
	)
	p.logger.Debug("extraction complete",
		zap.Int("segments", res.Stats.Segments),
		zap.Int("sentences", res.Stats.Sentences),
		zap.Int("decisions", len(res.Decisions)),
		zap.Int("actions", len(res.Actions)),
		zap.Int("risks", len(res.Risks)),
	)
	return res
}

// stage runs one extractor in its own span and counts what it produced.
func stage[T any](p *Pipeline, r *run, kind string, fn func(*run) []T) []T {
	ctx, span := p.tracer.Start(r.ctx, "extraction."+kind)
	defer span.End()

	sub := *r
	sub.ctx = ctx
	out := fn(&sub)
	span.SetAttributes(attribute.Int("count", len(out)))
	p.metrics.recordItems(ctx, kind, len(out))
	return out
}

package generative

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/meetextract/internal/generative"

// DefaultMaxContextTokens caps the transcript inserted into each prompt.
const DefaultMaxContextTokens = 2500

// Extractor produces extraction results from a generative Client.
type Extractor struct {
	client           Client
	maxContextTokens int
	thresholds       extraction.Thresholds
	logger           *zap.Logger
	tracer           trace.Tracer
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxContextTokens overrides DefaultMaxContextTokens.
func WithMaxContextTokens(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxContextTokens = n
		}
	}
}

// WithThresholds sets the limits used to normalize parsed records.
func WithThresholds(th extraction.Thresholds) ExtractorOption {
	return func(e *Extractor) {
		e.thresholds = th
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) ExtractorOption {
	return func(e *Extractor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewExtractor wraps client.
func NewExtractor(client Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client:           client,
		maxContextTokens: DefaultMaxContextTokens,
		thresholds:       extraction.DefaultThresholds(),
		logger:           zap.NewNop(),
		tracer:           otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract sends one prompt per record kind. Any failed call or malformed
// answer fails the whole extraction.
func (e *Extractor) Extract(ctx context.Context, segments []transcript.Segment) (*extraction.Result, error) {
	ctx, span := e.tracer.Start(ctx, "generative.extract")
	defer span.End()

	res := extraction.EmptyResult()
	res.Stats.Source = extraction.SourceGenerative
	usable := transcript.Usable(segments)
	res.Stats.Segments = len(usable)
	if len(usable) == 0 {
		return res, nil
	}

	body := BuildContext(usable, e.maxContextTokens)
	for _, kind := range Kinds {
		raw, err := e.ask(ctx, kind, body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		switch kind {
		case KindDecisions:
			for _, d := range raw.Decisions {
				if rec, ok := d.record(); ok {
					res.Decisions = append(res.Decisions, rec)
				}
			}
		case KindActions:
			for _, a := range raw.Actions {
				if rec, ok := a.record(); ok {
					res.Actions = append(res.Actions, rec)
				}
			}
		case KindRisks:
			for _, r := range raw.Risks {
				if rec, ok := r.record(); ok {
					res.Risks = append(res.Risks, rec)
				}
			}
		}
	}

	res.Normalize(e.thresholds)
	span.SetAttributes(
		attribute.Int("decisions", len(res.Decisions)),
		attribute.Int("actions", len(res.Actions)),
		attribute.Int("risks", len(res.Risks)),
	)
	return res, nil
}

func (e *Extractor) ask(ctx context.Context, kind Kind, body string) (*rawResponse, error) {
	prompt, err := Prompt(kind, body)
	if err != nil {
		return nil, err
	}
	answer, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	raw, err := parseResponse(answer)
	if err != nil {
		e.logger.Debug("unparseable model answer", zap.String("kind", string(kind)), zap.Int("length", len(answer)))
		return nil, err
	}
	return raw, nil
}

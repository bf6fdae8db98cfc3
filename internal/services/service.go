package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/cache"
	"github.com/fyrsmithlabs/meetextract/internal/events"
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/logging"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// ErrGenerativeUnavailable is returned in generative mode when no
// generative backend is configured.
var ErrGenerativeUnavailable = errors.New("generative extraction is not configured")

// Request is one extraction job.
type Request struct {
	Segments []transcript.Segment
	// Mode overrides the service default when set.
	Mode extraction.Mode
	// NoCache skips the cache lookup. The result is still stored.
	NoCache bool
	// NoPublish skips the result event, for callers that publish later.
	NoPublish bool
}

// Outcome is the result of one extraction job.
type Outcome struct {
	RunID      string              `json:"run_id"`
	Mode       extraction.Mode     `json:"mode"`
	Result     *extraction.Result  `json:"result"`
	Provenance *provenance.Summary `json:"provenance,omitempty"`
	Redactions int                 `json:"redactions,omitempty"`
	Cached     bool                `json:"cached"`
	// Fallback is set when hybrid mode fell back to heuristics.
	Fallback string `json:"fallback,omitempty"`
}

// Service runs extraction requests through the registry's components.
type Service struct {
	reg    Registry
	mode   extraction.Mode
	logger *zap.Logger
	tracer trace.Tracer
	newID  func() string
}

// NewService returns a service that extracts in mode unless a request
// overrides it.
func NewService(reg Registry, mode extraction.Mode, logger *zap.Logger) (*Service, error) {
	if reg == nil || reg.Pipeline() == nil {
		return nil, fmt.Errorf("registry with a pipeline is required")
	}
	if mode == "" {
		mode = extraction.ModeHeuristic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reg:    reg,
		mode:   mode,
		logger: logger,
		tracer: otel.Tracer("github.com/fyrsmithlabs/meetextract/internal/services"),
		newID:  uuid.NewString,
	}, nil
}

// Registry returns the underlying components.
func (s *Service) Registry() Registry { return s.reg }

// Mode returns the default extraction mode.
func (s *Service) Mode() extraction.Mode { return s.mode }

// Extract runs one request end to end.
func (s *Service) Extract(ctx context.Context, req Request) (*Outcome, error) {
	runID := s.newID()
	ctx = logging.WithRunID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "services.extract")
	defer span.End()

	mode := req.Mode
	if mode == "" {
		mode = s.mode
	}
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("mode", string(mode)))
	log := s.logger.With(zap.String("run.id", runID), zap.String("mode", string(mode)))

	out := &Outcome{RunID: runID, Mode: mode}
	segments := req.Segments
	if r := s.reg.Redactor(); r != nil {
		redacted, summary := r.RedactSegments(segments)
		segments = redacted
		out.Redactions = summary.Total()
		if summary.Total() > 0 {
			log.Info("redacted secrets from transcript", zap.Any("rules", summary.RuleCounts))
		}
	}

	key := cache.Key(string(mode), segments)
	if !req.NoCache {
		res, ok, err := s.reg.Cache().Get(ctx, key)
		if err != nil {
			log.Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			out.Result = res
			out.Cached = true
			log.Debug("cache hit")
		}
	}

	if out.Result == nil {
		res, fallback, err := s.run(ctx, mode, segments)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out.Result = res
		out.Fallback = fallback
		if err := s.reg.Cache().Set(ctx, key, res); err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}

	if tr := s.reg.Provenance(); tr != nil {
		if err := tr.Index(ctx, runID, segments); err != nil {
			log.Warn("provenance index failed", zap.Error(err))
		} else {
			sum := tr.Annotate(ctx, runID, out.Result)
			out.Provenance = &sum
			tr.Release(runID)
		}
	}

	if p := s.reg.Publisher(); p != nil && !req.NoPublish {
		if err := p.Publish(ctx, events.NewEvent(runID, out.Result)); err != nil {
			log.Warn("publishing result event failed", zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Bool("cached", out.Cached))
	log.Info("extraction finished",
		zap.String("source", out.Result.Stats.Source),
		zap.Int("decisions", len(out.Result.Decisions)),
		zap.Int("actions", len(out.Result.Actions)),
		zap.Int("risks", len(out.Result.Risks)),
		zap.Bool("cached", out.Cached))
	return out, nil
}

// run applies the mode policy. The returned string names the failure that
// caused a hybrid fallback, if any.
func (s *Service) run(ctx context.Context, mode extraction.Mode, segments []transcript.Segment) (*extraction.Result, string, error) {
	gen := s.reg.Generative()
	switch mode {
	case extraction.ModeGenerative:
		if gen == nil {
			return nil, "", ErrGenerativeUnavailable
		}
		res, err := gen.Extract(ctx, segments)
		if err != nil {
			return nil, "", fmt.Errorf("generative extraction: %w", err)
		}
		return res, "", nil
	case extraction.ModeHybrid:
		if gen == nil {
			return s.reg.Pipeline().Extract(ctx, segments), ErrGenerativeUnavailable.Error(), nil
		}
		res, err := gen.Extract(ctx, segments)
		if err == nil {
			return res, "", nil
		}
		s.logger.Warn("generative extraction failed, falling back to heuristics",
			zap.String("run.id", logging.RunIDFromContext(ctx)), zap.Error(err))
		return s.reg.Pipeline().Extract(ctx, segments), err.Error(), nil
	default:
		return s.reg.Pipeline().Extract(ctx, segments), "", nil
	}
}

// Tag labels every sentence of the transcript, after redaction.
func (s *Service) Tag(ctx context.Context, segments []transcript.Segment) []extraction.IntentTag {
	if r := s.reg.Redactor(); r != nil {
		segments, _ = r.RedactSegments(segments)
	}
	return s.reg.Pipeline().Tag(ctx, segments)
}

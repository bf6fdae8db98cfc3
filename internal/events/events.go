// Package events publishes extraction results to NATS.
//
// Each finished run is sent as one JSON message on
// <prefix>.<run_id>. Free text in the result is passed through the secret
// redactor first, so subscribers never see credentials that were spoken or
// pasted into a meeting.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/secrets"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "meetextract.results"

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Counts is the record tally carried in every event.
type Counts struct {
	Decisions int `json:"decisions"`
	Actions   int `json:"action_items"`
	Risks     int `json:"risks"`
}

// Event is the published payload.
type Event struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source"`
	Counts      Counts             `json:"counts"`
	Result      *extraction.Result `json:"result"`
	Redacted    int                `json:"redacted,omitempty"`
	PublishedAt time.Time          `json:"published_at"`
}

// NewEvent builds an event for res.
func NewEvent(runID string, res *extraction.Result) Event {
	ev := Event{RunID: runID, Result: res}
	if res != nil {
		ev.Source = res.Stats.Source
		ev.Counts = Counts{Decisions: len(res.Decisions), Actions: len(res.Actions), Risks: len(res.Risks)}
	}
	return ev
}

// Config configures the publisher.
type Config struct {
	URL           string
	Token         string
	SubjectPrefix string
	// PublishWait bounds the flush after each publish.
	PublishWait time.Duration
	// MaxRetries is the number of publish retries after the first attempt.
	MaxRetries uint64
}

// Publisher sends result events.
type Publisher struct {
	conn     *nats.Conn
	cfg      Config
	redactor *secrets.Redactor
	logger   *zap.Logger
}

// Connect dials NATS and returns a publisher. redactor may be nil.
func Connect(cfg Config, redactor *secrets.Redactor, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("meetextract"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewPublisher(nc, cfg, redactor, logger), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, cfg Config, redactor *secrets.Redactor, logger *zap.Logger) *Publisher {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.PublishWait <= 0 {
		cfg.PublishWait = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: nc, cfg: cfg, redactor: redactor, logger: logger}
}

// Subject returns the subject a run is published on.
func (p *Publisher) Subject(runID string) string {
	return p.cfg.SubjectPrefix + "." + runID
}

// Publish redacts and sends ev, retrying with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p.conn == nil || p.conn.IsClosed() {
		return ErrClosed
	}
	if ev.RunID == "" {
		return fmt.Errorf("event run id is required")
	}
	if p.redactor != nil && ev.Result != nil {
		redacted, summary := p.redactor.RedactResult(ev.Result)
		ev.Result = redacted
		ev.Redacted = summary.Total()
		if summary.Total() > 0 {
			p.logger.Info("redacted secrets from event",
				zap.String("run.id", ev.RunID), zap.Any("rules", summary.RuleCounts))
		}
	}
	if ev.PublishedAt.IsZero() {
		ev.PublishedAt = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(ev.RunID)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 15 * time.Second

	attempt := 0
	op := func() error {
		attempt++
		if err := p.conn.Publish(subject, data); err != nil {
			if errors.Is(err, nats.ErrConnectionClosed) {
				return backoff.Permanent(err)
			}
			return err
		}
		flushCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishWait)
		defer cancel()
		return p.conn.FlushWithContext(flushCtx)
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("publish failed, retrying",
			zap.String("subject", subject), zap.Int("attempt", attempt),
			zap.Duration("wait", wait), zap.Error(err))
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.MaxRetries), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug("published result event",
		zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Drain()
}

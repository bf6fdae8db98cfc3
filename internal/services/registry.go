package services

import (
	"context"
	"errors"
	"io"

	"github.com/fyrsmithlabs/meetextract/internal/cache"
	"github.com/fyrsmithlabs/meetextract/internal/events"
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
	"github.com/fyrsmithlabs/meetextract/internal/secrets"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// GenerativeExtractor produces a result from a generative model.
type GenerativeExtractor interface {
	Extract(ctx context.Context, segments []transcript.Segment) (*extraction.Result, error)
}

// Publisher sends result events.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Registry provides access to the extraction components.
type Registry interface {
	Pipeline() *extraction.Pipeline
	Generative() GenerativeExtractor
	Redactor() *secrets.Redactor
	Provenance() *provenance.Tracker
	Cache() cache.Cache
	Publisher() Publisher
	// Close releases every component that holds a connection or model.
	Close() error
}

// Options configures the registry with component instances. Only
// Pipeline is required.
type Options struct {
	Pipeline   *extraction.Pipeline
	Generative GenerativeExtractor
	Redactor   *secrets.Redactor
	Provenance *provenance.Tracker
	Cache      cache.Cache
	Publisher  Publisher
	// Closers are closed in order by Close.
	Closers []io.Closer
}

type registry struct {
	pipeline   *extraction.Pipeline
	generative GenerativeExtractor
	redactor   *secrets.Redactor
	provenance *provenance.Tracker
	cache      cache.Cache
	publisher  Publisher
	closers    []io.Closer
}

// NewRegistry creates a registry. A nil cache becomes cache.Nop.
func NewRegistry(opts Options) Registry {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &registry{
		pipeline:   opts.Pipeline,
		generative: opts.Generative,
		redactor:   opts.Redactor,
		provenance: opts.Provenance,
		cache:      c,
		publisher:  opts.Publisher,
		closers:    opts.Closers,
	}
}

func (r *registry) Pipeline() *extraction.Pipeline  { return r.pipeline }
func (r *registry) Generative() GenerativeExtractor { return r.generative }
func (r *registry) Redactor() *secrets.Redactor     { return r.redactor }
func (r *registry) Provenance() *provenance.Tracker { return r.provenance }
func (r *registry) Cache() cache.Cache              { return r.cache }
func (r *registry) Publisher() Publisher            { return r.publisher }

func (r *registry) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

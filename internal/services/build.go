package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/cache"
	"github.com/fyrsmithlabs/meetextract/internal/config"
	"github.com/fyrsmithlabs/meetextract/internal/embeddings"
	"github.com/fyrsmithlabs/meetextract/internal/entities"
	"github.com/fyrsmithlabs/meetextract/internal/events"
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/generative"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
	"github.com/fyrsmithlabs/meetextract/internal/sanitize"
	"github.com/fyrsmithlabs/meetextract/internal/secrets"
	"github.com/fyrsmithlabs/meetextract/internal/vectorstore"
)

// Build constructs every component named by cfg. Optional components that
// fail to start (embeddings, vector store, cache) are logged and left out
// so extraction degrades instead of refusing to run.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mode, err := extraction.ParseMode(cfg.Extraction.Mode)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	fail := func(err error) (*Service, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	embedder := buildEmbedder(cfg.Embeddings, logger)
	if embedder != nil {
		closers = append(closers, embedder)
	}

	var ents extraction.EntityService
	if cfg.Entities.Provider == "rules" {
		ents = entities.NewRuleBased()
	}

	opts := extraction.Options{
		Entities:   ents,
		Thresholds: &cfg.Extraction.Thresholds,
		Logger:     logger.Named("extraction"),
		Metrics:    extraction.NewMetrics(nil, logger),
	}
	if embedder != nil {
		opts.Embedder = embedder
	}
	pipeline, err := extraction.NewPipeline(ctx, opts)
	if err != nil {
		return fail(fmt.Errorf("building pipeline: %w", err))
	}

	var gen GenerativeExtractor
	if mode != extraction.ModeHeuristic {
		client, err := generative.NewClient(generative.Config{
			Provider:  cfg.Generative.Provider,
			Model:     cfg.Generative.Model,
			BaseURL:   cfg.Generative.BaseURL,
			APIKey:    cfg.Generative.APIKey.Value(),
			MaxTokens: cfg.Generative.MaxTokens,
			Timeout:   cfg.Generative.Timeout.Duration(),
		})
		if err != nil {
			return fail(fmt.Errorf("building generative client: %w", err))
		}
		gen = generative.NewExtractor(client,
			generative.WithMaxContextTokens(cfg.Generative.MaxContextTokens),
			generative.WithThresholds(cfg.Extraction.Thresholds),
			generative.WithLogger(logger.Named("generative")),
		)
	}

	var redactor *secrets.Redactor
	if cfg.Redaction.Enabled {
		var allow *secrets.Allowlist
		if cfg.Redaction.AllowlistPath != "" {
			allow, err = secrets.LoadAllowlist(cfg.Redaction.AllowlistPath)
			if err != nil {
				return fail(fmt.Errorf("loading redaction allowlist: %w", err))
			}
		}
		redactor, err = secrets.NewRedactor(allow)
		if err != nil {
			return fail(fmt.Errorf("building redactor: %w", err))
		}
	}

	var tracker *provenance.Tracker
	if cfg.Provenance.Enabled {
		var store vectorstore.Store
		if embedder != nil {
			store, err = vectorstore.New(vectorstore.Config{
				Backend: cfg.Provenance.Backend,
				Chromem: vectorstore.ChromemConfig{Path: cfg.Provenance.Path, Compress: true},
				Qdrant: vectorstore.QdrantConfig{
					Host:   cfg.Provenance.QdrantHost,
					Port:   cfg.Provenance.QdrantPort,
					UseTLS: cfg.Provenance.QdrantTLS,
				},
			}, embedder, logger.Named("vectorstore"))
			if err != nil {
				logger.Warn("vector store unavailable, provenance uses keyword overlap", zap.Error(err))
				store = nil
			} else {
				closers = append(closers, store)
			}
		}
		tracker = provenance.NewTracker(store, provenance.Config{
			Collection:      sanitize.CollectionName(cfg.Provenance.Collection, cfg.Embeddings.Model),
			TopK:            cfg.Provenance.TopK,
			MinSimilarity:   cfg.Provenance.MinSimilarity,
			SupportedAbove:  cfg.Provenance.SupportedAbove,
			SuspiciousBelow: cfg.Provenance.SuspiciousBelow,
		}, logger.Named("provenance"))
	}

	resultCache, err := cache.New(ctx, cache.Config{
		Backend:  cfg.Cache.Backend,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password.Value(),
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.TTL.Duration(),
	}, logger.Named("cache"))
	if err != nil {
		logger.Warn("result cache unavailable, caching disabled", zap.Error(err))
		resultCache = cache.Nop{}
	}
	closers = append(closers, resultCache)

	var publisher Publisher
	if cfg.Events.Enabled {
		pub, err := events.Connect(events.Config{
			URL:           cfg.Events.URL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
			PublishWait:   cfg.Events.PublishWait.Duration(),
		}, redactor, logger.Named("events"))
		if err != nil {
			return fail(fmt.Errorf("connecting events: %w", err))
		}
		publisher = pub
		closers = append(closers, pub)
	}

	reg := NewRegistry(Options{
		Pipeline:   pipeline,
		Generative: gen,
		Redactor:   redactor,
		Provenance: tracker,
		Cache:      resultCache,
		Publisher:  publisher,
		Closers:    closers,
	})
	return NewService(reg, mode, logger.Named("services"))
}

func buildEmbedder(cfg config.EmbeddingsConfig, logger *zap.Logger) embeddings.Provider {
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey.Value(),
		CacheDir: cfg.CacheDir,
		Timeout:  cfg.Timeout.Duration(),
	})
	switch {
	case errors.Is(err, embeddings.ErrDisabled):
		logger.Info("embeddings disabled, tagging runs on keywords")
		return nil
	case err != nil:
		logger.Warn("embedding service unavailable, tagging runs on keywords",
			zap.String("provider", cfg.Provider), zap.Error(err))
		return nil
	}
	return embeddings.Instrument(provider, cfg.Model, embeddings.NewMetrics(nil, logger))
}

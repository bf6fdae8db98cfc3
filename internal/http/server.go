// Package http provides the HTTP API for meetextract.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/logging"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// Server provides HTTP endpoints for meetextract.
type Server struct {
	echo    *echo.Echo
	service *services.Service
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host      string
	Port      int
	BodyLimit string // e.g. "4M"; empty means no limit
}

// requestValidator adapts go-playground/validator to echo.Validator.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// NewServer creates a new HTTP server.
func NewServer(service *services.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(newRequestMetrics(nil, logger).middleware)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

			err := next(c)

			logger.Info("http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/extract", s.handleExtract)
	v1.POST("/tag", s.handleTag)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Mode:   string(s.service.Mode()),
	})
}

// handleExtract runs extraction over posted segments or raw content.
func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	segments, err := s.bindTranscript(c, &req, &req.TranscriptRequest)
	if err != nil {
		return err
	}

	var mode extraction.Mode
	if req.Mode != "" {
		if mode, err = extraction.ParseMode(req.Mode); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	out, err := s.service.Extract(c.Request().Context(), services.Request{
		Segments: segments,
		Mode:     mode,
		NoCache:  req.NoCache,
	})
	if err != nil {
		if errors.Is(err, services.ErrGenerativeUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		s.logger.Error("extraction failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "extraction failed")
	}

	countExtraction(out.Result.Stats.Source, out.Cached)
	return c.JSON(http.StatusOK, ExtractResponse{
		RunID:      out.RunID,
		Mode:       out.Mode,
		Cached:     out.Cached,
		Fallback:   out.Fallback,
		Redactions: out.Redactions,
		Result:     out.Result,
		Provenance: out.Provenance,
	})
}

// handleTag returns intent tags for every sentence.
func (s *Server) handleTag(c echo.Context) error {
	var req TranscriptRequest
	segments, err := s.bindTranscript(c, &req, &req)
	if err != nil {
		return err
	}
	tags := s.service.Tag(c.Request().Context(), segments)
	if tags == nil {
		tags = []extraction.IntentTag{}
	}
	return c.JSON(http.StatusOK, TagResponse{Tags: tags})
}

// bindTranscript binds and validates body, then resolves the segments
// from either the segments array or raw content.
func (s *Server) bindTranscript(c echo.Context, body interface{}, req *TranscriptRequest) ([]transcript.Segment, error) {
	if err := c.Bind(body); err != nil {
		s.logger.Warn("invalid request body", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	if len(req.Segments) > 0 {
		return req.Segments, nil
	}
	format, err := transcript.ParseFormat(req.Format)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	segments, err := transcript.Parse(strings.NewReader(req.Content), format)
	if err != nil {
		if errors.Is(err, transcript.ErrEmptyInput) {
			return []transcript.Segment{}, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return segments, nil
}

// validationMessage lists the failing fields of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

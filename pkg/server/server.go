// Package server exposes the analyzer and the QA assistant over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/fetch"
	"github.com/0x-stone/clauseguard/pkg/pipeline"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "DataVault ClauseGuard"

// Analyzer runs one policy analysis.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string) (*pipeline.Result, error)
}

// Assistant answers one NDPA question.
type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Config holds HTTP settings.
type Config struct {
	AllowOrigins string
	ReadTimeout  time.Duration
	// AccessLog enables the fiber request logger.
	AccessLog bool
}

// Server is the HTTP API.
type Server struct {
	app       *fiber.App
	analyzer  Analyzer
	assistant Assistant
	metrics   http.Handler
	onAsk     func()
	logger    *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAssistant enables the QA endpoint.
func WithAssistant(a Assistant) Option {
	return func(s *Server) { s.assistant = a }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithQuestionHook runs fn after every answered question.
func WithQuestionHook(fn func()) Option {
	return func(s *Server) { s.onAsk = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type questionRequest struct {
	Question string `json:"question"`
}

// New builds the fiber app and its routes.
func New(cfg Config, analyzer Analyzer, opts ...Option) *Server {
	s := &Server{analyzer: analyzer, logger: zap.NewNop(), onAsk: func() {}}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	s.app = fiber.New(fiber.Config{
		AppName:               ServiceName,
		ReadTimeout:           cfg.ReadTimeout,
		DisableStartupMessage: true,
	})

	s.app.Use(fiberrecover.New())
	if cfg.AccessLog {
		s.app.Use(logger.New())
	}
	s.app.Use(compress.New())
	corsCfg := cors.Config{AllowOrigins: "*"}
	if cfg.AllowOrigins != "" {
		corsCfg.AllowOrigins = cfg.AllowOrigins
	}
	s.app.Use(cors.New(corsCfg))

	s.app.Get("/", s.health)
	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	api := s.app.Group("/api/v1")
	api.Post("/analyze/link", s.analyzeLink)
	api.Post("/ndpa/qa", s.answerQuestion)

	return s
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": ServiceName})
}

func (s *Server) analyzeLink(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_url"})
	}
	url := strings.TrimSpace(req.URL)
	if err := fetch.ValidateURL(url); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_url"})
	}

	res, err := s.analyzer.AnalyzeURL(c.UserContext(), url)
	if code := pipeline.OutcomeCode(err); code != "" {
		return c.JSON(fiber.Map{"error": code})
	}
	if errors.Is(err, fetch.ErrInvalidURL) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_url"})
	}
	if err != nil {
		s.logger.Error("analyze link failed", zap.String("url", url), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(res.Verdict)
}

func (s *Server) answerQuestion(c *fiber.Ctx) error {
	if s.assistant == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "qa_unavailable"})
	}
	var req questionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty_question"})
	}

	answer, err := s.assistant.Ask(c.UserContext(), question)
	if err != nil {
		s.logger.Error("answer question failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	s.onAsk()
	return c.JSON(fiber.Map{"message": answer})
}

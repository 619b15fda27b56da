// Package server exposes the triage store over a JSON HTTP API. Every
// write goes through store.Dispatch, so the API and the terminal
// dashboard share one action boundary.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nhle/desk/internal/store"
	desksync "github.com/nhle/desk/internal/sync"
	"github.com/nhle/desk/internal/triage"
)

// Syncer runs a provider sync on demand. *sync.Engine satisfies it.
type Syncer interface {
	SyncOnce(ctx context.Context) (desksync.SyncResultMsg, error)
}

// Options configures the API.
type Options struct {
	Store      *store.Store
	Syncer     Syncer
	Extractor  *triage.QuestionExtractor
	Advisor    *triage.Advisor
	FocusLimit int
	Logger     *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	app        *fiber.App
	store      *store.Store
	syncer     Syncer
	extractor  *triage.QuestionExtractor
	advisor    *triage.Advisor
	focusLimit int
	logger     *slog.Logger
}

// New builds the fiber app and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		store:      opts.Store,
		syncer:     opts.Syncer,
		extractor:  opts.Extractor,
		advisor:    opts.Advisor,
		focusLimit: opts.FocusLimit,
		logger:     opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.advisor == nil {
		s.advisor = triage.NewAdvisor(nil)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "desk",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.logRequests)
	s.routes()
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Get("/dashboard", s.getDashboard)
	api.Get("/focus", s.getFocus)

	api.Get("/threads", s.listThreads)
	api.Get("/threads/:id", s.getThread)
	api.Post("/threads/:id/move", s.moveThread)
	api.Post("/threads/:id/priority", s.setPriority)
	api.Post("/threads/:id/pin", s.togglePin)
	api.Post("/threads/:id/archive", s.archive)
	api.Post("/threads/:id/follow-up", s.setFollowUp)
	api.Post("/threads/:id/questions/:messageId/toggle", s.toggleQuestion)

	api.Get("/rules", s.listRules)
	api.Post("/rules", s.addRule)

	api.Post("/sync", s.syncNow)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

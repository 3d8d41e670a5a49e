// Package server assembles the fiber application.
package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"textpdf/internal/config"
	"textpdf/internal/http/handlers"
	"textpdf/internal/http/middleware"
	"textpdf/internal/infra/browser"
	"textpdf/internal/infra/logging"
	"textpdf/internal/pipeline"
)

const minBodyLimit = 4 * 1024 * 1024

// Deps are the collaborators of the HTTP server. Stack is built from Config
// when nil; Documents enables the /v1/documents routes.
type Deps struct {
	Config    config.Config
	Redis     *redis.Client
	Stack     *pipeline.Stack
	Documents handlers.DocumentStore
}

// New creates the fiber app with middleware and routes.
func New(deps Deps) *fiber.App {
	cfg := deps.Config
	stack := deps.Stack
	if stack == nil {
		var err error
		stack, err = pipeline.NewStack(cfg)
		if err != nil {
			panic("server: build pipeline: " + err.Error())
		}
	}

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             max(minBodyLimit, 2*cfg.Limits.MaxTextBytes),
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, cfg, readinessProbes(deps, stack)...)
	registerRoutes(app, cfg, deps, stack)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})
	return app
}

// pinger is implemented by document stores that can check their backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// readinessProbes reports not-ready while a browser install runs or while a
// configured document store cannot reach its database.
func readinessProbes(deps Deps, stack *pipeline.Stack) []middleware.Probe {
	probes := []middleware.Probe{func() bool {
		return stack.Provisioner == nil || stack.Provisioner.State() != browser.StateInstalling
	}}
	if p, ok := deps.Documents.(pinger); ok {
		probes = append(probes, func() bool {
			if err := p.Ping(context.Background()); err != nil {
				logging.Warn("Document store not reachable", "error", err)
				return false
			}
			return true
		})
	}
	return probes
}

func registerRoutes(app *fiber.App, cfg config.Config, deps Deps, stack *pipeline.Stack) {
	pdf := handlers.NewPDFHandler(cfg, stack.Generator, deps.Redis)
	slots := middleware.RenderSlots(cfg.Limits.MaxConcurrentRenders, cfg.Limits.RenderQueueTimeout)

	app.Post("/generate-pdf", slots, pdf.HandleGenerate)

	v1 := app.Group("/v1")
	v1.Post("/pdf", slots, pdf.HandleGenerate)
	var (
		provStats    handlers.ProvisionerStats
		sessionStats handlers.SessionStats
	)
	if stack.Provisioner != nil {
		provStats = stack.Provisioner
	}
	if stack.Sessions != nil {
		sessionStats = stack.Sessions
	}
	v1.Get("/browser/stats", handlers.HandleBrowserStats(cfg, provStats, sessionStats))
	v1.Get("/monitor", monitor.New())

	if deps.Documents != nil {
		docs := handlers.NewDocumentHandler(deps.Documents, pdf)
		v1.Post("/documents", docs.Create)
		v1.Get("/documents", docs.List)
		v1.Get("/documents/:id", docs.Get)
		v1.Patch("/documents/:id", docs.Update)
		v1.Delete("/documents/:id", docs.Delete)
		v1.Post("/documents/:id/pdf", slots, docs.Render)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)
	return middleware.JSONError(c, code, msg)
}

package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ResourceHub/internal/app/service"
	inthttp "github.com/sifan077/ResourceHub/internal/http/handler"
	"github.com/sifan077/ResourceHub/internal/http/middleware"
	"github.com/sifan077/ResourceHub/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles what the HTTP server needs to serve the resource API.
type Dependencies struct {
	Logger       *zap.Logger
	Resources    service.ResourceService
	Enricher     service.Enricher
	Metrics      *prometheus.Metrics
	HealthChecks map[string]inthttp.HealthCheck
	// Middleware runs after the built-in chain and before any route.
	Middleware []fiber.Handler
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates the HTTP server with the middleware chain and all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "ResourceHub",
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, e.g. for the Lambda adapter or tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Metrics != nil {
		s.app.Use(middleware.Metrics(s.deps.Metrics))
	}
	for _, mw := range s.deps.Middleware {
		s.app.Use(mw)
	}
}

func (s *Server) registerRoutes() {
	inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger: s.deps.Logger,
		Checks: s.deps.HealthChecks,
	}).Register(s.app)

	inthttp.NewResourceHandler(inthttp.ResourceDeps{
		Logger:    s.deps.Logger,
		Resources: s.deps.Resources,
		Enricher:  s.deps.Enricher,
	}).Register(s.app)
}

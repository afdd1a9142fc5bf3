package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthDeps groups dependencies required by the health handler.
type HealthDeps struct {
	Logger  *zap.Logger
	Service string
	Checks  map[string]HealthCheck
}

// HealthHandler reports liveness and dependency status.
type HealthHandler struct {
	logger  *zap.Logger
	service string
	checks  map[string]HealthCheck
}

// NewHealthHandler creates a health handler with the provided dependencies.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	service := deps.Service
	if service == "" {
		service = "ResourceHub"
	}
	return &HealthHandler{
		logger:  logger,
		service: service,
		checks:  deps.Checks,
	}
}

// Register wires health routes onto the provided router.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health answers 200 when every dependency check passes and 503 otherwise.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	results := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	return c.Status(code).JSON(fiber.Map{
		"service": h.service,
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"checks":  results,
	})
}

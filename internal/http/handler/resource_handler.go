package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ResourceHub/internal/app/service"
	"go.uber.org/zap"
)

// ResourceDeps groups dependencies required by resource handlers.
type ResourceDeps struct {
	Logger    *zap.Logger
	Resources service.ResourceService
	Enricher  service.Enricher
}

// ResourceHandler implements the directory API endpoints.
type ResourceHandler struct {
	logger    *zap.Logger
	resources service.ResourceService
	enricher  service.Enricher
}

// NewResourceHandler creates a resource handler with the provided dependencies.
func NewResourceHandler(deps ResourceDeps) *ResourceHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceHandler{
		logger:    logger,
		resources: deps.Resources,
		enricher:  deps.Enricher,
	}
}

// Register wires resource routes onto the provided router.
func (h *ResourceHandler) Register(router fiber.Router) {
	resources := router.Group("/resources")
	{
		resources.Post("/", h.CreateResource)
		resources.Get("/", h.SearchResources)
		resources.Get("/:id", h.GetResource)
	}
	router.Get("/external-search", h.ExternalSearch)
}

// CreateResourceRequest is the body of POST /resources. ResourceType and
// ResourceID are accepted for older clients.
type CreateResourceRequest struct {
	ID           string `json:"id,omitempty"`
	ResourceID   string `json:"resourceId,omitempty"`
	Type         string `json:"type,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	Location     string `json:"location"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Address      string `json:"address,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Email        string `json:"email,omitempty"`
	Website      string `json:"website,omitempty"`
	Hours        string `json:"hours,omitempty"`
	TTLDays      days   `json:"ttlDays,omitempty"`
}

// days accepts a JSON number or a numeric string, e.g. 30 or "30".
type days int

func (d *days) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*d = 0
			return nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("ttlDays: %q is not a whole number", raw)
	}
	*d = days(n)
	return nil
}

// CreateResource handles POST /resources
func (h *ResourceHandler) CreateResource(c *fiber.Ctx) error {
	// API Gateway clients often omit the content type
	if len(c.Request().Header.ContentType()) == 0 {
		c.Request().Header.SetContentType(fiber.MIMEApplicationJSON)
	}

	var req CreateResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid request body",
		})
	}

	resource, err := h.resources.Create(requestContext(c), service.CreateInput{
		ID:          firstNonEmpty(req.ID, req.ResourceID),
		Type:        firstNonEmpty(req.Type, req.ResourceType),
		Location:    req.Location,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Website:     req.Website,
		Hours:       req.Hours,
		TTLDays:     int(req.TTLDays),
	})
	if err != nil {
		return h.writeError(c, "failed to save resource", err)
	}

	return c.JSON(fiber.Map{
		"message": "Resource saved successfully",
		"id":      resource.ID,
	})
}

// SearchResources handles GET /resources
func (h *ResourceHandler) SearchResources(c *fiber.Ctx) error {
	result, err := h.resources.Search(requestContext(c), service.SearchInput{
		Type:         firstNonEmpty(c.Query("type"), c.Query("resourceType")),
		Location:     c.Query("location"),
		AvailableNow: c.QueryBool("availableNow"),
	})
	if err != nil {
		return h.writeError(c, "failed to search resources", err)
	}

	return c.JSON(result)
}

// GetResource handles GET /resources/:id
func (h *ResourceHandler) GetResource(c *fiber.Ctx) error {
	resource, err := h.resources.Get(requestContext(c), c.Params("id"), c.Query("location"))
	if err != nil {
		return h.writeError(c, "failed to get resource", err)
	}

	return c.JSON(resource)
}

// ExternalSearch handles GET /external-search
func (h *ResourceHandler) ExternalSearch(c *fiber.Ctx) error {
	resourceType := firstNonEmpty(c.Query("type"), c.Query("resourceType"))
	location := c.Query("location")

	saved, err := h.enricher.Enrich(requestContext(c), resourceType, location)
	if err != nil {
		return h.writeError(c, "failed to search for external resources", err)
	}

	return c.JSON(fiber.Map{
		"message":   fmt.Sprintf("Found and saved %d resources", len(saved)),
		"resources": saved,
	})
}

// writeError maps service errors onto status codes. Anything unclassified is a 500.
func (h *ResourceHandler) writeError(c *fiber.Ctx, op string, err error) error {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		upstream   *service.UpstreamError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": validation.Error(),
		})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Resource not found",
		})
	case errors.As(err, &upstream):
		h.logger.Error(op, zap.Error(err), zap.String("path", c.Path()), requestIDField(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": upstream.Message,
			"error":   upstream.Detail(),
		})
	default:
		h.logger.Error(op, zap.Error(err), zap.String("path", c.Path()), requestIDField(c))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": op,
			"error":   err.Error(),
		})
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func requestIDField(c *fiber.Ctx) zap.Field {
	rid, _ := c.Locals("request_id").(string)
	return zap.String("request_id", rid)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

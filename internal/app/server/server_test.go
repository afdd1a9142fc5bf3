package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sifan077/ResourceHub/internal/app/model"
	"github.com/sifan077/ResourceHub/internal/app/service"
	inthttp "github.com/sifan077/ResourceHub/internal/http/handler"
	"github.com/sifan077/ResourceHub/internal/http/middleware"
	"github.com/sifan077/ResourceHub/internal/infra/prometheus"
)

type stubResources struct{}

func (stubResources) Create(_ context.Context, input service.CreateInput) (*model.Resource, error) {
	return &model.Resource{ID: "resource_1", Type: input.Type, Location: input.Location, Name: input.Name}, nil
}

func (stubResources) Get(_ context.Context, id, location string) (*model.Resource, error) {
	return nil, &service.NotFoundError{ID: id, Location: location}
}

func (stubResources) Search(context.Context, service.SearchInput) ([]model.Resource, error) {
	return []model.Resource{}, nil
}

type stubEnricher struct{}

func (stubEnricher) Enrich(context.Context, string, string) ([]model.Resource, error) {
	return []model.Resource{}, nil
}

func newTestServer(deps Dependencies) *Server {
	deps.Resources = stubResources{}
	deps.Enricher = stubEnricher{}
	return New(deps)
}

func TestServer_RoutesAndRequestID(t *testing.T) {
	s := newTestServer(Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/resources?type=shelter", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "[]" {
		t.Fatalf("expected empty array, got %s", body)
	}
}

func TestServer_HealthChecks(t *testing.T) {
	s := newTestServer(Dependencies{
		HealthChecks: map[string]inthttp.HealthCheck{
			"store": func(context.Context) error { return errors.New("unreachable") },
		},
	})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded status, got %v", body["status"])
	}
}

func TestServer_MetricsAndExtraMiddleware(t *testing.T) {
	metrics := prometheus.NewMetrics(prom.NewRegistry())
	var seen bool
	s := newTestServer(Dependencies{
		Metrics: metrics,
		Middleware: []fiber.Handler{func(c *fiber.Ctx) error {
			seen = true
			return c.Next()
		}},
	})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/resources/missing?location=Austin", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !seen {
		t.Fatal("expected extra middleware to run")
	}
	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/resources/:id", "404")); got != 1 {
		t.Fatalf("expected one request recorded, got %v", got)
	}
}

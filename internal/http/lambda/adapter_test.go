package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
)

type ctxKey string

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(ContextMiddleware())

	app.Get("/resources/:id", func(c *fiber.Ctx) error {
		traced, _ := c.UserContext().Value(ctxKey("trace")).(string)
		return c.JSON(fiber.Map{
			"id":       c.Params("id"),
			"location": c.Query("location"),
			"trace":    traced,
			"ip":       c.IP(),
		})
	})
	app.Post("/resources", func(c *fiber.Ctx) error {
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
		c.Set("X-Custom", "yes")
		return c.Status(fiber.StatusCreated).JSON(body)
	})
	return app
}

func TestAdapter_Get(t *testing.T) {
	a := NewAdapter(newTestApp())
	ctx := context.WithValue(context.Background(), ctxKey("trace"), "abc")

	resp, err := a.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:            "GET",
		Path:                  "/resources/resource_1",
		QueryStringParameters: map[string]string{"location": "Chandler, AZ"},
		RequestContext: events.APIGatewayProxyRequestContext{
			Identity: events.APIGatewayRequestIdentity{SourceIP: "203.0.113.7"},
		},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["id"] != "resource_1" || body["location"] != "Chandler, AZ" {
		t.Fatalf("unexpected routing result %v", body)
	}
	if body["trace"] != "abc" {
		t.Fatal("expected invocation context to reach the handler")
	}
	if body["ip"] != "203.0.113.7" {
		t.Fatalf("expected source ip, got %q", body["ip"])
	}
}

func TestAdapter_PostBase64Body(t *testing.T) {
	a := NewAdapter(newTestApp())

	resp, err := a.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      "POST",
		Path:            "/resources",
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"name":"Pantry"}`)),
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, resp.Body)
	}
	if resp.Headers["X-Custom"] != "yes" {
		t.Fatalf("expected response headers to be copied, got %v", resp.Headers)
	}
	if resp.Body != `{"name":"Pantry"}` {
		t.Fatalf("unexpected body %s", resp.Body)
	}
}

func TestAdapter_BadBase64(t *testing.T) {
	a := NewAdapter(newTestApp())

	_, err := a.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      "POST",
		Path:            "/resources",
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestAdapter_NotFound(t *testing.T) {
	resp, err := NewAdapter(newTestApp()).Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Path:       "/nope",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the fiber.Ctx Locals key holding the request id.
	RequestIDKey = "request_id"
)

// RequestID propagates the caller's request id or generates one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set(RequestIDHeader, rid)
		c.Locals(RequestIDKey, rid)
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	rid, _ := c.Locals(RequestIDKey).(string)
	return rid
}

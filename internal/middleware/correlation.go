package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type correlationCtxKey struct{}

// CorrelationID tags every request with a correlation identifier so that
// log lines, feed events and upstream calls can be stitched together.
// An incoming X-Correlation-ID or X-Request-ID header wins; otherwise a
// fresh UUID is minted.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := incomingCorrelationID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set("X-Correlation-ID", id)
		c.SetUserContext(ContextWithCorrelation(c.Context(), id))

		return c.Next()
	}
}

func incomingCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{"X-Correlation-ID", "X-Request-ID"} {
		if id := strings.TrimSpace(c.Get(header)); id != "" {
			return id
		}
	}
	return ""
}

// CorrelationIDFromContext extracts the correlation identifier from a
// context, returning an empty string when none was attached.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// GetCorrelationID returns the identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches a correlation identifier to ctx. Blank
// identifiers leave the context untouched.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationCtxKey{}, correlationID)
}

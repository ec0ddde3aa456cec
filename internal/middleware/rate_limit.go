package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/unipath-io/unipath-api/internal/utils"
)

// RateLimit caps requests per authenticated user within the given window.
// Unauthenticated callers are keyed by client IP instead. The scope string
// separates counters between endpoint groups sharing the same user.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			subject := c.IP()
			if id, ok := c.Locals("user_id").(uint); ok && id > 0 {
				subject = strconv.FormatUint(uint64(id), 10)
			}
			return scope + ":" + subject
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

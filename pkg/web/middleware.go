package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/zigral/zigral/pkg/ratelimit"
)

// RateLimitMiddleware throttles command submissions per client address.
// Limiter errors fail open: a broken limiter backend should not take the
// command endpoint down with it.
func RateLimitMiddleware(limiter ratelimit.Limiter, logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		allowed, err := limiter.Allow(c.Context(), c.IP())
		if err != nil {
			logger.Warn("Rate limiter unavailable", "error", err)

			return c.Next()
		}

		if !allowed {
			return tooManyRequests(c, "Too many commands, please retry later")
		}

		return c.Next()
	}
}

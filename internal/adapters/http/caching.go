package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		if err != nil || c.Response().StatusCode() != fiber.StatusOK {
			if strings.HasPrefix(path, "/v1/") {
				c.Set(fiber.HeaderCacheControl, "no-store")
			}
			return err
		}

		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/runs":
			ttl = "no-cache" // new runs appear at any time

		case strings.HasPrefix(path, "/v1/runs/"):
			ttl = "public, max-age=60, must-revalidate" // runs can be deleted

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}

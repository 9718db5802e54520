package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Resource reads get maxAge seconds; handlers that set the header win.
func CachingMiddleware(maxAge int) fiber.Handler {
	resourceTTL := "no-cache"
	if maxAge > 0 {
		resourceTTL = fmt.Sprintf("public, max-age=%d", maxAge)
	}

	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() >= 400 {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasSuffix(strings.TrimSuffix(path, "/"), "/schema"):
			ttl = "public, max-age=3600" // schemas only change on restart

		case path == "/v1/resources" || path == "/v1/resources/":
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/resources/"):
			ttl = resourceTTL

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}

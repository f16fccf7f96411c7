package logger

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"
)

// APILogger returns a fiber middleware that logs every request with its latency
func APILogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		InfoWithFields("Request", map[string]interface{}{
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
			"method":  c.Method(),
			"path":    c.Path(),
			"handler": c.Route().Name,
		})

		return err
	}
}

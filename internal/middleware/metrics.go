package middleware

import (
	"strconv"
	"time"

	"inventory/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request count and latency labelled by route pattern.
func Metrics(m *metrics.Metrics, service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" || (path == "/" && c.Path() != "/") {
			path = "unmatched"
		}
		method := c.Method()

		m.Latency.WithLabelValues(service, method, path).
			Observe(time.Since(start).Seconds())
		m.Requests.WithLabelValues(service, method, path, strconv.Itoa(StatusOf(c, err))).
			Inc()
		return err
	}
}

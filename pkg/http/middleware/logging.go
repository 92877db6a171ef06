package middleware

import (
	"time"

	"GridPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request with method, URI, caller address, status,
// and latency through the application logger.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			log.Info("request",
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("ip", c.RealIP()),
				logger.Int("status", res.Status),
				logger.Duration("latency_ms", time.Since(start)),
			)
			return err
		}
	}
}

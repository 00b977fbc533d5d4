package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"TrendPull/pkg/logger"
)

// RequestLogging logs one line per request. 5xx responses log at error level.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("duration_ms", time.Since(start)),
			}
			switch {
			case status >= 500:
				l.Error("http request", append(fields, logger.Error(err))...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}

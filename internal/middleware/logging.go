package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dropcode/dropcode/pkg/log"
)

// RequestLogger logs one structured line per request. Bodies are not
// captured; uploads and downloads are too large to buffer.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Infow("http request",
				"status", c.Response().Status,
				"latency", time.Since(start).String(),
				"clientIP", c.RealIP(),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"bytesOut", c.Response().Size,
			)

			return err
		}
	}
}

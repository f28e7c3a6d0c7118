// Package middleware holds the HTTP middleware chain shared by every portal
// route: request tagging, structured request logging, panic recovery, and the
// global per-IP rate limit.
package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one structured line per request after the handler chain has
// run, tagged with the id minted by RequestID.
func Logger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			evt := log.Info()
			if err != nil {
				evt = log.Error().Err(err)
			}
			rid, _ := c.Get(RequestIDContextKey).(string)
			evt.
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("elapsed", time.Since(start)).
				Str("client_ip", c.RealIP()).
				Msg("http request")

			return err
		}
	}
}

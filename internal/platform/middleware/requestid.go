package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDContextKey is the echo context key the request id is stored under.
// Logger and Recovery read it back when emitting their log lines.
const RequestIDContextKey = "request_id"

// RequestIDHeader is the header the id is read from and echoed back on.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, keeping one supplied by an
// upstream proxy and minting a fresh one otherwise.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(RequestIDContextKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

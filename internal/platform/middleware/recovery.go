package middleware

import (
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts handler panics into plain 500 responses so a single bad
// request cannot take the server down. The panic value and stack go to the
// log, never to the client.
func Recovery(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				rid, _ := c.Get(RequestIDContextKey).(string)
				log.Error().
					Str("request_id", rid).
					Interface("panic", r).
					Bytes("stack", buf[:n]).
					Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}()
			return next(c)
		}
	}
}

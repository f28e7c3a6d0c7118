package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how fast one client IP may hit the API. This is the
// outer guard for the whole surface; the passcode flow layers its own
// store-backed per-contact window on top.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// limiterTable hands out one token-bucket limiter per client IP, created
// lazily on first sight of the address.
type limiterTable struct {
	mu   sync.Mutex
	byIP map[string]*rate.Limiter
	cfg  RateLimitConfig
}

func (t *limiterTable) get(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.byIP[ip]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.BurstSize)
		t.byIP[ip] = l
	}
	return l
}

// RateLimit rejects clients that exceed their per-IP request budget with 429
// and a Retry-After hint.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	table := &limiterTable{byIP: make(map[string]*rate.Limiter), cfg: cfg}
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			if !table.get(c.RealIP()).Allow() {
				h.Set("Retry-After", "1")
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

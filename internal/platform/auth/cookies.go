package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	AccessCookieName  = "cl_access"
	RefreshCookieName = "cl_refresh"
)

// CookieConfig controls how session cookies are written.
type CookieConfig struct {
	Domain string
	Secure bool
}

// SetSessionCookies writes the credential pair as HTTP-only, SameSite-strict
// cookies scoped to the whole site, each expiring with its token.
func SetSessionCookies(c echo.Context, pair *TokenPair, cfg CookieConfig) {
	c.SetCookie(sessionCookie(AccessCookieName, pair.AccessToken, pair.AccessExpiry, cfg))
	c.SetCookie(sessionCookie(RefreshCookieName, pair.RefreshToken, pair.RefreshExpiry, cfg))
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(c echo.Context, cfg CookieConfig) {
	expired := time.Unix(0, 0)
	c.SetCookie(sessionCookie(AccessCookieName, "", expired, cfg))
	c.SetCookie(sessionCookie(RefreshCookieName, "", expired, cfg))
}

func sessionCookie(name, value string, expiry time.Time, cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expiry,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

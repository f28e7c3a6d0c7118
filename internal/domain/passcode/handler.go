package passcode

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
)

// DeviceIDHeader carries the client-generated device identifier used to scope
// passcode rate limiting.
const DeviceIDHeader = "X-Device-ID"

// Handler is the login front door: passcode request, passcode verification,
// token refresh and logout.
type Handler struct {
	svc     *Service
	issuer  *auth.Issuer
	cookies auth.CookieConfig
}

func NewHandler(svc *Service, issuer *auth.Issuer, cookies auth.CookieConfig) *Handler {
	return &Handler{svc: svc, issuer: issuer, cookies: cookies}
}

// RegisterRoutes mounts the unauthenticated login routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/login", h.login)
	g.POST("/login/verify", h.verify)
	g.POST("/token/refresh", h.refresh)
	g.POST("/logout", h.logout)
}

type loginRequest struct {
	Contact string `json:"contact"`
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var deviceID *string
	if v := c.Request().Header.Get(DeviceIDHeader); v != "" {
		deviceID = &v
	}

	err := h.svc.Start(c.Request().Context(), StartInput{
		Contact:  req.Contact,
		IP:       c.RealIP(),
		DeviceID: deviceID,
	})
	switch {
	case errors.Is(err, ErrInvalidContact):
		return echo.NewHTTPError(http.StatusBadRequest, "contact is not a usable email or phone number")
	case errors.Is(err, ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many passcode requests, try again later")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to send passcode")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

type verifyRequest struct {
	Contact string `json:"contact"`
	Code    string `json:"code"`
}

func (h *Handler) verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, ident, err := h.svc.Verify(c.Request().Context(), req.Contact, req.Code)
	switch {
	case errors.Is(err, ErrInvalidContact):
		return echo.NewHTTPError(http.StatusBadRequest, "contact is not a usable email or phone number")
	case errors.Is(err, ErrNoPendingCode), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrInvalidCode):
		return echo.NewHTTPError(http.StatusUnauthorized, "passcode is invalid or expired")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to verify passcode")
	}

	var phone, email string
	if user.Phone != nil {
		phone = *user.Phone
	}
	if user.Email != nil {
		email = *user.Email
	}
	pair, err := h.issuer.Issue(user.ID, ident.ID, phone, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to establish session")
	}
	auth.SetSessionCookies(c, pair, h.cookies)

	return c.JSON(http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"identity_id":  ident.ID,
		"display_name": ident.DisplayName,
	})
}

func (h *Handler) refresh(c echo.Context) error {
	cookie, err := c.Cookie(auth.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	claims, err := h.issuer.Verify(cookie.Value, auth.TokenTypeRefresh)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	}
	identityID, err := claims.Identity()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	}

	pair, err := h.issuer.Issue(userID, identityID, claims.Phone, claims.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to refresh session")
	}
	auth.SetSessionCookies(c, pair, h.cookies)

	return c.JSON(http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *Handler) logout(c echo.Context) error {
	auth.ClearSessionCookies(c, h.cookies)
	return c.NoContent(http.StatusNoContent)
}

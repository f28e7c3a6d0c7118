package consent

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
)

// Handler exposes a read-only view of the caller's consent ledger. Writes go
// through clinic-side surfaces; the portal core never records consent itself.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/consents", h.listConsents)
}

func (h *Handler) listConsents(c echo.Context) error {
	identityID := auth.IdentityIDFromContext(c.Request().Context())
	if identityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	entries, err := h.svc.ListConsents(c.Request().Context(), identityID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list consents")
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"consents": entries})
}

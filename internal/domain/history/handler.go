package history

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/pkg/pagination"
)

// Handler serves the authenticated history routes.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/clinics", h.listClinics)
	g.GET("/visits", h.listVisits)
	g.GET("/visits/:id", h.getVisitDetail)
	g.GET("/documents/:id", h.getDocument)
}

func (h *Handler) listClinics(c echo.Context) error {
	identityID := auth.IdentityIDFromContext(c.Request().Context())
	if identityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	clinics, err := h.svc.ListClinics(c.Request().Context(), identityID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list clinics")
	}
	return c.JSON(http.StatusOK, map[string]any{"clinics": clinics})
}

func (h *Handler) listVisits(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	identityID := auth.IdentityIDFromContext(ctx)
	if userID == uuid.Nil || identityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	page, err := h.svc.ListVisits(ctx, userID, identityID, pagination.FromContext(c))
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list visits")
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) getVisitDetail(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	identityID := auth.IdentityIDFromContext(ctx)
	if userID == uuid.Nil || identityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}

	detail, err := h.svc.GetVisitDetail(ctx, userID, identityID, visitID)
	if errors.Is(err, ErrVisitNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load visit")
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) getDocument(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	identityID := auth.IdentityIDFromContext(ctx)
	if userID == uuid.Nil || identityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}

	meta, content, err := h.svc.GetDocument(ctx, userID, identityID, docID)
	if errors.Is(err, ErrDocumentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load document")
	}
	defer content.Close()

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", meta.FileName))
	c.Response().Header().Set("Content-Length", fmt.Sprint(meta.SizeBytes))
	return c.Stream(http.StatusOK, meta.ContentType, content)
}

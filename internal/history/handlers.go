package history

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for grab history and the blocklist.
type Handlers struct {
	service *Service
}

// NewHandlers creates new history handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the history and blocklist routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/grabs/:id", h.GetGrab)
	g.GET("/events/:eventId/grabs", h.ListGrabsForEvent)
	g.POST("/grabs/:id/imported", h.MarkImported)
	g.GET("/blocklist", h.ListBlocklist)
	g.POST("/blocklist", h.AddToBlocklist)
	g.DELETE("/blocklist/:id", h.RemoveFromBlocklist)
}

// GetGrab returns one grab record.
// GET /api/v1/history/grabs/:id
func (h *Handlers) GetGrab(c echo.Context) error {
	record, err := h.service.GetGrab(c.Request().Context(), c.Param("id"))
	if err != nil {
		return historyHTTPError(err)
	}
	return c.JSON(http.StatusOK, record)
}

// ListGrabsForEvent returns the grab history for an event, newest first.
// GET /api/v1/history/events/:eventId/grabs
func (h *Handlers) ListGrabsForEvent(c echo.Context) error {
	eventID, err := strconv.ParseInt(c.Param("eventId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	records, err := h.service.ListGrabsForEvent(c.Request().Context(), eventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

// MarkImported marks a grab as imported by the downstream importer.
// POST /api/v1/history/grabs/:id/imported
func (h *Handlers) MarkImported(c echo.Context) error {
	if err := h.service.MarkImported(c.Request().Context(), c.Param("id")); err != nil {
		return historyHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBlocklist returns all blocklist items.
// GET /api/v1/history/blocklist
func (h *Handlers) ListBlocklist(c echo.Context) error {
	items, err := h.service.ListBlocklist(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// AddToBlocklist bars a release from future grabs.
// POST /api/v1/history/blocklist
func (h *Handlers) AddToBlocklist(c echo.Context) error {
	var input BlocklistInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if input.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	item, err := h.service.AddToBlocklist(c.Request().Context(), input)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

// RemoveFromBlocklist removes one blocklist item.
// DELETE /api/v1/history/blocklist/:id
func (h *Handlers) RemoveFromBlocklist(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.service.RemoveFromBlocklist(c.Request().Context(), id); err != nil {
		return historyHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func historyHTTPError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

package downloader

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for download client management.
type Handlers struct {
	service *Service
}

// NewHandlers creates new download client handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the download client routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/test", h.Test)
	g.DELETE("/:id/downloads/:downloadId", h.RemoveDownload)
}

// List returns all configured download clients.
// GET /api/v1/downloadclients
func (h *Handlers) List(c echo.Context) error {
	clients, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, clients)
}

// Get returns a single download client.
// GET /api/v1/downloadclients/:id
func (h *Handlers) Get(c echo.Context) error {
	id, err := parseClientID(c)
	if err != nil {
		return err
	}
	client, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return clientHTTPError(err)
	}
	return c.JSON(http.StatusOK, client)
}

// Create adds a new download client.
// POST /api/v1/downloadclients
func (h *Handlers) Create(c echo.Context) error {
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	client, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		return clientHTTPError(err)
	}
	return c.JSON(http.StatusCreated, client)
}

// Update modifies an existing download client.
// PUT /api/v1/downloadclients/:id
func (h *Handlers) Update(c echo.Context) error {
	id, err := parseClientID(c)
	if err != nil {
		return err
	}
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	client, err := h.service.Update(c.Request().Context(), id, input)
	if err != nil {
		return clientHTTPError(err)
	}
	return c.JSON(http.StatusOK, client)
}

// Delete removes a download client.
// DELETE /api/v1/downloadclients/:id
func (h *Handlers) Delete(c echo.Context) error {
	id, err := parseClientID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return clientHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Test connects to the download client and verifies credentials.
// POST /api/v1/downloadclients/:id/test
func (h *Handlers) Test(c echo.Context) error {
	id, err := parseClientID(c)
	if err != nil {
		return err
	}
	if err := h.service.Test(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]any{"success": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// RemoveDownload removes a download from the client.
// DELETE /api/v1/downloadclients/:id/downloads/:downloadId
func (h *Handlers) RemoveDownload(c echo.Context) error {
	id, err := parseClientID(c)
	if err != nil {
		return err
	}
	deleteFiles := c.QueryParam("deleteFiles") == "true"
	if err := h.service.Remove(c.Request().Context(), id, c.Param("downloadId"), deleteFiles); err != nil {
		return clientHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseClientID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func clientHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

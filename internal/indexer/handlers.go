package indexer

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sportarr/sportarr/internal/indexer/status"
	"github.com/sportarr/sportarr/internal/indexer/types"
)

// TestFunc verifies connectivity and credentials for an indexer
// definition. The protocol client package provides it; injecting it here
// keeps this package free of a dependency on the client implementation.
type TestFunc func(ctx context.Context, def *types.IndexerDefinition) error

// Handlers provides HTTP handlers for indexer management.
type Handlers struct {
	service *Service
	status  *status.Service
	test    TestFunc
}

// NewHandlers creates new indexer handlers.
func NewHandlers(service *Service, statusService *status.Service, test TestFunc) *Handlers {
	return &Handlers{service: service, status: statusService, test: test}
}

// RegisterRoutes registers the indexer routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/test", h.Test)
	g.GET("/:id/health", h.Health)
	g.POST("/:id/health/reset", h.ResetHealth)
}

// List returns all configured indexers.
// GET /api/v1/indexers
func (h *Handlers) List(c echo.Context) error {
	defs, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, defs)
}

// Get returns a single indexer.
// GET /api/v1/indexers/:id
func (h *Handlers) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	def, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return indexerHTTPError(err)
	}
	return c.JSON(http.StatusOK, def)
}

// Create adds a new indexer.
// POST /api/v1/indexers
func (h *Handlers) Create(c echo.Context) error {
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	def, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		return indexerHTTPError(err)
	}
	return c.JSON(http.StatusCreated, def)
}

// Update modifies an existing indexer.
// PUT /api/v1/indexers/:id
func (h *Handlers) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	def, err := h.service.Update(c.Request().Context(), id, input)
	if err != nil {
		return indexerHTTPError(err)
	}
	return c.JSON(http.StatusOK, def)
}

// Delete removes an indexer.
// DELETE /api/v1/indexers/:id
func (h *Handlers) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return indexerHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Test checks connectivity and credentials for an indexer.
// POST /api/v1/indexers/:id/test
func (h *Handlers) Test(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	def, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return indexerHTTPError(err)
	}
	if err := h.test(c.Request().Context(), def); err != nil {
		return c.JSON(http.StatusOK, map[string]any{"success": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// Health returns the per-track health of an indexer.
// GET /api/v1/indexers/:id/health
func (h *Handlers) Health(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	def, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return indexerHTTPError(err)
	}

	ctx := c.Request().Context()
	tracks := make([]*status.IndexerHealth, 0, 2)
	for _, track := range []status.Track{status.TrackQuery, status.TrackGrab} {
		health, err := h.status.GetHealth(ctx, def.ID, def.Name, track)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		tracks = append(tracks, health)
	}
	return c.JSON(http.StatusOK, tracks)
}

// ResetHealth clears the failure history of an indexer.
// POST /api/v1/indexers/:id/health/reset
func (h *Handlers) ResetHealth(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.status.ClearStatus(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func indexerHTTPError(err error) error {
	var indexerErr *IndexerError
	if errors.As(err, &indexerErr) {
		switch indexerErr.Code {
		case ErrCodeNotFound:
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case ErrCodeConfiguration:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

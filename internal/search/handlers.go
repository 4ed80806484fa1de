package search

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sportarr/sportarr/internal/indexer/types"
)

// Handlers provides HTTP handlers for manual and automatic searches.
type Handlers struct {
	service *Service
}

// NewHandlers creates new search handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the search routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/manual", h.Manual)
	g.POST("/auto", h.Auto)
	g.POST("/batch", h.Batch)
}

// manualSearchRequest is the body of a manual search.
type manualSearchRequest struct {
	Query      string `json:"query"`
	Year       int    `json:"year"`
	Round      int    `json:"round"`
	Categories []int  `json:"categories"`
	Limit      int    `json:"limit"`
}

// Manual runs a search and returns every candidate scored, without
// grabbing anything.
// POST /api/v1/search/manual
func (h *Handlers) Manual(c echo.Context) error {
	var req manualSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	result, err := h.service.ManualSearch(c.Request().Context(), types.SearchCriteria{
		Query:      req.Query,
		Year:       req.Year,
		Round:      req.Round,
		Categories: req.Categories,
		Limit:      req.Limit,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Auto searches for one event and grabs the best acceptable release.
// POST /api/v1/search/auto
func (h *Handlers) Auto(c echo.Context) error {
	var event SearchableEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if event.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	outcome, err := h.service.AutoSearch(c.Request().Context(), event)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}

// batchSearchRequest carries the events for a batch search.
type batchSearchRequest struct {
	Events []SearchableEvent `json:"events"`
}

// staticEvents adapts a request body to the EventProvider contract.
type staticEvents []SearchableEvent

func (s staticEvents) MonitoredEvents(ctx context.Context) ([]SearchableEvent, error) {
	return s, nil
}

// Batch searches for every listed event with bounded concurrency.
// POST /api/v1/search/batch
func (h *Handlers) Batch(c echo.Context) error {
	var req batchSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Events) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one event is required")
	}

	outcomes, err := h.service.AutoSearchAll(c.Request().Context(), staticEvents(req.Events))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, outcomes)
}

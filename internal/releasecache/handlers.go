package releasecache

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for release cache inspection.
type Handlers struct {
	cache *Cache
}

// NewHandlers creates new release cache handlers.
func NewHandlers(cache *Cache) *Handlers {
	return &Handlers{cache: cache}
}

// RegisterRoutes registers the cache routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/stats", h.Stats)
	g.POST("/evict", h.Evict)
}

// Stats returns the current cache entry count and TTL.
// GET /api/v1/cache/stats
func (h *Handlers) Stats(c echo.Context) error {
	count, err := h.cache.Count(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"entries": count,
		"ttl":     h.cache.TTL().String(),
	})
}

// Evict removes expired entries immediately.
// POST /api/v1/cache/evict
func (h *Handlers) Evict(c echo.Context) error {
	deleted, err := h.cache.Evict(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}

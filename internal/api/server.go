// Package api exposes the acquisition pipeline over HTTP. Handlers live
// in their owning packages; this package builds the services and wires
// the routes.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/config"
	"github.com/sportarr/sportarr/internal/downloader"
	"github.com/sportarr/sportarr/internal/history"
	"github.com/sportarr/sportarr/internal/indexer"
	"github.com/sportarr/sportarr/internal/indexer/status"
	"github.com/sportarr/sportarr/internal/indexer/torznab"
	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/quality"
	"github.com/sportarr/sportarr/internal/releasecache"
	"github.com/sportarr/sportarr/internal/scheduler"
	"github.com/sportarr/sportarr/internal/scoring"
	"github.com/sportarr/sportarr/internal/search"
)

// Server handles HTTP requests for the Sportarr API.
type Server struct {
	echo      *echo.Echo
	db        *sql.DB
	logger    zerolog.Logger
	cfg       *config.Config
	startTime time.Time

	indexerService    *indexer.Service
	statusService     *status.Service
	cache             *releasecache.Cache
	historyService    *history.Service
	downloaderService *downloader.Service
	searchService     *search.Service
	scheduler         *scheduler.Scheduler
}

// NewServer creates a new API server instance with all pipeline services.
func NewServer(db *sql.DB, cfg *config.Config, sched *scheduler.Scheduler, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		db:        db,
		logger:    logger,
		cfg:       cfg,
		startTime: time.Now(),
		scheduler: sched,
	}

	s.indexerService = indexer.NewService(db, logger)
	s.statusService = status.NewService(db, logger)
	s.cache = releasecache.New(db, cfg.Cache.TTL(), logger)
	s.historyService = history.NewService(db, logger)
	s.downloaderService = downloader.NewService(db, logger)

	profile, ok := quality.GetProfileByName(cfg.Quality.Profile)
	if !ok {
		logger.Warn().Str("profile", cfg.Quality.Profile).Msg("unknown quality profile, using Any")
		profile = quality.DefaultProfile()
	}
	formats := buildCustomFormats(cfg.Quality.Formats, &profile, logger)
	evaluator := scoring.NewEvaluator(&profile, formats)

	s.searchService = search.NewService(
		s.indexerService,
		s.statusService,
		s.cache,
		s.historyService,
		s.downloaderService,
		evaluator,
		search.Options{
			IndexerTimeout:       cfg.Search.IndexerTimeout(),
			MinCacheResults:      cfg.Search.MinCacheResults,
			BatchConcurrency:     cfg.Search.BatchConcurrency,
			MaxResultsPerIndexer: cfg.Search.MaxResultsPerIndexer,
		},
		logger,
	)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// SearchService returns the search orchestrator for task registration.
func (s *Server) SearchService() *search.Service {
	return s.searchService
}

// Cache returns the release cache for task registration.
func (s *Server) Cache() *releasecache.Cache {
	return s.cache
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	indexerHandlers := indexer.NewHandlers(s.indexerService, s.statusService, s.testIndexer)
	indexerHandlers.RegisterRoutes(api.Group("/indexers"))

	downloaderHandlers := downloader.NewHandlers(s.downloaderService)
	downloaderHandlers.RegisterRoutes(api.Group("/downloadclients"))

	searchHandlers := search.NewHandlers(s.searchService)
	searchHandlers.RegisterRoutes(api.Group("/search"))

	historyHandlers := history.NewHandlers(s.historyService)
	historyHandlers.RegisterRoutes(api.Group("/history"))

	cacheHandlers := releasecache.NewHandlers(s.cache)
	cacheHandlers.RegisterRoutes(api.Group("/cache"))

	if s.scheduler != nil {
		taskHandlers := scheduler.NewHandlers(s.scheduler)
		taskHandlers.RegisterRoutes(api.Group("/tasks"))
	}
}

// buildCustomFormats compiles the configured custom formats and registers
// their scores on the profile. Invalid formats are skipped.
func buildCustomFormats(configs []config.CustomFormatConfig, profile *quality.Profile, logger zerolog.Logger) []*quality.CustomFormat {
	var formats []*quality.CustomFormat
	for _, fc := range configs {
		specs := make([]quality.Specification, len(fc.Specifications))
		for i, sc := range fc.Specifications {
			specs[i] = quality.Specification{
				Name:     sc.Name,
				Kind:     quality.SpecKind(sc.Kind),
				Required: sc.Required,
				Negate:   sc.Negate,
				Pattern:  sc.Pattern,
				Flag:     sc.Flag,
			}
		}
		cf, err := quality.NewCustomFormat(fc.ID, fc.Name, specs...)
		if err != nil {
			logger.Warn().Err(err).Str("format", fc.Name).Msg("skipping invalid custom format")
			continue
		}
		if profile.FormatScores == nil {
			profile.FormatScores = make(map[int64]int)
		}
		profile.FormatScores[cf.ID] = fc.Score
		formats = append(formats, cf)
	}
	return formats
}

// testIndexer checks connectivity using the protocol client.
func (s *Server) testIndexer(ctx context.Context, def *types.IndexerDefinition) error {
	client := torznab.NewClient(def, s.cfg.Search.IndexerTimeout())
	return client.Test(ctx)
}

// Start begins serving HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	indexers, _ := s.indexerService.List(ctx)
	clients, _ := s.downloaderService.List(ctx)
	cacheEntries, _ := s.cache.Count(ctx)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":        config.Version,
		"startTime":      s.startTime.Format(time.RFC3339),
		"indexerCount":   len(indexers),
		"clientCount":    len(clients),
		"cachedReleases": cacheEntries,
	})
}

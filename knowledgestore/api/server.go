// Package api is KnowledgeStore's HTTP edge: request parsing, optional
// shared-secret auth, and dispatch to the ingest use-case. Grounded on
// tarsy's pkg/api/server.go (echo/v5 wiring, route groups, health
// handler shape).
package api

import (
	"context"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/opsplatform/core/knowledgestore/domain"
	"github.com/opsplatform/core/knowledgestore/ingest"
	"github.com/opsplatform/core/knowledgestore/ports"
	"github.com/opsplatform/core/pkg/version"
)

// Server is KnowledgeStore's HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	pipeline   *ingest.Pipeline
	apiKey     string // empty disables the X-API-Key check
}

// NewServer wires routes over pipeline. apiKey is optional
func NewServer(pipeline *ingest.Pipeline, apiKey string) *Server {
	e := echo.New()
	s := &Server{echo: e, pipeline: pipeline, apiKey: apiKey}

	e.Use(middleware.BodyLimit(2 * 1024 * 1024))
	e.Use(middleware.Recover())

	e.GET("/health", s.healthHandler)

	protected := e.Group("")
	protected.Use(s.authMiddleware)
	protected.POST("/ingestions", s.ingestHandler)
	protected.GET("/search", s.searchHandler)
	protected.POST("/reprocess/:run_id", s.reprocessHandler)
	protected.GET("/runs/:run_id", s.getRunHandler)

	return s
}

func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.apiKey == "" {
			return next(c)
		}
		if c.Request().Header.Get("X-API-Key") != s.apiKey {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing API key")
		}
		return next(c)
	}
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "knowledge-store",
		"version": version.Full("knowledge-store"),
	})
}

func (s *Server) ingestHandler(c *echo.Context) error {
	var payload []domain.IngestionRequest
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ingestion payload")
	}

	runID := ""
	if len(payload) > 0 {
		runID = payload[0].RunID
	}
	run, err := s.pipeline.Ingest(c.Request().Context(), runID, payload)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, run.Results)
}

func (s *Server) searchHandler(c *echo.Context) error {
	q := ports.SearchQuery{
		Text:     c.QueryParam("text"),
		Tags:     splitCSV(c.QueryParam("tags")),
		Taxonomy: splitCSV(c.QueryParam("taxonomy")),
	}
	for _, st := range splitCSV(c.QueryParam("source_types")) {
		q.SourceTypes = append(q.SourceTypes, domain.SourceType(st))
	}

	entries, err := s.pipeline.Search(c.Request().Context(), q)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) reprocessHandler(c *echo.Context) error {
	runID := c.Param("run_id")
	run, err := s.pipeline.Reprocess(c.Request().Context(), runID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, run.Results)
}

func (s *Server) getRunHandler(c *echo.Context) error {
	runID := c.Param("run_id")
	run, err := s.pipeline.GetRun(c.Request().Context(), runID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, run)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

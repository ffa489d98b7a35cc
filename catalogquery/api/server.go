// Package api is CatalogQuery's HTTP edge. Grounded on tarsy's
// pkg/api/server.go wiring, same shape as KnowledgeStore's edge. There is
// no role table for CatalogQuery, so auth here is the same optional
// shared-secret check as KnowledgeStore's.
package api

import (
	"context"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/opsplatform/core/catalogquery/catalog"
	"github.com/opsplatform/core/catalogquery/domain"
	"github.com/opsplatform/core/catalogquery/ports"
	"github.com/opsplatform/core/pkg/version"
)

type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	catalog    *catalog.Catalog
	apiKey     string
}

func NewServer(cat *catalog.Catalog, apiKey string) *Server {
	e := echo.New()
	s := &Server{echo: e, catalog: cat, apiKey: apiKey}

	e.Use(middleware.BodyLimit(2 * 1024 * 1024))
	e.Use(middleware.Recover())

	e.GET("/health", s.healthHandler)

	protected := e.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/books", s.listBooksHandler)
	protected.GET("/books/:id", s.getBookHandler)
	protected.POST("/books", s.createBookHandler)

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
		"service": "catalog-query",
		"version": version.Full("catalog-query"),
	})
}

type listBooksResponse struct {
	Items []domain.Book `json:"items"`
	Total int           `json:"total"`
}

func (s *Server) listBooksHandler(c *echo.Context) error {
	q := ports.Query{
		Q:      c.QueryParam("q"),
		Author: c.QueryParam("author"),
		Genre:  c.QueryParam("genre"),
		Page:   intOr(c.QueryParam("page"), 1),
		Limit:  intOr(c.QueryParam("limit"), 20),
	}
	if raw := c.QueryParam("has_isbn"); raw != "" {
		v := raw == "true"
		q.HasISBN = &v
	}

	items, total, err := s.catalog.List(c.Request().Context(), q)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, listBooksResponse{Items: items, Total: total})
}

func (s *Server) getBookHandler(c *echo.Context) error {
	book, err := s.catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (s *Server) createBookHandler(c *echo.Context) error {
	var book domain.Book
	if err := c.Bind(&book); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid book payload")
	}
	out, err := s.catalog.Create(c.Request().Context(), book)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func intOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
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

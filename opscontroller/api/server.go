// Package api is OpsController's HTTP edge. Grounded on tarsy's
// pkg/api/server.go wiring; role gating follows the route table.
package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/health"
	"github.com/opsplatform/core/opscontroller/incidents"
	"github.com/opsplatform/core/opscontroller/logs"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/opscontroller/registry"
	"github.com/opsplatform/core/opscontroller/runbooks"
	"github.com/opsplatform/core/pkg/version"
)

type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	apiKey     string

	registry  *registry.Registry
	logs      *logs.Logs
	health    *health.Checker
	incidents *incidents.Incidents
	runbooks  *runbooks.Runbooks
}

func NewServer(reg *registry.Registry, lg *logs.Logs, hc *health.Checker, inc *incidents.Incidents, rb *runbooks.Runbooks, apiKey string) *Server {
	e := echo.New()
	s := &Server{echo: e, apiKey: apiKey, registry: reg, logs: lg, health: hc, incidents: inc, runbooks: rb}

	e.Use(middleware.BodyLimit(2 * 1024 * 1024))
	e.Use(middleware.Recover())

	e.GET("/health", s.healthHandler)
	e.GET("/metrics", s.metricsHandler)

	opsOrAdmin := s.requireRoles("ops", "admin")
	adminOnly := s.requireRoles("admin")

	e.POST("/services", s.registerServiceHandler, opsOrAdmin)
	e.GET("/services", s.listServicesHandler, opsOrAdmin)

	e.POST("/logs", s.ingestLogHandler, opsOrAdmin)
	e.GET("/logs", s.searchLogsHandler, opsOrAdmin)
	e.GET("/services/:id/health", s.checkHealthHandler, opsOrAdmin)

	e.POST("/incidents", s.openIncidentHandler, opsOrAdmin)
	e.GET("/incidents", s.listIncidentsHandler, opsOrAdmin)
	e.POST("/alerts", s.alertHandler, opsOrAdmin)
	e.POST("/incidents/:id/status", s.transitionHandler, opsOrAdmin)

	e.POST("/runbooks/execute", s.executeRunbookHandler, opsOrAdmin)
	e.GET("/runbooks/actions", s.listActionsHandler, opsOrAdmin)
	e.POST("/runbooks/actions", s.registerActionHandler, adminOnly)
	e.POST("/runbooks/approve", s.approveHandler, adminOnly)

	return s
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ops-controller",
		"version": version.Full("ops-controller"),
	})
}

func (s *Server) metricsHandler(c *echo.Context) error {
	return c.String(http.StatusOK, "# metrics exposition is out of scope; see pkg/observe for the hook interface\n")
}

func (s *Server) registerServiceHandler(c *echo.Context) error {
	var svc domain.Service
	if err := c.Bind(&svc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service payload")
	}
	out, err := s.registry.Register(c.Request().Context(), svc)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listServicesHandler(c *echo.Context) error {
	out, err := s.registry.List(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) ingestLogHandler(c *echo.Context) error {
	var record domain.LogRecord
	if err := c.Bind(&record); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid log record")
	}
	if err := s.logs.Ingest(c.Request().Context(), record); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) searchLogsHandler(c *echo.Context) error {
	filters := ports.LogFilters{
		ServiceID: c.QueryParam("service_id"),
		Level:     c.QueryParam("level"),
		Text:      c.QueryParam("text"),
	}
	out, err := s.logs.Search(c.Request().Context(), filters, 100)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) checkHealthHandler(c *echo.Context) error {
	result, err := s.health.CheckHealth(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type openIncidentRequest struct {
	ServiceID     string  `json:"service_id"`
	Severity      string  `json:"severity"`
	Summary       string  `json:"summary"`
	CorrelationID *string `json:"correlation_id,omitempty"`
	TraceID       *string `json:"trace_id,omitempty"`
}

func (s *Server) openIncidentHandler(c *echo.Context) error {
	var req openIncidentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid incident payload")
	}
	inc, err := s.incidents.OpenManual(c.Request().Context(), req.ServiceID, req.Severity, req.Summary, actorFrom(c), req.CorrelationID, req.TraceID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, inc)
}

func (s *Server) listIncidentsHandler(c *echo.Context) error {
	out, err := s.incidents.List(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) alertHandler(c *echo.Context) error {
	var signal domain.Signal
	if err := c.Bind(&signal); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signal payload")
	}
	inc, err := s.incidents.OpenFromSignal(c.Request().Context(), signal, actorFrom(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, inc)
}

type transitionRequest struct {
	Status        domain.IncidentStatus `json:"status"`
	CorrelationID *string               `json:"correlation_id,omitempty"`
}

func (s *Server) transitionHandler(c *echo.Context) error {
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid transition payload")
	}
	inc, err := s.incidents.Transition(c.Request().Context(), c.Param("id"), req.Status, actorFrom(c), req.CorrelationID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, inc)
}

type executeRunbookRequest struct {
	ServiceID     string         `json:"service_id"`
	IncidentID    string         `json:"incident_id"`
	ActionID      string         `json:"action_id"`
	Params        map[string]any `json:"params"`
	CorrelationID *string        `json:"correlation_id,omitempty"`
}

func (s *Server) executeRunbookHandler(c *echo.Context) error {
	var req executeRunbookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid execute payload")
	}
	job, err := s.runbooks.Execute(c.Request().Context(), req.ServiceID, req.IncidentID, req.ActionID, req.Params, actorFrom(c), req.CorrelationID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) listActionsHandler(c *echo.Context) error {
	out, err := s.runbooks.ListActions(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) registerActionHandler(c *echo.Context) error {
	var action domain.RunbookAction
	if err := c.Bind(&action); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid action payload")
	}
	if err := s.runbooks.RegisterAction(c.Request().Context(), action); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, action)
}

type approveRequest struct {
	JobID string `json:"job_id"`
	Note  string `json:"note"`
}

func (s *Server) approveHandler(c *echo.Context) error {
	var req approveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid approve payload")
	}
	job, err := s.runbooks.Approve(c.Request().Context(), req.JobID, actorFrom(c), req.Note)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

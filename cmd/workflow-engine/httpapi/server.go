// Package httpapi is the §10.9 introspection surface: read-only status and
// failure-reason lookups over a running engine, not a workflow submission
// API (that is an explicit Non-goal, SPEC_FULL.md §1). Grounded on
// cmd/orchestrator/main.go's Echo setup and its routes/handlers split.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/workflow-engine/common/logger"
	"github.com/lyzr/workflow-engine/engine/dataaccess"
)

// Server is the introspection HTTP server.
type Server struct {
	echo *echo.Echo
	port int
}

// New builds a Server wired to data for read-only queries. fsmLookup is
// consulted for live in-process state (current WorkflowState, failure
// message); data is consulted for durable per-call status.
func New(data dataaccess.DataAccess, fsmLookup FSMLookup, log *logger.Logger, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	h := &handler{data: data, fsms: fsmLookup, log: log}

	e.GET("/healthz", h.healthz)
	wf := e.Group("/workflows/:id")
	wf.GET("/status", h.status)
	wf.GET("/failure", h.failure)

	return &Server{echo: e, port: port}
}

// Start runs the server until it errors or is shut down.
func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%d", s.port))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets Server be used directly with httptest and similar harnesses.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Package httpapi exposes the tutoring service over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/metrics"
	"github.com/hmkang/maieut/internal/session"
)

// teacherKeyHeader carries the teacher's identity. There is no account
// system; the key scopes which sessions a caller can manage.
const teacherKeyHeader = "X-Teacher-Key"

// Server wires the handlers into an echo instance.
type Server struct {
	echo *echo.Echo
	svc  *session.Service
	orch *conversation.Orchestrator
}

// NewServer builds the HTTP surface. m may be nil; the /metrics route is
// then omitted.
func NewServer(svc *session.Service, orch *conversation.Orchestrator, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, svc: svc, orch: orch}
	s.registerRoutes(m)
	return s
}

func (s *Server) registerRoutes(m *metrics.Metrics) {
	e := s.echo

	e.GET("/healthz", s.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	api := e.Group("/api")

	// Stateless tutoring, client-held conversation state.
	api.POST("/topic/validate", s.ValidateTopic)
	api.POST("/chat/initial", s.InitialChat)
	api.POST("/chat/socratic", s.SocraticChat)

	// Teacher session management.
	api.POST("/teacher/sessions", s.CreateSession)
	api.GET("/teacher/sessions", s.ListSessions)
	api.GET("/teacher/sessions/:id", s.SessionStats)
	api.GET("/teacher/sessions/:id/scores", s.SessionScores)
	api.POST("/teacher/sessions/:id/end", s.EndSession)
	api.DELETE("/teacher/sessions/:id", s.DeleteSession)

	// Learner-facing session flow.
	api.GET("/session/:id", s.SessionInfo)
	api.POST("/session/:id/join", s.JoinSession)
	api.POST("/session/:id/chat", s.SessionChat)
	api.GET("/session/:id/history/:student", s.SessionHistory)
}

// Health reports liveness.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start blocks serving on the given port.
func (s *Server) Start(port int) error {
	return s.echo.Start(fmt.Sprintf(":%d", port))
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

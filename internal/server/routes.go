package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Realtime endpoint
	s.echo.GET("/ws", s.handleWebSocket)

	// REST surface
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/api/sessions/:id", s.handleGetSession)
	s.echo.POST("/api/sessions", s.handleStartSession)
	s.echo.GET("/api/wards", s.handleListWards)
	s.echo.GET("/api/wards/:id/sessions", s.handleListWardSessions)
}

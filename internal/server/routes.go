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
	s.echo.GET("/api/version", s.handleVersion)

	// Dashboard pull endpoints
	s.echo.GET("/api/dashboard/current", s.handleCurrentSnapshot)
	s.echo.GET("/api/sensors", s.handleSensors)
	s.echo.GET("/api/process", s.handleProcess)
	s.echo.GET("/api/quality", s.handleQuality)
	s.echo.GET("/api/equipment", s.handleEquipment)
	s.echo.GET("/api/environmental", s.handleEnvironmental)
	s.echo.GET("/api/overview", s.handleOverview)

	// Data source mode control
	s.echo.POST("/api/datasource/load", s.handleLoadReal)
	s.echo.POST("/api/datasource/toggle", s.handleToggle)
	s.echo.GET("/api/datasource/status", s.handleSourceStatus)

	// AI advisor
	s.echo.POST("/api/ai/chat", s.handleChat)
	s.echo.POST("/api/ai/fluctuations", s.handleFluctuations)
	s.echo.POST("/api/ai/trends", s.handleTrends)
	s.echo.POST("/api/ai/optimize", s.handleOptimize)

	// Live channel
	s.echo.GET("/ws/dashboard", s.handleWebSocket)
}

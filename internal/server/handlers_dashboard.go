package server

import (
	"time"

	"github.com/labstack/echo/v4"
)

// envelope is the uniform response wrapper for all API endpoints.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func respond(c echo.Context, data any) error {
	return c.JSON(200, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCurrentSnapshot returns the cached latest snapshot. The very
// first request synthesizes one; after that, reads never trigger fresh
// synthesis so concurrent pulls stay consistent with the live stream.
func (s *Server) handleCurrentSnapshot(c echo.Context) error {
	return respond(c, s.source.Current())
}

func (s *Server) handleSensors(c echo.Context) error {
	return respond(c, s.generator.GenerateSensorReadings())
}

func (s *Server) handleProcess(c echo.Context) error {
	return respond(c, s.generator.GenerateProcessParameters())
}

func (s *Server) handleQuality(c echo.Context) error {
	return respond(c, s.generator.GenerateQualityMetrics())
}

func (s *Server) handleEquipment(c echo.Context) error {
	return respond(c, s.generator.GenerateEquipmentStatus())
}

func (s *Server) handleEnvironmental(c echo.Context) error {
	return respond(c, s.generator.GenerateEnvironmentalData())
}

// handleOverview returns an aggregate view. The overview draws its own
// equipment-status sample, so its counts can differ from a separately
// fetched equipment list within the same tick.
func (s *Server) handleOverview(c echo.Context) error {
	return respond(c, s.generator.GeneratePlantOverview())
}

package server

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/cementlab/plantpulse/internal/datasource"
	apperrors "github.com/cementlab/plantpulse/internal/errors"
)

type loadRealRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) handleLoadReal(c echo.Context) error {
	var req loadRealRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.source.LoadReal(c.Request().Context(), req.Kind); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	return respond(c, s.source.Status())
}

func (s *Server) handleToggle(c echo.Context) error {
	mode, err := s.source.Toggle()
	if errors.Is(err, datasource.ErrNoRealData) {
		return apperrors.ValidationError("cannot switch to real mode: no real data loaded")
	}
	if err != nil {
		return apperrors.InternalError("failed to toggle data source", err)
	}
	return respond(c, map[string]any{"mode": mode})
}

func (s *Server) handleSourceStatus(c echo.Context) error {
	return respond(c, s.source.Status())
}

package server

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/cementlab/plantpulse/internal/advisor"
	apperrors "github.com/cementlab/plantpulse/internal/errors"
)

type chatRequest struct {
	Question       string  `json:"question"`
	SystemPrompt   *string `json:"system_prompt"`
	IncludeContext bool    `json:"include_context"`
}

type fluctuationsRequest struct {
	Fluctuations []advisor.Fluctuation `json:"fluctuations"`
}

type trendsRequest struct {
	Trends []advisor.TrendSeries `json:"trends"`
}

type optimizeRequest struct {
	Objective string `json:"objective"`
}

// advisorClientErrors are surfaced to the caller as 400s with their
// message; anything else from the advisor is an internal fault.
var advisorClientErrors = []error{
	advisor.ErrEmptyQuestion,
	advisor.ErrEmptySystemPrompt,
	advisor.ErrNoPlantData,
	advisor.ErrNoFluctuations,
	advisor.ErrNoTrends,
	advisor.ErrInvalidObjective,
}

func mapAdvisorError(err error) error {
	for _, clientErr := range advisorClientErrors {
		if errors.Is(err, clientErr) {
			return apperrors.ValidationError(clientErr.Error())
		}
	}
	return apperrors.InternalError("advisor request failed", err)
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	resp, err := s.advisor.Ask(c.Request().Context(), advisor.ChatRequest{
		Question:       req.Question,
		SystemPrompt:   req.SystemPrompt,
		IncludeContext: req.IncludeContext,
	}, s.source.Latest())
	if err != nil {
		return mapAdvisorError(err)
	}
	return respond(c, resp)
}

func (s *Server) handleFluctuations(c echo.Context) error {
	var req fluctuationsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	resp, err := s.advisor.AnalyzeFluctuations(c.Request().Context(), req.Fluctuations, s.source.Latest())
	if err != nil {
		return mapAdvisorError(err)
	}
	return respond(c, resp)
}

func (s *Server) handleTrends(c echo.Context) error {
	var req trendsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	resp, err := s.advisor.AnalyzeTrends(c.Request().Context(), req.Trends, s.source.Latest())
	if err != nil {
		return mapAdvisorError(err)
	}
	return respond(c, resp)
}

func (s *Server) handleOptimize(c echo.Context) error {
	var req optimizeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	resp, err := s.advisor.Optimize(c.Request().Context(), advisor.Objective(req.Objective), s.source.Latest())
	if err != nil {
		return mapAdvisorError(err)
	}
	return respond(c, resp)
}

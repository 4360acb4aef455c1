package advisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cementlab/plantpulse/internal/metrics"
	"github.com/cementlab/plantpulse/internal/plant"
)

// Domain errors surfaced to the transport layer as client errors.
var (
	ErrEmptyQuestion     = errors.New("question must not be empty")
	ErrEmptySystemPrompt = errors.New("system prompt override must not be empty")
	ErrNoPlantData       = errors.New("no plant data available")
	ErrNoFluctuations    = errors.New("at least one fluctuation is required")
	ErrNoTrends          = errors.New("at least one trend series is required")
	ErrInvalidObjective  = errors.New("invalid optimization objective")
)

// Objective tags the optimization endpoints.
type Objective string

const (
	ObjectiveEnergy         Objective = "energy"
	ObjectiveQuality        Objective = "quality"
	ObjectiveSustainability Objective = "sustainability"
	ObjectiveThroughput     Objective = "throughput"
)

// ValidObjective reports whether the tag is one of the supported objectives.
func ValidObjective(o Objective) bool {
	_, ok := objectiveFraming[o]
	return ok
}

// Fluctuation is one detected deviation of a process parameter.
type Fluctuation struct {
	Parameter  string    `json:"parameter"`
	Expected   float64   `json:"expected"`
	Actual     float64   `json:"actual"`
	Deviation  float64   `json:"deviation"` // percent
	DetectedAt time.Time `json:"detected_at"`
}

// TrendSeries is one historical metric series.
type TrendSeries struct {
	Metric      string    `json:"metric"`
	Values      []float64 `json:"values"`
	PeriodHours float64   `json:"period_hours"`
}

// ChatRequest is a free-text operator question. SystemPrompt, when
// non-nil, overrides the default system prompt and must not be blank.
type ChatRequest struct {
	Question       string
	SystemPrompt   *string
	IncludeContext bool
}

// Response is the uniform advisor answer shape.
type Response struct {
	Response        string   `json:"response"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
	ContextUsed     []string `json:"context_used"`
}

const fallbackText = "The AI recommendation service is currently unavailable. " +
	"Based on standard operating practice: keep the kiln burning zone inside its " +
	"target envelope, verify raw meal feed stability, and review any active " +
	"equipment alerts before adjusting setpoints."

var fallbackRecommendations = []string{
	"Verify kiln burning zone temperature against target envelope",
	"Check raw meal feed rate stability",
	"Review active equipment alerts before changing setpoints",
}

// Service builds prompts from plant context and turns completions into
// structured responses. Each call is independent; the only shared input
// is the read-only snapshot passed as context.
type Service struct {
	client TextClient
}

func NewService(client TextClient) *Service {
	return &Service{client: client}
}

// Ask answers a free-text question, optionally grounded in the current
// snapshot. A backend failure is recovered locally with the fallback
// response; it is never surfaced as a transport error.
func (s *Service) Ask(ctx context.Context, req ChatRequest, snap *plant.DashboardSnapshot) (Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Response{}, ErrEmptyQuestion
	}

	systemPrompt := defaultSystemPrompt
	if req.SystemPrompt != nil {
		if strings.TrimSpace(*req.SystemPrompt) == "" {
			return Response{}, ErrEmptySystemPrompt
		}
		systemPrompt = *req.SystemPrompt
	}

	plantContext := ""
	var used []string
	if req.IncludeContext {
		plantContext, used = contextSections(snap)
	}

	return s.complete(ctx, buildChatPrompt(systemPrompt, req.Question, plantContext), used), nil
}

// AnalyzeFluctuations explains detected parameter deviations. Requires a
// current snapshot for context.
func (s *Service) AnalyzeFluctuations(ctx context.Context, flucts []Fluctuation, snap *plant.DashboardSnapshot) (Response, error) {
	if snap == nil {
		return Response{}, ErrNoPlantData
	}
	if len(flucts) == 0 {
		return Response{}, ErrNoFluctuations
	}

	plantContext, used := contextSections(snap)
	return s.complete(ctx, buildFluctuationPrompt(defaultSystemPrompt, flucts, plantContext), used), nil
}

// AnalyzeTrends interprets historical metric series against the current
// snapshot.
func (s *Service) AnalyzeTrends(ctx context.Context, trends []TrendSeries, snap *plant.DashboardSnapshot) (Response, error) {
	if snap == nil {
		return Response{}, ErrNoPlantData
	}
	if len(trends) == 0 {
		return Response{}, ErrNoTrends
	}

	plantContext, used := contextSections(snap)
	return s.complete(ctx, buildTrendPrompt(defaultSystemPrompt, trends, plantContext), used), nil
}

// Optimize proposes adjustments for one optimization objective.
func (s *Service) Optimize(ctx context.Context, objective Objective, snap *plant.DashboardSnapshot) (Response, error) {
	if !ValidObjective(objective) {
		return Response{}, ErrInvalidObjective
	}
	if snap == nil {
		return Response{}, ErrNoPlantData
	}

	plantContext, used := contextSections(snap)
	return s.complete(ctx, buildOptimizePrompt(defaultSystemPrompt, objective, plantContext), used), nil
}

func (s *Service) complete(ctx context.Context, prompt string, contextUsed []string) Response {
	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("Text service call failed, using fallback response", "error", err)
		metrics.AdvisorRequestsTotal.WithLabelValues("fallback").Inc()
		return Response{
			Response:        fallbackText,
			Confidence:      0,
			Recommendations: fallbackRecommendations,
			ContextUsed:     []string{"error"},
		}
	}

	confidence := 0.75
	if len(contextUsed) > 0 {
		confidence = 0.9
	}
	if contextUsed == nil {
		contextUsed = []string{}
	}

	return Response{
		Response:        text,
		Confidence:      confidence,
		Recommendations: parseRecommendations(text),
		ContextUsed:     contextUsed,
	}
}

// parseRecommendations extracts dashed or numbered bullet lines from the
// completion text.
func parseRecommendations(text string) []string {
	var recs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "):
			recs = append(recs, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "* "):
			recs = append(recs, strings.TrimSpace(line[2:]))
		case len(line) > 2 && line[0] >= '1' && line[0] <= '9' && (line[1] == '.' || line[1] == ')'):
			recs = append(recs, strings.TrimSpace(line[2:]))
		}
	}
	return recs
}

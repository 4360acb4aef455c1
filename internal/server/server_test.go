package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cementlab/plantpulse/internal/advisor"
	"github.com/cementlab/plantpulse/internal/broadcast"
	"github.com/cementlab/plantpulse/internal/config"
	"github.com/cementlab/plantpulse/internal/datasource"
	"github.com/cementlab/plantpulse/internal/plant"
)

// stubAdvisor returns a canned response or error for every operation.
type stubAdvisor struct {
	resp advisor.Response
	err  error
}

func (s stubAdvisor) Ask(context.Context, advisor.ChatRequest, *plant.DashboardSnapshot) (advisor.Response, error) {
	return s.resp, s.err
}

func (s stubAdvisor) AnalyzeFluctuations(context.Context, []advisor.Fluctuation, *plant.DashboardSnapshot) (advisor.Response, error) {
	return s.resp, s.err
}

func (s stubAdvisor) AnalyzeTrends(context.Context, []advisor.TrendSeries, *plant.DashboardSnapshot) (advisor.Response, error) {
	return s.resp, s.err
}

func (s stubAdvisor) Optimize(context.Context, advisor.Objective, *plant.DashboardSnapshot) (advisor.Response, error) {
	return s.resp, s.err
}

func newTestServer(t *testing.T, adv advisorService) (*Server, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		Port:              "0",
		PlantCapacity:     4200,
		SensorCount:       8,
		NoiseLevel:        0.05,
		BroadcastInterval: time.Hour,
		MaxClients:        10,
	}

	gen := plant.NewGenerator(plant.GeneratorConfig{
		PlantCapacity:      cfg.PlantCapacity,
		SensorCount:        cfg.SensorCount,
		NoiseLevel:         cfg.NoiseLevel,
		AnomalyProbability: 0.05,
	}, clockwork.NewRealClock())
	source := datasource.NewSource(gen, datasource.StaticLoader{})
	broadcaster := broadcast.NewBroadcaster(source, nil, clockwork.NewRealClock(), cfg.MaxClients, cfg.BroadcastInterval)
	t.Cleanup(broadcaster.Stop)

	srv := NewServer(cfg, source, gen, broadcaster, adv, nil)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func postJSON(t *testing.T, url string, payload any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestCurrentSnapshotEnvelope(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	status, body := getJSON(t, ts.URL+"/api/dashboard/current")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["timestamp"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "simulated", data["source"])
	assert.NotEmpty(t, data["id"])
	assert.Contains(t, data, "process")
	assert.Contains(t, data, "quality")
	assert.Contains(t, data, "equipment")
	assert.Contains(t, data, "environmental")
	assert.Contains(t, data, "overview")
}

func TestCurrentSnapshotIsStableAcrossReads(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	_, first := getJSON(t, ts.URL+"/api/dashboard/current")
	_, second := getJSON(t, ts.URL+"/api/dashboard/current")

	firstID := first["data"].(map[string]any)["id"]
	secondID := second["data"].(map[string]any)["id"]
	assert.Equal(t, firstID, secondID, "pull reads must not re-synthesize")
}

func TestSectionEndpoints(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	status, body := getJSON(t, ts.URL+"/api/sensors")
	require.Equal(t, http.StatusOK, status)
	sensors, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, sensors, 8)

	for _, path := range []string{"/api/process", "/api/quality", "/api/environmental", "/api/overview"} {
		status, body := getJSON(t, ts.URL+path)
		require.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, true, body["success"], path)
		assert.NotNil(t, body["data"], path)
	}

	status, body = getJSON(t, ts.URL+"/api/equipment")
	require.Equal(t, http.StatusOK, status)
	units, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, units, 8)
}

func TestDataSourceLifecycle(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	// Fresh server: simulated mode, nothing loaded.
	status, body := getJSON(t, ts.URL+"/api/datasource/status")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "simulated", data["mode"])
	assert.EqualValues(t, 0, data["records"])

	// Toggling without data is a client error and leaves the mode alone.
	status, body = postJSON(t, ts.URL+"/api/datasource/toggle", nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation", body["type"])
	assert.Contains(t, body["error"], "no real data loaded")

	// Load the reference sequence, then toggle to real.
	status, body = postJSON(t, ts.URL+"/api/datasource/load", map[string]string{"kind": "kiln"})
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]any)
	assert.EqualValues(t, 10, data["records"])
	assert.EqualValues(t, 0, data["position"])

	status, body = postJSON(t, ts.URL+"/api/datasource/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "real", body["data"].(map[string]any)["mode"])

	// And back again.
	status, body = postJSON(t, ts.URL+"/api/datasource/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "simulated", body["data"].(map[string]any)["mode"])
}

func TestLoadRealUnknownKind(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	status, body := postJSON(t, ts.URL+"/api/datasource/load", map[string]string{"kind": "quarry"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestChatEndpoint(t *testing.T) {
	adv := stubAdvisor{resp: advisor.Response{
		Response:        "Kiln is stable.",
		Confidence:      0.9,
		Recommendations: []string{"keep setpoints"},
		ContextUsed:     []string{"process"},
	}}
	_, ts := newTestServer(t, adv)

	status, body := postJSON(t, ts.URL+"/api/ai/chat", map[string]any{
		"question":        "how is the kiln?",
		"include_context": true,
	})
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, "Kiln is stable.", data["response"])
	assert.EqualValues(t, 0.9, data["confidence"])
	assert.Equal(t, []any{"process"}, data["context_used"])
}

func TestChatValidationErrorMapsTo400(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{err: advisor.ErrEmptyQuestion})

	status, body := postJSON(t, ts.URL+"/api/ai/chat", map[string]any{"question": ""})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation", body["type"])
}

func TestOptimizeUnknownObjectiveMapsTo400(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{err: advisor.ErrInvalidObjective})

	status, body := postJSON(t, ts.URL+"/api/ai/optimize", map[string]string{"objective": "mischief"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestAdvisorInternalFaultMapsTo500(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{err: context.DeadlineExceeded})

	status, body := postJSON(t, ts.URL+"/api/ai/chat", map[string]string{"question": "q"})
	require.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "internal", body["type"])
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	status, body := getJSON(t, ts.URL+"/health/live")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = getJSON(t, ts.URL+"/health/ready")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, _ = getJSON(t, ts.URL+"/api/version")
	assert.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketPingPong(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/dashboard"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(broadcast.Event{Event: "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply broadcast.Event
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Event)
}

func TestWebSocketStatusRequest(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/dashboard"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(broadcast.Event{Event: "status"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply broadcast.Event
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "status", reply.Event)

	data := reply.Data.(map[string]any)
	assert.Contains(t, data, "datasource")
	assert.EqualValues(t, 1, data["clients"])
}

func TestUnknownRouteReturns404(t *testing.T) {
	_, ts := newTestServer(t, stubAdvisor{})

	resp, err := http.Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/cementlab/plantpulse/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // demo dashboard is served from arbitrary origins
	},
}

// Named requests a subscriber can send over the live channel.
const (
	eventPing              = "ping"
	eventPong              = "pong"
	eventSensorData        = "sensor_data"
	eventProcessParameters = "process_parameters"
	eventStatus            = "status"
)

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.broadcaster.Register(conn); err != nil {
		slog.Warn("Failed to register dashboard client", "error", err)
		return nil
	}

	// Read pump — blocks until the connection closes. Direct replies go
	// through the broadcaster so they never race a tick fan-out write.
	s.readPump(conn)

	s.broadcaster.Unregister(conn)
	return nil
}

func (s *Server) readPump(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req broadcast.Event
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}

		reply, ok := s.clientReply(req.Event)
		if !ok {
			continue
		}

		data, err := json.Marshal(reply)
		if err != nil {
			slog.Error("Failed to marshal direct reply", "event", reply.Event, "error", err)
			continue
		}
		s.broadcaster.Send(conn, data)
	}
}

// clientReply answers one named subscriber request with a single direct
// reply event, independent of the broadcast cadence.
func (s *Server) clientReply(event string) (broadcast.Event, bool) {
	switch event {
	case eventPing:
		return broadcast.Event{Event: eventPong}, true
	case eventSensorData:
		return broadcast.Event{Event: eventSensorData, Data: s.generator.GenerateSensorReadings()}, true
	case eventProcessParameters:
		return broadcast.Event{Event: eventProcessParameters, Data: s.generator.GenerateProcessParameters()}, true
	case eventStatus:
		return broadcast.Event{Event: eventStatus, Data: map[string]any{
			"datasource":     s.source.Status(),
			"clients":        s.broadcaster.ClientCount(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		}}, true
	default:
		return broadcast.Event{}, false
	}
}

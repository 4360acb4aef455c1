package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cementlab/plantpulse/internal/plant"
)

// stubSource hands out numbered snapshots and tracks the latest like the
// real data source does.
type stubSource struct {
	mu     sync.Mutex
	n      int
	latest *plant.DashboardSnapshot
}

func (s *stubSource) Next() *plant.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	s.latest = &plant.DashboardSnapshot{ID: "snap", Source: "simulated", Timestamp: time.Unix(int64(s.n), 0)}
	return s.latest
}

func (s *stubSource) Latest() *plant.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

type recordingArchiver struct {
	mu    sync.Mutex
	snaps []*plant.DashboardSnapshot
}

func (a *recordingArchiver) Store(_ context.Context, snap *plant.DashboardSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, snap)
	return nil
}

func (a *recordingArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.snaps)
}

// dialBroadcaster spins up a WS endpoint that registers connections with
// the broadcaster and returns a connected client.
func dialBroadcaster(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, b.Register(conn))
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) (Event, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return Event{}, err
	}
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev, nil
}

func TestBroadcastsOnEveryTick(t *testing.T) {
	source := &stubSource{}
	b := NewBroadcaster(source, nil, clockwork.NewRealClock(), 10, 100*time.Millisecond)
	defer b.Stop()

	conn := dialBroadcaster(t, b)

	deadline := time.Now().Add(350 * time.Millisecond)
	var got int
	for time.Now().Before(deadline) {
		ev, err := readEvent(t, conn, 200*time.Millisecond)
		if err != nil {
			break
		}
		assert.Equal(t, EventDashboardUpdate, ev.Event)
		assert.NotNil(t, ev.Data)
		got++
	}

	assert.GreaterOrEqual(t, got, 3, "expected at least one event per interval")
	assert.LessOrEqual(t, got, 5)
}

func TestLateSubscriberGetsLatestImmediately(t *testing.T) {
	source := &stubSource{}
	// Interval far beyond the test duration: only the welcome snapshot
	// can arrive.
	b := NewBroadcaster(source, nil, clockwork.NewRealClock(), 10, time.Hour)
	defer b.Stop()

	source.Next() // something has been broadcast before this client joined

	conn := dialBroadcaster(t, b)
	ev, err := readEvent(t, conn, time.Second)
	require.NoError(t, err)
	assert.Equal(t, EventDashboardUpdate, ev.Event)
	assert.NotNil(t, ev.Data)
}

func TestSubscriberBeforeFirstTickGetsNoWelcome(t *testing.T) {
	source := &stubSource{}
	b := NewBroadcaster(source, nil, clockwork.NewRealClock(), 10, time.Hour)
	defer b.Stop()

	conn := dialBroadcaster(t, b)
	_, err := readEvent(t, conn, 150*time.Millisecond)
	assert.Error(t, err, "no latest snapshot exists yet, nothing to push")
}

func TestClientCount(t *testing.T) {
	b := NewBroadcaster(&stubSource{}, nil, clockwork.NewRealClock(), 10, time.Hour)
	defer b.Stop()

	assert.Equal(t, 0, b.ClientCount())

	conn1 := dialBroadcaster(t, b)
	dialBroadcaster(t, b)
	assert.Equal(t, 2, b.ClientCount())

	b.Unregister(conn1)
	assert.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestMaxClientsRejected(t *testing.T) {
	b := NewBroadcaster(&stubSource{}, nil, clockwork.NewRealClock(), 1, time.Hour)
	defer b.Stop()

	upgrader := websocket.Upgrader{}
	errCh := make(chan error, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		errCh <- b.Register(conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn1.Close()
	require.NoError(t, <-errCh)

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn2.Close()
	assert.Error(t, <-errCh, "second client exceeds the limit")

	assert.Equal(t, 1, b.ClientCount())
}

func TestSendDeliversDirectMessage(t *testing.T) {
	b := NewBroadcaster(&stubSource{}, nil, clockwork.NewRealClock(), 10, time.Hour)
	defer b.Stop()

	upgrader := websocket.Upgrader{}
	registered := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, b.Register(conn))
		registered <- conn
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	serverConn := <-registered
	payload, _ := json.Marshal(Event{Event: "pong"})
	b.Send(serverConn, payload)

	ev, err := readEvent(t, client, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", ev.Event)
}

func TestArchiverReceivesTickSnapshots(t *testing.T) {
	archiver := &recordingArchiver{}
	b := NewBroadcaster(&stubSource{}, archiver, clockwork.NewRealClock(), 10, 50*time.Millisecond)
	defer b.Stop()

	assert.Eventually(t, func() bool { return archiver.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestStopClosesClients(t *testing.T) {
	b := NewBroadcaster(&stubSource{}, nil, clockwork.NewRealClock(), 10, time.Hour)

	conn := dialBroadcaster(t, b)
	b.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "connection must be closed after Stop")
}

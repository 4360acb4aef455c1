package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/cementlab/plantpulse/internal/metrics"
	"github.com/cementlab/plantpulse/internal/plant"
)

const (
	commandTimeout = 5 * time.Second  // Actor command timeout
	stopTimeout    = 10 * time.Second // Graceful shutdown timeout
	archiveTimeout = 5 * time.Second  // Fire-and-forget archive write limit
)

// Event is the named message envelope sent over the live channel.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// EventDashboardUpdate carries the full snapshot on every tick.
const EventDashboardUpdate = "dashboard_update"

// SnapshotSource supplies snapshots to the broadcaster. Next advances the
// data source by one tick; Latest returns the cached snapshot without
// producing one.
type SnapshotSource interface {
	Next() *plant.DashboardSnapshot
	Latest() *plant.DashboardSnapshot
}

// Archiver persists snapshots to an optional external store. Failures
// are logged and swallowed; they never affect the broadcast.
type Archiver interface {
	Store(ctx context.Context, snap *plant.DashboardSnapshot) error
}

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type registerCmd struct {
	baseBroadcasterCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseBroadcasterCmd
	connection *websocket.Conn
}

type clientCountCmd struct {
	baseBroadcasterCmd
	replyChannel chan int
}

type sendCmd struct {
	baseBroadcasterCmd
	connection *websocket.Conn
	data       []byte
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster manages WebSocket connections and drives the snapshot
// cadence: one snapshot per tick, fanned out to all connected clients.
// New clients immediately receive the current latest snapshot so a cold
// dashboard never waits a full interval for first data.
type Broadcaster struct {
	cmdCh        chan broadcasterCmd
	clock        clockwork.Clock
	clients      map[*websocket.Conn]*clientWriter
	source       SnapshotSource
	archiver     Archiver
	done         chan struct{}
	maxClients   int
	tickInterval time.Duration
}

// NewBroadcaster creates a broadcaster and starts its actor goroutine.
// archiver may be nil when no external store is configured.
func NewBroadcaster(source SnapshotSource, archiver Archiver, clock clockwork.Clock, maxClients int, tickInterval time.Duration) *Broadcaster {
	b := &Broadcaster{
		cmdCh:        make(chan broadcasterCmd, 256),
		clock:        clock,
		clients:      make(map[*websocket.Conn]*clientWriter),
		source:       source,
		archiver:     archiver,
		done:         make(chan struct{}),
		maxClients:   maxClients,
		tickInterval: tickInterval,
	}
	go b.run()
	return b
}

// Register adds a client. Returns an error if the client limit is
// reached or the broadcaster is stuck.
func (b *Broadcaster) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	b.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a client.
func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	b.cmdCh <- unregisterCmd{connection: conn}
}

// Send queues a direct message to one client. Serialized through the
// actor so it never races a tick fan-out write on the same connection.
// Dropped silently if the client is gone or its buffer is full.
func (b *Broadcaster) Send(conn *websocket.Conn, data []byte) {
	b.cmdCh <- sendCmd{connection: conn, data: data}
}

// ClientCount returns the number of connected clients.
// Returns -1 if the command times out.
func (b *Broadcaster) ClientCount() int {
	replyCh := make(chan int, 1)
	b.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the broadcaster, closing all client connections.
// Blocks until the broadcaster goroutine has exited or timeout is reached.
func (b *Broadcaster) Stop() {
	b.cmdCh <- stopCmd{}

	timeout := b.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Broadcaster stop timeout exceeded, forcing exit", "timeout", stopTimeout)
		close(b.done)
	}
}

func (b *Broadcaster) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			metrics.BroadcasterPanicsTotal.Inc()
			b.closeAllClients("broadcaster panic")
		}
	}()

	ticker := b.clock.NewTicker(b.tickInterval)
	defer ticker.Stop()
	defer close(b.done)

	for {
		select {
		case cmd := <-b.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				b.handleRegister(c)
			case unregisterCmd:
				b.handleUnregister(c)
			case sendCmd:
				if cw, ok := b.clients[c.connection]; ok {
					select {
					case cw.sendChannel <- c.data:
					default:
					}
				}
			case clientCountCmd:
				c.replyChannel <- len(b.clients)
			case stopCmd:
				b.handleStop()
				return
			default:
				slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-ticker.Chan():
			b.handleTick()
		}
	}
}

func (b *Broadcaster) handleRegister(c registerCmd) {
	if len(b.clients) >= b.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", b.maxClients)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients (%d) reached", b.maxClients)
		return
	}

	cw := newClientWriter(c.connection, b.clock)
	b.clients[c.connection] = cw
	metrics.BroadcasterConnectedClients.Set(float64(len(b.clients)))

	// Late subscribers get the current snapshot right away instead of
	// waiting up to a full interval.
	if latest := b.source.Latest(); latest != nil {
		if data, err := json.Marshal(Event{Event: EventDashboardUpdate, Data: latest}); err == nil {
			select {
			case cw.sendChannel <- data:
			default:
			}
		}
	}

	slog.Debug("Client registered", "total_clients", len(b.clients))
	c.errorChannel <- nil
}

func (b *Broadcaster) handleUnregister(c unregisterCmd) {
	cw, exists := b.clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(b.clients, c.connection)
	metrics.BroadcasterConnectedClients.Set(float64(len(b.clients)))
	slog.Debug("Client unregistered", "remaining_clients", len(b.clients))
}

func (b *Broadcaster) handleTick() {
	tickStart := b.clock.Now()
	metrics.BroadcasterTicksTotal.Inc()
	defer func() {
		metrics.BroadcasterTickDuration.Observe(b.clock.Since(tickStart).Seconds())
	}()

	snap := b.source.Next()

	if b.archiver != nil {
		go b.archive(snap)
	}

	data, err := json.Marshal(Event{Event: EventDashboardUpdate, Data: snap})
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, writer := range b.clients {
		select {
		case writer.sendChannel <- data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client")
		metrics.BroadcasterSlowClientsEvicted.Inc()
		b.handleUnregister(unregisterCmd{connection: conn})
	}
}

// archive persists the snapshot fire-and-forget. Errors are logged and
// swallowed so a slow or failing store never blocks the broadcast.
func (b *Broadcaster) archive(snap *plant.DashboardSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := b.archiver.Store(ctx, snap); err != nil {
		metrics.ArchiveWritesTotal.WithLabelValues("error").Inc()
		slog.Warn("Snapshot archive write failed", "snapshot_id", snap.ID, "error", err)
		return
	}
	metrics.ArchiveWritesTotal.WithLabelValues("ok").Inc()
}

func (b *Broadcaster) handleStop() {
	slog.Info("Broadcaster shutting down", "clients", len(b.clients))
	b.closeAllClients("Server shutting down")
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (b *Broadcaster) closeAllClients(reason string) {
	for conn, cw := range b.clients {
		cw.stopGraceful(reason)
		delete(b.clients, conn)
	}
	metrics.BroadcasterConnectedClients.Set(0)
}

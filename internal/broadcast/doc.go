// Package broadcast implements the dashboard broadcaster using the actor pattern.
//
// The Broadcaster pulls one snapshot from the data source switch per tick and fans it out to connected clients.
// Uses single goroutine + command channel (no mutexes). Per-connection write goroutines handle slow clients gracefully.
// Snapshot archiving is fire-and-forget and never blocks the tick.
package broadcast

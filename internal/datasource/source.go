// Package datasource selects between synthesized snapshots and a
// preloaded recorded sequence, and owns the "latest snapshot" cache that
// both the push and pull transports read.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cementlab/plantpulse/internal/metrics"
	"github.com/cementlab/plantpulse/internal/plant"
)

// Mode is the active data source.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeReal      Mode = "real"
)

// ErrNoRealData is returned by Toggle when switching to real mode before
// any recorded sequence has been loaded.
var ErrNoRealData = errors.New("no real data loaded")

// RecordLoader fetches or constructs a finite ordered sequence of
// recorded plant snapshots.
type RecordLoader interface {
	Load(ctx context.Context, kind string) ([]plant.DashboardSnapshot, error)
}

// Status reports the switch state for the mode-control endpoints.
type Status struct {
	Mode     Mode `json:"mode"`
	Position int  `json:"position"`
	Records  int  `json:"records"`
}

// Source is the data source switch. All mutation goes through its
// methods; the replay position only advances when real mode actually
// consumes a record, and it persists across mode flips.
type Source struct {
	gen    *plant.Generator
	loader RecordLoader

	mu       sync.Mutex
	mode     Mode
	records  []plant.DashboardSnapshot
	position int
	latest   *plant.DashboardSnapshot
}

// NewSource creates a switch in simulated mode.
func NewSource(gen *plant.Generator, loader RecordLoader) *Source {
	return &Source{
		gen:    gen,
		loader: loader,
		mode:   ModeSimulated,
	}
}

// LoadReal fetches a recorded sequence of the given kind. On success the
// sequence replaces any previous one and the replay position resets to
// zero. The active mode is not changed.
func (s *Source) LoadReal(ctx context.Context, kind string) error {
	records, err := s.loader.Load(ctx, kind)
	if err != nil {
		return fmt.Errorf("load real data %q: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.position = 0
	return nil
}

// Toggle flips the active mode. Switching to real mode with no loaded
// sequence is an explicit error and leaves the mode unchanged.
func (s *Source) Toggle() (Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeSimulated {
		if len(s.records) == 0 {
			return s.mode, ErrNoRealData
		}
		s.mode = ModeReal
	} else {
		s.mode = ModeSimulated
	}
	return s.mode, nil
}

// Next produces the snapshot for one broadcast tick and caches it as the
// latest. In real mode the recorded sequence replays cyclically; in
// simulated mode the generator synthesizes a fresh snapshot.
func (s *Source) Next() *plant.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

func (s *Source) nextLocked() *plant.DashboardSnapshot {
	if s.mode == ModeReal && len(s.records) > 0 {
		record := s.records[s.position%len(s.records)]
		s.position = (s.position + 1) % len(s.records)
		s.latest = &record
		metrics.SnapshotsGeneratedTotal.WithLabelValues(string(ModeReal)).Inc()
		return s.latest
	}

	s.latest = s.gen.GenerateSnapshot()
	metrics.SnapshotsGeneratedTotal.WithLabelValues(string(ModeSimulated)).Inc()
	return s.latest
}

// Current returns the cached latest snapshot. The first call ever
// synthesizes one; ordinary reads never trigger fresh synthesis, so
// concurrent pulls stay consistent with the live stream.
func (s *Source) Current() *plant.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return s.nextLocked()
	}
	return s.latest
}

// Latest returns the cached snapshot without producing one. Nil before
// the first tick.
func (s *Source) Latest() *plant.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Status reports the current mode, replay position and sequence length.
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Mode:     s.mode,
		Position: s.position,
		Records:  len(s.records),
	}
}

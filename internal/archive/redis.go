// Package archive persists dashboard snapshots to an optional external
// key-value document store. Writes are fire-and-forget from the caller's
// perspective: errors are surfaced so they can be logged, but nothing in
// the broadcast path depends on them succeeding.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cementlab/plantpulse/internal/plant"
)

const (
	keyLatest  = "plantpulse:snapshot:latest"
	keyHistory = "plantpulse:snapshot:history"

	historyLength = 100
)

// NewClient creates a go-redis client from a URL (e.g. "redis://localhost:6379")
// and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// SnapshotStore keeps the latest snapshot document plus a capped history
// list in Redis.
type SnapshotStore struct {
	rdb *goredis.Client
}

func NewSnapshotStore(rdb *goredis.Client) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

// Store writes one snapshot: latest document overwrite plus history push
// trimmed to the last 100 entries, in a single pipeline round trip.
func (s *SnapshotStore) Store(ctx context.Context, snap *plant.DashboardSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, keyLatest, data, 0)
	pipe.LPush(ctx, keyHistory, data)
	pipe.LTrim(ctx, keyHistory, 0, historyLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Latest reads back the most recently archived snapshot. Returns nil
// without error when nothing has been archived yet.
func (s *SnapshotStore) Latest(ctx context.Context) (*plant.DashboardSnapshot, error) {
	data, err := s.rdb.Get(ctx, keyLatest).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest snapshot: %w", err)
	}

	var snap plant.DashboardSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode latest snapshot: %w", err)
	}
	return &snap, nil
}

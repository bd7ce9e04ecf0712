package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"signpractice/internal/types"
)

const snapshotKeyPrefix = "practice:snapshot:"

// redisSnapshotStore keeps snapshots in Redis; expiry is handled by key TTLs.
type redisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisSnapshotStore(redisURL string, ttl time.Duration) (*redisSnapshotStore, error) {
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is required for the redis snapshot backend")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &redisSnapshotStore{client: client, ttl: ttl}, nil
}

func (s *redisSnapshotStore) Save(ctx context.Context, sessionID string, snap types.Snapshot) error {
	if !validSessionID(sessionID) {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for session %s: %w", sessionID, err)
	}
	return s.client.Set(ctx, snapshotKeyPrefix+sessionID, data, s.ttl).Err()
}

func (s *redisSnapshotStore) Load(ctx context.Context, sessionID string) (types.Snapshot, error) {
	if !validSessionID(sessionID) {
		return types.Snapshot{}, ErrSnapshotNotFound
	}
	data, err := s.client.Get(ctx, snapshotKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("load snapshot for session %s: %w", sessionID, err)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || !validSnapshot(snap) {
		s.client.Del(ctx, snapshotKeyPrefix+sessionID)
		return types.Snapshot{}, ErrSnapshotNotFound
	}
	return snap, nil
}

// Cleanup is a no-op; Redis expires snapshots itself.
func (s *redisSnapshotStore) Cleanup(_ context.Context) error {
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"signpractice/internal/types"
)

// ErrSnapshotNotFound is returned when no usable snapshot exists for a session.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore keeps the last known progress of each browser session.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snap types.Snapshot) error
	Load(ctx context.Context, sessionID string) (types.Snapshot, error)
	Cleanup(ctx context.Context) error
}

// newSnapshotStore picks the backend named in the config.
func newSnapshotStore(cfg Config) (SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case "", "file":
		return newFileSnapshotStore(cfg.SnapshotDir, cfg.SessionTimeout), nil
	case "redis":
		return newRedisSnapshotStore(cfg.RedisURL, cfg.SessionTimeout)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}

// validSessionID guards file names and keys built from cookie values.
func validSessionID(sessionID string) bool {
	return uuid.Validate(sessionID) == nil
}

type fileSnapshotStore struct {
	dir    string
	maxAge time.Duration
}

func newFileSnapshotStore(dir string, maxAge time.Duration) *fileSnapshotStore {
	return &fileSnapshotStore{dir: dir, maxAge: maxAge}
}

func (s *fileSnapshotStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Save persists a snapshot to disk.
func (s *fileSnapshotStore) Save(_ context.Context, sessionID string, snap types.Snapshot) error {
	if !validSessionID(sessionID) {
		logWarn("Skipping snapshot save for invalid session ID: %s", sessionID)
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot for session %s: %w", sessionID, err)
	}
	tmp, err := os.CreateTemp(s.dir, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot for session %s: %w", sessionID, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path(sessionID)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot for session %s: %w", sessionID, err)
	}
	return nil
}

// Load reads a snapshot, discarding it if it is expired or corrupted.
func (s *fileSnapshotStore) Load(_ context.Context, sessionID string) (types.Snapshot, error) {
	if !validSessionID(sessionID) {
		return types.Snapshot{}, ErrSnapshotNotFound
	}
	file := s.path(sessionID)

	info, err := os.Stat(file)
	if err != nil {
		return types.Snapshot{}, ErrSnapshotNotFound
	}
	if age := time.Since(info.ModTime()); age > s.maxAge {
		logInfo("Snapshot is too old (%v, max: %v), removing: %s", age, s.maxAge, file)
		_ = os.Remove(file)
		return types.Snapshot{}, ErrSnapshotNotFound
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("read snapshot %s: %w", file, err)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || !validSnapshot(snap) {
		logWarn("Snapshot %s is corrupted, removing", file)
		_ = os.Remove(file)
		return types.Snapshot{}, ErrSnapshotNotFound
	}
	return snap, nil
}

// Cleanup removes snapshot files older than the store's max age.
func (s *fileSnapshotStore) Cleanup(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot directory: %w", err)
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed, failed := 0, 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			failed++
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				failed++
				continue
			}
			removed++
		}
	}
	logInfo("Snapshot cleanup completed: removed %d files, %d errors", removed, failed)
	return nil
}

func validSnapshot(snap types.Snapshot) bool {
	return len(snap.LetterSequence) > 0 &&
		snap.CurrentLetterIndex >= 0 &&
		snap.CurrentLetterIndex <= len(snap.LetterSequence) &&
		snap.ConsecutiveErrorCount >= 0
}

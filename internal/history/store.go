// Package history persists computed mastery snapshots and caches the
// latest result per student.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a student has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one computed mastery map with its provenance.
type Snapshot struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Scores       map[string]float64 `json:"scores"`
	Interactions int                `json:"interactions"`
	CreatedAt    time.Time          `json:"created_at"`
}

// SnapshotStore persists mastery snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) (string, error)
	Latest(ctx context.Context, userID string) (*Snapshot, error)
}

// MemoryStore is an in-memory SnapshotStore for tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) (string, error) {
	if snap.UserID == "" {
		return "", errors.New("user_id is required")
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()
	return snap.ID, nil
}

func (s *MemoryStore) Latest(_ context.Context, userID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].UserID == userID {
			snap := s.snapshots[i]
			return &snap, nil
		}
	}
	return nil, ErrNotFound
}

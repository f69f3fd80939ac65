package history

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SaveAndLatest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Save(ctx, Snapshot{
		UserID:       "user-1",
		Scores:       map[string]float64{"algebra": 0.8},
		Interactions: 12,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id == "" {
		t.Fatal("Save() returned empty id")
	}

	snap, err := store.Latest(ctx, "user-1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if snap.ID != id {
		t.Errorf("Latest().ID = %q, want %q", snap.ID, id)
	}
	if snap.Scores["algebra"] != 0.8 {
		t.Errorf("Latest().Scores[algebra] = %v, want 0.8", snap.Scores["algebra"])
	}
	if snap.CreatedAt.IsZero() {
		t.Error("Latest().CreatedAt is zero")
	}
}

func TestMemoryStore_LatestReturnsNewest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, score := range []float64{0.3, 0.5, 0.9} {
		_, err := store.Save(ctx, Snapshot{
			UserID:    "user-1",
			Scores:    map[string]float64{"algebra": score},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	snap, err := store.Latest(ctx, "user-1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if snap.Scores["algebra"] != 0.9 {
		t.Errorf("Latest().Scores[algebra] = %v, want 0.9", snap.Scores["algebra"])
	}
}

func TestMemoryStore_LatestNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Latest(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SaveRequiresUserID(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Save(context.Background(), Snapshot{Scores: map[string]float64{"a": 1}})
	if err == nil {
		t.Error("Save() should require user_id")
	}
}

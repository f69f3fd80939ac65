package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed SnapshotStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the snapshots table if needed and returns a
// store backed by the given pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS mastery_snapshots (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		scores JSONB NOT NULL,
		interactions INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	_, err = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS mastery_snapshots_user_created_idx
		ON mastery_snapshots (user_id, created_at DESC)`)
	if err != nil {
		return nil, fmt.Errorf("create snapshots index: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) (string, error) {
	if snap.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	id := snap.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	scores, err := json.Marshal(snap.Scores)
	if err != nil {
		return "", fmt.Errorf("marshal scores: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO mastery_snapshots (id, user_id, scores, interactions, created_at)
		 VALUES ($1::uuid, $2, $3::jsonb, $4, $5)`,
		id, snap.UserID, string(scores), snap.Interactions, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Latest(ctx context.Context, userID string) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		snap      Snapshot
		rawScores []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id, scores, interactions, created_at
		 FROM mastery_snapshots
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&snap.ID, &snap.UserID, &rawScores, &snap.Interactions, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	if err := json.Unmarshal(rawScores, &snap.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	return &snap, nil
}

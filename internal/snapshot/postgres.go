package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

// DefaultSlot is the row holding the live snapshot
const DefaultSlot = "etfs"

var _ contracts.SnapshotStore = (*PostgresStore)(nil)

// PostgresStore keeps the snapshot in one row of etf_snapshots
type PostgresStore struct {
	pool *pgxpool.Pool
	slot string
}

// NewPostgresStore creates a store bound to slot
func NewPostgresStore(pool *pgxpool.Pool, slot string) *PostgresStore {
	if slot == "" {
		slot = DefaultSlot
	}
	return &PostgresStore{pool: pool, slot: slot}
}

// Load reads the slot; a missing row is the empty snapshot
func (s *PostgresStore) Load(ctx context.Context) (contracts.Snapshot, error) {
	query := `SELECT payload FROM etf_snapshots WHERE slot = $1`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, s.slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.EmptySnapshot(), nil
	}
	if err != nil {
		return contracts.EmptySnapshot(), fmt.Errorf("failed to load snapshot: %w", err)
	}

	return decode(payload)
}

// Replace upserts the slot; the last writer wins
func (s *PostgresStore) Replace(ctx context.Context, snap contracts.Snapshot) error {
	if snap.SyncedAt == nil {
		return fmt.Errorf("failed to save snapshot: syncedAt is required")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO etf_snapshots (slot, payload, synced_at, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot) DO UPDATE SET
			payload = EXCLUDED.payload,
			synced_at = EXCLUDED.synced_at,
			count = EXCLUDED.count,
			updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, s.slot, payload, *snap.SyncedAt, snap.Count); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

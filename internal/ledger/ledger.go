// Package ledger persists the at-most-once delivery guard. A row keyed by
// (identity, alert type, source id) means that occurrence has already been
// announced to that identity and must not be announced again.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/albapepper/siouxland-alerts/internal/domain"
)

// Store is the Postgres-backed ledger.
type Store struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

// New creates a ledger store. Pass clockwork.NewRealClock() outside tests.
func New(pool *pgxpool.Pool, clock clockwork.Clock) *Store {
	return &Store{pool: pool, clock: clock}
}

// HasBeenTriggered reports whether this occurrence was already announced to
// this identity. Must return false before a candidate is delivery-eligible.
func (s *Store) HasBeenTriggered(ctx context.Context, identity string, alertType domain.AlertType, sourceID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, "ledger_has_triggered", identity, string(alertType), sourceID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger check: %w", err)
	}
	return true, nil
}

// RecordTriggered marks an occurrence as announced. Inserting an existing
// tuple is a no-op, so overlapping runs cannot fail each other here.
func (s *Store) RecordTriggered(ctx context.Context, identity string, alertType domain.AlertType, sourceID string, snapshot []byte) error {
	_, err := s.pool.Exec(ctx, "ledger_record",
		identity, string(alertType), sourceID, snapshot, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

// Cleanup deletes rows older than maxAge and returns how many were removed.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.clock.Now().UTC().Add(-maxAge)
	tag, err := s.pool.Exec(ctx, "ledger_cleanup", cutoff)
	if err != nil {
		return 0, fmt.Errorf("ledger cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}

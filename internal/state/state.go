package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ProcessingState is the local record the sync engine keeps per Kody order.
// One row exists per Kody order id; it is created by the order sync worker
// after the POS write committed, mutated only by the status update worker and
// deleted only by the maintenance worker.
type ProcessingState struct {
	KodyOrderID       string
	HashedKodyOrderID string
	// PosOrderID is the order_head id returned by the POS insert.
	PosOrderID string
	// LastStatusSent is the last status successfully reported back to the
	// Kody API. Empty until the first report.
	LastStatusSent string
	// OrderPulledAt is when the order sync worker first pulled the order.
	OrderPulledAt time.Time
	// UpdatedAt tracks record age for retention cleanup.
	UpdatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS order_processing_state (
	kody_order_id        TEXT PRIMARY KEY,
	hashed_kody_order_id TEXT NOT NULL UNIQUE,
	pos_order_id         TEXT NOT NULL DEFAULT '',
	last_status_sent     TEXT NOT NULL DEFAULT '',
	order_pulled_at      INTEGER NOT NULL,
	updated_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_state_updated_at ON order_processing_state(updated_at);
`

// Store is the single-file sqlite store holding every ProcessingState.
// sqlite serializes the three workers' access; all operations are single
// statements so insert-if-absent and update-by-key stay atomic with respect
// to each other.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and if needed creates) the state database at path.
// The parent directory is created on demand.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("state db path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open state db %s: %w", path, err)
	}
	// A single connection keeps writes serialized without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate state db %s: %w", path, err)
	}

	zap.S().Infof("State store initialized at %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// InsertIfAbsent records the initial state for a freshly synced order.
// A second insert for the same Kody order id (or the same hash) is ignored:
// this is the idempotency gate against the Kody API redelivering an order.
func (s *Store) InsertIfAbsent(ctx context.Context, st ProcessingState) error {
	if st.KodyOrderID == "" {
		return errors.New("kody order id is empty")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO order_processing_state
		 (kody_order_id, hashed_kody_order_id, pos_order_id, last_status_sent, order_pulled_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		st.KodyOrderID, st.HashedKodyOrderID, st.PosOrderID, st.LastStatusSent,
		st.OrderPulledAt.UTC().UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert state for %s: %w", st.KodyOrderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		zap.S().Warnf("State for Kody order %s already present, ignoring duplicate insert", st.KodyOrderID)
	}
	return nil
}

// ByKodyID returns the state for the given Kody order id, or nil when absent.
func (s *Store) ByKodyID(ctx context.Context, kodyOrderID string) (*ProcessingState, error) {
	return s.queryOne(ctx, `kody_order_id = ?`, kodyOrderID)
}

// ByHash returns the state matching a hashed Kody order id, or nil when
// absent. This is the lookup the status update worker uses, since the POS
// only stores the hash.
func (s *Store) ByHash(ctx context.Context, hashedID string) (*ProcessingState, error) {
	return s.queryOne(ctx, `hashed_kody_order_id = ?`, hashedID)
}

func (s *Store) queryOne(ctx context.Context, where string, arg string) (*ProcessingState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT kody_order_id, hashed_kody_order_id, pos_order_id, last_status_sent, order_pulled_at, updated_at
		 FROM order_processing_state WHERE `+where, arg)

	var st ProcessingState
	var pulledMs, updatedMs int64
	err := row.Scan(&st.KodyOrderID, &st.HashedKodyOrderID, &st.PosOrderID, &st.LastStatusSent, &pulledMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	st.OrderPulledAt = time.UnixMilli(pulledMs).UTC()
	st.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &st, nil
}

// SetLastStatusSent persists the status last reported to Kody for an order.
// Only last_status_sent and updated_at change; the pull timestamp and POS id
// are left untouched. A missing record is warned about but never created.
func (s *Store) SetLastStatusSent(ctx context.Context, kodyOrderID string, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_processing_state SET last_status_sent = ?, updated_at = ? WHERE kody_order_id = ?`,
		status, time.Now().UTC().UnixMilli(), kodyOrderID)
	if err != nil {
		return fmt.Errorf("failed to update status for %s: %w", kodyOrderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		zap.S().Warnf("No state record for Kody order %s, status %s not persisted", kodyOrderID, status)
	}
	return nil
}

// MaxPulledAt returns the newest order_pulled_at across all records, or nil
// on an empty store. The order sync worker uses it as the fetch watermark.
func (s *Store) MaxPulledAt(ctx context.Context) (*time.Time, error) {
	var ms sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(order_pulled_at) FROM order_processing_state`).Scan(&ms)
	if err != nil {
		return nil, fmt.Errorf("failed to query max pulled timestamp: %w", err)
	}
	if !ms.Valid {
		return nil, nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t, nil
}

// DeleteOlderThan removes every record whose updated_at is before cutoff and
// returns how many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM order_processing_state WHERE updated_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete state records older than %s: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return n, nil
}

// Compact rewrites the database file to reclaim space freed by deletions.
func (s *Store) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum state db: %w", err)
	}
	return nil
}

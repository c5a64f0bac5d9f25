package posdb

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StatusSnapshot is one POS-side order lifecycle observation, valid for a
// single reconciliation cycle.
type StatusSnapshot struct {
	PosOrderID        int64
	HashedKodyOrderID string
	Status            int32
	// Fulfilled is set when the kitchen marked the order made (is_make = 1).
	Fulfilled   bool
	CompletedAt *time.Time
}

// Reader queries the POS schema for orders this service wrote whose
// lifecycle moved forward.
type Reader struct {
	db PgxIface
}

func NewReader(db PgxIface) *Reader {
	return &Reader{db: db}
}

// FulfilledSince returns snapshots for KODYORDER-tagged orders started at or
// after since whose status or is_make flag indicates completion. An empty
// result is normal.
func (r *Reader) FulfilledSince(ctx context.Context, since time.Time) ([]StatusSnapshot, error) {
	rows, err := r.db.Query(ctx, selectStatusUpdates, SourceMarker, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query POS status updates: %w", err)
	}
	defer rows.Close()

	var snapshots []StatusSnapshot
	for rows.Next() {
		var snap StatusSnapshot
		var checkName *string
		var isMake int32
		if err := rows.Scan(&snap.PosOrderID, &checkName, &snap.Status, &isMake, &snap.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan POS status row: %w", err)
		}
		if checkName != nil {
			snap.HashedKodyOrderID = *checkName
		}
		snap.Fulfilled = isMake == 1
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read POS status rows: %w", err)
	}

	zap.S().Debugf("Retrieved %d POS status updates since %s", len(snapshots), since)
	return snapshots, nil
}

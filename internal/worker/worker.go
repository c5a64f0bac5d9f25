package worker

import (
	"context"
	"time"

	"github.com/KodyPay/kp-order-sync/internal/kody"
	"github.com/KodyPay/kp-order-sync/internal/posdb"
	"github.com/KodyPay/kp-order-sync/internal/state"
)

// StatusSentCompleted is the terminal marker recorded once the Kody API
// accepted the fulfilled status for an order.
const StatusSentCompleted = "CompletedByPOS"

// StateStore is the slice of the processing-state store the sync and status
// workers consume. *state.Store implements it.
type StateStore interface {
	InsertIfAbsent(ctx context.Context, st state.ProcessingState) error
	ByKodyID(ctx context.Context, kodyOrderID string) (*state.ProcessingState, error)
	ByHash(ctx context.Context, hashedID string) (*state.ProcessingState, error)
	SetLastStatusSent(ctx context.Context, kodyOrderID string, status string) error
	MaxPulledAt(ctx context.Context) (*time.Time, error)
}

// MaintenanceStore is what the maintenance worker needs. *state.Store
// implements it.
type MaintenanceStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Compact(ctx context.Context) error
}

// PosWriter writes one Kody order into the POS schema. *posdb.Writer
// implements it.
type PosWriter interface {
	SaveOrder(ctx context.Context, order kody.Order) (string, error)
}

// PosReader reports POS-side lifecycle progress. *posdb.Reader implements it.
type PosReader interface {
	FulfilledSince(ctx context.Context, since time.Time) ([]posdb.StatusSnapshot, error)
}

// wait sleeps for d, returning false when ctx is cancelled first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KodyPay/kp-order-sync/internal/kody"
	"github.com/KodyPay/kp-order-sync/internal/metrics"
	"github.com/KodyPay/kp-order-sync/internal/posdb"
)

// OrderStatusUpdateWorker watches the POS database for orders the kitchen
// completed and reports them back to Kody. The local state record is only
// updated after Kody accepted the report, so a failed push is retried on the
// next cycle.
type OrderStatusUpdateWorker struct {
	client   kody.Client
	reader   PosReader
	store    StateStore
	interval time.Duration
	lookback time.Duration
	machine  phaseMachine
}

func NewOrderStatusUpdateWorker(client kody.Client, reader PosReader, store StateStore,
	interval time.Duration, lookback time.Duration) *OrderStatusUpdateWorker {
	return &OrderStatusUpdateWorker{
		client:   client,
		reader:   reader,
		store:    store,
		interval: interval,
		lookback: lookback,
		machine:  newPhaseMachine("status-update", statusUpdateTransitions),
	}
}

// Phase returns the worker's current state-machine phase.
func (w *OrderStatusUpdateWorker) Phase() Phase {
	return w.machine.current
}

// Run loops until ctx is cancelled.
func (w *OrderStatusUpdateWorker) Run(ctx context.Context) {
	zap.S().Infof("Status update worker starting, polling every %s with %s lookback", w.interval, w.lookback)
	for {
		if ctx.Err() != nil {
			break
		}
		w.runCycle(ctx)
		if !wait(ctx, w.interval) {
			break
		}
	}
	zap.S().Info("Status update worker stopped")
}

func (w *OrderStatusUpdateWorker) runCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.StatusCycleDuration.Observe(time.Since(start).Seconds())
	}()

	w.machine.enter(PhaseScanning)
	defer w.machine.enter(PhaseIdle)

	lookbackTime := time.Now().Add(-w.lookback)
	zap.S().Debugf("Checking POS for completed orders since %s", lookbackTime.Format(time.RFC3339))

	snapshots, err := w.reader.FulfilledSince(ctx, lookbackTime)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		zap.S().Errorf("Failed to query POS for status updates: %s", err)
		return
	}

	for i := range snapshots {
		if ctx.Err() != nil {
			return
		}
		w.processSnapshot(ctx, snapshots[i])
	}
}

func (w *OrderStatusUpdateWorker) processSnapshot(ctx context.Context, snap posdb.StatusSnapshot) {
	w.machine.enter(PhaseLookup)

	if snap.HashedKodyOrderID == "" {
		zap.S().Warnf("POS order %d has no Kody reference, skipping", snap.PosOrderID)
		return
	}

	st, err := w.store.ByHash(ctx, snap.HashedKodyOrderID)
	if err != nil {
		zap.S().Errorf("Failed to look up state for POS order %d: %s", snap.PosOrderID, err)
		return
	}
	if st == nil {
		// The POS knows an order the local store never ingested; nothing to
		// report against.
		zap.S().Warnf("POS order %d (hash %s) has no local state, skipping", snap.PosOrderID, snap.HashedKodyOrderID)
		return
	}

	w.machine.enter(PhaseCompare)
	if st.LastStatusSent == StatusSentCompleted {
		zap.S().Debugf("Completed status for Kody order %s already sent, skipping", st.KodyOrderID)
		return
	}

	w.machine.enter(PhaseReporting)
	zap.S().Infof("POS completed Kody order %s (previously sent: %q), reporting to Kody", st.KodyOrderID, st.LastStatusSent)
	ok, err := w.client.UpdateOrderStatus(ctx, st.KodyOrderID, kody.StatusCompleted)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		zap.S().Errorf("Failed to send status update for Kody order %s: %s", st.KodyOrderID, err)
		metrics.StatusUpdateFailuresTotal.Inc()
		return
	}
	if !ok {
		// State stays untouched so the next cycle retries.
		zap.S().Errorf("Kody rejected status update for order %s", st.KodyOrderID)
		metrics.StatusUpdateFailuresTotal.Inc()
		return
	}

	w.machine.enter(PhasePersisting)
	if err := w.store.SetLastStatusSent(ctx, st.KodyOrderID, StatusSentCompleted); err != nil {
		zap.S().Errorf("Failed to persist sent status for Kody order %s: %s", st.KodyOrderID, err)
		return
	}

	zap.S().Infof("Reported completed status for Kody order %s", st.KodyOrderID)
	metrics.StatusUpdatesSentTotal.Inc()
}

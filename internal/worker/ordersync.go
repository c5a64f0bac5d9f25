package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KodyPay/kp-order-sync/internal/hash"
	"github.com/KodyPay/kp-order-sync/internal/kody"
	"github.com/KodyPay/kp-order-sync/internal/metrics"
	"github.com/KodyPay/kp-order-sync/internal/state"
)

// OrderSyncWorker polls the Kody API for new orders and writes each one into
// the POS database exactly once. State is only recorded after the POS
// transaction committed; a failed order is retried on a later poll because
// no state exists for it yet.
type OrderSyncWorker struct {
	client   kody.Client
	writer   PosWriter
	store    StateStore
	interval time.Duration
	machine  phaseMachine
}

func NewOrderSyncWorker(client kody.Client, writer PosWriter, store StateStore, interval time.Duration) *OrderSyncWorker {
	return &OrderSyncWorker{
		client:   client,
		writer:   writer,
		store:    store,
		interval: interval,
		machine:  newPhaseMachine("order-sync", orderSyncTransitions),
	}
}

// Phase returns the worker's current state-machine phase.
func (w *OrderSyncWorker) Phase() Phase {
	return w.machine.current
}

// Run loops until ctx is cancelled. Cycle errors are logged and retried on
// the next tick; cancellation is a clean stop, not a failure.
func (w *OrderSyncWorker) Run(ctx context.Context) {
	zap.S().Infof("Order sync worker starting, polling every %s", w.interval)
	for {
		if ctx.Err() != nil {
			break
		}
		w.runCycle(ctx)
		if !wait(ctx, w.interval) {
			break
		}
	}
	zap.S().Info("Order sync worker stopped")
}

func (w *OrderSyncWorker) runCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.SyncCycleDuration.Observe(time.Since(start).Seconds())
	}()

	w.machine.enter(PhaseFetching)
	defer w.machine.enter(PhaseIdle)

	watermark, err := w.store.MaxPulledAt(ctx)
	if err != nil {
		zap.S().Errorf("Failed to read pull watermark: %s", err)
		return
	}
	if watermark == nil {
		zap.S().Debug("No pull watermark yet, querying Kody with unbounded lookback")
	} else {
		zap.S().Debugf("Querying Kody for orders since %s", watermark.Format(time.RFC3339))
	}

	orders, err := w.client.GetOrders(ctx, watermark)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		zap.S().Errorf("Failed to fetch orders from Kody: %s", err)
		return
	}
	zap.S().Infof("Found %d new orders from Kody", len(orders))

	for i := range orders {
		if ctx.Err() != nil {
			return
		}
		w.processOrder(ctx, orders[i])
	}
}

// processOrder handles one order in isolation: its failure is logged and
// must not abort the rest of the batch.
func (w *OrderSyncWorker) processOrder(ctx context.Context, order kody.Order) {
	w.machine.enter(PhaseDeduping)

	existing, err := w.store.ByKodyID(ctx, order.OrderID)
	if err != nil {
		zap.S().Errorf("Failed to look up state for Kody order %s: %s", order.OrderID, err)
		metrics.OrderSyncFailuresTotal.Inc()
		return
	}
	if existing != nil {
		// The Kody API redelivered an order we already wrote.
		zap.S().Warnf("Kody order %s already synced, skipping", order.OrderID)
		metrics.OrdersSkippedTotal.Inc()
		return
	}

	w.machine.enter(PhaseWriting)
	posOrderID, err := w.writer.SaveOrder(ctx, order)
	if err != nil {
		// No state is recorded, so a transient failure is retried on the
		// next poll. Data faults keep failing and keep getting logged.
		zap.S().Errorf("Failed to save Kody order %s to POS: %s", order.OrderID, err)
		metrics.OrderSyncFailuresTotal.Inc()
		return
	}

	w.machine.enter(PhaseRecording)
	st := state.ProcessingState{
		KodyOrderID:       order.OrderID,
		HashedKodyOrderID: hash.HashOrderID(order.OrderID),
		PosOrderID:        posOrderID,
		OrderPulledAt:     time.Now().UTC(),
	}
	if err := w.store.InsertIfAbsent(ctx, st); err != nil {
		zap.S().Errorf("Failed to record state for Kody order %s: %s", order.OrderID, err)
		metrics.OrderSyncFailuresTotal.Inc()
		return
	}

	zap.S().Infof("Synced Kody order %s to POS order %s", order.OrderID, posOrderID)
	metrics.OrdersSyncedTotal.Inc()
}

package worker

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/KodyPay/kp-order-sync/internal/metrics"
)

// compactMinDeleted is the smallest sweep worth a VACUUM; smaller sweeps
// skip compaction to avoid rewriting the file for nothing.
const compactMinDeleted = 1

// StateMaintenanceWorker deletes processing-state records older than the
// retention window and compacts the state file after larger sweeps.
type StateMaintenanceWorker struct {
	store     MaintenanceStore
	dbPath    string
	retention time.Duration
	interval  time.Duration
}

func NewStateMaintenanceWorker(store MaintenanceStore, dbPath string,
	retention time.Duration, interval time.Duration) *StateMaintenanceWorker {
	return &StateMaintenanceWorker{
		store:     store,
		dbPath:    dbPath,
		retention: retention,
		interval:  interval,
	}
}

// Run loops until ctx is cancelled. A non-positive retention window or an
// unset db path disables the worker entirely; that is a configuration
// choice, not a failure.
func (w *StateMaintenanceWorker) Run(ctx context.Context) {
	if w.retention <= 0 || w.dbPath == "" {
		zap.S().Warnf("State maintenance worker disabled (retention %s, path %q)", w.retention, w.dbPath)
		return
	}

	zap.S().Infof("State maintenance worker starting, retention %s, running every %s", w.retention, w.interval)
	for {
		if ctx.Err() != nil {
			break
		}
		w.runCycle(ctx)
		if !wait(ctx, w.interval) {
			break
		}
	}
	zap.S().Info("State maintenance worker stopped")
}

func (w *StateMaintenanceWorker) runCycle(ctx context.Context) {
	cutoff := time.Now().Add(-w.retention).UTC()
	zap.S().Infof("Deleting state records last updated before %s", cutoff.Format(time.RFC3339))

	deleted, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		zap.S().Errorf("State maintenance failed: %s", err)
		return
	}
	zap.S().Infof("Deleted %d old state records", deleted)
	metrics.StateRecordsDeletedTotal.Add(float64(deleted))

	if deleted < compactMinDeleted {
		zap.S().Debug("Nothing deleted, skipping compaction")
		return
	}

	sizeBefore := w.fileSize()
	if err := w.store.Compact(ctx); err != nil {
		zap.S().Errorf("Failed to compact state db: %s", err)
		return
	}
	zap.S().Infof("Compacted state db: %d -> %d bytes", sizeBefore, w.fileSize())
}

func (w *StateMaintenanceWorker) fileSize() int64 {
	info, err := os.Stat(w.dbPath)
	if err != nil {
		return 0
	}
	return info.Size()
}

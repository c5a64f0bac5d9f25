package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/KodyPay/kp-order-sync/internal/helper"
)

type fakeMaintenanceStore struct {
	deleted    int64
	deleteErr  error
	lastCutoff time.Time
	compacted  int
}

func (s *fakeMaintenanceStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.lastCutoff = cutoff
	return s.deleted, s.deleteErr
}

func (s *fakeMaintenanceStore) Compact(_ context.Context) error {
	s.compacted++
	return nil
}

func TestMaintenanceDeletesAndCompacts(t *testing.T) {
	helper.InitTestLogging()
	store := &fakeMaintenanceStore{deleted: 5}
	w := NewStateMaintenanceWorker(store, "state.db", 7*24*time.Hour, time.Hour)

	w.runCycle(context.Background())

	assert.Equal(t, 1, store.compacted)
	assert.WithinDuration(t, time.Now().Add(-7*24*time.Hour), store.lastCutoff, time.Minute)
}

func TestMaintenanceSkipsCompactionOnEmptySweep(t *testing.T) {
	helper.InitTestLogging()
	store := &fakeMaintenanceStore{deleted: 0}
	w := NewStateMaintenanceWorker(store, "state.db", 7*24*time.Hour, time.Hour)

	w.runCycle(context.Background())

	assert.Equal(t, 0, store.compacted, "no deletions, no compaction")
}

func TestMaintenanceSkipsCompactionAfterDeleteFailure(t *testing.T) {
	helper.InitTestLogging()
	store := &fakeMaintenanceStore{deleteErr: errors.New("db locked")}
	w := NewStateMaintenanceWorker(store, "state.db", 7*24*time.Hour, time.Hour)

	w.runCycle(context.Background())

	assert.Equal(t, 0, store.compacted)
}

func TestMaintenanceDisabledByConfiguration(t *testing.T) {
	helper.InitTestLogging()

	for name, w := range map[string]*StateMaintenanceWorker{
		"zero retention":     NewStateMaintenanceWorker(&fakeMaintenanceStore{}, "state.db", 0, time.Hour),
		"negative retention": NewStateMaintenanceWorker(&fakeMaintenanceStore{}, "state.db", -time.Hour, time.Hour),
		"empty path":         NewStateMaintenanceWorker(&fakeMaintenanceStore{}, "", 7*24*time.Hour, time.Hour),
	} {
		done := make(chan struct{})
		go func(w *StateMaintenanceWorker) {
			// Never cancelled: a disabled worker must return on its own.
			w.Run(context.Background())
			close(done)
		}(w)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("%s: disabled worker did not return", name)
		}
	}
}

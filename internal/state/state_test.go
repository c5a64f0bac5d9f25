package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KodyPay/kp-order-sync/internal/hash"
	"github.com/KodyPay/kp-order-sync/internal/helper"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	helper.InitTestLogging()
	s, err := Open(filepath.Join(t.TempDir(), "sync_state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newState(kodyID string, pulledAt time.Time) ProcessingState {
	return ProcessingState{
		KodyOrderID:       kodyID,
		HashedKodyOrderID: hash.HashOrderID(kodyID),
		PosOrderID:        "42",
		OrderPulledAt:     pulledAt,
	}
}

func TestInsertIfAbsentIsFirstWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := newState("order-1", time.Now())
	require.NoError(t, s.InsertIfAbsent(ctx, first))

	second := first
	second.PosOrderID = "99"
	require.NoError(t, s.InsertIfAbsent(ctx, second))

	got, err := s.ByKodyID(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "42", got.PosOrderID, "duplicate insert must not overwrite the first record")
}

func TestInsertIfAbsentRejectsEmptyID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.InsertIfAbsent(context.Background(), ProcessingState{}))
}

func TestLookupByHashAndByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := newState("order-1", time.Now())
	require.NoError(t, s.InsertIfAbsent(ctx, st))

	byHash, err := s.ByHash(ctx, hash.HashOrderID("order-1"))
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, "order-1", byHash.KodyOrderID)
	assert.Empty(t, byHash.LastStatusSent)

	missing, err := s.ByKodyID(ctx, "order-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetLastStatusSent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pulled := time.Now().Add(-time.Hour)
	require.NoError(t, s.InsertIfAbsent(ctx, newState("order-1", pulled)))
	before, err := s.ByKodyID(ctx, "order-1")
	require.NoError(t, err)

	require.NoError(t, s.SetLastStatusSent(ctx, "order-1", "CompletedByPOS"))

	after, err := s.ByKodyID(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, "CompletedByPOS", after.LastStatusSent)
	assert.Equal(t, before.OrderPulledAt, after.OrderPulledAt, "pull timestamp must not change")
	assert.Equal(t, before.PosOrderID, after.PosOrderID, "POS id must not change")
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestSetLastStatusSentOnMissingRecordIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetLastStatusSent(ctx, "ghost", "CompletedByPOS"))

	got, err := s.ByKodyID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got, "update must never create a record")
}

func TestMaxPulledAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty, err := s.MaxPulledAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty, "empty store has no watermark")

	older := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)
	newer := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	require.NoError(t, s.InsertIfAbsent(ctx, newState("order-old", older)))
	require.NoError(t, s.InsertIfAbsent(ctx, newState("order-new", newer)))

	got, err := s.MaxPulledAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.UTC().UnixMilli(), got.UnixMilli())
}

func TestDeleteOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		st := newState("old-"+string(rune('a'+i)), time.Now())
		require.NoError(t, s.InsertIfAbsent(ctx, st))
		// Age the record: updated_at is what retention looks at.
		_, err := s.db.ExecContext(ctx,
			`UPDATE order_processing_state SET updated_at = ? WHERE kody_order_id = ?`,
			time.Now().AddDate(0, 0, -10).UnixMilli(), st.KodyOrderID)
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertIfAbsent(ctx, newState("new-"+string(rune('a'+i)), time.Now())))
	}

	deleted, err := s.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.EqualValues(t, 5, deleted)

	for i := 0; i < 5; i++ {
		got, err := s.ByKodyID(ctx, "new-"+string(rune('a'+i)))
		require.NoError(t, err)
		assert.NotNil(t, got, "recent records must survive retention")
	}

	require.NoError(t, s.Compact(ctx))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

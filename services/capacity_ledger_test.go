package services

import (
	"context"
	"testing"

	"accommodation-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(singles, doubles int) *models.VendorRoomPool {
	return &models.VendorRoomPool{
		ID:                   1,
		TenantID:             testTenant,
		EventID:              1,
		SingleRoomsTotal:     singles,
		DoubleRoomsTotal:     doubles,
		SingleRoomsAvailable: singles,
		DoubleRoomsAvailable: doubles,
	}
}

func TestLedgerReserve(t *testing.T) {
	l := NewCapacityLedger(NewAllocationStore())
	pool := newPool(1, 1)

	require.NoError(t, l.Reserve(pool, models.RoomSingle, 1))
	assert.Equal(t, 0, pool.SingleRoomsAvailable)
	assert.Equal(t, 1, pool.CurrentOccupants)

	require.NoError(t, l.Reserve(pool, models.RoomDouble, 2))
	assert.Equal(t, 0, pool.DoubleRoomsAvailable, "one double per room, not per occupant")
	assert.Equal(t, 3, pool.CurrentOccupants)

	before := *pool
	err := l.Reserve(pool, models.RoomSingle, 1)
	assert.ErrorIs(t, err, ErrCapacityExhausted)
	err = l.Reserve(pool, models.RoomDouble, 1)
	assert.ErrorIs(t, err, ErrCapacityExhausted)
	assert.Equal(t, before, *pool, "failed reserve leaves counters alone")
}

func TestLedgerReserveRejectsBadOccupancy(t *testing.T) {
	l := NewCapacityLedger(NewAllocationStore())
	pool := newPool(2, 2)

	assert.ErrorIs(t, l.Reserve(pool, models.RoomSingle, 2), ErrInvalidRequest)
	assert.ErrorIs(t, l.Reserve(pool, models.RoomDouble, 3), ErrInvalidRequest)
	assert.ErrorIs(t, l.Reserve(pool, models.RoomDouble, 0), ErrInvalidRequest)
	assert.ErrorIs(t, l.Reserve(pool, models.RoomType("suite"), 1), ErrInvalidRequest)
	assert.Equal(t, 0, pool.CurrentOccupants)
}

func TestLedgerJoinDoubleRespectsCapacityEquivalent(t *testing.T) {
	l := NewCapacityLedger(NewAllocationStore())
	pool := newPool(0, 1)

	require.NoError(t, l.Reserve(pool, models.RoomDouble, 1))
	require.NoError(t, l.JoinDouble(pool))
	assert.Equal(t, 2, pool.CurrentOccupants)
	assert.ErrorIs(t, l.JoinDouble(pool), ErrCapacityExhausted)
}

func TestLedgerReleaseClamps(t *testing.T) {
	l := NewCapacityLedger(NewAllocationStore())
	pool := newPool(1, 1)

	l.Release(pool, models.RoomSingle, 1)
	assert.Equal(t, 1, pool.SingleRoomsAvailable, "clamped to configured total")
	assert.Equal(t, 0, pool.CurrentOccupants, "clamped at zero")

	require.NoError(t, l.Reserve(pool, models.RoomDouble, 2))
	l.Release(pool, models.RoomDouble, 2)
	assert.Equal(t, 1, pool.DoubleRoomsAvailable)
	assert.Equal(t, 0, pool.CurrentOccupants)
}

func TestLedgerConvertDoubleToSingle(t *testing.T) {
	l := NewCapacityLedger(NewAllocationStore())
	pool := newPool(1, 1)
	require.NoError(t, l.Reserve(pool, models.RoomDouble, 2))

	require.True(t, l.ConvertDoubleToSingle(pool))
	assert.Equal(t, 0, pool.SingleRoomsAvailable)
	assert.Equal(t, 1, pool.DoubleRoomsAvailable)
	assert.Equal(t, 1, pool.CurrentOccupants)

	full := newPool(0, 1)
	require.NoError(t, l.Reserve(full, models.RoomDouble, 2))
	before := *full
	assert.False(t, l.ConvertDoubleToSingle(full))
	assert.Equal(t, before, *full)
}

func TestLedgerRoomCounters(t *testing.T) {
	l := NewCapacityLedger(NewAllocationStore())
	room := &models.Room{Capacity: 1}

	require.NoError(t, l.ReserveRoom(room))
	assert.ErrorIs(t, l.ReserveRoom(room), ErrCapacityExhausted)
	l.ReleaseRoom(room)
	l.ReleaseRoom(room)
	assert.Equal(t, 0, room.CurrentOccupants)
}

func TestRemainingCapacityCountsLiveRows(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "M2", models.GenderMale),
		visitor(3, "F1", models.GenderFemale),
	)
	e.seedPool(t, 7, 2, 2)

	e.book(t, 1, 7, models.RoomDouble)
	e.book(t, 2, 7, models.RoomDouble) // joins M1
	e.book(t, 3, 7, models.RoomSingle)

	snap := e.capacity(t, 7)
	assert.Equal(t, 1, snap.SingleUsed)
	assert.Equal(t, 1, snap.DoubleUsed)
	assert.Equal(t, 1, snap.SingleRemaining)
	assert.Equal(t, 1, snap.DoubleRemaining)
	assert.Equal(t, 3, snap.Occupants)
	assert.Equal(t, 6, snap.CapacityEquivalent)
	assert.Equal(t, 3, snap.BedsRemaining)
	assert.False(t, snap.CounterDrift)
}

func TestReconcileRewritesDriftedCounters(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	e.seedPool(t, 7, 2, 1)
	e.book(t, 1, 7, models.RoomSingle)

	require.NoError(t, e.db.Model(&models.VendorRoomPool{}).
		Where("event_id = ?", 7).
		Updates(map[string]interface{}{"single_rooms_available": 0, "current_occupants": 5}).Error)
	assert.True(t, e.capacity(t, 7).CounterDrift)

	snap, err := e.svc.ReconcileEvent(context.Background(), testTenant, 7)
	require.NoError(t, err)
	assert.False(t, snap.CounterDrift)

	pool := e.pool(t, 7)
	assert.Equal(t, 1, pool.SingleRoomsAvailable)
	assert.Equal(t, 1, pool.DoubleRoomsAvailable)
	assert.Equal(t, 1, pool.CurrentOccupants)
}

package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"accommodation-backend/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveRows(t *testing.T, e *engine, eventID uint) []models.Allocation {
	t.Helper()
	var rows []models.Allocation
	require.NoError(t, e.db.
		Where("tenant_id = ? AND event_id = ? AND status IN ?", testTenant, eventID, activeStatuses).
		Order("participant_id ASC").
		Find(&rows).Error)
	return rows
}

func roommates(rows []models.Allocation) map[uint]uint {
	byID := make(map[uint]models.Allocation, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	pairs := make(map[uint]uint)
	for _, r := range rows {
		if r.LinkedAllocationID != nil {
			pairs[r.ParticipantID] = byID[*r.LinkedAllocationID].ParticipantID
		}
	}
	return pairs
}

func TestRefreshEventBookingPlacesRoster(t *testing.T) {
	e := newEngine(t,
		lead(1, "F", models.RoleFacilitator, models.GenderMale),
		visitor(2, "M1", models.GenderMale),
		visitor(3, "M2", models.GenderMale),
		visitor(4, "Fe1", models.GenderFemale),
	)
	e.seedPool(t, 10, 2, 1)

	stats, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	require.NoError(t, err)

	assert.Equal(t, modeRefresh, stats.Mode)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 4, stats.Placed)
	assert.Equal(t, 0, stats.Unplaced)
	assert.Equal(t, 2, stats.SinglesUsed)
	assert.Equal(t, 1, stats.DoublesUsed)
	assert.Equal(t, 0, stats.Voided)

	rows := liveRows(t, e, 10)
	require.Len(t, rows, 4)
	assert.Equal(t, models.RoomSingle, rows[0].RoomType)
	assert.Equal(t, models.RoomDouble, rows[1].RoomType)
	assert.Equal(t, models.RoomDouble, rows[2].RoomType)
	assert.Equal(t, models.RoomSingle, rows[3].RoomType)
	assert.Equal(t, map[uint]uint{2: 3, 3: 2}, roommates(rows))
	for _, r := range rows {
		assert.Contains(t, r.Notes, "assigned by refresh")
	}

	snap := e.capacity(t, 10)
	assert.Equal(t, 0, snap.SingleRemaining)
	assert.Equal(t, 0, snap.DoubleRemaining)
	assert.False(t, snap.CounterDrift)

	require.Eventually(t, func() bool { return e.notifier.count() == 4 }, time.Second, 10*time.Millisecond)
}

func TestRefreshReportsUnplaced(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	e.seedPool(t, 10, 0, 1)

	stats, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Placed)
	require.Len(t, stats.UnplacedParticipants, 1)
	assert.Equal(t, reasonNoSingleRooms, stats.UnplacedParticipants[0].Reason)

	pool := e.pool(t, 10)
	assert.Equal(t, 0, pool.SingleRoomsAvailable)
	assert.Equal(t, 1, pool.DoubleRoomsAvailable)
	assert.Equal(t, 0, pool.CurrentOccupants)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Unplaced.WithLabelValues(modeRefresh)))
}

func TestRefreshIsRepeatable(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "F1", models.GenderFemale),
		visitor(3, "M2", models.GenderMale),
		visitor(4, "F2", models.GenderFemale),
		visitor(5, "M3", models.GenderMale),
	)
	e.seedPool(t, 10, 1, 2)
	ctx := context.Background()

	first, err := e.svc.RefreshEventBooking(ctx, testTenant, 10)
	require.NoError(t, err)
	pairsBefore := roommates(liveRows(t, e, 10))

	second, err := e.svc.RefreshEventBooking(ctx, testTenant, 10)
	require.NoError(t, err)
	pairsAfter := roommates(liveRows(t, e, 10))

	assert.Equal(t, first.Placed, second.Voided)
	assert.Equal(t, first.Placed, second.Placed)
	assert.Equal(t, pairsBefore, pairsAfter)
	assert.Equal(t, map[uint]uint{1: 3, 3: 1, 2: 4, 4: 2}, pairsAfter)
	assert.NotEqual(t, first.RunID, second.RunID)

	var cancelled int64
	require.NoError(t, e.db.Model(&models.Allocation{}).Where("status = ?", models.StatusCancelled).Count(&cancelled).Error)
	assert.Equal(t, int64(first.Placed), cancelled)
	assert.False(t, e.capacity(t, 10).CounterDrift)
}

func TestRefreshVoidsManualBookings(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "M2", models.GenderMale),
	)
	e.seedPool(t, 10, 2, 1)
	manual := e.book(t, 1, 10, models.RoomSingle)

	stats, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Voided)
	assert.Equal(t, 2, stats.Placed)

	old := e.allocation(t, manual.ID)
	assert.Equal(t, models.StatusCancelled, old.Status)
	assert.Contains(t, old.Notes, "voided by refresh")
}

func TestRefreshSkipsHoldersInOtherEvents(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "F1", models.GenderFemale),
	)
	e.seedPool(t, 10, 2, 0)
	e.seedPool(t, 20, 1, 0)
	e.book(t, 1, 20, models.RoomSingle)

	stats, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Placed)
	require.Len(t, stats.UnplacedParticipants, 1)
	assert.Equal(t, uint(1), stats.UnplacedParticipants[0].ParticipantID)
	assert.Equal(t, reasonDuplicateBooking, stats.UnplacedParticipants[0].Reason)
}

func TestRefreshIgnoresUnconfirmedParticipants(t *testing.T) {
	declined := visitor(2, "D", models.GenderMale)
	declined.Status = models.ParticipationDeclined
	e := newEngine(t, visitor(1, "M1", models.GenderMale), declined)
	e.seedPool(t, 10, 2, 0)

	stats, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Placed)
	assert.Equal(t, 0, stats.Unplaced)
}

func TestRefreshWithoutPool(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))

	_, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	assert.ErrorIs(t, err, ErrNoPoolConfigured)

	var runs int64
	require.NoError(t, e.db.Model(&models.RefreshRun{}).Count(&runs).Error)
	assert.Zero(t, runs)
}

func TestRefreshRecordsRun(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	e.seedPool(t, 10, 1, 0)

	stats, err := e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	require.NoError(t, err)

	var run models.RefreshRun
	require.NoError(t, e.db.Where("run_id = ?", stats.RunID).First(&run).Error)
	assert.Equal(t, testTenant, run.TenantID)
	assert.Equal(t, uint(10), run.EventID)
	assert.Equal(t, modeRefresh, run.Mode)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	var stored RefreshStats
	require.NoError(t, json.Unmarshal(run.Stats, &stored))
	assert.Equal(t, stats.Placed, stored.Placed)
}

func TestRefreshRejectsConcurrentRefresh(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	e.seedPool(t, 10, 1, 0)

	release, err := e.locks.AcquireExclusive(poolLockKey(testTenant, 10))
	require.NoError(t, err)
	defer release()

	_, err = e.svc.RefreshEventBooking(context.Background(), testTenant, 10)
	assert.ErrorIs(t, err, ErrRefreshInProgress)
	_, err = e.svc.AssignPending(context.Background(), testTenant, 10)
	assert.ErrorIs(t, err, ErrRefreshInProgress)
}

func TestAssignPendingKeepsExistingBookings(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "M2", models.GenderMale),
		visitor(3, "M3", models.GenderMale),
	)
	e.seedPool(t, 10, 2, 2)
	manual := e.book(t, 1, 10, models.RoomSingle)

	stats, err := e.svc.AssignPending(context.Background(), testTenant, 10)
	require.NoError(t, err)

	assert.Equal(t, modeAssign, stats.Mode)
	assert.Equal(t, 0, stats.Voided)
	assert.Equal(t, 2, stats.Placed)
	assert.Equal(t, 1, stats.DoublesUsed)
	assert.Empty(t, stats.UnplacedParticipants)

	kept := e.allocation(t, manual.ID)
	assert.Equal(t, models.StatusBooked, kept.Status)

	rows := liveRows(t, e, 10)
	require.Len(t, rows, 3)
	assert.Equal(t, map[uint]uint{2: 3, 3: 2}, roommates(rows))

	pool := e.pool(t, 10)
	assert.Equal(t, 1, pool.SingleRoomsAvailable)
	assert.Equal(t, 1, pool.DoubleRoomsAvailable)
	assert.Equal(t, 3, pool.CurrentOccupants)

	again, err := e.svc.AssignPending(context.Background(), testTenant, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Placed)
}

func TestAssignPendingRepairsDriftFirst(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	e.seedPool(t, 10, 1, 0)

	// a stale cache claims the only single is taken
	require.NoError(t, e.db.Model(&models.VendorRoomPool{}).
		Where("event_id = ?", 10).
		Update("single_rooms_available", 0).Error)

	stats, err := e.svc.AssignPending(context.Background(), testTenant, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Placed)
	assert.Equal(t, 0, e.pool(t, 10).SingleRoomsAvailable)
}

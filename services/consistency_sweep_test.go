package services

import (
	"context"
	"testing"
	"time"

	"accommodation-backend/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistencySweepRepairsCounters(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "M2", models.GenderMale),
	)
	e.seedPool(t, 10, 2, 1)
	e.seedPool(t, 20, 1, 1)
	room := e.seedRoom(t, 2)
	e.book(t, 1, 10, models.RoomSingle)
	_, err := e.svc.CreateAllocation(context.Background(), testTenant, 2, 10, AccommodationRequest{
		AccommodationType: models.AccommodationGuesthouse,
		RoomID:            &room.ID,
	})
	require.NoError(t, err)

	require.NoError(t, e.db.Model(&models.VendorRoomPool{}).Where("event_id = ?", 10).
		Update("current_occupants", 9).Error)
	require.NoError(t, e.db.Model(&models.Room{}).Where("id = ?", room.ID).
		Update("current_occupants", 0).Error)

	sweep := NewConsistencySweep(e.db, e.locks, e.metrics)
	res, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.PoolsChecked)
	assert.Equal(t, 1, res.PoolsFixed)
	assert.Equal(t, 1, res.RoomsChecked)
	assert.Equal(t, 1, res.RoomsFixed)
	assert.Equal(t, 1, e.pool(t, 10).CurrentOccupants)
	assert.Equal(t, 1, e.room(t, room.ID).CurrentOccupants)
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.ReconcileFixes))

	res, err = sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.PoolsFixed)
	assert.Zero(t, res.RoomsFixed)
}

func TestConsistencySweepSkipsPoolsUnderRefresh(t *testing.T) {
	e := newEngine(t)
	e.seedPool(t, 10, 1, 0)

	release, err := e.locks.AcquireExclusive(poolLockKey(testTenant, 10))
	require.NoError(t, err)
	defer release()

	res, err := NewConsistencySweep(e.db, e.locks, e.metrics).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.PoolsSkipped)
	assert.Zero(t, res.PoolsChecked)
}

func TestConsistencySweepSchedule(t *testing.T) {
	e := newEngine(t)
	sweep := NewConsistencySweep(e.db, e.locks, e.metrics)
	c := cron.New(cron.WithLocation(time.UTC))

	id, err := sweep.Schedule(c, "@every 15m")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = sweep.Schedule(c, "not a schedule")
	assert.Error(t, err)
}

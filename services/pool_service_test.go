package services

import (
	"context"
	"testing"

	"accommodation-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEventVendorPoolCreates(t *testing.T) {
	e := newEngine(t)
	pool := e.seedPool(t, 10, 3, 2)

	assert.Equal(t, 3, pool.SingleRoomsAvailable)
	assert.Equal(t, 2, pool.DoubleRoomsAvailable)
	assert.Equal(t, 0, pool.CurrentOccupants)
	assert.Equal(t, 7, pool.CapacityEquivalent())

	got, err := e.pools.GetEventVendorPool(context.Background(), testTenant, 10)
	require.NoError(t, err)
	assert.Equal(t, pool.ID, got.ID)
}

func TestUpsertEventVendorPoolResizeKeepsUsage(t *testing.T) {
	e := newEngine(t,
		visitor(1, "M1", models.GenderMale),
		visitor(2, "M2", models.GenderMale),
	)
	pool := e.seedPool(t, 10, 2, 2)
	e.book(t, 1, 10, models.RoomSingle)
	e.book(t, 2, 10, models.RoomDouble)
	ctx := context.Background()

	resized, err := e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{
		VendorAccommodationID: pool.VendorAccommodationID,
		SingleRoomsTotal:      4,
		DoubleRoomsTotal:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, pool.ID, resized.ID)
	assert.Equal(t, 3, resized.SingleRoomsAvailable)
	assert.Equal(t, 0, resized.DoubleRoomsAvailable)
	assert.Equal(t, 2, resized.CurrentOccupants)

	_, err = e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{
		VendorAccommodationID: pool.VendorAccommodationID,
		SingleRoomsTotal:      0,
		DoubleRoomsTotal:      1,
	})
	assert.ErrorIs(t, err, ErrPoolInUse)

	other, err := e.pools.CreateVendor(ctx, testTenant, VendorInput{Name: "Elsewhere"})
	require.NoError(t, err)
	_, err = e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{
		VendorAccommodationID: other.ID,
		SingleRoomsTotal:      4,
		DoubleRoomsTotal:      1,
	})
	assert.ErrorIs(t, err, ErrPoolInUse)
}

func TestUpsertEventVendorPoolValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{VendorAccommodationID: 1, SingleRoomsTotal: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{SingleRoomsTotal: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{VendorAccommodationID: 99, SingleRoomsTotal: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := e.pools.CreateVendor(ctx, "tenant-b", VendorInput{Name: "Foreign"})
	require.NoError(t, err)
	_, err = e.pools.UpsertEventVendorPool(ctx, testTenant, 10, VendorPoolInput{VendorAccommodationID: v.ID, SingleRoomsTotal: 1})
	assert.ErrorIs(t, err, ErrNotFound, "vendors of another tenant are invisible")
}

func TestDeleteEventVendorPool(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	e.seedPool(t, 10, 1, 0)
	a := e.book(t, 1, 10, models.RoomSingle)
	ctx := context.Background()

	assert.ErrorIs(t, e.pools.DeleteEventVendorPool(ctx, testTenant, 10), ErrPoolInUse)

	_, err := e.svc.CancelAllocation(ctx, testTenant, a.ID)
	require.NoError(t, err)
	require.NoError(t, e.pools.DeleteEventVendorPool(ctx, testTenant, 10))

	_, err = e.pools.GetEventVendorPool(ctx, testTenant, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.pools.DeleteEventVendorPool(ctx, testTenant, 10), ErrNotFound)
}

func TestVendorsAndGuestHouses(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.pools.CreateVendor(ctx, testTenant, VendorInput{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.pools.CreateVendor(ctx, testTenant, VendorInput{Name: "Beta Inn"})
	require.NoError(t, err)
	_, err = e.pools.CreateVendor(ctx, testTenant, VendorInput{Name: "Alpha Lodge"})
	require.NoError(t, err)

	vendors, err := e.pools.ListVendors(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Alpha Lodge", vendors[0].Name)

	gh, err := e.pools.CreateGuestHouse(ctx, testTenant, GuestHouseInput{Name: "Campus House"})
	require.NoError(t, err)
	_, err = e.pools.CreateRoom(ctx, testTenant, gh.ID, RoomInput{RoomNumber: "B2", Capacity: 2})
	require.NoError(t, err)
	_, err = e.pools.CreateRoom(ctx, testTenant, gh.ID, RoomInput{RoomNumber: "A1", Capacity: 1})
	require.NoError(t, err)

	_, err = e.pools.CreateRoom(ctx, testTenant, gh.ID, RoomInput{RoomNumber: "C3", Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = e.pools.CreateRoom(ctx, testTenant, gh.ID+100, RoomInput{RoomNumber: "C3", Capacity: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	houses, err := e.pools.ListGuestHouses(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, houses, 1)
	require.Len(t, houses[0].Rooms, 2)
	assert.Equal(t, "A1", houses[0].Rooms[0].RoomNumber)

	rooms, err := e.pools.ListRooms(ctx, testTenant, gh.ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	others, err := e.pools.ListGuestHouses(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestDeleteRoom(t *testing.T) {
	e := newEngine(t, visitor(1, "M1", models.GenderMale))
	room := e.seedRoom(t, 2)
	ctx := context.Background()

	a, err := e.svc.CreateAllocation(ctx, testTenant, 1, 10, AccommodationRequest{
		AccommodationType: models.AccommodationGuesthouse,
		RoomID:            &room.ID,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, e.pools.DeleteRoom(ctx, testTenant, room.ID), ErrPoolInUse)

	_, err = e.svc.CancelAllocation(ctx, testTenant, a.ID)
	require.NoError(t, err)
	require.NoError(t, e.pools.DeleteRoom(ctx, testTenant, room.ID))
	assert.ErrorIs(t, e.pools.DeleteRoom(ctx, testTenant, room.ID), ErrNotFound)
}

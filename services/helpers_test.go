package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"accommodation-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testTenant = "tenant-a"

// newTestDB opens a private in-memory database. One connection keeps every
// statement on the same SQLite memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.VendorAccommodation{},
		&models.VendorRoomPool{},
		&models.GuestHouse{},
		&models.Room{},
		&models.EventParticipant{},
		&models.Allocation{},
		&models.RefreshRun{},
	))
	return db
}

// ---------------------------
// Fakes
// ---------------------------

type fakeRoster struct {
	mu     sync.Mutex
	people map[uint]models.Occupant
}

func newFakeRoster(people ...models.Occupant) *fakeRoster {
	r := &fakeRoster{people: make(map[uint]models.Occupant)}
	for _, p := range people {
		r.add(p)
	}
	return r
}

func (r *fakeRoster) add(o models.Occupant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.Status == "" {
		o.Status = models.ParticipationConfirmed
	}
	o.StayingAtVenue = true
	r.people[o.ParticipantID] = o
}

func (r *fakeRoster) GetConfirmedRoster(_ context.Context, _ string, _ uint) ([]models.Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Occupant, 0, len(r.people))
	for _, o := range r.people {
		if o.Status == models.ParticipationConfirmed && o.StayingAtVenue {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

func (r *fakeRoster) GetOccupant(_ context.Context, _ string, eventID, participantID uint) (models.Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.people[participantID]
	if !ok {
		return models.Occupant{}, fmt.Errorf("%w: participant %d in event %d", ErrNotFound, participantID, eventID)
	}
	return o, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.Allocation
	err   error
}

func (n *recordingNotifier) NotifyAllocationChanged(_ context.Context, a models.Allocation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, a)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// ---------------------------
// Fixture
// ---------------------------

type engine struct {
	db       *gorm.DB
	svc      *AllocationService
	pools    *PoolService
	roster   *fakeRoster
	notifier *recordingNotifier
	metrics  *Metrics
	locks    *EventLocks
	registry *prometheus.Registry
}

func newEngine(t *testing.T, people ...models.Occupant) *engine {
	t.Helper()
	db := newTestDB(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	locks := NewEventLocks(0)
	roster := newFakeRoster(people...)
	notifier := &recordingNotifier{}
	return &engine{
		db:       db,
		svc:      NewAllocationService(db, roster, notifier, locks, m),
		pools:    NewPoolService(db, locks),
		roster:   roster,
		notifier: notifier,
		metrics:  m,
		locks:    locks,
		registry: reg,
	}
}

func (e *engine) seedPool(t *testing.T, eventID uint, singles, doubles int) *models.VendorRoomPool {
	t.Helper()
	ctx := context.Background()
	v, err := e.pools.CreateVendor(ctx, testTenant, VendorInput{Name: "Riverside Hotel"})
	require.NoError(t, err)
	pool, err := e.pools.UpsertEventVendorPool(ctx, testTenant, eventID, VendorPoolInput{
		VendorAccommodationID: v.ID,
		SingleRoomsTotal:      singles,
		DoubleRoomsTotal:      doubles,
	})
	require.NoError(t, err)
	return pool
}

func (e *engine) seedRoom(t *testing.T, capacity int) *models.Room {
	t.Helper()
	ctx := context.Background()
	gh, err := e.pools.CreateGuestHouse(ctx, testTenant, GuestHouseInput{Name: "Hill House"})
	require.NoError(t, err)
	room, err := e.pools.CreateRoom(ctx, testTenant, gh.ID, RoomInput{RoomNumber: fmt.Sprintf("R%d", gh.ID), Capacity: capacity})
	require.NoError(t, err)
	return room
}

func (e *engine) pool(t *testing.T, eventID uint) *models.VendorRoomPool {
	t.Helper()
	p, err := e.svc.store.FindPool(e.db, testTenant, eventID)
	require.NoError(t, err)
	return p
}

func (e *engine) room(t *testing.T, id uint) models.Room {
	t.Helper()
	var r models.Room
	require.NoError(t, e.db.First(&r, id).Error)
	return r
}

func (e *engine) allocation(t *testing.T, id uint) *models.Allocation {
	t.Helper()
	a, err := e.svc.GetAllocation(context.Background(), testTenant, id)
	require.NoError(t, err)
	return a
}

func (e *engine) capacity(t *testing.T, eventID uint) CapacitySnapshot {
	t.Helper()
	snap, err := e.svc.GetRemainingCapacity(context.Background(), testTenant, eventID)
	require.NoError(t, err)
	return snap
}

func (e *engine) book(t *testing.T, participantID, eventID uint, rt models.RoomType) *models.Allocation {
	t.Helper()
	a, err := e.svc.CreateAllocation(context.Background(), testTenant, participantID, eventID, AccommodationRequest{
		AccommodationType: models.AccommodationVendor,
		RoomType:          rt,
	})
	require.NoError(t, err)
	return a
}

// ---------------------------
// Occupants
// ---------------------------

func visitor(id uint, name string, g models.Gender) models.Occupant {
	return models.Occupant{
		ParticipantID: id,
		Name:          name,
		Email:         fmt.Sprintf("p%d@example.com", id),
		Gender:        g,
		Role:          models.RoleVisitor,
		Status:        models.ParticipationConfirmed,
	}
}

func lead(id uint, name string, role models.Role, g models.Gender) models.Occupant {
	o := visitor(id, name, g)
	o.Role = role
	return o
}

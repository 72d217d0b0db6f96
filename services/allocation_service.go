// services/allocation_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"accommodation-backend/models"
	"accommodation-backend/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AllocationService is the engine's entry point. Every capacity-mutating
// call takes the unit's key in EventLocks, then runs one transaction that
// re-reads the unit row under a row lock.
type AllocationService struct {
	DB       *gorm.DB
	store    *AllocationStore
	ledger   *CapacityLedger
	locks    *EventLocks
	roster   RosterProvider
	notifier Notifier
	metrics  *Metrics
	now      func() time.Time
	log      *logrus.Entry
}

func NewAllocationService(db *gorm.DB, roster RosterProvider, notifier Notifier, locks *EventLocks, metrics *Metrics) *AllocationService {
	store := NewAllocationStore()
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if locks == nil {
		locks = NewEventLocks(0)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &AllocationService{
		DB:       db,
		store:    store,
		ledger:   NewCapacityLedger(store),
		locks:    locks,
		roster:   roster,
		notifier: notifier,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
		log:      utils.Logger.WithField("component", "allocation_service"),
	}
}

// AccommodationRequest is what a caller asks for.
//
// Guesthouse bookings name a RoomID and may ask for RoomSingle to hold a
// shared room alone. Vendor bookings name a RoomType; a
// double may name ShareWithAllocationID to join a specific roommate,
// otherwise the occupant joins the oldest open double of the same gender or
// opens a new one.
type AccommodationRequest struct {
	AccommodationType     models.AccommodationType
	RoomID                *uint
	RoomType              models.RoomType
	ShareWithAllocationID *uint
	CheckInDate           *time.Time
	CheckOutDate          *time.Time
	Notes                 string
}

func (r *AccommodationRequest) normalize() error {
	if !r.AccommodationType.Valid() {
		return fmt.Errorf("%w: accommodation_type must be guesthouse or vendor", ErrInvalidRequest)
	}
	if r.RoomType == "" && r.AccommodationType == models.AccommodationVendor {
		r.RoomType = models.RoomSingle
		if r.ShareWithAllocationID != nil {
			r.RoomType = models.RoomDouble
		}
	}
	if r.RoomType != "" && !r.RoomType.Valid() {
		return fmt.Errorf("%w: room_type must be single or double", ErrInvalidRequest)
	}
	switch r.AccommodationType {
	case models.AccommodationGuesthouse:
		if r.RoomID == nil || *r.RoomID == 0 {
			return fmt.Errorf("%w: room_id is required for guesthouse bookings", ErrInvalidRequest)
		}
	case models.AccommodationVendor:
		if r.RoomID != nil {
			return fmt.Errorf("%w: room_id is not used for vendor bookings", ErrInvalidRequest)
		}
		if r.ShareWithAllocationID != nil && r.RoomType != models.RoomDouble {
			return fmt.Errorf("%w: sharing requires a double room", ErrInvalidRequest)
		}
	}
	if r.CheckInDate != nil && r.CheckOutDate != nil && r.CheckOutDate.Before(*r.CheckInDate) {
		return fmt.Errorf("%w: check_out_date is before check_in_date", ErrInvalidRequest)
	}
	return nil
}

func (s *AllocationService) lockKey(tenantID string, eventID uint, req AccommodationRequest) string {
	if req.AccommodationType == models.AccommodationGuesthouse {
		return roomLockKey(tenantID, *req.RoomID)
	}
	return poolLockKey(tenantID, eventID)
}

// CreateAllocation books one participant. Nothing is persisted on error.
func (s *AllocationService) CreateAllocation(ctx context.Context, tenantID string, participantID, eventID uint, req AccommodationRequest) (*models.Allocation, error) {
	alloc, err := s.createAllocation(ctx, tenantID, participantID, eventID, req)
	if err != nil {
		s.metrics.reject(err)
		return nil, err
	}
	return alloc, nil
}

func (s *AllocationService) createAllocation(ctx context.Context, tenantID string, participantID, eventID uint, req AccommodationRequest) (*models.Allocation, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	occupant, err := s.roster.GetOccupant(ctx, tenantID, eventID, participantID)
	if err != nil {
		return nil, err
	}
	if occupant.Status != models.ParticipationConfirmed {
		return nil, fmt.Errorf("%w: participant %d is %s", ErrParticipantNotConfirmed, participantID, occupant.Status)
	}

	release, err := s.locks.Acquire(s.lockKey(tenantID, eventID, req))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		alloc   *models.Allocation
		partner *models.Allocation
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.store.FindActiveByParticipant(tx, tenantID, participantID, req.AccommodationType)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: participant %d already holds allocation %d", ErrDuplicateBooking, participantID, existing.ID)
		}

		alloc = &models.Allocation{
			TenantID:          tenantID,
			EventID:           eventID,
			ParticipantID:     participantID,
			AccommodationType: req.AccommodationType,
			CheckInDate:       req.CheckInDate,
			CheckOutDate:      req.CheckOutDate,
			Notes:             req.Notes,
			OccupantName:      occupant.Name,
			OccupantEmail:     occupant.Email,
			OccupantGender:    occupant.Gender,
			OccupantRole:      occupant.Role,
		}

		switch req.AccommodationType {
		case models.AccommodationVendor:
			partner, err = s.bookVendor(tx, alloc, occupant, req)
		case models.AccommodationGuesthouse:
			partner, err = s.bookGuesthouse(tx, alloc, occupant, *req.RoomID, req.RoomType)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AllocationsCreated.WithLabelValues(string(alloc.AccommodationType), string(alloc.RoomType)).Inc()
	s.log.WithFields(logrus.Fields{
		"tenant":         tenantID,
		"event_id":       eventID,
		"participant_id": participantID,
		"allocation_id":  alloc.ID,
		"room_type":      alloc.RoomType,
		"linked":         alloc.LinkedAllocationID != nil,
	}).Info("allocation created")

	s.notify(*alloc)
	if partner != nil {
		s.notify(*partner)
	}
	return alloc, nil
}

// bookVendor places alloc into the event's vendor pool. It returns the
// roommate allocation when alloc was linked to one.
func (s *AllocationService) bookVendor(tx *gorm.DB, alloc *models.Allocation, occupant models.Occupant, req AccommodationRequest) (*models.Allocation, error) {
	pool, err := s.store.LockPool(tx, alloc.TenantID, alloc.EventID)
	if err != nil {
		return nil, err
	}
	alloc.PoolID = &pool.ID
	if alloc.CheckInDate == nil {
		alloc.CheckInDate = pool.CheckInDate
	}
	if alloc.CheckOutDate == nil {
		alloc.CheckOutDate = pool.CheckOutDate
	}

	roomType := req.RoomType
	if occupant.Leads() {
		if req.ShareWithAllocationID != nil {
			return nil, fmt.Errorf("%w: %s occupants do not share rooms", ErrIncompatibleGender, occupant.Role)
		}
		roomType = models.RoomSingle
	}
	alloc.RoomType = roomType

	var partner *models.Allocation
	switch roomType {
	case models.RoomSingle:
		if err := s.ledger.Reserve(pool, models.RoomSingle, 1); err != nil {
			return nil, err
		}
		if err := s.store.Create(tx, alloc); err != nil {
			return nil, err
		}

	case models.RoomDouble:
		partner, err = s.findVendorRoommate(tx, pool, occupant, req.ShareWithAllocationID)
		if err != nil {
			return nil, err
		}
		if partner == nil {
			if err := s.ledger.Reserve(pool, models.RoomDouble, 1); err != nil {
				return nil, err
			}
			if err := s.store.Create(tx, alloc); err != nil {
				return nil, err
			}
			break
		}
		if err := s.ledger.JoinDouble(pool); err != nil {
			return nil, err
		}
		if err := s.store.Create(tx, alloc); err != nil {
			return nil, err
		}
		if err := s.store.Link(tx, alloc, partner); err != nil {
			return nil, err
		}
	}

	return partner, s.store.SavePoolCounters(tx, pool)
}

// findVendorRoommate resolves the half-empty double the occupant moves into,
// or nil when a new double should be opened.
func (s *AllocationService) findVendorRoommate(tx *gorm.DB, pool *models.VendorRoomPool, occupant models.Occupant, shareWith *uint) (*models.Allocation, error) {
	if shareWith != nil {
		partner, err := s.store.Lock(tx, pool.TenantID, *shareWith)
		if err != nil {
			return nil, err
		}
		if partner.PoolID == nil || *partner.PoolID != pool.ID || !partner.Status.Active() || partner.RoomType != models.RoomDouble {
			return nil, fmt.Errorf("%w: allocation %d is not an open double in this event's pool", ErrInvalidRequest, partner.ID)
		}
		if partner.LinkedAllocationID != nil {
			return nil, fmt.Errorf("%w: allocation %d already has a roommate", ErrCapacityExhausted, partner.ID)
		}
		if !CanJoin(occupant, []models.Occupant{partner.Occupant()}) {
			return nil, fmt.Errorf("%w: %s occupant cannot join %s occupant", ErrIncompatibleGender, occupant.Gender, partner.OccupantGender)
		}
		return partner, nil
	}

	// other/unknown open a double alone and are never joined
	if !occupant.Gender.Binary() {
		return nil, nil
	}
	open, err := s.store.OpenDoubles(tx, pool.TenantID, pool.ID, occupant.Gender)
	if err != nil {
		return nil, err
	}
	for i := range open {
		if CanJoin(occupant, []models.Occupant{open[i].Occupant()}) {
			return s.store.Lock(tx, pool.TenantID, open[i].ID)
		}
	}
	return nil, nil
}

// bookGuesthouse places alloc into a specific guesthouse room. An empty
// roomType takes the room as built; RoomSingle holds a shared room alone.
func (s *AllocationService) bookGuesthouse(tx *gorm.DB, alloc *models.Allocation, occupant models.Occupant, roomID uint, roomType models.RoomType) (*models.Allocation, error) {
	room, err := s.store.LockRoom(tx, alloc.TenantID, roomID)
	if err != nil {
		return nil, err
	}
	present, err := s.store.ActiveInRoom(tx, alloc.TenantID, room.ID)
	if err != nil {
		return nil, err
	}

	if len(present) > 0 {
		if occupant.Leads() {
			return nil, fmt.Errorf("%w: %s occupants need an empty room", ErrCapacityExhausted, occupant.Role)
		}
		if RequiresSingle(occupant, len(present)) {
			return nil, fmt.Errorf("%w: %s occupant cannot share room %s", ErrIncompatibleGender, occupant.Gender, room.RoomNumber)
		}
		if roomType == models.RoomSingle {
			return nil, fmt.Errorf("%w: room %s is already occupied", ErrCapacityExhausted, room.RoomNumber)
		}
		for _, p := range present {
			if p.RoomType == models.RoomSingle {
				return nil, fmt.Errorf("%w: room %s is held as a single", ErrCapacityExhausted, room.RoomNumber)
			}
		}
		others := make([]models.Occupant, 0, len(present))
		for _, p := range present {
			others = append(others, p.Occupant())
		}
		if !CanJoin(occupant, others) {
			return nil, fmt.Errorf("%w: cannot share room %s", ErrIncompatibleGender, room.RoomNumber)
		}
	}

	if err := s.ledger.ReserveRoom(room); err != nil {
		return nil, err
	}

	alloc.RoomID = &room.ID
	alloc.RoomType = models.RoomDouble
	if room.Capacity == 1 || occupant.Leads() || roomType == models.RoomSingle {
		alloc.RoomType = models.RoomSingle
	}
	if err := s.store.Create(tx, alloc); err != nil {
		return nil, err
	}

	var partner *models.Allocation
	if len(present) == 1 && room.Capacity == 2 {
		partner = &present[0]
		if err := s.store.Link(tx, alloc, partner); err != nil {
			return nil, err
		}
	}
	return partner, s.store.SaveRoomOccupants(tx, room)
}

// CheckIn moves a booked allocation to checked_in.
func (s *AllocationService) CheckIn(ctx context.Context, tenantID string, id uint) (*models.Allocation, error) {
	var alloc *models.Allocation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.store.Lock(tx, tenantID, id)
		if err != nil {
			return err
		}
		if a.Status != models.StatusBooked {
			return fmt.Errorf("%w: allocation %d is %s", ErrInvalidTransition, id, a.Status)
		}
		if err := s.store.MarkCheckedIn(tx, a, s.now()); err != nil {
			return err
		}
		alloc = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(*alloc)
	return alloc, nil
}

func (s *AllocationService) GetAllocation(ctx context.Context, tenantID string, id uint) (*models.Allocation, error) {
	return s.store.Get(s.DB.WithContext(ctx), tenantID, id)
}

func (s *AllocationService) ListEventAllocations(ctx context.Context, tenantID string, eventID uint, status *models.AllocationStatus) ([]models.Allocation, error) {
	return s.store.ListByEvent(s.DB.WithContext(ctx), tenantID, eventID, status)
}

// GetRemainingCapacity reports the event's vendor pool usage from live rows.
func (s *AllocationService) GetRemainingCapacity(ctx context.Context, tenantID string, eventID uint) (CapacitySnapshot, error) {
	db := s.DB.WithContext(ctx)
	pool, err := s.store.FindPool(db, tenantID, eventID)
	if err != nil {
		return CapacitySnapshot{}, err
	}
	return s.ledger.RemainingCapacity(db, pool)
}

// ReconcileEvent rewrites the event pool's cached counters from live rows.
func (s *AllocationService) ReconcileEvent(ctx context.Context, tenantID string, eventID uint) (CapacitySnapshot, error) {
	release, err := s.locks.Acquire(poolLockKey(tenantID, eventID))
	if err != nil {
		return CapacitySnapshot{}, err
	}
	defer release()

	var snap CapacitySnapshot
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := s.store.LockPool(tx, tenantID, eventID)
		if err != nil {
			return err
		}
		changed, err := s.ledger.Reconcile(tx, pool)
		if err != nil {
			return err
		}
		if changed {
			s.metrics.ReconcileFixes.Inc()
		}
		snap, err = s.ledger.RemainingCapacity(tx, pool)
		return err
	})
	return snap, err
}

// PurgeAllocation hard-deletes a cancelled allocation. Live rows must be
// cancelled first so capacity is returned.
func (s *AllocationService) PurgeAllocation(ctx context.Context, tenantID string, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.store.Lock(tx, tenantID, id)
		if err != nil {
			return err
		}
		if a.Status != models.StatusCancelled {
			return fmt.Errorf("%w: only cancelled allocations can be purged", ErrInvalidTransition)
		}
		return s.store.Purge(tx, a)
	})
}

// notify runs the notifier off the request path. Failures are logged only.
func (s *AllocationService) notify(a models.Allocation) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("allocation_id", a.ID).Errorf("notifier panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.NotifyAllocationChanged(ctx, a); err != nil {
			s.metrics.NotifyFailures.Inc()
			s.log.WithError(err).WithField("allocation_id", a.ID).Warn("allocation notification failed")
		}
	}()
}

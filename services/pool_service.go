// services/pool_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accommodation-backend/models"
	"accommodation-backend/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PoolService is the admin setup side: vendors, per-event vendor pools,
// guesthouses and their rooms. Changes that touch a unit with live bookings
// go through the same keys as the allocation engine.
type PoolService struct {
	DB     *gorm.DB
	store  *AllocationStore
	ledger *CapacityLedger
	locks  *EventLocks
	log    *logrus.Entry
}

func NewPoolService(db *gorm.DB, locks *EventLocks) *PoolService {
	store := NewAllocationStore()
	if locks == nil {
		locks = NewEventLocks(0)
	}
	return &PoolService{
		DB:     db,
		store:  store,
		ledger: NewCapacityLedger(store),
		locks:  locks,
		log:    utils.Logger.WithField("component", "pool_service"),
	}
}

// ---------------------------
// Vendors
// ---------------------------

type VendorInput struct {
	Name         string
	Address      string
	ContactEmail string
	ContactPhone string
}

func (s *PoolService) CreateVendor(ctx context.Context, tenantID string, in VendorInput) (*models.VendorAccommodation, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: vendor name is required", ErrInvalidRequest)
	}
	v := models.VendorAccommodation{
		TenantID:     tenantID,
		Name:         strings.TrimSpace(in.Name),
		Address:      in.Address,
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
	}
	if err := s.DB.WithContext(ctx).Create(&v).Error; err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	return &v, nil
}

func (s *PoolService) ListVendors(ctx context.Context, tenantID string) ([]models.VendorAccommodation, error) {
	var list []models.VendorAccommodation
	if err := s.DB.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return list, nil
}

// ---------------------------
// Vendor pools
// ---------------------------

type VendorPoolInput struct {
	VendorAccommodationID uint
	SingleRoomsTotal      int
	DoubleRoomsTotal      int
	CheckInDate           *time.Time
	CheckOutDate          *time.Time
}

// GetEventVendorPool returns ErrNotFound when the event has no pool.
func (s *PoolService) GetEventVendorPool(ctx context.Context, tenantID string, eventID uint) (*models.VendorRoomPool, error) {
	pool, err := s.store.FindPool(s.DB.WithContext(ctx), tenantID, eventID)
	if err != nil {
		if errors.Is(err, ErrNoPoolConfigured) {
			return nil, fmt.Errorf("%w: no vendor pool for event %d", ErrNotFound, eventID)
		}
		return nil, err
	}
	return pool, nil
}

// UpsertEventVendorPool creates or resizes the event's pool. A resize may not
// drop below what live bookings already use; the available counters are
// recomputed from those bookings.
func (s *PoolService) UpsertEventVendorPool(ctx context.Context, tenantID string, eventID uint, in VendorPoolInput) (*models.VendorRoomPool, error) {
	if in.SingleRoomsTotal < 0 || in.DoubleRoomsTotal < 0 {
		return nil, fmt.Errorf("%w: room totals cannot be negative", ErrInvalidRequest)
	}
	if in.VendorAccommodationID == 0 {
		return nil, fmt.Errorf("%w: vendor_accommodation_id is required", ErrInvalidRequest)
	}
	if in.CheckInDate != nil && in.CheckOutDate != nil && in.CheckOutDate.Before(*in.CheckInDate) {
		return nil, fmt.Errorf("%w: check_out_date is before check_in_date", ErrInvalidRequest)
	}

	release, err := s.locks.Acquire(poolLockKey(tenantID, eventID))
	if err != nil {
		return nil, err
	}
	defer release()

	var out *models.VendorRoomPool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vendor models.VendorAccommodation
		if err := tx.Where("id = ? AND tenant_id = ?", in.VendorAccommodationID, tenantID).First(&vendor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: vendor %d", ErrNotFound, in.VendorAccommodationID)
			}
			return fmt.Errorf("failed to load vendor: %w", err)
		}

		pool, err := s.store.LockPool(tx, tenantID, eventID)
		if errors.Is(err, ErrNoPoolConfigured) {
			pool = &models.VendorRoomPool{
				TenantID:              tenantID,
				EventID:               eventID,
				VendorAccommodationID: vendor.ID,
				SingleRoomsTotal:      in.SingleRoomsTotal,
				DoubleRoomsTotal:      in.DoubleRoomsTotal,
				CheckInDate:           in.CheckInDate,
				CheckOutDate:          in.CheckOutDate,
			}
			s.ledger.Reset(pool)
			if err := tx.Create(pool).Error; err != nil {
				return fmt.Errorf("failed to create vendor pool: %w", err)
			}
			out = pool
			return nil
		}
		if err != nil {
			return err
		}

		usage, err := s.store.CountPoolUsage(tx, tenantID, pool.ID)
		if err != nil {
			return err
		}
		if usage.SingleUsed > in.SingleRoomsTotal || usage.DoubleUsed > in.DoubleRoomsTotal {
			return fmt.Errorf("%w: %d single and %d double rooms are booked", ErrPoolInUse, usage.SingleUsed, usage.DoubleUsed)
		}
		if usage.Occupants > 0 && pool.VendorAccommodationID != vendor.ID {
			return fmt.Errorf("%w: cannot move a pool with bookings to another vendor", ErrPoolInUse)
		}

		pool.VendorAccommodationID = vendor.ID
		pool.SingleRoomsTotal = in.SingleRoomsTotal
		pool.DoubleRoomsTotal = in.DoubleRoomsTotal
		pool.SingleRoomsAvailable = in.SingleRoomsTotal - usage.SingleUsed
		pool.DoubleRoomsAvailable = in.DoubleRoomsTotal - usage.DoubleUsed
		pool.CurrentOccupants = usage.Occupants
		if in.CheckInDate != nil {
			pool.CheckInDate = in.CheckInDate
		}
		if in.CheckOutDate != nil {
			pool.CheckOutDate = in.CheckOutDate
		}
		if err := tx.Save(pool).Error; err != nil {
			return fmt.Errorf("failed to update vendor pool: %w", err)
		}
		out = pool
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"event_id": eventID,
		"pool_id":  out.ID,
		"singles":  out.SingleRoomsTotal,
		"doubles":  out.DoubleRoomsTotal,
	}).Info("vendor pool configured")
	return out, nil
}

// DeleteEventVendorPool removes an empty pool.
func (s *PoolService) DeleteEventVendorPool(ctx context.Context, tenantID string, eventID uint) error {
	release, err := s.locks.Acquire(poolLockKey(tenantID, eventID))
	if err != nil {
		return err
	}
	defer release()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := s.store.LockPool(tx, tenantID, eventID)
		if err != nil {
			if errors.Is(err, ErrNoPoolConfigured) {
				return fmt.Errorf("%w: no vendor pool for event %d", ErrNotFound, eventID)
			}
			return err
		}
		usage, err := s.store.CountPoolUsage(tx, tenantID, pool.ID)
		if err != nil {
			return err
		}
		if usage.Occupants > 0 {
			return fmt.Errorf("%w: pool %d still has %d occupants", ErrPoolInUse, pool.ID, usage.Occupants)
		}
		if err := tx.Delete(&models.VendorRoomPool{}, pool.ID).Error; err != nil {
			return fmt.Errorf("failed to delete vendor pool: %w", err)
		}
		return nil
	})
}

// ---------------------------
// Guesthouses and rooms
// ---------------------------

type GuestHouseInput struct {
	Name    string
	Address string
}

func (s *PoolService) CreateGuestHouse(ctx context.Context, tenantID string, in GuestHouseInput) (*models.GuestHouse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: guesthouse name is required", ErrInvalidRequest)
	}
	gh := models.GuestHouse{TenantID: tenantID, Name: strings.TrimSpace(in.Name), Address: in.Address}
	if err := s.DB.WithContext(ctx).Create(&gh).Error; err != nil {
		return nil, fmt.Errorf("failed to create guesthouse: %w", err)
	}
	return &gh, nil
}

func (s *PoolService) ListGuestHouses(ctx context.Context, tenantID string) ([]models.GuestHouse, error) {
	var list []models.GuestHouse
	err := s.DB.WithContext(ctx).
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("room_number ASC") }).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list guesthouses: %w", err)
	}
	return list, nil
}

type RoomInput struct {
	RoomNumber string
	Floor      string
	Capacity   int
}

func (s *PoolService) CreateRoom(ctx context.Context, tenantID string, guestHouseID uint, in RoomInput) (*models.Room, error) {
	if strings.TrimSpace(in.RoomNumber) == "" {
		return nil, fmt.Errorf("%w: room_number is required", ErrInvalidRequest)
	}
	if in.Capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrInvalidRequest)
	}

	var room models.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gh models.GuestHouse
		if err := tx.Where("id = ? AND tenant_id = ?", guestHouseID, tenantID).First(&gh).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: guesthouse %d", ErrNotFound, guestHouseID)
			}
			return fmt.Errorf("failed to load guesthouse: %w", err)
		}
		room = models.Room{
			TenantID:     tenantID,
			GuestHouseID: gh.ID,
			RoomNumber:   strings.TrimSpace(in.RoomNumber),
			Floor:        strings.TrimSpace(in.Floor),
			Capacity:     in.Capacity,
		}
		if err := tx.Create(&room).Error; err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *PoolService) ListRooms(ctx context.Context, tenantID string, guestHouseID uint) ([]models.Room, error) {
	var list []models.Room
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND guest_house_id = ?", tenantID, guestHouseID).
		Order("room_number ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return list, nil
}

// DeleteRoom removes a room nobody is booked into.
func (s *PoolService) DeleteRoom(ctx context.Context, tenantID string, roomID uint) error {
	release, err := s.locks.Acquire(roomLockKey(tenantID, roomID))
	if err != nil {
		return err
	}
	defer release()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.store.LockRoom(tx, tenantID, roomID)
		if err != nil {
			return err
		}
		n, err := s.store.CountRoomOccupants(tx, tenantID, room.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: room %s still has %d occupants", ErrPoolInUse, room.RoomNumber, n)
		}
		if err := tx.Delete(&models.Room{}, room.ID).Error; err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		return nil
	})
}

package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"accommodation-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllocationStore is the durable ledger of bookings and the unit rows they
// point at. Every method takes the *gorm.DB to run on (usually a transaction)
// and scopes every query by tenant.
type AllocationStore struct{}

func NewAllocationStore() *AllocationStore {
	return &AllocationStore{}
}

var activeStatuses = []models.AllocationStatus{models.StatusBooked, models.StatusCheckedIn}

// PoolUsage is what the live allocation rows say a pool is using.
type PoolUsage struct {
	SingleUsed  int
	DoubleUsed  int
	Occupants   int
	LinkedRows  int
	SoloDoubles int
}

// ---------------------------
// Units
// ---------------------------

func (s *AllocationStore) FindPool(db *gorm.DB, tenantID string, eventID uint) (*models.VendorRoomPool, error) {
	var pool models.VendorRoomPool
	err := db.Where("tenant_id = ? AND event_id = ?", tenantID, eventID).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPoolConfigured
		}
		return nil, fmt.Errorf("failed to load vendor pool: %w", err)
	}
	return &pool, nil
}

// LockPool reads the pool row with SELECT ... FOR UPDATE.
func (s *AllocationStore) LockPool(tx *gorm.DB, tenantID string, eventID uint) (*models.VendorRoomPool, error) {
	return s.FindPool(tx.Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, eventID)
}

func (s *AllocationStore) SavePoolCounters(tx *gorm.DB, pool *models.VendorRoomPool) error {
	err := tx.Model(&models.VendorRoomPool{}).
		Where("id = ? AND tenant_id = ?", pool.ID, pool.TenantID).
		Updates(map[string]interface{}{
			"single_rooms_available": pool.SingleRoomsAvailable,
			"double_rooms_available": pool.DoubleRoomsAvailable,
			"current_occupants":      pool.CurrentOccupants,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save pool %d counters: %w", pool.ID, err)
	}
	return nil
}

func (s *AllocationStore) LockRoom(tx *gorm.DB, tenantID string, roomID uint) (*models.Room, error) {
	var room models.Room
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", roomID, tenantID).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", ErrNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to load room %d: %w", roomID, err)
	}
	return &room, nil
}

func (s *AllocationStore) SaveRoomOccupants(tx *gorm.DB, room *models.Room) error {
	err := tx.Model(&models.Room{}).
		Where("id = ? AND tenant_id = ?", room.ID, room.TenantID).
		Update("current_occupants", room.CurrentOccupants).Error
	if err != nil {
		return fmt.Errorf("failed to save room %d occupants: %w", room.ID, err)
	}
	return nil
}

// ---------------------------
// Allocations
// ---------------------------

func (s *AllocationStore) Get(db *gorm.DB, tenantID string, id uint) (*models.Allocation, error) {
	var a models.Allocation
	if err := db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: allocation %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load allocation %d: %w", id, err)
	}
	return &a, nil
}

func (s *AllocationStore) Lock(tx *gorm.DB, tenantID string, id uint) (*models.Allocation, error) {
	return s.Get(tx.Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

// FindActiveByParticipant returns nil when the participant holds no live
// booking of the given type.
func (s *AllocationStore) FindActiveByParticipant(db *gorm.DB, tenantID string, participantID uint, t models.AccommodationType) (*models.Allocation, error) {
	var a models.Allocation
	err := db.Where("tenant_id = ? AND participant_id = ? AND accommodation_type = ? AND status IN ?",
		tenantID, participantID, t, activeStatuses).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check existing allocation: %w", err)
	}
	return &a, nil
}

// Create inserts a live allocation. A unique violation on active_key means
// another request booked the same participant first.
func (s *AllocationStore) Create(tx *gorm.DB, a *models.Allocation) error {
	if a.Status == "" {
		a.Status = models.StatusBooked
	}
	if a.Status.Active() {
		key := models.ActiveKeyFor(a.TenantID, a.ParticipantID, a.AccommodationType)
		a.ActiveKey = &key
	}
	if err := tx.Create(a).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: participant %d already holds a %s booking", ErrDuplicateBooking, a.ParticipantID, a.AccommodationType)
		}
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

func (s *AllocationStore) ActiveInRoom(db *gorm.DB, tenantID string, roomID uint) ([]models.Allocation, error) {
	var list []models.Allocation
	err := db.Where("tenant_id = ? AND room_id = ? AND status IN ?", tenantID, roomID, activeStatuses).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list room %d allocations: %w", roomID, err)
	}
	return list, nil
}

// OpenDoubles lists live double bookings in a pool that still have a free
// bed, oldest first, for occupants of the given gender.
func (s *AllocationStore) OpenDoubles(db *gorm.DB, tenantID string, poolID uint, gender models.Gender) ([]models.Allocation, error) {
	var list []models.Allocation
	err := db.Where("tenant_id = ? AND pool_id = ? AND room_type = ? AND status IN ? AND linked_allocation_id IS NULL AND occupant_gender = ?",
		tenantID, poolID, models.RoomDouble, activeStatuses, gender).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open doubles: %w", err)
	}
	return list, nil
}

// Link records a and b as roommates on both rows.
func (s *AllocationStore) Link(tx *gorm.DB, a, b *models.Allocation) error {
	a.LinkedAllocationID = &b.ID
	b.LinkedAllocationID = &a.ID
	a.Notes = appendNote(a.Notes, "roommate: "+b.OccupantName)
	b.Notes = appendNote(b.Notes, "roommate: "+a.OccupantName)
	for _, row := range []*models.Allocation{a, b} {
		err := tx.Model(&models.Allocation{}).
			Where("id = ? AND tenant_id = ?", row.ID, row.TenantID).
			Updates(map[string]interface{}{
				"linked_allocation_id": row.LinkedAllocationID,
				"notes":                row.Notes,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to link allocation %d: %w", row.ID, err)
		}
	}
	return nil
}

// Unlink clears the roommate reference and may change the room type.
func (s *AllocationStore) Unlink(tx *gorm.DB, a *models.Allocation, roomType models.RoomType, note string) error {
	a.LinkedAllocationID = nil
	a.RoomType = roomType
	a.Notes = appendNote(a.Notes, note)
	err := tx.Model(&models.Allocation{}).
		Where("id = ? AND tenant_id = ?", a.ID, a.TenantID).
		Updates(map[string]interface{}{
			"linked_allocation_id": nil,
			"room_type":            roomType,
			"notes":                a.Notes,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to unlink allocation %d: %w", a.ID, err)
	}
	return nil
}

// MarkCancelled flips a live row to cancelled and frees its active key. The
// row itself is kept for audit.
func (s *AllocationStore) MarkCancelled(tx *gorm.DB, a *models.Allocation, note string, now time.Time) error {
	a.Status = models.StatusCancelled
	a.ActiveKey = nil
	a.LinkedAllocationID = nil
	a.CancelledAt = &now
	a.Notes = appendNote(a.Notes, note)
	err := tx.Model(&models.Allocation{}).
		Where("id = ? AND tenant_id = ?", a.ID, a.TenantID).
		Updates(map[string]interface{}{
			"status":               models.StatusCancelled,
			"active_key":           nil,
			"linked_allocation_id": nil,
			"cancelled_at":         now,
			"notes":                a.Notes,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to cancel allocation %d: %w", a.ID, err)
	}
	return nil
}

func (s *AllocationStore) MarkCheckedIn(tx *gorm.DB, a *models.Allocation, now time.Time) error {
	a.Status = models.StatusCheckedIn
	a.CheckedInAt = &now
	err := tx.Model(&models.Allocation{}).
		Where("id = ? AND tenant_id = ?", a.ID, a.TenantID).
		Updates(map[string]interface{}{
			"status":        models.StatusCheckedIn,
			"checked_in_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to check in allocation %d: %w", a.ID, err)
	}
	return nil
}

func (s *AllocationStore) Purge(tx *gorm.DB, a *models.Allocation) error {
	if err := tx.Where("id = ? AND tenant_id = ?", a.ID, a.TenantID).Delete(&models.Allocation{}).Error; err != nil {
		return fmt.Errorf("failed to purge allocation %d: %w", a.ID, err)
	}
	return nil
}

func (s *AllocationStore) ListByEvent(db *gorm.DB, tenantID string, eventID uint, status *models.AllocationStatus) ([]models.Allocation, error) {
	q := db.Where("tenant_id = ? AND event_id = ?", tenantID, eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var list []models.Allocation
	if err := q.Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	return list, nil
}

func (s *AllocationStore) ActiveVendorByEvent(db *gorm.DB, tenantID string, eventID uint) ([]models.Allocation, error) {
	var list []models.Allocation
	err := db.Where("tenant_id = ? AND event_id = ? AND accommodation_type = ? AND status IN ?",
		tenantID, eventID, models.AccommodationVendor, activeStatuses).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor allocations: %w", err)
	}
	return list, nil
}

// ActiveVendorHolders returns which of the given participants already hold a
// live vendor booking anywhere in the tenant.
func (s *AllocationStore) ActiveVendorHolders(db *gorm.DB, tenantID string, participantIDs []uint) (map[uint]bool, error) {
	holders := make(map[uint]bool)
	if len(participantIDs) == 0 {
		return holders, nil
	}
	var ids []uint
	err := db.Model(&models.Allocation{}).
		Where("tenant_id = ? AND accommodation_type = ? AND status IN ? AND participant_id IN ?",
			tenantID, models.AccommodationVendor, activeStatuses, participantIDs).
		Pluck("participant_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check vendor holders: %w", err)
	}
	for _, id := range ids {
		holders[id] = true
	}
	return holders, nil
}

// CountPoolUsage derives room usage from live rows. A linked pair is one
// double room; an unlinked double row is a double room with a free bed.
func (s *AllocationStore) CountPoolUsage(db *gorm.DB, tenantID string, poolID uint) (PoolUsage, error) {
	count := func(roomType models.RoomType, linked *bool) (int, error) {
		q := db.Model(&models.Allocation{}).
			Where("tenant_id = ? AND pool_id = ? AND room_type = ? AND status IN ?", tenantID, poolID, roomType, activeStatuses)
		if linked != nil {
			if *linked {
				q = q.Where("linked_allocation_id IS NOT NULL")
			} else {
				q = q.Where("linked_allocation_id IS NULL")
			}
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return 0, fmt.Errorf("failed to count pool %d usage: %w", poolID, err)
		}
		return int(n), nil
	}

	var (
		u   PoolUsage
		err error
		yes = true
		no  = false
	)
	if u.SingleUsed, err = count(models.RoomSingle, nil); err != nil {
		return PoolUsage{}, err
	}
	if u.LinkedRows, err = count(models.RoomDouble, &yes); err != nil {
		return PoolUsage{}, err
	}
	if u.SoloDoubles, err = count(models.RoomDouble, &no); err != nil {
		return PoolUsage{}, err
	}
	u.DoubleUsed = u.SoloDoubles + (u.LinkedRows+1)/2
	u.Occupants = u.SingleUsed + u.LinkedRows + u.SoloDoubles
	return u, nil
}

func (s *AllocationStore) CountRoomOccupants(db *gorm.DB, tenantID string, roomID uint) (int, error) {
	var n int64
	err := db.Model(&models.Allocation{}).
		Where("tenant_id = ? AND room_id = ? AND status IN ?", tenantID, roomID, activeStatuses).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count room %d occupants: %w", roomID, err)
	}
	return int(n), nil
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "; " + note
}

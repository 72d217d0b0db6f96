package services

import (
	"context"
	"fmt"

	"accommodation-backend/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CancelAllocation cancels a live allocation and gives its capacity back. A
// roommate left behind in a vendor double is moved to a single when one is
// free. Cancelling an already cancelled allocation is a no-op.
func (s *AllocationService) CancelAllocation(ctx context.Context, tenantID string, id uint) (*models.Allocation, error) {
	current, err := s.store.Get(s.DB.WithContext(ctx), tenantID, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.StatusCancelled {
		return current, nil
	}

	release, err := s.locks.Acquire(allocationLockKey(current))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		alloc, sibling *models.Allocation
		changed        bool
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.store.Lock(tx, tenantID, id)
		if err != nil {
			return err
		}
		alloc = a
		if !a.Status.Active() {
			return nil
		}
		sibling, err = s.cancelLocked(tx, a, "cancelled")
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return alloc, nil
	}

	s.metrics.AllocationsCancelled.WithLabelValues(string(alloc.AccommodationType)).Inc()
	fields := logrus.Fields{
		"tenant":        tenantID,
		"event_id":      alloc.EventID,
		"allocation_id": alloc.ID,
		"room_type":     alloc.RoomType,
	}
	if sibling != nil {
		fields["roommate_id"] = sibling.ID
		fields["roommate_room_type"] = sibling.RoomType
	}
	s.log.WithFields(fields).Info("allocation cancelled")

	s.notify(*alloc)
	if sibling != nil {
		s.notify(*sibling)
	}
	return alloc, nil
}

func allocationLockKey(a *models.Allocation) string {
	if a.AccommodationType == models.AccommodationGuesthouse && a.RoomID != nil {
		return roomLockKey(a.TenantID, *a.RoomID)
	}
	return poolLockKey(a.TenantID, a.EventID)
}

// cancelLocked releases a's capacity and marks it cancelled. The caller holds
// the unit's key and a is row-locked in tx. It returns the roommate whose
// booking changed, if any.
func (s *AllocationService) cancelLocked(tx *gorm.DB, a *models.Allocation, note string) (*models.Allocation, error) {
	sibling, err := s.activeSibling(tx, a)
	if err != nil {
		return nil, err
	}

	switch a.AccommodationType {
	case models.AccommodationVendor:
		if err := s.releaseVendor(tx, a, sibling); err != nil {
			return nil, err
		}
	case models.AccommodationGuesthouse:
		if err := s.releaseGuesthouse(tx, a, sibling); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: allocation %d has accommodation type %q", ErrInvalidRequest, a.ID, a.AccommodationType)
	}

	if err := s.store.MarkCancelled(tx, a, note, s.now()); err != nil {
		return nil, err
	}
	return sibling, nil
}

func (s *AllocationService) activeSibling(tx *gorm.DB, a *models.Allocation) (*models.Allocation, error) {
	if a.LinkedAllocationID == nil {
		return nil, nil
	}
	sib, err := s.store.Lock(tx, a.TenantID, *a.LinkedAllocationID)
	if err != nil {
		return nil, err
	}
	if !sib.Status.Active() {
		s.log.WithFields(logrus.Fields{
			"allocation_id": a.ID,
			"roommate_id":   sib.ID,
		}).Warn("linked roommate is not active")
		return nil, nil
	}
	return sib, nil
}

func (s *AllocationService) releaseVendor(tx *gorm.DB, a, sibling *models.Allocation) error {
	pool, err := s.store.LockPool(tx, a.TenantID, a.EventID)
	if err != nil {
		return err
	}

	switch {
	case a.RoomType == models.RoomDouble && sibling != nil:
		note := "roommate left: " + a.OccupantName
		if s.ledger.ConvertDoubleToSingle(pool) {
			if err := s.store.Unlink(tx, sibling, models.RoomSingle, note+", moved to single room"); err != nil {
				return err
			}
		} else {
			s.ledger.LeaveDouble(pool)
			if err := s.store.Unlink(tx, sibling, models.RoomDouble, note+", keeps double room alone"); err != nil {
				return err
			}
		}
	case a.RoomType == models.RoomDouble:
		s.ledger.Release(pool, models.RoomDouble, 1)
	default:
		s.ledger.Release(pool, models.RoomSingle, 1)
	}

	return s.store.SavePoolCounters(tx, pool)
}

func (s *AllocationService) releaseGuesthouse(tx *gorm.DB, a, sibling *models.Allocation) error {
	if a.RoomID == nil {
		return fmt.Errorf("%w: guesthouse allocation %d has no room", ErrInvalidRequest, a.ID)
	}
	room, err := s.store.LockRoom(tx, a.TenantID, *a.RoomID)
	if err != nil {
		return err
	}
	s.ledger.ReleaseRoom(room)
	if sibling != nil {
		if err := s.store.Unlink(tx, sibling, sibling.RoomType, "roommate left: "+a.OccupantName); err != nil {
			return err
		}
	}
	return s.store.SaveRoomOccupants(tx, room)
}

package services

import (
	"fmt"

	"accommodation-backend/models"
	"accommodation-backend/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CapacityLedger keeps the cached single/double/occupant counters on vendor
// pools and guesthouse rooms. All mutations happen on structs that the
// caller loaded under a row lock and persists in the same transaction. A
// failed check leaves the struct untouched.
type CapacityLedger struct {
	store *AllocationStore
	log   *logrus.Entry
}

func NewCapacityLedger(store *AllocationStore) *CapacityLedger {
	return &CapacityLedger{
		store: store,
		log:   utils.Logger.WithField("component", "capacity_ledger"),
	}
}

// CapacitySnapshot is the ledger's view of a pool, computed from live rows.
type CapacitySnapshot struct {
	PoolID             uint `json:"pool_id"`
	EventID            uint `json:"event_id"`
	SingleTotal        int  `json:"single_total"`
	DoubleTotal        int  `json:"double_total"`
	SingleUsed         int  `json:"single_used"`
	DoubleUsed         int  `json:"double_used"`
	SingleRemaining    int  `json:"single_remaining"`
	DoubleRemaining    int  `json:"double_remaining"`
	Occupants          int  `json:"occupants"`
	CapacityEquivalent int  `json:"capacity_equivalent"`
	BedsRemaining      int  `json:"beds_remaining"`
	// CounterDrift is set when the cached counters disagree with the rows.
	CounterDrift bool `json:"counter_drift"`
}

// ---------------------------
// Vendor pools
// ---------------------------

// Reserve takes one room of the given type for occupants people. A double
// room is taken once whether one or two people move in.
func (l *CapacityLedger) Reserve(pool *models.VendorRoomPool, roomType models.RoomType, occupants int) error {
	switch roomType {
	case models.RoomSingle:
		if occupants != 1 {
			return fmt.Errorf("%w: a single room holds exactly one occupant", ErrInvalidRequest)
		}
		if pool.SingleRoomsAvailable <= 0 {
			return fmt.Errorf("%w: no single rooms left in pool %d", ErrCapacityExhausted, pool.ID)
		}
	case models.RoomDouble:
		if occupants < 1 || occupants > 2 {
			return fmt.Errorf("%w: a double room holds one or two occupants", ErrInvalidRequest)
		}
		if pool.DoubleRoomsAvailable <= 0 {
			return fmt.Errorf("%w: no double rooms left in pool %d", ErrCapacityExhausted, pool.ID)
		}
	default:
		return fmt.Errorf("%w: unknown room type %q", ErrInvalidRequest, roomType)
	}
	if pool.CurrentOccupants+occupants > pool.CapacityEquivalent() {
		return fmt.Errorf("%w: pool %d is at capacity", ErrCapacityExhausted, pool.ID)
	}

	if roomType == models.RoomSingle {
		pool.SingleRoomsAvailable--
	} else {
		pool.DoubleRoomsAvailable--
	}
	pool.CurrentOccupants += occupants
	return nil
}

// JoinDouble adds a second occupant to a double room already reserved.
func (l *CapacityLedger) JoinDouble(pool *models.VendorRoomPool) error {
	if pool.CurrentOccupants+1 > pool.CapacityEquivalent() {
		return fmt.Errorf("%w: pool %d is at capacity", ErrCapacityExhausted, pool.ID)
	}
	pool.CurrentOccupants++
	return nil
}

// Release gives one room of the given type back and removes occupantCount
// people. Counters are clamped to the configured pool size; clamping means
// the cache had drifted and is logged.
func (l *CapacityLedger) Release(pool *models.VendorRoomPool, roomType models.RoomType, occupantCount int) {
	switch roomType {
	case models.RoomSingle:
		pool.SingleRoomsAvailable++
		if pool.SingleRoomsAvailable > pool.SingleRoomsTotal {
			l.anomaly(pool, "single_rooms_available above configured total", pool.SingleRoomsAvailable, pool.SingleRoomsTotal)
			pool.SingleRoomsAvailable = pool.SingleRoomsTotal
		}
	case models.RoomDouble:
		pool.DoubleRoomsAvailable++
		if pool.DoubleRoomsAvailable > pool.DoubleRoomsTotal {
			l.anomaly(pool, "double_rooms_available above configured total", pool.DoubleRoomsAvailable, pool.DoubleRoomsTotal)
			pool.DoubleRoomsAvailable = pool.DoubleRoomsTotal
		}
	}
	l.removeOccupants(pool, occupantCount)
}

// LeaveDouble removes one occupant from a shared double; the room stays taken
// by whoever remains.
func (l *CapacityLedger) LeaveDouble(pool *models.VendorRoomPool) {
	l.removeOccupants(pool, 1)
}

// ConvertDoubleToSingle handles a roommate leaving: the double room goes back
// to the pool and the remaining occupant takes a single. It reports false,
// touching nothing, when no single room is free.
func (l *CapacityLedger) ConvertDoubleToSingle(pool *models.VendorRoomPool) bool {
	if pool.SingleRoomsAvailable <= 0 {
		return false
	}
	pool.SingleRoomsAvailable--
	pool.DoubleRoomsAvailable++
	if pool.DoubleRoomsAvailable > pool.DoubleRoomsTotal {
		l.anomaly(pool, "double_rooms_available above configured total", pool.DoubleRoomsAvailable, pool.DoubleRoomsTotal)
		pool.DoubleRoomsAvailable = pool.DoubleRoomsTotal
	}
	l.removeOccupants(pool, 1)
	return true
}

// Reset empties the pool back to its configured size.
func (l *CapacityLedger) Reset(pool *models.VendorRoomPool) {
	pool.SingleRoomsAvailable = pool.SingleRoomsTotal
	pool.DoubleRoomsAvailable = pool.DoubleRoomsTotal
	pool.CurrentOccupants = 0
}

func (l *CapacityLedger) removeOccupants(pool *models.VendorRoomPool, n int) {
	pool.CurrentOccupants -= n
	if pool.CurrentOccupants < 0 {
		l.anomaly(pool, "current_occupants below zero", pool.CurrentOccupants, 0)
		pool.CurrentOccupants = 0
	}
}

func (l *CapacityLedger) anomaly(pool *models.VendorRoomPool, msg string, got, limit int) {
	l.log.WithFields(logrus.Fields{
		"pool_id":  pool.ID,
		"event_id": pool.EventID,
		"tenant":   pool.TenantID,
		"value":    got,
		"limit":    limit,
	}).Warn("ledger anomaly: " + msg)
}

// RemainingCapacity computes what is left from the live allocation rows,
// not from the cached counters.
func (l *CapacityLedger) RemainingCapacity(db *gorm.DB, pool *models.VendorRoomPool) (CapacitySnapshot, error) {
	usage, err := l.store.CountPoolUsage(db, pool.TenantID, pool.ID)
	if err != nil {
		return CapacitySnapshot{}, err
	}
	snap := CapacitySnapshot{
		PoolID:             pool.ID,
		EventID:            pool.EventID,
		SingleTotal:        pool.SingleRoomsTotal,
		DoubleTotal:        pool.DoubleRoomsTotal,
		SingleUsed:         usage.SingleUsed,
		DoubleUsed:         usage.DoubleUsed,
		SingleRemaining:    nonNegative(pool.SingleRoomsTotal - usage.SingleUsed),
		DoubleRemaining:    nonNegative(pool.DoubleRoomsTotal - usage.DoubleUsed),
		Occupants:          usage.Occupants,
		CapacityEquivalent: pool.CapacityEquivalent(),
	}
	snap.BedsRemaining = nonNegative(snap.CapacityEquivalent - usage.Occupants)
	snap.CounterDrift = pool.SingleRoomsAvailable != snap.SingleRemaining ||
		pool.DoubleRoomsAvailable != snap.DoubleRemaining ||
		pool.CurrentOccupants != snap.Occupants
	return snap, nil
}

// Reconcile rewrites the pool's cached counters from the live rows and
// reports whether anything changed.
func (l *CapacityLedger) Reconcile(tx *gorm.DB, pool *models.VendorRoomPool) (bool, error) {
	usage, err := l.store.CountPoolUsage(tx, pool.TenantID, pool.ID)
	if err != nil {
		return false, err
	}
	if usage.LinkedRows%2 != 0 {
		l.anomaly(pool, "odd number of linked double rows", usage.LinkedRows, 0)
	}
	if usage.SingleUsed > pool.SingleRoomsTotal {
		l.anomaly(pool, "single rooms used above configured total", usage.SingleUsed, pool.SingleRoomsTotal)
	}
	if usage.DoubleUsed > pool.DoubleRoomsTotal {
		l.anomaly(pool, "double rooms used above configured total", usage.DoubleUsed, pool.DoubleRoomsTotal)
	}

	single := nonNegative(pool.SingleRoomsTotal - usage.SingleUsed)
	double := nonNegative(pool.DoubleRoomsTotal - usage.DoubleUsed)
	if single == pool.SingleRoomsAvailable && double == pool.DoubleRoomsAvailable && usage.Occupants == pool.CurrentOccupants {
		return false, nil
	}

	l.log.WithFields(logrus.Fields{
		"pool_id":          pool.ID,
		"event_id":         pool.EventID,
		"single_cached":    pool.SingleRoomsAvailable,
		"single_live":      single,
		"double_cached":    pool.DoubleRoomsAvailable,
		"double_live":      double,
		"occupants_cached": pool.CurrentOccupants,
		"occupants_live":   usage.Occupants,
	}).Info("reconciled pool counters")

	pool.SingleRoomsAvailable = single
	pool.DoubleRoomsAvailable = double
	pool.CurrentOccupants = usage.Occupants
	return true, l.store.SavePoolCounters(tx, pool)
}

// ---------------------------
// Guesthouse rooms
// ---------------------------

func (l *CapacityLedger) ReserveRoom(room *models.Room) error {
	if room.CurrentOccupants >= room.Capacity {
		return fmt.Errorf("%w: room %s is full", ErrCapacityExhausted, room.RoomNumber)
	}
	room.CurrentOccupants++
	return nil
}

func (l *CapacityLedger) ReleaseRoom(room *models.Room) {
	room.CurrentOccupants--
	if room.CurrentOccupants < 0 {
		l.log.WithFields(logrus.Fields{"room_id": room.ID, "tenant": room.TenantID}).
			Warn("ledger anomaly: room current_occupants below zero")
		room.CurrentOccupants = 0
	}
}

func (l *CapacityLedger) ReconcileRoom(tx *gorm.DB, room *models.Room) (bool, error) {
	n, err := l.store.CountRoomOccupants(tx, room.TenantID, room.ID)
	if err != nil {
		return false, err
	}
	if n == room.CurrentOccupants {
		return false, nil
	}
	if n > room.Capacity {
		l.log.WithFields(logrus.Fields{"room_id": room.ID, "occupants": n, "capacity": room.Capacity}).
			Warn("ledger anomaly: room over capacity")
	}
	room.CurrentOccupants = n
	return true, l.store.SaveRoomOccupants(tx, room)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

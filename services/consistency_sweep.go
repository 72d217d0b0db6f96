package services

import (
	"context"
	"errors"
	"fmt"

	"accommodation-backend/models"
	"accommodation-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConsistencySweep periodically rewrites every cached occupancy counter from
// the live allocation rows and drops idle entries from the lock table.
type ConsistencySweep struct {
	DB      *gorm.DB
	store   *AllocationStore
	ledger  *CapacityLedger
	locks   *EventLocks
	metrics *Metrics
	log     *logrus.Entry
}

type SweepResult struct {
	PoolsChecked int
	PoolsFixed   int
	PoolsSkipped int
	RoomsChecked int
	RoomsFixed   int
	LocksSwept   int
}

func NewConsistencySweep(db *gorm.DB, locks *EventLocks, metrics *Metrics) *ConsistencySweep {
	store := NewAllocationStore()
	if locks == nil {
		locks = NewEventLocks(0)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ConsistencySweep{
		DB:      db,
		store:   store,
		ledger:  NewCapacityLedger(store),
		locks:   locks,
		metrics: metrics,
		log:     utils.Logger.WithField("component", "consistency_sweep"),
	}
}

// Schedule registers Run on c with the given cron spec.
func (w *ConsistencySweep) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		res, err := w.Run(context.Background())
		if err != nil {
			w.log.WithError(err).Error("consistency sweep failed")
			return
		}
		w.log.WithFields(logrus.Fields{
			"pools_checked": res.PoolsChecked,
			"pools_fixed":   res.PoolsFixed,
			"pools_skipped": res.PoolsSkipped,
			"rooms_checked": res.RoomsChecked,
			"rooms_fixed":   res.RoomsFixed,
			"locks_swept":   res.LocksSwept,
		}).Info("consistency sweep finished")
	})
}

// Run reconciles every pool and room. Pools under refresh are skipped and
// picked up on the next run.
func (w *ConsistencySweep) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	var pools []models.VendorRoomPool
	if err := w.DB.WithContext(ctx).Select("id", "tenant_id", "event_id").Order("id ASC").Find(&pools).Error; err != nil {
		return res, fmt.Errorf("failed to list pools: %w", err)
	}
	for _, p := range pools {
		fixed, err := w.reconcilePool(ctx, p.TenantID, p.EventID)
		if errors.Is(err, ErrRefreshInProgress) || errors.Is(err, ErrNoPoolConfigured) {
			res.PoolsSkipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.PoolsChecked++
		if fixed {
			res.PoolsFixed++
		}
	}

	var rooms []models.Room
	if err := w.DB.WithContext(ctx).Select("id", "tenant_id").Order("id ASC").Find(&rooms).Error; err != nil {
		return res, fmt.Errorf("failed to list rooms: %w", err)
	}
	for _, r := range rooms {
		fixed, err := w.reconcileRoom(ctx, r.TenantID, r.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return res, err
		}
		res.RoomsChecked++
		if fixed {
			res.RoomsFixed++
		}
	}

	res.LocksSwept = w.locks.Sweep()
	w.metrics.ReconcileFixes.Add(float64(res.PoolsFixed + res.RoomsFixed))
	return res, nil
}

func (w *ConsistencySweep) reconcilePool(ctx context.Context, tenantID string, eventID uint) (bool, error) {
	release, err := w.locks.Acquire(poolLockKey(tenantID, eventID))
	if err != nil {
		return false, err
	}
	defer release()

	var fixed bool
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := w.store.LockPool(tx, tenantID, eventID)
		if err != nil {
			return err
		}
		fixed, err = w.ledger.Reconcile(tx, pool)
		return err
	})
	return fixed, err
}

func (w *ConsistencySweep) reconcileRoom(ctx context.Context, tenantID string, roomID uint) (bool, error) {
	release, err := w.locks.Acquire(roomLockKey(tenantID, roomID))
	if err != nil {
		return false, err
	}
	defer release()

	var fixed bool
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := w.store.LockRoom(tx, tenantID, roomID)
		if err != nil {
			return err
		}
		fixed, err = w.ledger.ReconcileRoom(tx, room)
		return err
	})
	return fixed, err
}

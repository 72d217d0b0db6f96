package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"accommodation-backend/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	modeRefresh = "refresh"
	modeAssign  = "assign"
)

// RefreshStats summarizes a bulk pass. Unplaced occupants are part of the
// result; the placed ones are committed regardless.
type RefreshStats struct {
	RunID                string             `json:"run_id"`
	Mode                 string             `json:"mode"`
	SinglesUsed          int                `json:"singles_used"`
	DoublesUsed          int                `json:"doubles_used"`
	Placed               int                `json:"placed"`
	Unplaced             int                `json:"unplaced"`
	Voided               int                `json:"voided"`
	UnplacedParticipants []UnplacedOccupant `json:"unplaced_participants"`
}

// RefreshEventBooking voids every live vendor allocation of the event,
// resets the pool and reassigns the current confirmed roster from scratch.
// Bookings for the event are rejected while it runs.
func (s *AllocationService) RefreshEventBooking(ctx context.Context, tenantID string, eventID uint) (RefreshStats, error) {
	return s.runBulk(ctx, tenantID, eventID, modeRefresh)
}

// AssignPending places roster members that hold no vendor booking yet into
// whatever the pool has left. Existing bookings are untouched.
func (s *AllocationService) AssignPending(ctx context.Context, tenantID string, eventID uint) (RefreshStats, error) {
	return s.runBulk(ctx, tenantID, eventID, modeAssign)
}

func (s *AllocationService) runBulk(ctx context.Context, tenantID string, eventID uint, mode string) (RefreshStats, error) {
	started := s.now()
	timer := time.Now()

	release, err := s.locks.AcquireExclusive(poolLockKey(tenantID, eventID))
	if err != nil {
		return RefreshStats{}, err
	}
	defer release()

	roster, err := s.roster.GetConfirmedRoster(ctx, tenantID, eventID)
	if err != nil {
		return RefreshStats{}, err
	}

	stats := RefreshStats{RunID: uuid.NewString(), Mode: mode}
	var created []models.Allocation

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := s.store.LockPool(tx, tenantID, eventID)
		if err != nil {
			return err
		}

		if mode == modeRefresh {
			live, err := s.store.ActiveVendorByEvent(tx, tenantID, eventID)
			if err != nil {
				return err
			}
			now := s.now()
			for i := range live {
				if err := s.store.MarkCancelled(tx, &live[i], "voided by refresh", now); err != nil {
					return err
				}
			}
			stats.Voided = len(live)
			s.ledger.Reset(pool)
		} else if _, err := s.ledger.Reconcile(tx, pool); err != nil {
			return err
		}

		plan, rows, err := s.placeRoster(tx, pool, roster, mode)
		if err != nil {
			return err
		}
		created = rows

		if err := s.store.SavePoolCounters(tx, pool); err != nil {
			return err
		}
		changed, err := s.ledger.Reconcile(tx, pool)
		if err != nil {
			return err
		}
		if changed {
			s.metrics.ReconcileFixes.Inc()
		}

		stats.SinglesUsed = plan.SinglesUsed
		stats.DoublesUsed = plan.DoublesUsed
		stats.Placed = plan.Placed()
		stats.Unplaced = len(plan.Unplaced)
		stats.UnplacedParticipants = plan.Unplaced

		return s.recordRun(tx, tenantID, eventID, started, stats)
	})
	if err != nil {
		return RefreshStats{}, err
	}

	s.metrics.RefreshDuration.WithLabelValues(mode).Observe(time.Since(timer).Seconds())
	s.metrics.Unplaced.WithLabelValues(mode).Add(float64(stats.Unplaced))
	s.log.WithFields(logrus.Fields{
		"tenant":       tenantID,
		"event_id":     eventID,
		"mode":         mode,
		"run_id":       stats.RunID,
		"voided":       stats.Voided,
		"placed":       stats.Placed,
		"unplaced":     stats.Unplaced,
		"singles_used": stats.SinglesUsed,
		"doubles_used": stats.DoublesUsed,
	}).Info("bulk assignment finished")

	for _, a := range created {
		s.notify(a)
	}
	return stats, nil
}

// placeRoster runs the assignment pass against pool and persists the result.
// Participants already holding a vendor booking anywhere in the tenant are
// reported as duplicates instead of being placed.
func (s *AllocationService) placeRoster(tx *gorm.DB, pool *models.VendorRoomPool, roster []models.Occupant, mode string) (AssignmentPlan, []models.Allocation, error) {
	ids := make([]uint, 0, len(roster))
	for _, o := range roster {
		ids = append(ids, o.ParticipantID)
	}
	holders, err := s.store.ActiveVendorHolders(tx, pool.TenantID, ids)
	if err != nil {
		return AssignmentPlan{}, nil, err
	}

	eligible := make([]models.Occupant, 0, len(roster))
	skipped := []UnplacedOccupant{}
	for _, o := range roster {
		if holders[o.ParticipantID] {
			if mode == modeRefresh {
				skipped = append(skipped, UnplacedOccupant{ParticipantID: o.ParticipantID, Name: o.Name, Reason: reasonDuplicateBooking})
			}
			continue
		}
		eligible = append(eligible, o)
	}

	plan := PlanAssignment(s.ledger, eligible, pool)
	plan.Unplaced = append(skipped, plan.Unplaced...)

	note := "assigned by " + mode
	created := make([]models.Allocation, 0, plan.Placed())
	for _, room := range plan.Rooms {
		rows := make([]*models.Allocation, 0, len(room.Occupants))
		for _, o := range room.Occupants {
			a := &models.Allocation{
				TenantID:          pool.TenantID,
				EventID:           pool.EventID,
				ParticipantID:     o.ParticipantID,
				AccommodationType: models.AccommodationVendor,
				PoolID:            &pool.ID,
				RoomType:          room.RoomType,
				CheckInDate:       pool.CheckInDate,
				CheckOutDate:      pool.CheckOutDate,
				Notes:             note,
				OccupantName:      o.Name,
				OccupantEmail:     o.Email,
				OccupantGender:    o.Gender,
				OccupantRole:      o.Role,
			}
			if err := s.store.Create(tx, a); err != nil {
				return AssignmentPlan{}, nil, err
			}
			rows = append(rows, a)
		}
		if len(rows) == 2 {
			if err := s.store.Link(tx, rows[0], rows[1]); err != nil {
				return AssignmentPlan{}, nil, err
			}
		}
		for _, a := range rows {
			created = append(created, *a)
		}
	}
	return plan, created, nil
}

func (s *AllocationService) recordRun(tx *gorm.DB, tenantID string, eventID uint, started time.Time, stats RefreshStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode refresh stats: %w", err)
	}
	run := models.RefreshRun{
		RunID:      stats.RunID,
		TenantID:   tenantID,
		EventID:    eventID,
		Mode:       stats.Mode,
		StartedAt:  started,
		FinishedAt: s.now(),
		Stats:      datatypes.JSON(raw),
	}
	if err := tx.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record refresh run: %w", err)
	}
	return nil
}

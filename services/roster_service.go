package services

import (
	"context"
	"errors"
	"fmt"

	"accommodation-backend/models"

	"gorm.io/gorm"
)

// RosterService reads the portal's participant registrations.
type RosterService struct {
	DB *gorm.DB
}

func NewRosterService(db *gorm.DB) *RosterService {
	return &RosterService{DB: db}
}

func (s *RosterService) GetConfirmedRoster(ctx context.Context, tenantID string, eventID uint) ([]models.Occupant, error) {
	var rows []models.EventParticipant
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND event_id = ? AND accommodation_preference = ?", tenantID, eventID, models.PreferenceStayingAtVenue).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roster for event %d: %w", eventID, err)
	}

	// status strings are free text in the portal, so filter after normalizing
	roster := make([]models.Occupant, 0, len(rows))
	for _, p := range rows {
		o := p.Occupant()
		if o.Status != models.ParticipationConfirmed {
			continue
		}
		roster = append(roster, o)
	}
	return roster, nil
}

func (s *RosterService) GetOccupant(ctx context.Context, tenantID string, eventID, participantID uint) (models.Occupant, error) {
	var p models.EventParticipant
	err := s.DB.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND event_id = ?", participantID, tenantID, eventID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Occupant{}, fmt.Errorf("%w: participant %d in event %d", ErrNotFound, participantID, eventID)
		}
		return models.Occupant{}, fmt.Errorf("failed to load participant %d: %w", participantID, err)
	}
	return p.Occupant(), nil
}

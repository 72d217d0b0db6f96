package services

import (
	"context"

	"accommodation-backend/models"
)

// RosterProvider is the participant directory: who is coming, with what
// role and gender.
type RosterProvider interface {
	// GetConfirmedRoster returns confirmed participants staying at the venue,
	// ordered by participant id.
	GetConfirmedRoster(ctx context.Context, tenantID string, eventID uint) ([]models.Occupant, error)
	// GetOccupant returns ErrNotFound for unknown participants.
	GetOccupant(ctx context.Context, tenantID string, eventID, participantID uint) (models.Occupant, error)
}

// Notifier is told about every allocation change after commit. Errors are
// logged and never undo the allocation.
type Notifier interface {
	NotifyAllocationChanged(ctx context.Context, allocation models.Allocation) error
}

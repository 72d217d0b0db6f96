package models

import "time"

// EventParticipant is the portal's registration row. The allocation engine
// only reads it (through the roster collaborator).
type EventParticipant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TenantID  string `gorm:"column:tenant_id;size:64;index:idx_participant_tenant_event" json:"tenant_id"`
	EventID   uint   `gorm:"column:event_id;index:idx_participant_tenant_event" json:"event_id"`
	FullName  string `gorm:"column:full_name;size:255" json:"full_name"`
	Email     string `gorm:"column:email;size:255" json:"email"`
	Gender    string `gorm:"column:gender;size:32" json:"gender"`
	EventRole string `gorm:"column:event_role;size:32" json:"event_role"`
	Status    string `gorm:"column:status;size:32" json:"status"`

	// "staying_at_venue" or "own_arrangement"
	AccommodationPreference string `gorm:"column:accommodation_preference;size:32" json:"accommodation_preference"`
}

const PreferenceStayingAtVenue = "staying_at_venue"

func (p EventParticipant) Occupant() Occupant {
	return Occupant{
		ParticipantID:  p.ID,
		Name:           p.FullName,
		Email:          p.Email,
		Gender:         NormalizeGender(p.Gender),
		Role:           NormalizeRole(p.EventRole),
		Status:         NormalizeParticipationStatus(p.Status),
		StayingAtVenue: p.AccommodationPreference == PreferenceStayingAtVenue,
	}
}

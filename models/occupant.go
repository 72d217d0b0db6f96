package models

// Occupant is the allocation-facing view of a participant. It is produced by
// the roster collaborator and never written back.
type Occupant struct {
	ParticipantID  uint                `json:"participant_id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Gender         Gender              `json:"gender"`
	Role           Role                `json:"role"`
	Status         ParticipationStatus `json:"status"`
	StayingAtVenue bool                `json:"staying_at_venue"`
}

// Leads reports facilitators and organizers, who always sleep alone.
func (o Occupant) Leads() bool {
	switch o.Role {
	case RoleFacilitator, RoleOrganizer:
		return true
	case RoleVisitor:
		return false
	}
	return false
}

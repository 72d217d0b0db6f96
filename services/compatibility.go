package services

import "accommodation-backend/models"

// CanShare reports whether two occupants may be placed in the same room:
// both must be male or both female. Other and unknown never share.
func CanShare(a, b models.Occupant) bool {
	if !a.Gender.Binary() || !b.Gender.Binary() {
		return false
	}
	return a.Gender == b.Gender
}

// RequiresSingle reports whether o must not be put into a room that already
// holds roomOccupants people. Facilitators and organizers always sleep
// alone; non-binary occupants may take an empty room but never join one.
func RequiresSingle(o models.Occupant, roomOccupants int) bool {
	if o.Leads() {
		return true
	}
	return !o.Gender.Binary() && roomOccupants >= 1
}

// CanJoin checks a newcomer against everyone already in the room.
func CanJoin(newcomer models.Occupant, present []models.Occupant) bool {
	if RequiresSingle(newcomer, len(present)) {
		return false
	}
	for _, p := range present {
		if p.Leads() || !CanShare(newcomer, p) {
			return false
		}
	}
	return true
}

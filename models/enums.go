package models

import "strings"

// AccommodationType distinguishes guesthouse rooms from vendor (hotel) pools.
type AccommodationType string

const (
	AccommodationGuesthouse AccommodationType = "guesthouse"
	AccommodationVendor     AccommodationType = "vendor"
)

func (t AccommodationType) Valid() bool {
	switch t {
	case AccommodationGuesthouse, AccommodationVendor:
		return true
	}
	return false
}

// ParseAccommodationType accepts the portal spellings ("hotel" is a vendor).
func ParseAccommodationType(raw string) (AccommodationType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "guesthouse", "guest_house", "guest-house":
		return AccommodationGuesthouse, true
	case "vendor", "hotel", "vendor_accommodation":
		return AccommodationVendor, true
	}
	return "", false
}

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomSingle, RoomDouble:
		return true
	}
	return false
}

func ParseRoomType(raw string) (RoomType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single", "1":
		return RoomSingle, true
	case "double", "shared", "twin", "2":
		return RoomDouble, true
	}
	return "", false
}

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// NormalizeGender maps free-text registration answers onto the closed set.
// Anything unrecognised is unknown, never male or female.
func NormalizeGender(raw string) Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male", "man":
		return GenderMale
	case "f", "female", "woman":
		return GenderFemale
	case "o", "other", "non-binary", "nonbinary", "non_binary", "nb":
		return GenderOther
	}
	return GenderUnknown
}

// Binary reports whether the gender can take part in room sharing.
func (g Gender) Binary() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	case GenderOther, GenderUnknown:
		return false
	}
	return false
}

type Role string

const (
	RoleVisitor     Role = "visitor"
	RoleFacilitator Role = "facilitator"
	RoleOrganizer   Role = "organizer"
)

// NormalizeRole defaults unknown roles to visitor.
func NormalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "facilitator", "trainer", "resource_person":
		return RoleFacilitator
	case "organizer", "organiser", "coordinator":
		return RoleOrganizer
	}
	return RoleVisitor
}

type AllocationStatus string

const (
	StatusBooked    AllocationStatus = "booked"
	StatusCheckedIn AllocationStatus = "checked_in"
	StatusCancelled AllocationStatus = "cancelled"
)

// Active reports whether the allocation still holds capacity.
func (s AllocationStatus) Active() bool {
	switch s {
	case StatusBooked, StatusCheckedIn:
		return true
	case StatusCancelled:
		return false
	}
	return false
}

func ParseAllocationStatus(raw string) (AllocationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "booked":
		return StatusBooked, true
	case "checked_in", "checked-in", "checkedin":
		return StatusCheckedIn, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

type ParticipationStatus string

const (
	ParticipationPending   ParticipationStatus = "pending"
	ParticipationConfirmed ParticipationStatus = "confirmed"
	ParticipationDeclined  ParticipationStatus = "declined"
	ParticipationCancelled ParticipationStatus = "cancelled"
)

func NormalizeParticipationStatus(raw string) ParticipationStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed", "approved", "accepted":
		return ParticipationConfirmed
	case "declined", "rejected":
		return ParticipationDeclined
	case "cancelled", "canceled", "withdrawn":
		return ParticipationCancelled
	}
	return ParticipationPending
}

package models

import (
	"fmt"
	"time"
)

// Allocation is one participant's booking in one accommodation unit.
//
// Exactly one of RoomID (guesthouse) or PoolID (vendor) is set. ActiveKey is
// non-nil only while the allocation is booked or checked in; its unique
// index is what keeps a participant from holding two live bookings of the
// same accommodation type.
type Allocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TenantID          string            `gorm:"column:tenant_id;size:64;index:idx_alloc_tenant_event" json:"tenant_id"`
	EventID           uint              `gorm:"column:event_id;index:idx_alloc_tenant_event" json:"event_id"`
	ParticipantID     uint              `gorm:"column:participant_id;index" json:"participant_id"`
	AccommodationType AccommodationType `gorm:"column:accommodation_type;size:16" json:"accommodation_type"`

	RoomID *uint `gorm:"column:room_id;index" json:"room_id,omitempty"`
	PoolID *uint `gorm:"column:pool_id;index" json:"pool_id,omitempty"`

	RoomType     RoomType         `gorm:"column:room_type;size:16" json:"room_type"`
	Status       AllocationStatus `gorm:"column:status;size:16;index" json:"status"`
	CheckInDate  *time.Time       `gorm:"column:check_in_date" json:"check_in_date,omitempty"`
	CheckOutDate *time.Time       `gorm:"column:check_out_date" json:"check_out_date,omitempty"`
	Notes        string           `gorm:"column:notes;type:text" json:"notes"`

	LinkedAllocationID *uint `gorm:"column:linked_allocation_id;index" json:"linked_allocation_id,omitempty"`

	// occupant snapshot taken at booking time
	OccupantName   string `gorm:"column:occupant_name;size:255" json:"occupant_name"`
	OccupantEmail  string `gorm:"column:occupant_email;size:255" json:"occupant_email"`
	OccupantGender Gender `gorm:"column:occupant_gender;size:16" json:"occupant_gender"`
	OccupantRole   Role   `gorm:"column:occupant_role;size:16" json:"occupant_role"`

	CheckedInAt *time.Time `gorm:"column:checked_in_at" json:"checked_in_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	ActiveKey *string `gorm:"column:active_key;size:191;uniqueIndex" json:"-"`
}

// ActiveKeyFor builds the value stored in Allocation.ActiveKey.
func ActiveKeyFor(tenantID string, participantID uint, t AccommodationType) string {
	return fmt.Sprintf("%s:%d:%s", tenantID, participantID, t)
}

// Occupant rebuilds the allocation-time view of the occupant.
func (a Allocation) Occupant() Occupant {
	return Occupant{
		ParticipantID: a.ParticipantID,
		Name:          a.OccupantName,
		Email:         a.OccupantEmail,
		Gender:        a.OccupantGender,
		Role:          a.OccupantRole,
	}
}

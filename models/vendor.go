package models

import (
	"time"

	"gorm.io/gorm"
)

// VendorAccommodation is a contracted hotel.
type VendorAccommodation struct {
	gorm.Model

	TenantID     string `gorm:"column:tenant_id;size:64;index" json:"tenant_id"`
	Name         string `gorm:"size:255" json:"name"`
	Address      string `gorm:"type:text" json:"address"`
	ContactEmail string `gorm:"size:255" json:"contact_email"`
	ContactPhone string `gorm:"size:64" json:"contact_phone"`
}

// VendorRoomPool is the per-event inventory at a vendor. The *Available and
// CurrentOccupants columns are the ledger's cached counters; the Total
// columns are the configured pool size.
type VendorRoomPool struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TenantID              string `gorm:"column:tenant_id;size:64;uniqueIndex:idx_pool_tenant_event" json:"tenant_id"`
	EventID               uint   `gorm:"column:event_id;uniqueIndex:idx_pool_tenant_event" json:"event_id"`
	VendorAccommodationID uint   `gorm:"column:vendor_accommodation_id;index" json:"vendor_accommodation_id"`

	SingleRoomsTotal     int `gorm:"column:single_rooms_total" json:"single_rooms_total"`
	DoubleRoomsTotal     int `gorm:"column:double_rooms_total" json:"double_rooms_total"`
	SingleRoomsAvailable int `gorm:"column:single_rooms_available" json:"single_rooms_available"`
	DoubleRoomsAvailable int `gorm:"column:double_rooms_available" json:"double_rooms_available"`
	CurrentOccupants     int `gorm:"column:current_occupants" json:"current_occupants"`

	CheckInDate  *time.Time `gorm:"column:check_in_date" json:"check_in_date,omitempty"`
	CheckOutDate *time.Time `gorm:"column:check_out_date" json:"check_out_date,omitempty"`
}

func (p VendorRoomPool) CapacityEquivalent() int {
	return p.SingleRoomsTotal + 2*p.DoubleRoomsTotal
}

package models

import (
	"gorm.io/gorm"
)

type GuestHouse struct {
	gorm.Model

	TenantID string `gorm:"column:tenant_id;size:64;index" json:"tenant_id"`
	Name     string `gorm:"size:255" json:"name"`
	Address  string `gorm:"type:text" json:"address"`

	Rooms []Room `gorm:"foreignKey:GuestHouseID" json:"rooms,omitempty"`
}

// Room is a physical guesthouse room. CurrentOccupants is a cache of the
// active allocations pointing at it.
type Room struct {
	gorm.Model

	TenantID         string `gorm:"column:tenant_id;size:64;index" json:"tenant_id"`
	GuestHouseID     uint   `gorm:"column:guest_house_id;index" json:"guest_house_id"`
	RoomNumber       string `gorm:"column:room_number;type:varchar(50)" json:"room_number"`
	Floor            string `gorm:"type:varchar(10)" json:"floor"`
	Capacity         int    `gorm:"column:capacity;default:1" json:"capacity"`
	CurrentOccupants int    `gorm:"column:current_occupants;default:0" json:"current_occupants"`
}

func (r Room) Free() int {
	return r.Capacity - r.CurrentOccupants
}

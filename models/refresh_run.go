package models

import (
	"time"

	"gorm.io/datatypes"
)

// RefreshRun records one destructive rebuild of an event's vendor bookings.
type RefreshRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunID      string    `gorm:"column:run_id;size:36;uniqueIndex" json:"run_id"`
	TenantID   string    `gorm:"column:tenant_id;size:64;index" json:"tenant_id"`
	EventID    uint      `gorm:"column:event_id;index" json:"event_id"`
	Mode       string    `gorm:"column:mode;size:16" json:"mode"`
	StartedAt  time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt time.Time `gorm:"column:finished_at" json:"finished_at"`

	Stats datatypes.JSON `gorm:"column:stats" json:"stats"`
}

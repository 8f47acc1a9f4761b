package models

import (
	"pbs/src/types"
	"time"
)

// BlockedRange removes [StartDate, EndDate) from a property's calendar.
type BlockedRange struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	PropertyID    uint      `gorm:"index" json:"property_id"`
	StartDate     time.Time `gorm:"type:date" json:"start_date"`
	EndDate       time.Time `gorm:"type:date" json:"end_date"`
	Reason        string    `json:"reason"`
	IsMaintenance bool      `json:"is_maintenance"`
	CreatedByID   *uint     `json:"created_by,omitempty"`

	types.Timestamps
}

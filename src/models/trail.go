package models

import (
	"pbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrailLog struct {
	ID        uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	Type      string
	Initiator string
	Group     string
	Subject   string
	Payload   types.JSONB `gorm:"type:jsonb"`

	types.Timestamps
}

func (t *TrailLog) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

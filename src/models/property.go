package models

import (
	"pbs/src/config"
	"pbs/src/types"
	"slices"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type Property struct {
	ID                   uint                 `gorm:"primarykey" json:"id"`
	Name                 string               `json:"name"`
	Slug                 string               `gorm:"uniqueIndex" json:"slug"`
	Location             string               `json:"location,omitempty"`
	Country              string               `json:"country"`
	Description          *string              `json:"description,omitempty"`
	Status               types.PropertyStatus `json:"status"`
	MaxGuests            uint                 `json:"max_guests"`
	MinNights            uint                 `json:"min_nights"`
	PrepaymentPercentage uint                 `json:"prepayment_percentage"`
	CancellationDays     uint                 `json:"cancellation_days"`
	Currency             string               `json:"currency"`
	HasJacuzzi           bool                 `json:"has_jacuzzi"`

	PricingRecords []PricingRecord `gorm:"foreignKey:property_id" json:"pricing,omitempty"`
	Staff          []*User         `gorm:"many2many:property_staff;" json:"-"`

	types.Timestamps
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	}
	if p.Status == "" {
		p.Status = types.PROPERTY_FREE
	}
	if p.Currency == "" {
		p.Currency = config.GetDefaultCurrency()
	}
	return nil
}

// AllowsPets reports whether the pet add-on may be booked at this property.
func (p *Property) AllowsPets() bool {
	key := p.Slug
	if key == "" {
		key = slug.Make(p.Name)
	}
	return slices.Contains(config.GetPetFriendlyProperties(), key)
}

package models

import (
	"pbs/src/types"

	"github.com/shopspring/decimal"
)

// PricingRecord is one row of a property's rate catalog. A nil Occupancy
// applies to any party size, a nil MaxNights to any length of stay.
type PricingRecord struct {
	ID                uint                    `gorm:"primarykey" json:"id"`
	PropertyID        uint                    `gorm:"index" json:"property_id"`
	AccommodationType types.AccommodationType `gorm:"index" json:"accommodation_type"`
	GuestType         types.GuestTier         `json:"guest_type"`
	StayType          types.DurationTier      `json:"stay_type"`
	Occupancy         *uint                   `json:"number_of_guests"`
	MinNights         uint                    `json:"min_nights"`
	MaxNights         *uint                   `json:"max_nights"`
	NightlyRate       decimal.Decimal         `gorm:"type:numeric(10,2)" json:"price_per_night"`
	WeeklyRate        decimal.NullDecimal     `gorm:"type:numeric(10,2)" json:"weekly_price"`
	IncludesBreakfast bool                    `json:"includes_breakfast"`
	IncludesFullboard bool                    `json:"includes_fullboard"`

	types.Timestamps
}

func (r PricingRecord) CoversNights(nights int) bool {
	if int(r.MinNights) > nights {
		return false
	}
	return r.MaxNights == nil || int(*r.MaxNights) >= nights
}

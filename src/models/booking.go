package models

import (
	"pbs/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID                 uint                    `gorm:"primarykey" json:"id"`
	Reference          *string                 `gorm:"uniqueIndex" json:"booking_reference"`
	PropertyID         uint                    `gorm:"index" json:"property_id"`
	UserID             *uint                   `gorm:"index" json:"user_id,omitempty"`
	FullName           string                  `json:"full_name"`
	Email              string                  `json:"email"`
	Phone              string                  `json:"phone"`
	AccommodationType  types.AccommodationType `json:"accommodation_type"`
	GuestTier          types.GuestTier         `json:"guest_type"`
	DurationTier       types.DurationTier      `json:"stay_type"`
	CheckIn            time.Time               `gorm:"type:date;index" json:"check_in"`
	CheckOut           time.Time               `gorm:"type:date;index" json:"check_out"`
	Guests             uint                    `json:"guests"`
	Adults             *uint                   `json:"adults,omitempty"`
	Children           *uint                   `json:"children,omitempty"`
	TotalNights        uint                    `json:"total_nights"`
	PricingRecordID    uint                    `json:"pricing_id"`
	NightlyRate        decimal.Decimal         `gorm:"type:numeric(10,2)" json:"price_per_night"`
	WeeklyRate         decimal.NullDecimal     `gorm:"type:numeric(10,2)" json:"weekly_price"`
	TotalAmount        decimal.Decimal         `gorm:"type:numeric(10,2)" json:"total_amount"`
	Currency           string                  `json:"currency"`
	IncludesBreakfast  bool                    `json:"includes_breakfast"`
	IncludesFullboard  bool                    `json:"includes_fullboard"`
	PetIncluded        bool                    `json:"pet_included"`
	JacuzziReservation bool                    `json:"jacuzzi_reservation"`
	Status             types.BookingStatus     `gorm:"index" json:"status"`
	SpecialRequests    *string                 `json:"special_requests,omitempty"`
	ConfirmedAt        *time.Time              `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time              `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time              `json:"completed_at,omitempty"`

	Property *Property `gorm:"foreignKey:property_id" json:"property,omitempty"`
	User     *User     `gorm:"foreignKey:user_id" json:"-"`
	Payment  *Payment  `gorm:"foreignKey:booking_id" json:"payment,omitempty"`

	types.Timestamps
}

func (b *Booking) ReferenceString() string {
	if b.Reference == nil {
		return ""
	}
	return *b.Reference
}

func (b *Booking) IsActive() bool {
	return b.Status == types.BOOKING_PENDING || b.Status == types.BOOKING_CONFIRMED
}

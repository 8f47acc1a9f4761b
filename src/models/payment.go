package models

import (
	"pbs/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID               uint                `gorm:"primarykey" json:"id"`
	BookingID        uint                `gorm:"uniqueIndex" json:"booking_id"`
	UserID           *uint               `json:"user_id,omitempty"`
	Provider         string              `json:"provider"`
	Method           types.PaymentMethod `json:"payment_method"`
	Amount           decimal.Decimal     `gorm:"type:numeric(10,2)" json:"amount"`
	Currency         string              `json:"currency"`
	PrepaymentAmount decimal.Decimal     `gorm:"type:numeric(10,2)" json:"prepayment_amount"`
	RemainingAmount  decimal.Decimal     `gorm:"type:numeric(10,2)" json:"remaining_amount"`
	PaidAmount       decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"paid_amount"`
	TransactionID    string              `gorm:"uniqueIndex" json:"transaction_id"`
	Reference        string              `gorm:"uniqueIndex" json:"reference"`
	ProviderID       string              `json:"-"`
	AccessCode       string              `json:"access_code,omitempty"`
	AuthorizationURL string              `json:"authorization_url,omitempty"`
	Status           types.PaymentStatus `gorm:"index" json:"status"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	RefundedAt       *time.Time          `json:"refunded_at,omitempty"`
	FailureReason    *string             `json:"failure_reason,omitempty"`
	Metadata         types.JSONB         `gorm:"type:jsonb" json:"-"`

	Booking *Booking `gorm:"foreignKey:booking_id" json:"-"`

	types.Timestamps
}

// PaymentAttempt keeps a reference the payment was initialized with before a
// retry replaced it, so late notifications for it still resolve.
type PaymentAttempt struct {
	ID         uint                `gorm:"primarykey" json:"id"`
	PaymentID  uint                `gorm:"index" json:"payment_id"`
	Reference  string              `gorm:"uniqueIndex" json:"reference"`
	ProviderID string              `json:"-"`
	Status     types.PaymentStatus `json:"status"`

	types.Timestamps
}

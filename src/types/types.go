package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type PaymentReferenceParams struct {
	Reference string `uri:"reference" binding:"required"`
}

type AccommodationType string

const (
	ACCOMMODATION_MASTER_BEDROOM AccommodationType = "master_bedroom"
	ACCOMMODATION_SINGLE_BEDROOM AccommodationType = "single_bedroom"
	ACCOMMODATION_FULL_APARTMENT AccommodationType = "full_apartment"
)

type GuestTier string

const (
	GUEST_LOCAL         GuestTier = "local"
	GUEST_INTERNATIONAL GuestTier = "international"
	GUEST_ANY           GuestTier = "all"
)

type DurationTier string

const (
	DURATION_SHORT_TERM DurationTier = "short_term"
	DURATION_LONG_TERM  DurationTier = "long_term"
	DURATION_WEEKLY     DurationTier = "weekly"
)

type PropertyStatus string

const (
	PROPERTY_FREE        PropertyStatus = "free"
	PROPERTY_BOOKED      PropertyStatus = "booked"
	PROPERTY_MAINTENANCE PropertyStatus = "maintenance"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_COMPLETED BookingStatus = "completed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
)

// ActiveBookingStatuses hold dates on the calendar.
var ActiveBookingStatuses = []any{BOOKING_PENDING, BOOKING_CONFIRMED}

type PaymentStatus string

const (
	PAYMENT_PENDING    PaymentStatus = "pending"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_COMPLETED  PaymentStatus = "completed"
	PAYMENT_FAILED     PaymentStatus = "failed"
	PAYMENT_REFUNDED   PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PAYMENT_METHOD_CARD          PaymentMethod = "card"
	PAYMENT_METHOD_BANK_TRANSFER PaymentMethod = "bank_transfer"
	PAYMENT_METHOD_MPESA         PaymentMethod = "mpesa"
	PAYMENT_METHOD_PAYPAL        PaymentMethod = "paypal"
)

type UserRole string

const (
	ROLE_ADMIN    UserRole = "admin"
	ROLE_STAFF    UserRole = "staff"
	ROLE_EXTERNAL UserRole = "external"
)

type CreateBookingRequestBody struct {
	PropertyID         uint   `json:"property" binding:"required"`
	AccommodationType  string `json:"accommodation_type" binding:"required,oneof=master_bedroom single_bedroom full_apartment"`
	CheckIn            string `json:"check_in" binding:"required,bookingdate"`
	CheckOut           string `json:"check_out" binding:"required,bookingdate,afterdate=CheckIn"`
	Guests             uint   `json:"guests" binding:"required,min=1"`
	Adults             *uint  `json:"adults,omitempty"`
	Children           *uint  `json:"children,omitempty"`
	FullName           string `json:"full_name,omitempty"`
	Email              string `json:"email,omitempty" binding:"omitempty,email"`
	Phone              string `json:"phone,omitempty"`
	PetIncluded        bool   `json:"pet_included,omitempty"`
	JacuzziReservation bool   `json:"jacuzzi_reservation,omitempty"`
	SpecialRequests    string `json:"special_requests,omitempty" binding:"max=2000"`
}

type PriceQueryParams struct {
	PropertyID        uint   `form:"property" binding:"required"`
	CheckIn           string `form:"check_in" binding:"required,bookingdate"`
	CheckOut          string `form:"check_out" binding:"required,bookingdate"`
	AccommodationType string `form:"accommodation_type" binding:"required,oneof=master_bedroom single_bedroom full_apartment"`
	Guests            *int   `form:"number_of_guests" binding:"omitempty,min=1"`
	Phone             string `form:"phone"`
}

type AvailabilityQueryParams struct {
	CheckIn  string `form:"check_in" binding:"required,bookingdate"`
	CheckOut string `form:"check_out" binding:"required,bookingdate"`
}

type CreateBlockedRangeRequestBody struct {
	StartDate     string `json:"start_date" binding:"required,bookingdate"`
	EndDate       string `json:"end_date" binding:"required,bookingdate,afterdate=StartDate"`
	Reason        string `json:"reason" binding:"required,max=255"`
	IsMaintenance bool   `json:"is_maintenance,omitempty"`
}

type InitializePaymentRequestBody struct {
	BookingID   uint   `json:"booking_id" binding:"required"`
	Email       string `json:"email,omitempty" binding:"omitempty,email"`
	Method      string `json:"payment_method,omitempty" binding:"omitempty,oneof=card bank_transfer mpesa paypal"`
	CallbackURL string `json:"callback_url,omitempty" binding:"omitempty,url"`
}

type Metadata map[string]any

type Handler func(payload string)

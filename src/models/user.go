package models

import (
	"pbs/src/types"
)

// User mirrors the identity store's profile. Accounts are created and
// authenticated elsewhere; only the fields the booking flow reads live here.
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	Name               string         `json:"name,omitempty"`
	Email              string         `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	CountryOfResidence string         `json:"country_of_residence,omitempty"`
	Role               types.UserRole `json:"role,omitempty"`

	Bookings           []Booking   `gorm:"foreignKey:user_id" json:"bookings,omitempty"`
	AssignedProperties []*Property `gorm:"many2many:property_staff;" json:"assigned_properties,omitempty"`

	types.Timestamps
}

package scopes

import (
	"pbs/src/types"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithPendingStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", types.BOOKING_PENDING)
}

func WithActiveStatus(db *gorm.DB) *gorm.DB {
	return db.Where(clause.IN{Column: "status", Values: types.ActiveBookingStatuses})
}

func ForProperty(propertyID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("property_id = ?", propertyID)
	}
}

// TouchingRange selects bookings that overlap [checkIn, checkOut) or that end
// on checkIn, the latter being same-day turnovers.
func TouchingRange(checkIn, checkOut time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("check_in < ? AND check_out >= ?", checkOut, checkIn)
	}
}

func OverlappingBlock(start, end time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("start_date < ? AND end_date > ?", end, start)
	}
}

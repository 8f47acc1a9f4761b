package booking

import (
	"context"

	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"

	"gorm.io/gorm"
)

type ListFilter struct {
	Status     types.BookingStatus
	PropertyID uint
}

// ListBookings returns the bookings visible to actor: everything for admins,
// assigned properties for staff, and their own bookings for everyone else.
func (m *Manager) ListBookings(ctx context.Context, actor *Actor, filter ListFilter) ([]models.Booking, error) {
	if !actor.IsAuthenticated() {
		return nil, types.NewPermissionDenied("authentication required")
	}

	query := m.db.WithContext(ctx).Model(&models.Booking{}).Preload("Property").Preload("Payment")
	switch {
	case actor.IsAdmin():
	case actor.IsStaff():
		query = query.Where("property_id IN (?)", m.db.Table("property_staff").Select("property_id").Where("user_id = ?", actor.UserID))
	default:
		query = query.Scopes(ownedBy(actor))
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PropertyID != 0 {
		query = query.Scopes(scopes.ForProperty(filter.PropertyID))
	}

	var bookings []models.Booking
	if err := query.Order("check_in DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (m *Manager) ListMine(ctx context.Context, actor *Actor) ([]models.Booking, error) {
	if !actor.IsAuthenticated() {
		return nil, types.NewPermissionDenied("authentication required")
	}
	var bookings []models.Booking
	err := m.db.WithContext(ctx).
		Preload("Property").
		Preload("Payment").
		Scopes(ownedBy(actor)).
		Order("check_in DESC").
		Find(&bookings).
		Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (m *Manager) GetBooking(ctx context.Context, actor *Actor, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := m.db.WithContext(ctx).Preload("Property").Preload("Payment").Scopes(scopes.WithID(id)).First(&b).Error; err != nil {
		return nil, notFound(err, "booking")
	}
	allowed, err := m.canAccess(ctx, actor, &b)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, types.NewPermissionDenied("you are not allowed to view this booking").
			WithDetail("booking_id", id)
	}
	return &b, nil
}

// ownedBy matches bookings made by the account or, for guest bookings, with
// the account's e-mail address.
func ownedBy(actor *Actor) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? OR (user_id IS NULL AND LOWER(email) = LOWER(?))", actor.UserID, actor.Email)
	}
}

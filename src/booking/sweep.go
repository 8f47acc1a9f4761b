package booking

import (
	"context"
	"log"
	"time"

	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"

	"gorm.io/gorm"
)

// ExpirePendingBookings cancels pending bookings older than ttl that have no
// completed payment, releasing their dates. It returns how many were
// cancelled.
func (m *Manager) ExpirePendingBookings(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := m.Now().UTC().Add(-ttl)

	var ids []uint
	err := m.db.WithContext(ctx).
		Model(&models.Booking{}).
		Scopes(scopes.WithPendingStatus).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM payments WHERE payments.booking_id = bookings.id AND payments.status IN ?)",
			[]types.PaymentStatus{types.PAYMENT_COMPLETED, types.PAYMENT_REFUNDED}).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		b, err := m.cancel(ctx, id, "system", "payment not received in time")
		if err != nil {
			if types.IsKind(err, types.VALIDATION_ERROR) {
				continue
			}
			log.Printf("[scheduler] Failed to expire booking %d: %s\n", id, err.Error())
			continue
		}
		expired++
		m.publish("booking.expired", b)
	}
	return expired, nil
}

// CompleteFinishedStays moves confirmed bookings whose check-out has passed to
// completed and frees their properties.
func (m *Manager) CompleteFinishedStays(ctx context.Context) (int, error) {
	today := m.today()

	var bookings []models.Booking
	err := m.db.WithContext(ctx).
		Where("status = ? AND check_out < ?", types.BOOKING_CONFIRMED, today).
		Find(&bookings).
		Error
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range bookings {
		b := &bookings[i]
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := m.Now().UTC()
			res := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", b.ID, types.BOOKING_CONFIRMED).
				Updates(map[string]any{"status": types.BOOKING_COMPLETED, "completed_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			b.Status = types.BOOKING_COMPLETED
			b.CompletedAt = &now
			if err := refreshPropertyStatus(tx, b.PropertyID, b.ID, today); err != nil {
				return err
			}
			return trail(tx, "booking.completed", "system", b.ReferenceString(), types.JSONB{"booking_id": b.ID})
		})
		if err != nil {
			log.Printf("[scheduler] Failed to complete booking %d: %s\n", b.ID, err.Error())
			continue
		}
		if b.Status == types.BOOKING_COMPLETED {
			completed++
			m.publish("booking.completed", b)
		}
	}
	return completed, nil
}

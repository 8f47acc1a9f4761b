package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pbs/src/lib"
	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"
	"pbs/src/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNoProcessor = errors.New("no payment processor configured")

// CancelBooking cancels a pending or confirmed booking for its owner, an
// admin, or staff assigned to the property. A completed payment is refunded
// in the same transaction; a refund failure leaves the booking untouched.
func (m *Manager) CancelBooking(ctx context.Context, actor *Actor, bookingID uint) (*models.Booking, error) {
	var b models.Booking
	if err := m.db.WithContext(ctx).Preload("Property").Scopes(scopes.WithID(bookingID)).First(&b).Error; err != nil {
		return nil, notFound(err, "booking")
	}

	allowed, err := m.canAccess(ctx, actor, &b)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, types.NewPermissionDenied("you are not allowed to cancel this booking").
			WithDetail("booking_id", b.ID)
	}
	if err := cancellable(&b); err != nil {
		return nil, err
	}
	if err := m.checkCancellationWindow(actor, &b); err != nil {
		return nil, err
	}

	cancelled, err := m.cancel(ctx, b.ID, initiator(actor, b.Email), "cancelled by guest")
	if err != nil {
		return nil, err
	}
	m.afterCancel(cancelled)
	return cancelled, nil
}

func cancellable(b *models.Booking) error {
	switch b.Status {
	case types.BOOKING_CANCELLED:
		return types.NewValidationError("already_cancelled", "booking is already cancelled").
			WithDetail("booking_id", b.ID)
	case types.BOOKING_COMPLETED:
		return types.NewValidationError("cannot_cancel_completed", "a completed stay cannot be cancelled").
			WithDetail("booking_id", b.ID)
	}
	return nil
}

// checkCancellationWindow applies the property's free cancellation period to
// guests. Admins and staff may cancel at any time.
func (m *Manager) checkCancellationWindow(actor *Actor, b *models.Booking) error {
	if b.Property == nil || b.Property.CancellationDays == 0 || actor.IsAdmin() || actor.IsStaff() {
		return nil
	}
	deadline := utils.Day(b.CheckIn).AddDate(0, 0, -int(b.Property.CancellationDays))
	if m.today().After(deadline) {
		return types.NewPolicyViolation("cancellation_deadline_passed", fmt.Sprintf("bookings must be cancelled at least %d days before check-in", b.Property.CancellationDays)).
			WithDetail("cancellation_days", b.Property.CancellationDays).
			WithDetail("deadline", utils.FormatDate(deadline))
	}
	return nil
}

// cancel runs the cancellation transaction. The booking row is re-read under
// lock so a concurrent confirmation or cancellation is observed.
func (m *Manager) cancel(ctx context.Context, bookingID uint, by string, reason string) (*models.Booking, error) {
	var b models.Booking
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(scopes.WithID(bookingID)).First(&b).Error; err != nil {
			return notFound(err, "booking")
		}
		if err := cancellable(&b); err != nil {
			return err
		}

		now := m.Now().UTC()
		err := tx.Model(&models.Booking{}).Scopes(scopes.WithID(b.ID)).Updates(map[string]any{
			"status":       types.BOOKING_CANCELLED,
			"cancelled_at": now,
		}).Error
		if err != nil {
			return err
		}
		b.Status = types.BOOKING_CANCELLED
		b.CancelledAt = &now

		if err := refreshPropertyStatus(tx, b.PropertyID, b.ID, m.today()); err != nil {
			return err
		}

		payment, err := markRefunded(tx, b.ID, now)
		if err != nil {
			return err
		}

		err = trail(tx, "booking.cancelled", by, b.ReferenceString(), types.JSONB{
			"booking_id": b.ID,
			"reason":     reason,
			"refunded":   payment != nil,
		})
		if err != nil {
			return err
		}
		if payment == nil {
			return nil
		}
		return m.refund(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	if err := m.db.WithContext(ctx).Preload("Payment").Preload("Property").Scopes(scopes.WithID(b.ID)).First(&b).Error; err != nil {
		log.Printf("[booking] Failed to reload cancelled booking %d: %s\n", b.ID, err.Error())
	}
	return &b, nil
}

// markRefunded flags the booking's completed payment as refunded and returns
// it, or nil when nothing was paid. The processor refund is left to the
// caller as the last step before commit.
func markRefunded(tx *gorm.DB, bookingID uint, now time.Time) (*models.Payment, error) {
	var payment models.Payment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("booking_id = ?", bookingID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if payment.Status != types.PAYMENT_COMPLETED {
		return nil, nil
	}

	err = tx.Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(map[string]any{
		"status":      types.PAYMENT_REFUNDED,
		"refunded_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (m *Manager) refund(ctx context.Context, payment *models.Payment) error {
	if m.processor == nil {
		return types.NewExternalServiceFailure("payments", errNoProcessor)
	}
	amount := payment.Amount
	if payment.PaidAmount.Valid {
		amount = payment.PaidAmount.Decimal
	}
	err := m.processor.Refund(ctx, &lib.RefundInput{
		Reference:  payment.Reference,
		ProviderID: payment.ProviderID,
		Amount:     amount,
		Currency:   payment.Currency,
	})
	if err != nil {
		return types.NewExternalServiceFailure(m.processor.Name(), err).
			WithDetail("payment_reference", payment.Reference)
	}
	return nil
}

func (m *Manager) afterCancel(b *models.Booking) {
	m.publish("booking.cancelled", b)
	m.sendCancellationMail(b)
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"pbs/src/lib"
	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"
	"pbs/src/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	webhookReplayTTL = 72 * time.Hour
	amountMismatch   = "amount_mismatch"
)

type PaymentInput struct {
	BookingID   uint
	Email       string
	Method      types.PaymentMethod
	CallbackURL string
}

// InitializePayment opens a payment for a pending booking and returns the row
// holding the processor's authorization URL. A processor failure is recorded
// on the payment and the booking stays pending.
func (m *Manager) InitializePayment(ctx context.Context, actor *Actor, in *PaymentInput) (*models.Payment, error) {
	var b models.Booking
	if err := m.db.WithContext(ctx).Preload("Property").Scopes(scopes.WithID(in.BookingID)).First(&b).Error; err != nil {
		return nil, notFound(err, "booking")
	}

	if err := m.checkPayer(ctx, actor, &b, in.Email); err != nil {
		return nil, err
	}
	if b.Status != types.BOOKING_PENDING {
		return nil, types.NewValidationError("booking_not_pending", "only pending bookings can be paid").
			WithDetail("status", b.Status)
	}
	if m.processor == nil {
		return nil, types.NewExternalServiceFailure("payments", errNoProcessor)
	}

	var payment models.Payment
	err := m.db.WithContext(ctx).Where("booking_id = ?", b.ID).First(&payment).Error
	switch {
	case err == nil:
		if payment.Status == types.PAYMENT_COMPLETED || payment.Status == types.PAYMENT_REFUNDED {
			return nil, types.NewValidationError("payment_already_completed", "this booking has already been paid").
				WithDetail("payment_reference", payment.Reference)
		}
		if payment.Status == types.PAYMENT_PENDING && payment.AuthorizationURL != "" {
			return &payment, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment = models.Payment{BookingID: b.ID}
	default:
		return nil, err
	}

	previous := models.PaymentAttempt{
		PaymentID:  payment.ID,
		Reference:  payment.Reference,
		ProviderID: payment.ProviderID,
		Status:     payment.Status,
	}

	amount, remaining := prepayment(&b)
	method := in.Method
	if method == "" {
		method = types.PAYMENT_METHOD_CARD
	}
	payment.UserID = b.UserID
	payment.Provider = m.processor.Name()
	payment.Method = method
	payment.Amount = amount
	payment.Currency = b.Currency
	payment.PrepaymentAmount = amount
	payment.RemainingAmount = remaining
	payment.TransactionID = utils.NewTransactionID()
	payment.Reference = utils.NewPaymentReference()
	payment.ProviderID = ""
	payment.AccessCode = ""
	payment.AuthorizationURL = ""
	payment.Status = types.PAYMENT_PROCESSING
	payment.FailureReason = nil
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if previous.Reference != "" {
			if err := tx.Create(&previous).Error; err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	email := b.Email
	if email == "" {
		email = in.Email
	}
	auth, err := m.processor.Initialize(ctx, &lib.InitializePaymentInput{
		Email:       email,
		Amount:      amount,
		Currency:    b.Currency,
		Reference:   payment.Reference,
		CallbackURL: in.CallbackURL,
		Description: fmt.Sprintf("Booking %s", b.ReferenceString()),
		Metadata: map[string]string{
			"booking_id":        fmt.Sprint(b.ID),
			"booking_reference": b.ReferenceString(),
			"transaction_id":    payment.TransactionID,
		},
	})
	if err != nil {
		reason := err.Error()
		updateErr := m.db.WithContext(ctx).Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(map[string]any{
			"status":         types.PAYMENT_FAILED,
			"failure_reason": reason,
		}).Error
		if updateErr != nil {
			log.Printf("[booking] Failed to record payment failure for %s: %s\n", payment.Reference, updateErr.Error())
		}
		return nil, types.NewExternalServiceFailure(m.processor.Name(), err).
			WithDetail("payment_reference", payment.Reference)
	}

	err = m.db.WithContext(ctx).Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(map[string]any{
		"status":            types.PAYMENT_PENDING,
		"provider_id":       auth.ProviderID,
		"access_code":       auth.AccessCode,
		"authorization_url": auth.AuthorizationURL,
	}).Error
	if err != nil {
		return nil, err
	}
	payment.Status = types.PAYMENT_PENDING
	payment.ProviderID = auth.ProviderID
	payment.AccessCode = auth.AccessCode
	payment.AuthorizationURL = auth.AuthorizationURL
	return &payment, nil
}

// checkPayer allows the booking's owner. Anonymous callers must present the
// e-mail the guest booking was made with.
func (m *Manager) checkPayer(ctx context.Context, actor *Actor, b *models.Booking, email string) error {
	if actor.IsAuthenticated() {
		allowed, err := m.canAccess(ctx, actor, b)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
	} else if b.UserID == nil && email != "" && strings.EqualFold(email, b.Email) {
		return nil
	}
	return types.NewPermissionDenied("you are not allowed to pay for this booking").
		WithDetail("booking_id", b.ID)
}

// prepayment splits the total by the property's prepayment percentage. A
// percentage of zero or 100 and above charges the full amount.
func prepayment(b *models.Booking) (decimal.Decimal, decimal.Decimal) {
	total := b.TotalAmount
	if b.Property == nil || b.Property.PrepaymentPercentage == 0 || b.Property.PrepaymentPercentage >= 100 {
		return total, decimal.Zero
	}
	amount := total.Mul(decimal.NewFromInt(int64(b.Property.PrepaymentPercentage))).Div(decimal.NewFromInt(100)).Round(2)
	return amount, total.Sub(amount)
}

// VerifyPayment asks the processor for the payment's state and applies it.
func (m *Manager) VerifyPayment(ctx context.Context, reference string) (*models.Payment, error) {
	payment, attempt, err := lookupPayment(m.db.WithContext(ctx), reference, false)
	if err != nil {
		return nil, err
	}
	providerID := payment.ProviderID
	settled := payment.Status == types.PAYMENT_COMPLETED || payment.Status == types.PAYMENT_REFUNDED
	if attempt != nil {
		providerID = attempt.ProviderID
		settled = attempt.Status == types.PAYMENT_REFUNDED
	}
	if settled {
		return payment, nil
	}
	if m.processor == nil {
		return nil, types.NewExternalServiceFailure("payments", errNoProcessor)
	}

	result, err := m.processor.Verify(ctx, reference, providerID)
	if err != nil {
		return nil, types.NewExternalServiceFailure(m.processor.Name(), err).
			WithDetail("payment_reference", reference)
	}

	switch result.Status {
	case lib.PAYMENT_SUCCESS:
		return m.ConfirmPayment(ctx, reference, result.PaidAmount)
	case lib.PAYMENT_FAILED, lib.PAYMENT_ABANDONED:
		return m.MarkPaymentFailed(ctx, reference, fmt.Sprintf("payment %s", result.Status))
	}
	return payment, nil
}

func (m *Manager) findPayment(ctx context.Context, reference string) (*models.Payment, error) {
	payment, _, err := lookupPayment(m.db.WithContext(ctx), reference, false)
	return payment, err
}

// lookupPayment resolves reference to its payment, falling back to references
// a retry replaced. The attempt is nil when reference is the current one.
func lookupPayment(tx *gorm.DB, reference string, lock bool) (*models.Payment, *models.PaymentAttempt, error) {
	query := func() *gorm.DB {
		if lock {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return tx
	}

	var payment models.Payment
	err := query().Where("reference = ?", reference).First(&payment).Error
	if err == nil {
		return &payment, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	var attempt models.PaymentAttempt
	if err := query().Where("reference = ?", reference).First(&attempt).Error; err != nil {
		return nil, nil, notFound(err, "payment")
	}
	if err := query().Scopes(scopes.WithID(attempt.PaymentID)).First(&payment).Error; err != nil {
		return nil, nil, notFound(err, "payment")
	}
	return &payment, &attempt, nil
}

// adoptAttempt makes a replaced reference current again because the processor
// captured money on it. The reference it displaces becomes the attempt.
func adoptAttempt(tx *gorm.DB, payment *models.Payment, attempt *models.PaymentAttempt) error {
	displaced := map[string]any{
		"reference":   payment.Reference,
		"provider_id": payment.ProviderID,
		"status":      payment.Status,
	}
	err := tx.Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(map[string]any{
		"reference":   attempt.Reference,
		"provider_id": attempt.ProviderID,
	}).Error
	if err != nil {
		return err
	}
	if err := tx.Model(&models.PaymentAttempt{}).Scopes(scopes.WithID(attempt.ID)).Updates(displaced).Error; err != nil {
		return err
	}
	payment.Reference = attempt.Reference
	payment.ProviderID = attempt.ProviderID
	return nil
}

// refundAttempt returns money captured on a replaced reference after the
// payment was already settled through another one.
func (m *Manager) refundAttempt(ctx context.Context, tx *gorm.DB, payment *models.Payment, attempt *models.PaymentAttempt, paid decimal.Decimal) error {
	log.Printf("[booking] Payment %s settled twice through %s, refunding\n", payment.Reference, attempt.Reference)
	err := tx.Model(&models.PaymentAttempt{}).Scopes(scopes.WithID(attempt.ID)).Update("status", types.PAYMENT_REFUNDED).Error
	if err != nil {
		return err
	}
	err = trail(tx, "payment.refunded", "system", attempt.Reference, types.JSONB{
		"payment_id": payment.ID,
		"booking_id": payment.BookingID,
		"amount":     paid.StringFixed(2),
	})
	if err != nil {
		return err
	}
	return m.refund(ctx, &models.Payment{
		Reference:  attempt.Reference,
		ProviderID: attempt.ProviderID,
		Amount:     paid,
		Currency:   payment.Currency,
	})
}

// ConfirmPayment records a successful payment. It is safe to call repeatedly:
// once the payment is completed later calls change nothing and emit nothing.
// A payment arriving for a booking that is no longer pending is refunded, and
// one short of the expected amount fails without confirming the booking.
func (m *Manager) ConfirmPayment(ctx context.Context, reference string, paid decimal.Decimal) (*models.Payment, error) {
	var (
		b         models.Booking
		confirmed bool
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, attempt, err := lookupPayment(tx, reference, true)
		if err != nil {
			return err
		}
		if payment.Status == types.PAYMENT_COMPLETED || payment.Status == types.PAYMENT_REFUNDED {
			if attempt == nil || attempt.Status == types.PAYMENT_REFUNDED {
				return nil
			}
			return m.refundAttempt(ctx, tx, payment, attempt, paid)
		}
		if attempt != nil {
			if err := adoptAttempt(tx, payment, attempt); err != nil {
				return err
			}
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(scopes.WithID(payment.BookingID)).First(&b).Error; err != nil {
			return notFound(err, "booking")
		}

		now := m.Now().UTC()
		updates := map[string]any{
			"status":         types.PAYMENT_COMPLETED,
			"completed_at":   now,
			"paid_amount":    decimal.NewNullDecimal(paid),
			"failure_reason": nil,
		}
		payment.PaidAmount = decimal.NewNullDecimal(paid)

		if b.Status != types.BOOKING_PENDING {
			log.Printf("[booking] Payment %s arrived for %s booking %d, refunding\n", payment.Reference, b.Status, b.ID)
			updates["status"] = types.PAYMENT_REFUNDED
			updates["refunded_at"] = now
			if err := tx.Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(updates).Error; err != nil {
				return err
			}
			err := trail(tx, "payment.refunded", "system", payment.Reference, types.JSONB{
				"booking_id":     b.ID,
				"booking_status": b.Status,
				"amount":         paid.StringFixed(2),
			})
			if err != nil {
				return err
			}
			return m.refund(ctx, payment)
		}

		if lib.MinorUnits(paid) < lib.MinorUnits(payment.Amount) {
			log.Printf("[booking] Payment %s short: expected %s, got %s\n", payment.Reference, payment.Amount.StringFixed(2), paid.StringFixed(2))
			err := tx.Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(map[string]any{
				"status":         types.PAYMENT_FAILED,
				"paid_amount":    decimal.NewNullDecimal(paid),
				"failure_reason": amountMismatch,
			}).Error
			if err != nil {
				return err
			}
			return trail(tx, "payment.amount_mismatch", "system", payment.Reference, types.JSONB{
				"booking_id": b.ID,
				"expected":   payment.Amount.StringFixed(2),
				"paid":       paid.StringFixed(2),
			})
		}

		if err := tx.Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(updates).Error; err != nil {
			return err
		}
		if err := confirmBooking(tx, &b, now); err != nil {
			return err
		}
		confirmed = true
		return trail(tx, "booking.confirmed", "system", b.ReferenceString(), types.JSONB{
			"booking_id":        b.ID,
			"payment_reference": payment.Reference,
			"amount":            paid.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		m.afterConfirm(&b)
	}
	return m.findPayment(ctx, reference)
}

func confirmBooking(tx *gorm.DB, b *models.Booking, now time.Time) error {
	err := tx.Model(&models.Booking{}).Scopes(scopes.WithID(b.ID)).Updates(map[string]any{
		"status":       types.BOOKING_CONFIRMED,
		"confirmed_at": now,
	}).Error
	if err != nil {
		return err
	}
	b.Status = types.BOOKING_CONFIRMED
	b.ConfirmedAt = &now

	return tx.Model(&models.Property{}).
		Scopes(scopes.WithID(b.PropertyID)).
		Where("status <> ?", types.PROPERTY_MAINTENANCE).
		Update("status", types.PROPERTY_BOOKED).
		Error
}

// ConfirmBooking is the admin override of pending to confirmed without a
// completed payment.
func (m *Manager) ConfirmBooking(ctx context.Context, actor *Actor, bookingID uint) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, types.NewPermissionDenied("only admins can confirm bookings")
	}
	var b models.Booking
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(scopes.WithID(bookingID)).First(&b).Error; err != nil {
			return notFound(err, "booking")
		}
		if b.Status != types.BOOKING_PENDING {
			return types.NewValidationError("booking_not_pending", "only pending bookings can be confirmed").
				WithDetail("status", b.Status)
		}
		if err := confirmBooking(tx, &b, m.Now().UTC()); err != nil {
			return err
		}
		return trail(tx, "booking.confirmed", initiator(actor, ""), b.ReferenceString(), types.JSONB{
			"booking_id": b.ID,
			"override":   true,
		})
	})
	if err != nil {
		return nil, err
	}
	m.afterConfirm(&b)
	return &b, nil
}

// MarkPaymentFailed records a failed attempt. The booking stays pending so
// the guest can retry.
func (m *Manager) MarkPaymentFailed(ctx context.Context, reference string, reason string) (*models.Payment, error) {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, attempt, err := lookupPayment(tx, reference, true)
		if err != nil {
			return err
		}
		if attempt != nil {
			if attempt.Status == types.PAYMENT_REFUNDED {
				return nil
			}
			return tx.Model(&models.PaymentAttempt{}).Scopes(scopes.WithID(attempt.ID)).Update("status", types.PAYMENT_FAILED).Error
		}
		if payment.Status == types.PAYMENT_COMPLETED || payment.Status == types.PAYMENT_REFUNDED {
			return nil
		}
		return tx.Model(&models.Payment{}).Scopes(scopes.WithID(payment.ID)).Updates(map[string]any{
			"status":         types.PAYMENT_FAILED,
			"failure_reason": reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return m.findPayment(ctx, reference)
}

// HandleWebhook verifies and applies a processor notification. Deliveries
// already seen are skipped; the payment status check in ConfirmPayment keeps
// replays harmless when the cache is unavailable.
func (m *Manager) HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error {
	if m.processor == nil || m.processor.Name() != provider {
		return types.NewNotFound("webhook").WithDetail("provider", provider)
	}

	event, err := m.processor.ParseWebhook(payload, header)
	if err != nil {
		if errors.Is(err, lib.ErrInvalidSignature) {
			return types.NewValidationError("invalid_signature", "webhook signature verification failed").WithCause(err)
		}
		return types.NewValidationError("invalid_webhook_payload", "webhook payload could not be parsed").WithCause(err)
	}
	if event.Reference == "" || event.Status == "" {
		log.Printf("[booking] Ignoring %s webhook %s\n", provider, event.Type)
		return nil
	}
	if !m.claimDelivery(ctx, event.ID) {
		log.Printf("[booking] Duplicate %s webhook %s\n", provider, event.ID)
		return nil
	}

	switch event.Status {
	case lib.PAYMENT_SUCCESS:
		_, err = m.ConfirmPayment(ctx, event.Reference, event.PaidAmount)
	case lib.PAYMENT_FAILED, lib.PAYMENT_ABANDONED:
		_, err = m.MarkPaymentFailed(ctx, event.Reference, fmt.Sprintf("%s: %s", event.Type, event.Status))
	}
	if err != nil {
		m.releaseDelivery(ctx, event.ID)
		return err
	}
	return nil
}

func deliveryKey(id string) string {
	return fmt.Sprintf("webhook:%s", id)
}

func (m *Manager) claimDelivery(ctx context.Context, id string) bool {
	if m.cache == nil || id == "" {
		return true
	}
	ok, err := m.cache.SetNX(ctx, deliveryKey(id), 1, webhookReplayTTL).Result()
	if err != nil {
		log.Printf("[booking] Replay guard unavailable: %s\n", err.Error())
		return true
	}
	return ok
}

func (m *Manager) releaseDelivery(ctx context.Context, id string) {
	if m.cache == nil || id == "" {
		return
	}
	if err := m.cache.Del(ctx, deliveryKey(id)).Err(); err != nil {
		log.Printf("[booking] Failed to release webhook %s: %s\n", id, err.Error())
	}
}

func (m *Manager) afterConfirm(b *models.Booking) {
	m.publish("booking.confirmed", b)
	m.sendConfirmationMail(b)
}

package booking

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"pbs/src/lib"
	"pbs/src/models"
	"pbs/src/types"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializePaymentChargesPrepayment(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")

	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: "JAN@example.com"})

	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_PENDING, payment.Status)
	assert.Equal(t, "fake", payment.Provider)
	assert.Equal(t, types.PAYMENT_METHOD_CARD, payment.Method)
	assert.True(t, decimal.NewFromInt(180).Equal(payment.Amount), payment.Amount.String())
	assert.True(t, decimal.NewFromInt(420).Equal(payment.RemainingAmount), payment.RemainingAmount.String())
	assert.Equal(t, "https://pay.example/"+payment.Reference, payment.AuthorizationURL)
	assert.Regexp(t, `^TXN-[0-9A-F]{12}$`, payment.TransactionID)

	again, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: "jan@example.com"})
	require.Nil(t, err)
	assert.Equal(t, payment.ID, again.ID)
	assert.Equal(t, payment.Reference, again.Reference)
}

func TestInitializePaymentRequiresPayer(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")

	_, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: "someone@example.com"})
	assertKind(t, err, types.PERMISSION_DENIED, "permission_denied")

	_, err = f.manager.InitializePayment(context.Background(), actorFor(f.admin), &PaymentInput{BookingID: b.ID})
	assert.Nil(t, err)
}

func TestInitializePaymentFailureKeepsBookingPending(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	f.processor.initErr = errors.New("card network down")

	_, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})

	assertKind(t, err, types.EXTERNAL_SERVICE_FAILURE, "external_service_failure")
	assert.Equal(t, types.BOOKING_PENDING, f.reload(t, b.ID).Status)
	var payment models.Payment
	require.Nil(t, f.db.Where("booking_id = ?", b.ID).First(&payment).Error)
	assert.Equal(t, types.PAYMENT_FAILED, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, "card network down", *payment.FailureReason)

	f.processor.initErr = nil
	retried, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	assert.Equal(t, payment.ID, retried.ID)
	assert.NotEqual(t, payment.Reference, retried.Reference)
	assert.Equal(t, types.PAYMENT_PENDING, retried.Status)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)

	for i := 0; i < 3; i++ {
		confirmed, err := f.manager.ConfirmPayment(context.Background(), payment.Reference, payment.Amount)
		require.Nil(t, err)
		assert.Equal(t, types.PAYMENT_COMPLETED, confirmed.Status)
	}

	stored := f.reload(t, b.ID)
	assert.Equal(t, types.BOOKING_CONFIRMED, stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)
	assert.Equal(t, 1, f.publisher.count("booking.confirmed"))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, b.ReferenceString(), f.mailer.sent[0].QRCode)
	assert.Contains(t, f.mailer.sent[0].Body, "Kifaru Brussels Loft")

	var trails int64
	f.db.Model(&models.TrailLog{}).Where("type = ?", "booking.confirmed").Count(&trails)
	assert.Equal(t, int64(1), trails)
}

func TestConfirmPaymentRejectsShortAmount(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	require.True(t, decimal.NewFromInt(180).Equal(payment.Amount))

	short, err := f.manager.ConfirmPayment(context.Background(), payment.Reference, decimal.NewFromInt(1))

	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_FAILED, short.Status)
	require.NotNil(t, short.FailureReason)
	assert.Equal(t, "amount_mismatch", *short.FailureReason)
	assert.True(t, decimal.NewFromInt(1).Equal(short.PaidAmount.Decimal))
	assert.Equal(t, types.BOOKING_PENDING, f.reload(t, b.ID).Status)
	assert.Equal(t, 0, f.publisher.count("booking.confirmed"))
	assert.Empty(t, f.mailer.sent)

	var trails int64
	f.db.Model(&models.TrailLog{}).Where("type = ?", "payment.amount_mismatch").Count(&trails)
	assert.Equal(t, int64(1), trails)

	almost, err := f.manager.ConfirmPayment(context.Background(), payment.Reference, decimal.RequireFromString("179.99"))
	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_FAILED, almost.Status)

	full, err := f.manager.ConfirmPayment(context.Background(), payment.Reference, decimal.RequireFromString("180.00"))
	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_COMPLETED, full.Status)
	assert.Equal(t, types.BOOKING_CONFIRMED, f.reload(t, b.ID).Status)
}

func TestConfirmPaymentThroughReplacedReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "2026-03-10", "2026-03-13")
	first, err := f.manager.InitializePayment(ctx, nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)

	require.Nil(t, f.db.Model(&models.Payment{}).Where("id = ?", first.ID).Update("status", types.PAYMENT_PROCESSING).Error)
	retried, err := f.manager.InitializePayment(ctx, nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	require.NotEqual(t, first.Reference, retried.Reference)

	var attempts []models.PaymentAttempt
	require.Nil(t, f.db.Where("payment_id = ?", first.ID).Find(&attempts).Error)
	require.Len(t, attempts, 1)
	assert.Equal(t, first.Reference, attempts[0].Reference)
	assert.Equal(t, "prov_"+first.Reference, attempts[0].ProviderID)

	confirmed, err := f.manager.ConfirmPayment(ctx, first.Reference, first.Amount)
	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_COMPLETED, confirmed.Status)
	assert.Equal(t, first.Reference, confirmed.Reference)
	assert.Equal(t, types.BOOKING_CONFIRMED, f.reload(t, b.ID).Status)

	for i := 0; i < 2; i++ {
		stray, err := f.manager.ConfirmPayment(ctx, retried.Reference, retried.Amount)
		require.Nil(t, err)
		assert.Equal(t, first.Reference, stray.Reference)
	}
	require.Equal(t, 1, f.processor.refundCount())
	assert.Equal(t, retried.Reference, f.processor.refunds[0].Reference)
	assert.Equal(t, 1, f.publisher.count("booking.confirmed"))

	var swapped models.PaymentAttempt
	require.Nil(t, f.db.Where("reference = ?", retried.Reference).First(&swapped).Error)
	assert.Equal(t, types.PAYMENT_REFUNDED, swapped.Status)
}

func TestRetryAfterFailedInitializeResolvesFirstReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "2026-03-10", "2026-03-13")
	f.processor.initErr = errors.New("timeout")
	_, err := f.manager.InitializePayment(ctx, nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.NotNil(t, err)
	var failed models.Payment
	require.Nil(t, f.db.Where("booking_id = ?", b.ID).First(&failed).Error)

	f.processor.initErr = nil
	_, err = f.manager.InitializePayment(ctx, nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)

	f.processor.verifyWith = &lib.PaymentVerification{Reference: failed.Reference, Status: lib.PAYMENT_SUCCESS, PaidAmount: failed.Amount}
	verified, err := f.manager.VerifyPayment(ctx, failed.Reference)

	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_COMPLETED, verified.Status)
	assert.Equal(t, failed.Reference, verified.Reference)
	assert.Equal(t, types.BOOKING_CONFIRMED, f.reload(t, b.ID).Status)
}

func TestConfirmPaymentForCancelledBookingRefunds(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	_, err = f.manager.CancelBooking(context.Background(), actorFor(f.admin), b.ID)
	require.Nil(t, err)

	refunded, err := f.manager.ConfirmPayment(context.Background(), payment.Reference, payment.Amount)

	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_REFUNDED, refunded.Status)
	assert.Equal(t, 1, f.processor.refundCount())
	assert.Equal(t, types.BOOKING_CANCELLED, f.reload(t, b.ID).Status)
	assert.Equal(t, 0, f.publisher.count("booking.confirmed"))
}

func TestConfirmUnknownPayment(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.ConfirmPayment(context.Background(), "PAY-missing", decimal.NewFromInt(1))

	assertKind(t, err, types.NOT_FOUND, "payment_not_found")
}

func TestVerifyPayment(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)

	_, err = f.manager.VerifyPayment(context.Background(), payment.Reference)
	assertKind(t, err, types.EXTERNAL_SERVICE_FAILURE, "external_service_failure")

	f.processor.verifyWith = &lib.PaymentVerification{Reference: payment.Reference, Status: lib.PAYMENT_ABANDONED}
	verified, err := f.manager.VerifyPayment(context.Background(), payment.Reference)
	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_FAILED, verified.Status)
	assert.Equal(t, types.BOOKING_PENDING, f.reload(t, b.ID).Status)

	f.processor.verifyWith = &lib.PaymentVerification{Reference: payment.Reference, Status: lib.PAYMENT_SUCCESS, PaidAmount: payment.Amount}
	verified, err = f.manager.VerifyPayment(context.Background(), payment.Reference)
	require.Nil(t, err)
	assert.Equal(t, types.PAYMENT_COMPLETED, verified.Status)
	assert.True(t, verified.PaidAmount.Valid)
	assert.Equal(t, types.BOOKING_CONFIRMED, f.reload(t, b.ID).Status)
}

func TestConfirmBookingOverride(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")

	_, err := f.manager.ConfirmBooking(context.Background(), actorFor(f.guest), b.ID)
	assertKind(t, err, types.PERMISSION_DENIED, "permission_denied")

	confirmed, err := f.manager.ConfirmBooking(context.Background(), actorFor(f.admin), b.ID)
	require.Nil(t, err)
	assert.Equal(t, types.BOOKING_CONFIRMED, confirmed.Status)

	_, err = f.manager.ConfirmBooking(context.Background(), actorFor(f.admin), b.ID)
	assertKind(t, err, types.VALIDATION_ERROR, "booking_not_pending")
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	f.processor.event = &lib.PaymentWebhookEvent{ID: "evt_1", Type: "charge.success", Reference: payment.Reference, Status: lib.PAYMENT_SUCCESS, PaidAmount: payment.Amount}

	err = f.manager.HandleWebhook(context.Background(), "fake", []byte(`{}`), http.Header{})
	assertKind(t, err, types.VALIDATION_ERROR, "invalid_signature")
	assert.Equal(t, types.BOOKING_PENDING, f.reload(t, b.ID).Status)

	err = f.manager.HandleWebhook(context.Background(), "stripe", []byte(`{}`), http.Header{"X-Fake-Signature": {"ok"}})
	assertKind(t, err, types.NOT_FOUND, "webhook_not_found")
}

func TestHandleWebhookReplayGuard(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)

	cache, mock := redismock.NewClientMock()
	m := New(f.db, Deps{Processor: f.processor, Publisher: f.publisher, Mailer: f.mailer, Cache: cache})
	m.Now = f.manager.Now
	f.processor.event = &lib.PaymentWebhookEvent{ID: "evt_1", Type: "charge.success", Reference: payment.Reference, Status: lib.PAYMENT_SUCCESS, PaidAmount: payment.Amount}
	header := http.Header{"X-Fake-Signature": {"ok"}}

	mock.ExpectSetNX("webhook:evt_1", 1, 72*time.Hour).SetVal(true)
	mock.ExpectSetNX("webhook:evt_1", 1, 72*time.Hour).SetVal(false)

	require.Nil(t, m.HandleWebhook(context.Background(), "fake", []byte(`{}`), header))
	require.Nil(t, m.HandleWebhook(context.Background(), "fake", []byte(`{}`), header))

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, types.BOOKING_CONFIRMED, f.reload(t, b.ID).Status)
	assert.Equal(t, 1, f.publisher.count("booking.confirmed"))
}

func TestHandleWebhookWithoutCacheStaysIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)
	f.processor.event = &lib.PaymentWebhookEvent{ID: "evt_1", Type: "charge.success", Reference: payment.Reference, Status: lib.PAYMENT_SUCCESS, PaidAmount: payment.Amount}
	header := http.Header{"X-Fake-Signature": {"ok"}}

	for i := 0; i < 3; i++ {
		require.Nil(t, f.manager.HandleWebhook(context.Background(), "fake", []byte(`{}`), header))
	}

	assert.Equal(t, 1, f.publisher.count("booking.confirmed"))
	assert.Len(t, f.mailer.sent, 1)
}

func TestHandlePaystackWebhook(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_secret")
	f := newFixture(t)
	m := New(f.db, Deps{Processor: lib.NewPaystackProcessor(), Publisher: f.publisher, Mailer: f.mailer})
	m.Now = f.manager.Now

	b := f.book(t, "2026-03-10", "2026-03-13")
	payment, err := f.manager.InitializePayment(context.Background(), nil, &PaymentInput{BookingID: b.ID, Email: b.Email})
	require.Nil(t, err)

	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"id":42,"reference":"%s","amount":18000,"status":"success"}}`, payment.Reference))
	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(body)

	err = m.HandleWebhook(context.Background(), "paystack", body, http.Header{"X-Paystack-Signature": {"deadbeef"}})
	assertKind(t, err, types.VALIDATION_ERROR, "invalid_signature")
	assert.Equal(t, types.BOOKING_PENDING, f.reload(t, b.ID).Status)

	err = m.HandleWebhook(context.Background(), "paystack", body, http.Header{"X-Paystack-Signature": {hex.EncodeToString(mac.Sum(nil))}})
	require.Nil(t, err)

	var stored models.Payment
	require.Nil(t, f.db.First(&stored, payment.ID).Error)
	assert.Equal(t, types.PAYMENT_COMPLETED, stored.Status)
	assert.True(t, decimal.NewFromInt(180).Equal(stored.PaidAmount.Decimal), stored.PaidAmount.Decimal.String())
	assert.Equal(t, types.BOOKING_CONFIRMED, f.reload(t, b.ID).Status)
}

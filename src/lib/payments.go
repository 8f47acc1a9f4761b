package lib

import (
	"context"
	"errors"
	"log"
	"net/http"
	"pbs/src/config"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PAYMENT_SUCCESS   PaymentStatus = "success"
	PAYMENT_FAILED    PaymentStatus = "failed"
	PAYMENT_ABANDONED PaymentStatus = "abandoned"
	PAYMENT_PENDING   PaymentStatus = "pending"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type InitializePaymentInput struct {
	Email       string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	CallbackURL string
	Description string
	Metadata    map[string]string
}

type PaymentAuthorization struct {
	AuthorizationURL string
	AccessCode       string
	ProviderID       string
}

type PaymentVerification struct {
	Reference  string
	Status     PaymentStatus
	PaidAmount decimal.Decimal
	ProviderID string
}

type RefundInput struct {
	Reference  string
	ProviderID string
	Amount     decimal.Decimal
	Currency   string
}

// PaymentWebhookEvent is a verified notification. Status is empty for events
// that do not change a payment.
type PaymentWebhookEvent struct {
	ID         string
	Type       string
	Reference  string
	Status     PaymentStatus
	PaidAmount decimal.Decimal
}

type PaymentProcessor interface {
	Name() string
	Initialize(ctx context.Context, in *InitializePaymentInput) (*PaymentAuthorization, error)
	Verify(ctx context.Context, reference string, providerID string) (*PaymentVerification, error)
	Refund(ctx context.Context, in *RefundInput) error
	ParseWebhook(payload []byte, header http.Header) (*PaymentWebhookEvent, error)
}

var paymentProcessor PaymentProcessor

// GetPaymentProcessor returns the processor selected by PAYMENT_PROVIDER.
func GetPaymentProcessor() PaymentProcessor {
	if paymentProcessor != nil {
		return paymentProcessor
	}
	switch config.GetPaymentProvider() {
	case "stripe":
		paymentProcessor = NewStripeProcessor(GetStripeClient())
	case "paystack":
		paymentProcessor = NewPaystackProcessor()
	default:
		log.Printf("[payments] Unknown provider %s, using paystack\n", config.GetPaymentProvider())
		paymentProcessor = NewPaystackProcessor()
	}
	return paymentProcessor
}

func NewPaymentProcessor(p PaymentProcessor) PaymentProcessor {
	paymentProcessor = p
	return paymentProcessor
}

// MinorUnits converts an amount to the smallest currency unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

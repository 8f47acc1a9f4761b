package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// StripeProcessor takes payments through hosted Checkout Sessions. The
// payment reference travels as the session's client reference id.
type StripeProcessor struct {
	client        *stripe.Client
	WebhookSecret string
}

func NewStripeProcessor(sc *stripe.Client) *StripeProcessor {
	return &StripeProcessor{
		client:        sc,
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}
}

func (s *StripeProcessor) Name() string {
	return "stripe"
}

func (s *StripeProcessor) Initialize(ctx context.Context, in *InitializePaymentInput) (*PaymentAuthorization, error) {
	successUrl := in.CallbackURL
	if successUrl == "" {
		successUrl = fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	}
	metadata := map[string]string{"reference": in.Reference}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	params := &stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(successUrl),
		Mode:              stripe.String("payment"),
		ClientReferenceID: stripe.String(in.Reference),
		CustomerEmail:     stripe.String(in.Email),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(in.Currency)),
					UnitAmount: stripe.Int64(MinorUnits(in.Amount)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(in.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
	}
	cs, err := s.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		log.Printf("[stripe] CheckoutSession create failed: %s\n", err.Error())
		return nil, err
	}
	log.Printf("[stripe] CheckoutSessionID: %s\n", cs.ID)
	return &PaymentAuthorization{
		AuthorizationURL: cs.URL,
		AccessCode:       cs.ID,
		ProviderID:       cs.ID,
	}, nil
}

func (s *StripeProcessor) Verify(ctx context.Context, reference string, providerID string) (*PaymentVerification, error) {
	cs, err := s.client.V1CheckoutSessions.Retrieve(ctx, providerID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		log.Printf("[stripe] CheckoutSession retrieve failed: %s\n", err.Error())
		return nil, err
	}
	return &PaymentVerification{
		Reference:  cs.ClientReferenceID,
		Status:     checkoutSessionStatus(cs),
		PaidAmount: FromMinorUnits(cs.AmountTotal),
		ProviderID: cs.ID,
	}, nil
}

func (s *StripeProcessor) Refund(ctx context.Context, in *RefundInput) error {
	cs, err := s.client.V1CheckoutSessions.Retrieve(ctx, in.ProviderID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return err
	}
	if cs.PaymentIntent == nil {
		return fmt.Errorf("checkout session %s has no payment intent", cs.ID)
	}
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(cs.PaymentIntent.ID),
	}
	if in.Amount.IsPositive() {
		params.Amount = stripe.Int64(MinorUnits(in.Amount))
	}
	if _, err := s.client.V1Refunds.Create(ctx, params); err != nil {
		log.Printf("[stripe] Refund failed: %s\n", err.Error())
		return err
	}
	return nil
}

func (s *StripeProcessor) ParseWebhook(payload []byte, header http.Header) (*PaymentWebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), s.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Printf("[stripe] Webhook signature verification failed: %s\n", err.Error())
		return nil, ErrInvalidSignature
	}
	result := &PaymentWebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.async_payment_failed", "checkout.session.expired":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			log.Printf("[stripe] Error parsing CheckoutSession: %s\n", err.Error())
			return nil, err
		}
		result.Reference = cs.ClientReferenceID
		result.PaidAmount = FromMinorUnits(cs.AmountTotal)
		switch event.Type {
		case "checkout.session.async_payment_failed":
			result.Status = PAYMENT_FAILED
		case "checkout.session.expired":
			result.Status = PAYMENT_ABANDONED
		default:
			result.Status = checkoutSessionStatus(&cs)
		}
	}
	return result, nil
}

func checkoutSessionStatus(cs *stripe.CheckoutSession) PaymentStatus {
	switch {
	case cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return PAYMENT_SUCCESS
	case cs.Status == stripe.CheckoutSessionStatusExpired:
		return PAYMENT_ABANDONED
	default:
		return PAYMENT_PENDING
	}
}

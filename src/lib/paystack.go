package lib

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"pbs/src/config"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type PaystackProcessor struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewPaystackProcessor() *PaystackProcessor {
	return &PaystackProcessor{
		BaseURL:   config.GetPaystackBaseURL(),
		SecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *PaystackProcessor) Name() string {
	return "paystack"
}

func (p *PaystackProcessor) do(ctx context.Context, method, path string, body any) (string, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	payload := string(raw)
	if !gjson.Valid(payload) {
		return "", fmt.Errorf("paystack returned a non-json response (%d)", res.StatusCode)
	}
	if res.StatusCode >= 400 || !gjson.Get(payload, "status").Bool() {
		return "", fmt.Errorf("paystack error (%d): %s", res.StatusCode, gjson.Get(payload, "message").String())
	}
	return payload, nil
}

func (p *PaystackProcessor) Initialize(ctx context.Context, in *InitializePaymentInput) (*PaymentAuthorization, error) {
	body := map[string]any{
		"email":     in.Email,
		"amount":    MinorUnits(in.Amount),
		"currency":  strings.ToUpper(in.Currency),
		"reference": in.Reference,
		"metadata":  in.Metadata,
	}
	if in.CallbackURL != "" {
		body["callback_url"] = in.CallbackURL
	}
	payload, err := p.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		log.Printf("[paystack] Initialize failed: %s\n", err.Error())
		return nil, err
	}
	return &PaymentAuthorization{
		AuthorizationURL: gjson.Get(payload, "data.authorization_url").String(),
		AccessCode:       gjson.Get(payload, "data.access_code").String(),
		ProviderID:       gjson.Get(payload, "data.reference").String(),
	}, nil
}

func (p *PaystackProcessor) Verify(ctx context.Context, reference string, providerID string) (*PaymentVerification, error) {
	payload, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		log.Printf("[paystack] Verify failed: %s\n", err.Error())
		return nil, err
	}
	return &PaymentVerification{
		Reference:  gjson.Get(payload, "data.reference").String(),
		Status:     paystackStatus(gjson.Get(payload, "data.status").String()),
		PaidAmount: FromMinorUnits(gjson.Get(payload, "data.amount").Int()),
		ProviderID: gjson.Get(payload, "data.id").String(),
	}, nil
}

func (p *PaystackProcessor) Refund(ctx context.Context, in *RefundInput) error {
	body := map[string]any{
		"transaction": in.Reference,
	}
	if in.Amount.IsPositive() {
		body["amount"] = MinorUnits(in.Amount)
	}
	if _, err := p.do(ctx, http.MethodPost, "/refund", body); err != nil {
		log.Printf("[paystack] Refund failed: %s\n", err.Error())
		return err
	}
	return nil
}

// ParseWebhook checks the X-Paystack-Signature header, the hex HMAC-SHA512 of
// the raw body keyed with the secret key.
func (p *PaystackProcessor) ParseWebhook(payload []byte, header http.Header) (*PaymentWebhookEvent, error) {
	if !p.validSignature(payload, header.Get("X-Paystack-Signature")) {
		return nil, ErrInvalidSignature
	}
	body := string(payload)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("invalid webhook body")
	}
	event := &PaymentWebhookEvent{
		Type:       gjson.Get(body, "event").String(),
		Reference:  gjson.Get(body, "data.reference").String(),
		PaidAmount: FromMinorUnits(gjson.Get(body, "data.amount").Int()),
	}
	event.ID = fmt.Sprintf("%s:%s:%s", event.Type, gjson.Get(body, "data.id").String(), event.Reference)
	switch event.Type {
	case "charge.success":
		event.Status = PAYMENT_SUCCESS
	case "charge.failed":
		event.Status = PAYMENT_FAILED
	}
	return event, nil
}

func (p *PaystackProcessor) validSignature(payload []byte, signature string) bool {
	if p.SecretKey == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.SecretKey))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

func paystackStatus(s string) PaymentStatus {
	switch s {
	case "success":
		return PAYMENT_SUCCESS
	case "failed", "reversed":
		return PAYMENT_FAILED
	case "abandoned":
		return PAYMENT_ABANDONED
	default:
		return PAYMENT_PENDING
	}
}

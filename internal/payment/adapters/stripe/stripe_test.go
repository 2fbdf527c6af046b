package stripe_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/renolink/renolink/internal/clock"
	paymentdomain "github.com/renolink/renolink/internal/payment/domain"
	"github.com/renolink/renolink/internal/payment/adapters/stripe"
)

const testSecret = "whsec_test"

func newAdapter(t *testing.T, fake *clock.FakeClock, tolerance time.Duration) paymentdomain.PaymentAdapter {
	t.Helper()

	adapter, err := stripe.NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Provider:      "stripe",
		WebhookSecret: testSecret,
		Tolerance:     tolerance,
		Clock:         fake,
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func signPayload(secret string, payload []byte, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", timestamp, string(payload))))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func signedHeader(secret string, payload []byte, timestamp int64) http.Header {
	header := http.Header{}
	header.Set("Stripe-Signature", signPayload(secret, payload, timestamp))
	return header
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	payload := []byte(`{"id":"evt_1"}`)
	header := signedHeader(testSecret, payload, fake.Now().Unix())

	if err := adapter.Verify(context.Background(), payload, header); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	payload := []byte(`{"id":"evt_1","amount":100}`)
	header := signedHeader(testSecret, payload, fake.Now().Unix())
	tampered := []byte(`{"id":"evt_1","amount":999}`)

	err := adapter.Verify(context.Background(), tampered, header)
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	payload := []byte(`{"id":"evt_1"}`)
	header := signedHeader("whsec_other", payload, fake.Now().Unix())

	err := adapter.Verify(context.Background(), payload, header)
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsExpiredTimestamp(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	payload := []byte(`{"id":"evt_1"}`)
	stale := fake.Now().Add(-10 * time.Minute).Unix()
	header := signedHeader(testSecret, payload, stale)

	err := adapter.Verify(context.Background(), payload, header)
	if !errors.Is(err, paymentdomain.ErrExpiredSignature) {
		t.Fatalf("expected ErrExpiredSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	err := adapter.Verify(context.Background(), []byte(`{}`), http.Header{})
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseSubscriptionCreated(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	created := fake.Now().Unix()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_sub",
		"type": "customer.subscription.created",
		"created": %d,
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"current_period_start": %d,
			"current_period_end": %d,
			"metadata": {"tenant_id": "1234567890123456789"},
			"items": {"data": [{"price": {"id": "price_monthly", "unit_amount": 100000, "currency": "jpy"}}]}
		}}
	}`, created, created, created+2592000))

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != paymentdomain.EventTypeSubscriptionCreated {
		t.Fatalf("expected subscription_created, got %s", event.Type)
	}
	if event.ProviderSubscriptionID != "sub_1" || event.ProviderCustomerID != "cus_1" {
		t.Fatalf("unexpected ids: %s %s", event.ProviderSubscriptionID, event.ProviderCustomerID)
	}
	if event.TenantID.String() != "1234567890123456789" {
		t.Fatalf("tenant id not parsed from metadata: %s", event.TenantID)
	}
	if event.PriceID != "price_monthly" || event.Amount != 100000 || event.Currency != "JPY" {
		t.Fatalf("price not parsed: %s %d %s", event.PriceID, event.Amount, event.Currency)
	}
	if event.CurrentPeriodEnd == nil {
		t.Fatalf("expected current period end")
	}
}

func TestParseInvoicePaymentFailedUsesAmountDue(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_inv",
		"type": "invoice.payment_failed",
		"created": %d,
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"amount_paid": 0,
			"amount_due": 100000,
			"currency": "jpy"
		}}
	}`, fake.Now().Unix()))

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != paymentdomain.EventTypePaymentFailed {
		t.Fatalf("expected payment_failed, got %s", event.Type)
	}
	if event.ProviderInvoiceID != "in_1" || event.Amount != 100000 {
		t.Fatalf("unexpected invoice fields: %s %d", event.ProviderInvoiceID, event.Amount)
	}
}

func TestParseIgnoresUnhandledEventTypes(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	adapter := newAdapter(t, fake, 5*time.Minute)

	payload := []byte(`{"id":"evt_x","type":"customer.updated","data":{"object":{}}}`)
	_, err := adapter.Parse(context.Background(), payload)
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestNewAdapterRequiresSecret(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	_, err := stripe.NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Provider: "stripe",
		Clock:    fake,
	})
	if !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

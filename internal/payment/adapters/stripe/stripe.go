package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	paymentdomain "github.com/renolink/renolink/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if cfg.Clock == nil {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{
		webhookSecret: secret,
		tolerance:     cfg.Tolerance,
		clock:         cfg.Clock,
	}, nil
}

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	clock         clock.Clock
}

// Verify checks the Stripe-Signature header against the raw payload.
// The signed payload is "<timestamp>.<raw body>"; any byte difference
// between the delivered body and the signed body fails verification.
// Timestamps older than the tolerance window are rejected even when
// the signature itself is valid.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	if a.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return paymentdomain.ErrInvalidSignature
		}
		age := a.clock.Now().Sub(time.Unix(ts, 0))
		if age > a.tolerance || age < -a.tolerance {
			return paymentdomain.ErrExpiredSignature
		}
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.SubscriptionEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "customer.subscription.created":
		return a.parseSubscription(event, payload, paymentdomain.EventTypeSubscriptionCreated)
	case "customer.subscription.updated":
		return a.parseSubscription(event, payload, paymentdomain.EventTypeSubscriptionUpdated)
	case "customer.subscription.deleted":
		return a.parseSubscription(event, payload, paymentdomain.EventTypeSubscriptionDeleted)
	case "invoice.payment_succeeded":
		return a.parseInvoice(event, payload, paymentdomain.EventTypePaymentSucceeded)
	case "invoice.payment_failed":
		return a.parseInvoice(event, payload, paymentdomain.EventTypePaymentFailed)
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Created            int64             `json:"created"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type stripeInvoice struct {
	ID                  string `json:"id"`
	Customer            string `json:"customer"`
	Subscription        string `json:"subscription"`
	AmountPaid          int64  `json:"amount_paid"`
	AmountDue           int64  `json:"amount_due"`
	Currency            string `json:"currency"`
	PaymentIntent       string `json:"payment_intent"`
	Created             int64  `json:"created"`
	SubscriptionDetails struct {
		Metadata map[string]string `json:"metadata"`
	} `json:"subscription_details"`
}

type stripeCheckoutSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`
}

func (a *Adapter) parseSubscription(event stripeEvent, payload []byte, eventType string) (*paymentdomain.SubscriptionEvent, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	out := &paymentdomain.SubscriptionEvent{
		Provider:               "stripe",
		ProviderEventID:        event.ID,
		Type:                   eventType,
		ProviderSubscriptionID: sub.ID,
		ProviderCustomerID:     strings.TrimSpace(sub.Customer),
		TenantID:               parseTenantID(sub.Metadata),
		ProviderStatus:         strings.TrimSpace(sub.Status),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CurrentPeriodStart:     unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:       unixTime(sub.CurrentPeriodEnd),
		OccurredAt:             timestamp(sub.Created, event.Created),
		RawPayload:             payload,
	}
	if len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		out.PriceID = price.ID
		out.Amount = price.UnitAmount
		out.Currency = strings.ToUpper(strings.TrimSpace(price.Currency))
	}
	return out, nil
}

func (a *Adapter) parseInvoice(event stripeEvent, payload []byte, eventType string) (*paymentdomain.SubscriptionEvent, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(invoice.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	amount := invoice.AmountPaid
	if eventType == paymentdomain.EventTypePaymentFailed {
		amount = invoice.AmountDue
	}
	return &paymentdomain.SubscriptionEvent{
		Provider:               "stripe",
		ProviderEventID:        event.ID,
		Type:                   eventType,
		ProviderSubscriptionID: strings.TrimSpace(invoice.Subscription),
		ProviderCustomerID:     strings.TrimSpace(invoice.Customer),
		ProviderInvoiceID:      invoice.ID,
		ProviderIntentID:       strings.TrimSpace(invoice.PaymentIntent),
		TenantID:               parseTenantID(invoice.SubscriptionDetails.Metadata),
		Amount:                 amount,
		Currency:               strings.ToUpper(strings.TrimSpace(invoice.Currency)),
		OccurredAt:             timestamp(invoice.Created, event.Created),
		RawPayload:             payload,
	}, nil
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.SubscriptionEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.SubscriptionEvent{
		Provider:               "stripe",
		ProviderEventID:        event.ID,
		Type:                   paymentdomain.EventTypeCheckoutCompleted,
		ProviderSubscriptionID: strings.TrimSpace(session.Subscription),
		ProviderCustomerID:     strings.TrimSpace(session.Customer),
		TenantID:               parseTenantID(session.Metadata),
		OccurredAt:             timestamp(session.Created, event.Created),
		RawPayload:             payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func unixTime(value int64) *time.Time {
	if value == 0 {
		return nil
	}
	ts := time.Unix(value, 0).UTC()
	return &ts
}

func parseTenantID(metadata map[string]string) snowflake.ID {
	if metadata == nil {
		return 0
	}
	raw := strings.TrimSpace(metadata["tenant_id"])
	if raw == "" {
		return 0
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0
	}
	return id
}

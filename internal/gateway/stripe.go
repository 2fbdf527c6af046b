package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/renolink/renolink/internal/config"
	"go.uber.org/zap"
)

const (
	stripeBaseURL    = "https://api.stripe.com/v1"
	stripeAPIVersion = "2024-06-20"
	requestTimeout   = 12 * time.Second
)

// StripeClient talks to the Stripe REST API with form-encoded requests.
type StripeClient struct {
	http *resty.Client
	log  *zap.Logger
}

func NewStripeClient(cfg config.Config, log *zap.Logger) *StripeClient {
	client := resty.New().
		SetBaseURL(stripeBaseURL).
		SetTimeout(requestTimeout).
		SetAuthToken(cfg.Stripe.SecretKey).
		SetHeader("Stripe-Version", stripeAPIVersion).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")
	return &StripeClient{
		http: client,
		log:  log.Named("gateway.stripe"),
	}
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) do(ctx context.Context, method string, path string, form url.Values, idempotent bool, out any) error {
	req := c.http.R().SetContext(ctx)
	if form != nil {
		req.SetFormDataFromValues(form)
	}
	if idempotent {
		req.SetHeader("Idempotency-Key", uuid.NewString())
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		var apiErr stripeError
		_ = json.Unmarshal(resp.Body(), &apiErr)
		c.log.Warn("stripe request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.String("code", apiErr.Error.Code),
		)
		return classifyStatus(resp.StatusCode(), apiErr.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func (c *StripeClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(ctx, resty.MethodGet, path, nil, false, out)
}

func (c *StripeClient) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, resty.MethodPost, path, form, true, out)
}

// EnsureCustomer finds an existing customer by email or creates one.
func (c *StripeClient) EnsureCustomer(ctx context.Context, email string, name string, metadata map[string]string) (*Customer, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("limit", "1")

	var list struct {
		Data []Customer `json:"data"`
	}
	if err := c.get(ctx, "/customers", query, &list); err != nil {
		return nil, err
	}
	if len(list.Data) > 0 {
		return &list.Data[0], nil
	}

	form := url.Values{}
	form.Set("email", email)
	if name != "" {
		form.Set("name", name)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var customer Customer
	if err := c.post(ctx, "/customers", form, &customer); err != nil {
		return nil, err
	}
	c.log.Info("customer created", zap.String("customer_id", customer.ID))
	return &customer, nil
}

func (c *StripeClient) CreateSubscription(ctx context.Context, customerID string, priceID string, metadata map[string]string) (*Subscription, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", priceID)
	form.Set("payment_behavior", "default_incomplete")
	form.Set("expand[0]", "latest_invoice.payment_intent")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var sub Subscription
	if err := c.post(ctx, "/subscriptions", form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", params.CustomerID)
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for k, v := range params.Metadata {
		form.Set("subscription_data[metadata]["+k+"]", v)
	}
	var session CheckoutSession
	if err := c.post(ctx, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *StripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency string, customerID string, metadata map[string]string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	if customerID != "" {
		form.Set("customer", customerID)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var intent PaymentIntent
	if err := c.post(ctx, "/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CancelSubscription cancels at period end by default. With atPeriodEnd
// false the subscription is deleted immediately.
func (c *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*Subscription, error) {
	var sub Subscription
	if atPeriodEnd {
		form := url.Values{}
		form.Set("cancel_at_period_end", "true")
		if err := c.post(ctx, "/subscriptions/"+subscriptionID, form, &sub); err != nil {
			return nil, err
		}
		return &sub, nil
	}
	if err := c.do(ctx, resty.MethodDelete, "/subscriptions/"+subscriptionID, nil, false, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *StripeClient) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	form := url.Values{}
	form.Set("cancel_at_period_end", "false")
	var sub Subscription
	if err := c.post(ctx, "/subscriptions/"+subscriptionID, form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.get(ctx, "/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *StripeClient) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("status", "all")
	var list struct {
		Data []Subscription `json:"data"`
	}
	if err := c.get(ctx, "/subscriptions", query, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *StripeClient) ListInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("limit", strconv.Itoa(limit))
	var list struct {
		Data []Invoice `json:"data"`
	}
	if err := c.get(ctx, "/invoices", query, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *StripeClient) UpcomingInvoice(ctx context.Context, customerID string, subscriptionID string) (*Invoice, error) {
	query := url.Values{}
	query.Set("customer", customerID)
	if subscriptionID != "" {
		query.Set("subscription", subscriptionID)
	}
	var invoice Invoice
	if err := c.get(ctx, "/invoices/upcoming", query, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *StripeClient) CreateRefund(ctx context.Context, paymentIntentID string, amount int64) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(amount, 10))
	}
	var refund Refund
	if err := c.post(ctx, "/refunds", form, &refund); err != nil {
		return nil, err
	}
	c.log.Info("refund created",
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", refund.Amount),
	)
	return &refund, nil
}

// GetRevenueMetrics sums paid invoices created in the given range,
// paging through the invoice list endpoint.
func (c *StripeClient) GetRevenueMetrics(ctx context.Context, from *time.Time, to *time.Time) (*RevenueMetrics, error) {
	metrics := &RevenueMetrics{}
	startingAfter := ""
	for {
		query := url.Values{}
		query.Set("status", "paid")
		query.Set("limit", "100")
		if from != nil {
			query.Set("created[gte]", strconv.FormatInt(from.Unix(), 10))
		}
		if to != nil {
			query.Set("created[lte]", strconv.FormatInt(to.Unix(), 10))
		}
		if startingAfter != "" {
			query.Set("starting_after", startingAfter)
		}

		var list struct {
			Data    []Invoice `json:"data"`
			HasMore bool      `json:"has_more"`
		}
		if err := c.get(ctx, "/invoices", query, &list); err != nil {
			return nil, err
		}
		for _, invoice := range list.Data {
			metrics.TotalRevenue += invoice.AmountPaid
			metrics.TotalInvoices++
			if metrics.Currency == "" {
				metrics.Currency = invoice.Currency
			}
		}
		if !list.HasMore || len(list.Data) == 0 {
			break
		}
		startingAfter = list.Data[len(list.Data)-1].ID
	}
	return metrics, nil
}

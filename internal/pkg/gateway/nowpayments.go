package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const defaultBaseURL = "https://api.nowpayments.io/v1"

// Client is a minimal NOWPayments API client covering the two calls the
// checkout flow needs: creating a payment and previewing a fiat->crypto
// conversion. Authentication is the gateway's x-api-key header.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClientFromEnv builds the client from NOWPAYMENTS_API_URL and
// NOWPAYMENTS_API_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("NOWPAYMENTS_API_URL", defaultBaseURL), "/"),
		APIKey:  env.GetEnv("NOWPAYMENTS_API_KEY", ""),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreatePaymentInput describes the payment the gateway should open.
// OrderRef is our correlation id: it comes back as order_id on every IPN
// callback for this payment.
type CreatePaymentInput struct {
	PriceAmount      float64
	PriceCurrency    string
	PayCurrency      string
	OrderRef         string
	OrderDescription string
	CallbackURL      string
}

// Payment is the gateway's view of a created payment. PaymentID arrives as
// a JSON number; json.Number keeps it lossless.
type Payment struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PayAddress    string      `json:"pay_address"`
	PayAmount     float64     `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	OrderID       string      `json:"order_id"`
	CreatedAt     string      `json:"created_at"`
}

// Estimate is a fiat->crypto conversion preview.
type Estimate struct {
	CurrencyFrom    string  `json:"currency_from"`
	AmountFrom      float64 `json:"amount_from"`
	CurrencyTo      string  `json:"currency_to"`
	EstimatedAmount float64 `json:"estimated_amount"`
}

// CreatePayment opens a payment at the gateway and returns its deposit
// details. The returned payment starts in the "waiting" status; everything
// after that arrives via IPN callbacks.
func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentInput) (*Payment, error) {
	if c.APIKey == "" {
		return nil, errors.New("nowpayments api key is not configured")
	}
	if strings.TrimSpace(in.OrderRef) == "" {
		return nil, errors.New("order ref is required")
	}

	body := map[string]interface{}{
		"price_amount":   in.PriceAmount,
		"price_currency": strings.ToLower(in.PriceCurrency),
		"order_id":       in.OrderRef,
	}
	if in.PayCurrency != "" {
		body["pay_currency"] = strings.ToLower(in.PayCurrency)
	}
	if in.OrderDescription != "" {
		body["order_description"] = in.OrderDescription
	}
	if in.CallbackURL != "" {
		body["ipn_callback_url"] = in.CallbackURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("nowpayments create payment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("nowpayments create payment: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("nowpayments create payment: %w", err)
	}

	var p Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("nowpayments create payment: decode response: %w", err)
	}
	if p.PaymentID.String() == "" {
		return nil, errors.New("nowpayments create payment: response has no payment_id")
	}
	return &p, nil
}

// GetEstimate previews how much of payCurrency the given fiat amount buys.
func (c *Client) GetEstimate(ctx context.Context, amount float64, currencyFrom, currencyTo string) (*Estimate, error) {
	if c.APIKey == "" {
		return nil, errors.New("nowpayments api key is not configured")
	}

	q := url.Values{}
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	q.Set("currency_from", strings.ToLower(currencyFrom))
	q.Set("currency_to", strings.ToLower(currencyTo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/estimate?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nowpayments estimate: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)

	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("nowpayments estimate: %w", err)
	}

	var est Estimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return nil, fmt.Errorf("nowpayments estimate: decode response: %w", err)
	}
	return &est, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/ratecache"
	"github.com/ManuelReschke/PayFox/internal/pkg/security"
)

func TestHandleCreateCheckout_RejectsInvalidBody(t *testing.T) {
	app := fiber.New()
	app.Post("/checkout", HandleCreateCheckout)

	req := httptest.NewRequest(fiber.MethodPost, "/checkout", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleCreateCheckout_RejectsValidationFailures(t *testing.T) {
	app := fiber.New()
	app.Post("/checkout", HandleCreateCheckout)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"plan_code":"pro-monthly","pay_currency":"btc"}`},
		{"malformed email", `{"email":"not-an-email","plan_code":"pro-monthly","pay_currency":"btc"}`},
		{"missing plan code", `{"email":"fox@example.com","pay_currency":"btc"}`},
		{"missing pay currency", `{"email":"fox@example.com","plan_code":"pro-monthly"}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/checkout", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

			body := decodeJSONBody(t, resp)
			assert.Equal(t, "validation_failed", body["error"])
		})
	}
}

func TestHandleCheckoutStatus_RejectsMissingOrForeignToken(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "status-secret")

	app := fiber.New()
	app.Get("/checkout/:orderRef/status", HandleCheckoutStatus)

	// No token at all.
	req := httptest.NewRequest(fiber.MethodGet, "/checkout/ord-123/status", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Valid token, but minted for a different order.
	token, err := security.GenerateCheckoutToken("ord-other", time.Minute, "status-secret")
	require.NoError(t, err)
	req = httptest.NewRequest(fiber.MethodGet, "/checkout/ord-123/status?token="+token, nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	body := decodeJSONBody(t, resp)
	assert.Equal(t, "invalid_token", body["error"])
}

func TestHandleEstimate_RejectsBadQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/estimate", HandleEstimate(ratecache.New(time.Minute)))

	tests := []struct {
		name  string
		query string
	}{
		{"missing amount", "currency_from=usd&currency_to=btc"},
		{"zero amount", "amount=0&currency_from=usd&currency_to=btc"},
		{"negative amount", "amount=-5&currency_from=usd&currency_to=btc"},
		{"missing currency from", "amount=29&currency_to=btc"},
		{"missing currency to", "amount=29&currency_from=usd"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/estimate?"+tc.query, nil)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleEstimate_ServesFreshCacheWithoutGateway(t *testing.T) {
	rates := ratecache.New(time.Minute)
	rates.Put(ratecache.Key(29, "usd", "btc"), 0.00042)

	app := fiber.New()
	app.Get("/estimate", HandleEstimate(rates))

	req := httptest.NewRequest(fiber.MethodGet, "/estimate?amount=29&currency_from=USD&currency_to=BTC", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSONBody(t, resp)
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, "usd", body["currency_from"])
	assert.Equal(t, "btc", body["currency_to"])
	assert.InDelta(t, 0.00042, body["estimated_amount"].(float64), 1e-12)
}

func TestWebhookCallbackURL(t *testing.T) {
	t.Setenv("PUBLIC_DOMAIN", "https://pay.example.com/")
	assert.Equal(t, "https://pay.example.com/api/v1/webhooks/nowpayments", webhookCallbackURL())

	t.Setenv("PUBLIC_DOMAIN", "")
	assert.Equal(t, "", webhookCallbackURL())
}

func TestEstimateResponse(t *testing.T) {
	t.Parallel()

	resp := estimateResponse(9.9, "USD", "ETH", 0.0031, false)
	assert.Equal(t, "usd", resp["currency_from"])
	assert.Equal(t, "eth", resp["currency_to"])
	assert.Equal(t, 9.9, resp["amount_from"])
	assert.Equal(t, 0.0031, resp["estimated_amount"])
	assert.Equal(t, false, resp["cached"])
}

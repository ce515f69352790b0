package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleValidateInvite_RejectsBadRequests(t *testing.T) {
	app := fiber.New()
	app.Post("/invites/validate", HandleValidateInvite)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{oops"},
		{"missing code", `{}`},
		{"blank code", `{"code":"   "}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/invites/validate", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			body := decodeJSONBody(t, resp)
			assert.Equal(t, "invalid_request", body["error"])
		})
	}
}

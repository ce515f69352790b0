package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newAdminApp() *fiber.App {
	app := fiber.New()
	app.Get("/admin/ping", AdminTokenMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestAdminTokenMiddleware(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "swordfish")
	app := newAdminApp()

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "valid admin token header", header: "X-Admin-Token", value: "swordfish", wantStatus: fiber.StatusOK},
		{name: "valid bearer fallback", header: "Authorization", value: "Bearer swordfish", wantStatus: fiber.StatusOK},
		{name: "wrong token", header: "X-Admin-Token", value: "guppy", wantStatus: fiber.StatusUnauthorized},
		{name: "missing token", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/admin/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestAdminTokenMiddlewareUnconfigured(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "")
	app := newAdminApp()

	req := httptest.NewRequest(fiber.MethodGet, "/admin/ping", nil)
	req.Header.Set("X-Admin-Token", "anything")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when no token is configured", resp.StatusCode)
	}
}

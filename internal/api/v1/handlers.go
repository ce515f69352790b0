package apiv1

import (
	"time"

	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/ratecache"
)

// estimateCacheTTL bounds how stale a served conversion estimate may be.
const estimateCacheTTL = 90 * time.Second

// APIServer implements the ServerInterface
type APIServer struct {
	estimate fiber.Handler
}

// NewAPIServer creates a new API server instance. The rate cache is owned
// here and handed to the estimate handler rather than living in a package
// global.
func NewAPIServer() *APIServer {
	return &APIServer{
		estimate: controllers.HandleEstimate(ratecache.New(estimateCacheTTL)),
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetPlans returns the purchasable plans.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleListPlans(c)
}

// GetEstimate returns a fiat-to-crypto conversion preview, served from the
// injected time-boxed cache when fresh.
func (s *APIServer) GetEstimate(c *fiber.Ctx) error {
	return s.estimate(c)
}

// PostCheckout opens a checkout: pending subscription + invoice and a
// payment created at the gateway.
func (s *APIServer) PostCheckout(c *fiber.Ctx) error {
	return controllers.HandleCreateCheckout(c)
}

// GetCheckoutStatus is the token-gated polling endpoint for a checkout page.
func (s *APIServer) GetCheckoutStatus(c *fiber.Ctx) error {
	return controllers.HandleCheckoutStatus(c)
}

// PostInviteValidate checks an invite code without consuming a use.
func (s *APIServer) PostInviteValidate(c *fiber.Ctx) error {
	return controllers.HandleValidateInvite(c)
}

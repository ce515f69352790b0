package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/constants"
)

// ServerInterface lists the handlers of the public v1 surface, mirroring
// public/docs/v1/openapi.yml. Auth and rate limiting are attached by the
// router, not here.
type ServerInterface interface {
	// GetPing handles GET /ping
	GetPing(c *fiber.Ctx) error
	// GetPlans handles GET /plans
	GetPlans(c *fiber.Ctx) error
	// GetEstimate handles GET /estimate
	GetEstimate(c *fiber.Ctx) error
	// PostCheckout handles POST /checkout
	PostCheckout(c *fiber.Ctx) error
	// GetCheckoutStatus handles GET /checkout/:orderRef/status
	GetCheckoutStatus(c *fiber.Ctx) error
	// PostInviteValidate handles POST /invites/validate
	PostInviteValidate(c *fiber.Ctx) error
}

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// RegisterHandlers attaches the public v1 routes to the given router group.
// The passed middleware (typically the shared rate limiter) is prepended to
// every route chain registered here; webhook and admin routes are installed
// separately so they keep their own stacks.
func RegisterHandlers(router fiber.Router, si ServerInterface, middleware ...fiber.Handler) {
	router.Get(constants.PingRoute, chain(middleware, si.GetPing)...)
	router.Get(constants.PlansRoute, chain(middleware, si.GetPlans)...)
	router.Get(constants.EstimateRoute, chain(middleware, si.GetEstimate)...)
	router.Post(constants.CheckoutRoute, chain(middleware, si.PostCheckout)...)
	router.Get(constants.CheckoutStatusRoute, chain(middleware, si.GetCheckoutStatus)...)
	router.Post(constants.InviteValidateRoute, chain(middleware, si.PostInviteValidate)...)
}

func chain(middleware []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	return append(append([]fiber.Handler(nil), middleware...), handler)
}

package constants

// Static route constants
const (
	PublicRoute = "/"
	HealthRoute = "/health"

	// API prefixes
	APIRoute   = "/api"
	APIv1Route = "/v1"

	// Public checkout surface (relative to the v1 group)
	PingRoute           = "/ping"
	CheckoutRoute       = "/checkout"
	CheckoutStatusRoute = "/checkout/:orderRef/status"
	PlansRoute          = "/plans"
	EstimateRoute       = "/estimate"
	InviteValidateRoute = "/invites/validate"

	// Payment provider callbacks (relative to the v1 group)
	WebhookNowPaymentsRoute = "/webhooks/nowpayments"

	// Admin surface (relative to the v1 group)
	AdminRoute             = "/admin"
	AdminSubscriptionRoute = "/subscriptions/:id"
	AdminLicenseRetryRoute = "/subscriptions/:id/license/retry"
	AdminInvitesRoute      = "/invites"
	AdminInviteRoute       = "/invites/:code"
	AdminWebhookStatsRoute = "/webhooks/stats"
)

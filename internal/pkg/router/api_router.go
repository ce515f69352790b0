package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/app/repository"
	apiv1 "github.com/ManuelReschke/PayFox/internal/api/v1"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/constants"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIv1Route)

	// Gateway callbacks bypass the rate limiter: a redelivery burst from the
	// provider must never be dropped.
	v1.Post(constants.WebhookNowPaymentsRoute, controllers.HandleNOWPaymentsWebhook)

	// Public checkout surface, rate limited per client IP
	apiv1.RegisterHandlers(v1, apiv1.NewAPIServer(), newPublicRateLimiter())

	// Operator surface, token gated
	admin := v1.Group(constants.AdminRoute, middleware.AdminTokenMiddleware())
	adminController := controllers.NewAdminController(
		repository.GetGlobalRepositories(),
		billing.NewServiceFromDB(database.GetDB()),
	)
	admin.Get(constants.AdminSubscriptionRoute, adminController.HandleGetSubscription)
	admin.Patch(constants.AdminSubscriptionRoute, adminController.HandleUpdateSubscription)
	admin.Post(constants.AdminLicenseRetryRoute, adminController.HandleRetryLicense)
	admin.Post(constants.AdminInvitesRoute, adminController.HandleCreateInvite)
	admin.Patch(constants.AdminInviteRoute, adminController.HandleUpdateInvite)
	admin.Get(constants.AdminWebhookStatsRoute, adminController.HandleWebhookStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newPublicRateLimiter builds the shared limiter for the public checkout
// surface. Limits are kept in Redis so they hold across instances.
func newPublicRateLimiter() fiber.Handler {
	max, err := strconv.Atoi(env.GetEnv("API_RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil || max <= 0 {
		max = 60
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
		KeyGenerator: func(c *fiber.Ctx) string {
			return controllers.GetClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	})
}

// newLimiterStorage derives the Redis connection from the existing cache
// setup.
func newLimiterStorage() *redisstorage.Storage {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Prefer password from the underlying client if present
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1, // Separate database for rate limiting
		Reset:    false,
	})
}

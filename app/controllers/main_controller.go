package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// HandleRoot identifies the service for anyone hitting the bare domain.
func HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "payfox",
		"env":     env.GetEnv("APP_ENV", "prod"),
	})
}

// HandleHealth reports component health. The database is load-bearing, so a
// failed ping turns the whole check into a 503; the cache only degrades
// counters and rate limits and is reported without failing the check.
func HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbStatus := "up"
	if db := database.GetDB(); db == nil {
		dbStatus = "down"
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "down"
	}

	cacheStatus := "up"
	if client := cache.GetClient(); client == nil || client.Ping(ctx).Err() != nil {
		cacheStatus = "down"
	}

	httpStatus := fiber.StatusOK
	overall := "ok"
	if dbStatus == "down" {
		httpStatus = fiber.StatusServiceUnavailable
		overall = "unavailable"
	}
	return c.Status(httpStatus).JSON(fiber.Map{
		"status":   overall,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}

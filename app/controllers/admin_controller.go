package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/panorago/panorago/app/repository"
	"github.com/panorago/panorago/internal/pkg/visits"
)

// HandleAdminStats returns basic operational counters.
func HandleAdminStats(c *fiber.Ctx) error {
	userCount, err := repository.GetGlobalFactory().GetUserRepository().Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load stats"})
	}
	return c.JSON(fiber.Map{"users": userCount})
}

// HandleAdminFlushVisits drains the pending visit counters immediately
// instead of waiting for the next scheduled flush.
func HandleAdminFlushVisits(c *fiber.Ctx) error {
	if err := visits.FlushPending(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "flush failed"})
	}
	return c.JSON(fiber.Map{"flushed": true})
}

package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/panorago/panorago/internal/pkg/plancatalog"
)

// HandleListPlans returns the static plan catalog.
func HandleListPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": plancatalog.All()})
}

// HandleGetPlan returns a single plan by its catalog ID.
func HandleGetPlan(c *fiber.Ctx) error {
	plan, ok := plancatalog.ByID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "plan not found"})
	}
	return c.JSON(fiber.Map{"plan": plan})
}

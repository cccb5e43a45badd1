package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/panorago/panorago/internal/pkg/tours"
	"github.com/panorago/panorago/internal/pkg/visits"
)

const visitorCookieName = "pano_visitor"

var (
	embedTourService *tours.Service
	visitRecorder    *visits.Recorder
)

// InitializeEmbedController wires the services used by the public embed
// endpoints.
func InitializeEmbedController(tourSvc *tours.Service, recorder *visits.Recorder) {
	embedTourService = tourSvc
	visitRecorder = recorder
}

// HandleEmbedTour serves a published tour document for the embeddable
// viewer. Draft and enforcement-disabled tours are not exposed; the reason
// is not leaked to visitors.
func HandleEmbedTour(c *fiber.Ctx) error {
	ownerID, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil || ownerID == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
	}
	tourID := c.Params("tourID")

	tour, err := embedTourService.GetTour(c.Context(), uint(ownerID), tourID)
	if err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load tour"})
	}

	if !tour.IsPublished() || embedTourService.IsTourDisabled(uint(ownerID), tour.ID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
	}

	recordEmbedVisit(c, uint(ownerID), tour.ID)

	return c.JSON(fiber.Map{"tour": tour})
}

// recordEmbedVisit counts the view, deduplicated per visitor and day.
// Counting failures never break the embed response.
func recordEmbedVisit(c *fiber.Ctx, ownerID uint, tourID string) {
	visitorID := c.Cookies(visitorCookieName)
	if visitorID == "" {
		visitorID = uuid.New().String()
		c.Cookie(&fiber.Cookie{
			Name:     visitorCookieName,
			Value:    visitorID,
			Expires:  time.Now().Add(365 * 24 * time.Hour),
			HTTPOnly: true,
			SameSite: "None",
			Secure:   true,
		})
	}

	if _, err := visitRecorder.RecordVisit(c.Context(), visitorID, tourID, ownerID, time.Now()); err != nil {
		log.Warnf("embed: could not record visit for tour %s: %v", tourID, err)
	}
}

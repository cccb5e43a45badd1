package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/app/repository"
	"github.com/panorago/panorago/internal/pkg/enforcement"
	"github.com/panorago/panorago/internal/pkg/plancatalog"
	"github.com/panorago/panorago/internal/pkg/tours"
	"github.com/panorago/panorago/internal/pkg/usercontext"
)

var tourService *tours.Service

// InitializeTourController wires the tour service used by all tour handlers.
func InitializeTourController(svc *tours.Service) {
	tourService = svc
}

type createTourRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type tourListItem struct {
	models.Tour
	IsDisabled bool `json:"is_disabled"`
}

// HandleListTours returns the user's tours with their disabled state from
// the last enforcement pass.
func HandleListTours(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	list, err := tourService.ListTours(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load tours"})
	}

	items := make([]tourListItem, 0, len(list))
	for _, t := range list {
		items = append(items, tourListItem{
			Tour:       t,
			IsDisabled: tourService.IsTourDisabled(userID, t.ID),
		})
	}

	return c.JSON(fiber.Map{
		"tours":           items,
		"disabled_reason": reasonOrNil(tourService.DisabledReason(userID)),
	})
}

// HandleGetTour returns one tour document.
func HandleGetTour(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	tourID := c.Params("id")

	tour, err := tourService.GetTour(c.Context(), userID, tourID)
	if err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load tour"})
	}

	return c.JSON(fiber.Map{
		"tour":        tour,
		"is_disabled": tourService.IsTourDisabled(userID, tour.ID),
	})
}

// HandleCreateTour creates a new draft tour.
func HandleCreateTour(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req createTourRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "name is required"})
	}

	tour, err := tourService.CreateTour(c.Context(), userID, req.Name, req.Description, req.Type)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tour": tour})
}

// HandleUpdateTour persists an edited tour document.
func HandleUpdateTour(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	tourID := c.Params("id")

	var tour models.Tour
	if err := c.BodyParser(&tour); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if tour.ID == "" {
		tour.ID = tourID
	}
	if tour.ID != tourID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "tour id mismatch"})
	}

	updated, err := tourService.UpdateTour(c.Context(), userID, &tour)
	if err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	return c.JSON(fiber.Map{"tour": updated})
}

// HandleDeleteTour removes a tour document.
func HandleDeleteTour(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	tourID := c.Params("id")

	if err := tourService.DeleteTour(c.Context(), userID, tourID); err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not delete tour"})
	}

	return c.JSON(fiber.Map{"message": "tour deleted"})
}

// HandlePublishTour flips a draft to published after a fresh eligibility
// check against the current plan.
func HandlePublishTour(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	tourID := c.Params("id")

	tour, decision, err := tourService.PublishTour(c.Context(), userID, tourID)
	if err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not publish tour"})
	}
	if !decision.IsAllowed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "not_eligible",
			"reason":  decision.Reason,
			"message": "your current plan does not allow publishing this tour",
		})
	}

	return c.JSON(fiber.Map{"tour": tour})
}

// HandleUnpublishTour flips a published tour back to draft.
func HandleUnpublishTour(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	tourID := c.Params("id")

	tour, err := tourService.UnpublishTour(c.Context(), userID, tourID)
	if err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not unpublish tour"})
	}

	return c.JSON(fiber.Map{"tour": tour})
}

// HandleEnforceTours runs an enforcement pass over the user's tours and
// returns the decision.
func HandleEnforceTours(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	result, err := tourService.ApplyEnforcement(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "enforcement failed"})
	}

	return c.JSON(fiber.Map{
		"is_allowed":     result.IsAllowed,
		"disabled_tours": result.DisabledTours,
		"reason":         result.Reason,
	})
}

// HandleTourAnalytics returns daily embed-visit counts for one tour.
// Visit analytics is a plan feature.
func HandleTourAnalytics(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	tourID := c.Params("id")

	plan, ok := plancatalog.ByType(plancatalog.Normalize(userCtx.Plan))
	if !ok || !plan.Limits.Analytics {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "analytics is not included in your plan"})
	}

	// Only the owner may read a tour's analytics.
	if _, err := tourService.GetTour(c.Context(), userCtx.UserID, tourID); err != nil {
		if tours.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load tour"})
	}

	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days+1)

	visitRepo := repository.GetGlobalFactory().GetVisitRepository()
	rows, err := visitRepo.GetDailyCounts(tourID, start, end)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load analytics"})
	}
	total, err := visitRepo.GetTotalForTour(tourID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load analytics"})
	}

	return c.JSON(fiber.Map{
		"tour_id": tourID,
		"total":   total,
		"daily":   rows,
	})
}

// reasonOrNil maps the empty reason to JSON null for API responses.
func reasonOrNil(r enforcement.Reason) interface{} {
	if r == enforcement.ReasonNone {
		return nil
	}
	return r
}

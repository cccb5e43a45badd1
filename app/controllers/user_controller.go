package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/app/repository"
	"github.com/panorago/panorago/internal/pkg/database"
	"github.com/panorago/panorago/internal/pkg/plancatalog"
	"github.com/panorago/panorago/internal/pkg/usercontext"
)

type updateProfileRequest struct {
	Name            string `json:"name"`
	CompanyName     string `json:"company_name"`
	BrandingLogoURL string `json:"branding_logo_url"`
	BrandingColor   string `json:"branding_color"`
}

// HandleGetProfile returns the caller's user record and settings.
func HandleGetProfile(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load profile"})
	}
	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load profile"})
	}

	return c.JSON(fiber.Map{"user": user, "settings": settings})
}

// HandleUpdateProfile updates name, company and branding settings. Branding
// is only writable on plans that include it.
func HandleUpdateProfile(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load profile"})
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	user.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := user.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := userRepo.Update(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not update profile"})
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load settings"})
	}

	if req.BrandingLogoURL != "" || req.BrandingColor != "" {
		plan, ok := plancatalog.ByType(plancatalog.Normalize(settings.Plan))
		if !ok || !plan.Limits.CustomBranding {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "custom branding is not included in your plan"})
		}
		settings.BrandingLogoURL = strings.TrimSpace(req.BrandingLogoURL)
		settings.BrandingColor = strings.TrimSpace(req.BrandingColor)
		if err := database.GetDB().Save(settings).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not update settings"})
		}
	}

	return c.JSON(fiber.Map{"user": user, "settings": settings})
}

// HandleIssueAPIKey generates a fresh API key. The raw secret is shown once.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load settings"})
	}

	plan, ok := plancatalog.ByType(plancatalog.Normalize(settings.Plan))
	if !ok || !plan.Limits.APIAccess {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "API access is not included in your plan"})
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not issue API key"})
	}
	if err := database.GetDB().Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not store API key"})
	}

	return c.JSON(fiber.Map{
		"api_key":        rawKey,
		"api_key_prefix": settings.APIKeyPrefix,
		"message":        "store this key now, it will not be shown again",
	})
}

// HandleRevokeAPIKey invalidates the current API key.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load settings"})
	}
	if !settings.HasActiveAPIKey() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no active API key"})
	}

	settings.RevokeAPIKey()
	if err := database.GetDB().Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not revoke API key"})
	}

	return c.JSON(fiber.Map{"message": "API key revoked"})
}

// HandleVisitOverview returns lifetime visit totals per tour for the caller.
func HandleVisitOverview(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	plan, ok := plancatalog.ByType(plancatalog.Normalize(userCtx.Plan))
	if !ok || !plan.Limits.Analytics {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "analytics is not included in your plan"})
	}

	totals, err := repository.GetGlobalFactory().GetVisitRepository().GetTotalsByUser(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load analytics"})
	}

	return c.JSON(fiber.Map{"totals": totals})
}

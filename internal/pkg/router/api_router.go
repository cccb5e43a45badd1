package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/panorago/panorago/app/controllers"
	"github.com/panorago/panorago/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Webhooks verify their own signatures, no session auth.
	v1.Post("/billing/webhook/stripe", controllers.HandleStripeWebhook)

	// Public catalog.
	v1.Get("/plans", controllers.HandleListPlans)
	v1.Get("/plans/:id", controllers.HandleGetPlan)

	// Account endpoints.
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Get("/auth/activate", controllers.HandleActivate)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/auth/me", middleware.RequireAuth, controllers.HandleMe)

	// Session-authenticated application endpoints.
	user := v1.Group("/user", middleware.RequireAuth)
	user.Get("/profile", controllers.HandleGetProfile)
	user.Put("/profile", controllers.HandleUpdateProfile)
	user.Post("/api-key", controllers.HandleIssueAPIKey)
	user.Delete("/api-key", controllers.HandleRevokeAPIKey)
	user.Get("/subscription", controllers.HandleGetSubscription)
	user.Get("/visits", controllers.HandleVisitOverview)

	toursGroup := v1.Group("/tours", middleware.RequireAuth)
	toursGroup.Get("/", controllers.HandleListTours)
	toursGroup.Post("/", controllers.HandleCreateTour)
	toursGroup.Post("/enforce", controllers.HandleEnforceTours)
	toursGroup.Get("/:id", controllers.HandleGetTour)
	toursGroup.Put("/:id", controllers.HandleUpdateTour)
	toursGroup.Delete("/:id", controllers.HandleDeleteTour)
	toursGroup.Post("/:id/publish", controllers.HandlePublishTour)
	toursGroup.Post("/:id/unpublish", controllers.HandleUnpublishTour)
	toursGroup.Get("/:id/analytics", controllers.HandleTourAnalytics)

	// Operational endpoints for admins.
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Post("/visits/flush", controllers.HandleAdminFlushVisits)

	// Key-authenticated endpoints for headless integrations.
	ext := v1.Group("/ext", middleware.APIKeyAuthMiddleware())
	ext.Get("/tours", controllers.HandleListTours)
	ext.Get("/tours/:id", controllers.HandleGetTour)
	ext.Put("/tours/:id", controllers.HandleUpdateTour)
	ext.Post("/tours/:id/publish", controllers.HandlePublishTour)
	ext.Post("/tours/:id/unpublish", controllers.HandleUnpublishTour)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

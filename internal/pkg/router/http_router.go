package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/panorago/panorago/app/controllers"
	"github.com/panorago/panorago/internal/pkg/billing"
	"github.com/panorago/panorago/internal/pkg/middleware"
	"github.com/panorago/panorago/internal/pkg/oauth"
	"github.com/panorago/panorago/internal/pkg/session"
	"github.com/panorago/panorago/internal/pkg/tours"
	"github.com/panorago/panorago/internal/pkg/visits"
)

// Dependencies holds the services the routers hand to the controllers.
type Dependencies struct {
	Tours    *tours.Service
	Billing  *billing.Service
	Recorder *visits.Recorder
}

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	controllers.InitializeTourController(h.deps.Tours)
	controllers.InitializeBillingController(h.deps.Billing, h.deps.Tours)
	controllers.InitializeEmbedController(h.deps.Tours, h.deps.Recorder)

	h.registerPublicRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// OAuth flows live outside /api so goth_fiber can manage its own state
	// cookie without the UserContext middleware interfering.
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)

	// Public embed endpoint consumed by the viewer on third-party sites.
	app.Get("/embed/:userID/:tourID", controllers.HandleEmbedTour)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

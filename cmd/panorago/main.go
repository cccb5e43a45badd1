package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/panorago/panorago/app/repository"
	"github.com/panorago/panorago/internal/pkg/billing"
	"github.com/panorago/panorago/internal/pkg/cache"
	"github.com/panorago/panorago/internal/pkg/database"
	"github.com/panorago/panorago/internal/pkg/env"
	"github.com/panorago/panorago/internal/pkg/router"
	"github.com/panorago/panorago/internal/pkg/tours"
	"github.com/panorago/panorago/internal/pkg/tourstore"
	"github.com/panorago/panorago/internal/pkg/visits"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	storeCfg, err := tourstore.LoadConfig()
	if err != nil {
		log.Fatalf("tour store config: %v", err)
	}
	store, err := tourstore.NewClient(storeCfg)
	if err != nil {
		log.Fatalf("tour store client: %v", err)
	}

	billingService := billing.NewServiceFromDB(database.GetDB())
	tourService := tours.NewService(store, billingService)
	recorder := visits.NewRecorder(visits.NewRedisDedupStore(), visits.NewRedisPendingCounter())

	// Drain pending visit counters into MySQL in the background.
	visits.StartFlusher(context.Background(), 30*time.Second)

	app := fiber.New(fiber.Config{
		AppName:   "PanoraGo",
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	router.InstallRouter(app, router.Dependencies{
		Tours:    tourService,
		Billing:  billingService,
		Recorder: recorder,
	})

	return app
}

package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/panorago/panorago/internal/pkg/usercontext"
)

func newGuardedApp(loggedIn, admin bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyFromProtected, loggedIn)
		c.Locals(usercontext.KeyIsAdmin, admin)
		return c.Next()
	})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/protected", RequireAuth, ok)
	app.Get("/admin", RequireAdmin, ok)
	return app
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name     string
		loggedIn bool
		want     int
	}{
		{"anonymous", false, fiber.StatusUnauthorized},
		{"logged in", true, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGuardedApp(tt.loggedIn, false)
			resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("got status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		loggedIn bool
		admin    bool
		want     int
	}{
		{"anonymous", false, false, fiber.StatusUnauthorized},
		{"regular user", true, false, fiber.StatusForbidden},
		{"admin", true, true, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGuardedApp(tt.loggedIn, tt.admin)
			resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("got status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

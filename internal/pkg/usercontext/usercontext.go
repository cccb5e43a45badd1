package usercontext

import "github.com/gofiber/fiber/v2"

// ContextKey is the fiber Locals key the middleware stores the resolved
// context under.
const ContextKey = "USER_CONTEXT"

// UserContext carries the resolved identity and plan for one request. It is
// built once by the middleware and read by controllers instead of hitting the
// session again.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
	Plan       string `json:"plan"`
}

// GetUserContext returns the request's user context, or an anonymous one when
// the middleware has not run.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{}
}

// IsLoggedIn reports whether the request carries an authenticated user.
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin reports whether the current user has the admin role.
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 for anonymous requests.
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetUsername returns the current user's display name, or "" for anonymous
// requests.
func GetUsername(c *fiber.Ctx) string {
	return GetUserContext(c).Username
}

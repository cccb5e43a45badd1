package usercontext

// Session and Locals keys shared by the auth controllers and middlewares.
// KeyPlan caches the active plan in the session so enforcement-heavy pages
// do not hit the billing tables on every request.
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyPlan          = "user_plan"
	KeyFromProtected = "from_protected"
)

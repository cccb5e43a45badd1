package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/panorago/panorago/internal/pkg/cache"
	"github.com/panorago/panorago/internal/pkg/env"
)

// OAuth state lives in its own Redis database, apart from cache (0) and app
// sessions (1).
const oauthStateRedisDB = 2

// Setup registers the Goth providers and points goth_fiber at a Redis-backed
// state store. Callback URLs derive from PUBLIC_DOMAIN so the same config
// works behind a reverse proxy.
func Setup() {
	base := callbackBase()

	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		),
		github.New(
			env.GetEnv("GITHUB_KEY", ""),
			env.GetEnv("GITHUB_SECRET", ""),
			base+"/auth/github/callback",
			"user:email",
		),
	)

	opts := cache.GetClient().Options()
	host, port := "127.0.0.1", 6379
	if opts != nil && opts.Addr != "" {
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, perr := strconv.Atoi(p); perr == nil {
				port = parsed
			}
		} else {
			host = opts.Addr
		}
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: opts.Username,
			Password: opts.Password,
			Database: oauthStateRedisDB,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     72 * time.Hour,
	})
}

func callbackBase() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

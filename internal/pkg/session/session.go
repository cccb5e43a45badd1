package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/panorago/panorago/internal/pkg/cache"
	"github.com/panorago/panorago/internal/pkg/env"
)

// Redis database layout: cache uses DB 0, sessions DB 1, OAuth state DB 2.
const sessionRedisDB = 1

var sessionStore *session.Store

// NewSessionStore builds the shared session store on top of the same Redis
// instance the cache package connects to.
func NewSessionStore() *session.Store {
	host, port, password := cacheConnectionDetails()

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: sessionRedisDB,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

// cacheConnectionDetails reuses the cache client's address and password so
// session storage never needs its own Redis config keys.
func cacheConnectionDetails() (string, int, string) {
	host, port := "localhost", 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}
	return host, port, password
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// SetSessionValue writes one string value into the caller's session.
func SetSessionValue(c *fiber.Ctx, key, value string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue reads a string value from the caller's session, returning
// "" for missing keys, non-string values, or session errors.
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}
	if s, ok := sess.Get(key).(string); ok {
		return s
	}
	return ""
}

package cache

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/panorago/panorago/internal/pkg/env"
)

var client *redis.Client

// SetupCache connects the shared Redis client. A failed ping is logged but
// not fatal so the app can come up before Redis does; callers get errors per
// operation instead.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr:     env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnf("redis: ping failed: %v", err)
	}
}

// GetClient returns the shared Redis client, connecting lazily if SetupCache
// was not called.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

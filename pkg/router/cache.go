package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// HttpCacheInMemory caches static GET responses. API routes and the push
// channel always bypass it since they reflect live session state.
func HttpCacheInMemory(ttl int) fiber.Handler {
	if ttl <= 0 {
		ttl = 5
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return true
			}
			path := strings.TrimPrefix(c.Path(), BaseURL)
			return strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/ws")
		},
		Expiration: time.Duration(ttl) * time.Second,
	})
}

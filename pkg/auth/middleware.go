package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
)

// AdminAuth validates the X-Admin-Secret header for admin endpoints.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminSecret := c.Get("X-Admin-Secret")
		if adminSecret == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret header")
		}

		if AdminSecretKey == "" {
			return router.ResponseInternalError(c, "Admin secret key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(AdminSecretKey)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid admin secret")
		}

		return c.Next()
	}
}

// AccessAuth requires a valid access token when JWT_SECRET_KEY is set and is
// a pass-through otherwise. Browsers cannot set headers on WebSocket upgrades
// or <img> requests, so the token is also accepted as ?access_token=.
func AccessAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Enabled() {
			return c.Next()
		}

		tokenString := c.Query("access_token")
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			return router.ResponseUnauthorized(c, "Missing access token")
		}

		claims, err := ValidateAccessToken(tokenString)
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid or expired token")
		}

		c.Locals("token_id", claims.ID)
		c.Locals("token_label", claims.Label)
		return c.Next()
	}
}

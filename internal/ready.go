package internal

import (
	"github.com/gofiber/fiber/v2"

	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
)

// RequireReady short-circuits with 503 until the session is ready.
func RequireReady(session typInternal.SessionState) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !session.Snapshot().Ready() {
			return router.ResponseServiceUnavailable(c, typInternal.MsgNotConnected)
		}
		return c.Next()
	}
}

package index

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
)

// Index
// @Summary     Serve the web UI
// @Description Serves the static UI page, or a status message when none is installed
// @Tags        Root
// @Produce     html
// @Success     200
// @Router      / [get]
func Index(c *fiber.Ctx) error {
	page := filepath.Join(router.StaticDir, "index.html")
	if _, err := os.Stat(page); err == nil {
		return c.SendFile(page)
	}
	return router.ResponseJSON(c, fiber.Map{
		"status":  true,
		"message": "Go WhatsApp Group Exporter is running",
	})
}

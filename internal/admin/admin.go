package admin

import (
	"time"

	"github.com/gofiber/fiber/v2"

	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/auth"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
)

const maxTokenTTLHours = 24 * 365

type Controller struct {
	versions typInternal.VersionControl
}

func New(versions typInternal.VersionControl) *Controller {
	return &Controller{versions: versions}
}

// CreateToken
// @Summary     Create an access token
// @Description Mints a bearer token for the API. Only useful when JWT_SECRET_KEY is set.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Param       body body typInternal.RequestAccessToken false "Token label and lifetime"
// @Success     201 {object} typInternal.ResponseAccessToken
// @Failure     400 {object} router.Response
// @Failure     401 {object} router.Response
// @Failure     500 {object} router.Response
// @Router      /api/admin/tokens [post]
func (ctl *Controller) CreateToken(c *fiber.Ctx) error {
	var req typInternal.RequestAccessToken
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return router.ResponseBadRequest(c, "Invalid request body")
		}
	}
	if req.TTLHours < 0 || req.TTLHours > maxTokenTTLHours {
		return router.ResponseBadRequest(c, "ttl_hours must be between 0 and 8760")
	}

	token, expiresAt, err := auth.GenerateAccessToken(req.Label, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		log.Print(c).WithError(err).Error("Failed to create access token")
		return router.ResponseInternalError(c, "Failed to create access token")
	}
	return c.Status(fiber.StatusCreated).JSON(typInternal.ResponseAccessToken{Token: token, ExpiresAt: expiresAt})
}

// GetVersion
// @Summary     WhatsApp Web version
// @Description Shows the WhatsApp Web version advertised by the client
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Success     200 {object} pkgWhatsApp.VersionStatus
// @Router      /api/admin/whatsapp/version [get]
func (ctl *Controller) GetVersion(c *fiber.Ctx) error {
	return router.ResponseJSON(c, ctl.versions.Status())
}

// RefreshVersion
// @Summary     Refresh WhatsApp Web version
// @Description Fetches the latest WhatsApp Web version and applies it
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Param       force query bool false "Ignore the minimum refresh interval"
// @Success     200 {object} pkgWhatsApp.VersionStatus
// @Failure     502 {object} router.Response
// @Router      /api/admin/whatsapp/version/refresh [post]
func (ctl *Controller) RefreshVersion(c *fiber.Ctx) error {
	status, refreshed, err := ctl.versions.Refresh(c.UserContext(), c.QueryBool("force"))
	if err != nil {
		log.Print(c).WithError(err).Error("WhatsApp Web version refresh failed")
		return router.ResponseBadGateway(c, "Failed to fetch the latest WhatsApp Web version")
	}
	return router.ResponseJSON(c, fiber.Map{
		"refreshed":       refreshed,
		"current_version": status.CurrentVersion.String(),
		"last_refreshed":  status.LastRefreshed,
	})
}

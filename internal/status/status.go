package status

import (
	"github.com/gofiber/fiber/v2"

	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
)

type Controller struct {
	session  typInternal.SessionState
	index    typInternal.IndexStats
	versions typInternal.VersionControl
}

func New(session typInternal.SessionState, index typInternal.IndexStats, versions typInternal.VersionControl) *Controller {
	return &Controller{session: session, index: index, versions: versions}
}

// Status
// @Summary     Session status
// @Description Reports whether the WhatsApp session is ready and who is logged in
// @Tags        Session
// @Produce     json
// @Success     200 {object} typInternal.ResponseStatus
// @Router      /api/status [get]
func (ctl *Controller) Status(c *fiber.Ctx) error {
	snap := ctl.session.Snapshot()

	resp := typInternal.ResponseStatus{
		Connected: snap.Ready(),
		State:     snap.State.String(),
	}
	if snap.Ready() && snap.Info != nil {
		resp.User = &typInternal.ResponseUser{Name: snap.Info.Name, Phone: snap.Info.Phone}
	}
	return router.ResponseJSON(c, resp)
}

// Debug
// @Summary     Session diagnostics
// @Description Reports the state of the local group index used as a fallback
// @Tags        Session
// @Produce     json
// @Success     200 {object} typInternal.ResponseDebug
// @Failure     503 {object} router.Response
// @Router      /api/debug [get]
func (ctl *Controller) Debug(c *fiber.Ctx) error {
	resp := typInternal.ResponseDebug{
		State: ctl.session.Snapshot().State.String(),
	}
	if ctl.index != nil {
		resp.IndexedGroups = ctl.index.Len()
	}
	if ctl.versions != nil {
		resp.WAVersion = ctl.versions.Status().CurrentVersion.String()
	}
	return router.ResponseJSON(c, resp)
}

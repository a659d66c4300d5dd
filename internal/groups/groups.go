package groups

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/export"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/validation"
)

const (
	msgGroupNotFound = "Grupo não encontrado"
	msgContactsError = "Erro ao buscar contatos do grupo"
	msgExportError   = "Erro ao exportar contatos"
	msgBadFormat     = "Formato de exportação inválido. Use xlsx ou csv."
)

type Controller struct {
	groups        typInternal.GroupLister
	members       typInternal.MemberResolver
	defaultFormat export.Kind
	now           func() time.Time
}

func New(groups typInternal.GroupLister, members typInternal.MemberResolver, defaultFormat export.Kind) *Controller {
	if defaultFormat == "" {
		defaultFormat = export.KindXLSX
	}
	return &Controller{
		groups:        groups,
		members:       members,
		defaultFormat: defaultFormat,
		now:           time.Now,
	}
}

// WithClock overrides the clock used to stamp export filenames.
func (ctl *Controller) WithClock(now func() time.Time) *Controller {
	ctl.now = now
	return ctl
}

func groupID(c *fiber.Ctx) (string, bool) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || validation.ValidateGroupID(id) != nil {
		return "", false
	}
	return id, true
}

// List
// @Summary     List groups
// @Description Lists the groups the logged-in account belongs to, sorted by name
// @Tags        Groups
// @Produce     json
// @Success     200 {object} typInternal.ResponseGroups
// @Failure     503 {object} router.Response
// @Router      /api/groups [get]
func (ctl *Controller) List(c *fiber.Ctx) error {
	groups := ctl.groups.ListGroups(c.UserContext())
	return router.ResponseJSON(c, typInternal.ResponseGroups{Groups: groups, Total: len(groups)})
}

func (ctl *Controller) resolve(c *fiber.Ctx, failure string) (*directory.GroupMembers, string, error) {
	id, ok := groupID(c)
	if !ok {
		return nil, "", router.ResponseNotFound(c, msgGroupNotFound)
	}

	members, err := ctl.members.GetMembers(c.UserContext(), id)
	switch {
	case err == nil:
		return members, id, nil
	case errors.Is(err, directory.ErrNotFound):
		return nil, id, router.ResponseNotFound(c, msgGroupNotFound)
	case errors.Is(err, directory.ErrNotConnected):
		return nil, id, router.ResponseServiceUnavailable(c, typInternal.MsgNotConnected)
	default:
		log.GroupOp("GetMembers", id).WithError(err).Error("Group membership lookup failed")
		return nil, id, router.ResponseInternalError(c, failure)
	}
}

// Contacts
// @Summary     List group members
// @Description Lists a group's members with admins first
// @Tags        Groups
// @Produce     json
// @Param       id path string true "Group id, e.g. 120363000000000000@g.us"
// @Success     200 {object} typInternal.ResponseContacts
// @Failure     404 {object} router.Response
// @Failure     500 {object} router.Response
// @Failure     503 {object} router.Response
// @Router      /api/groups/{id}/contacts [get]
func (ctl *Controller) Contacts(c *fiber.Ctx) error {
	members, _, err := ctl.resolve(c, msgContactsError)
	if members == nil {
		return err
	}
	return router.ResponseJSON(c, typInternal.ResponseContacts{
		Group:    members.Name,
		Contacts: members.Members,
		Total:    len(members.Members),
	})
}

// Export
// @Summary     Export group members
// @Description Downloads a group's members as an XLSX workbook (default) or a CSV file
// @Tags        Groups
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce     text/csv
// @Param       id          path  string true  "Group id"
// @Param       format      query string false "xlsx or csv"
// @Param       strip_emoji query bool   false "Remove emoji from names"
// @Success     200
// @Failure     400 {object} router.Response
// @Failure     404 {object} router.Response
// @Failure     500 {object} router.Response
// @Failure     503 {object} router.Response
// @Router      /api/groups/{id}/export [get]
func (ctl *Controller) Export(c *fiber.Ctx) error {
	kind, err := export.ParseKind(c.Query("format"), ctl.defaultFormat)
	if err != nil {
		return router.ResponseBadRequest(c, msgBadFormat)
	}

	members, id, err := ctl.resolve(c, msgExportError)
	if members == nil {
		return err
	}

	file, err := export.Format(members.Name, members.Members, kind, export.Options{
		StripEmoji: c.QueryBool("strip_emoji"),
		Now:        ctl.now,
	})
	if err != nil {
		log.GroupOp("Export", id).WithError(err).Error("Failed to render export")
		return router.ResponseInternalError(c, msgExportError)
	}

	log.GroupOp("Export", id).
		WithField("format", string(kind)).
		WithField("member_count", len(members.Members)).
		Info("Group exported")
	return router.ResponseAttachment(c, file.Name, file.ContentType, file.Data)
}

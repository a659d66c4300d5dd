package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/validation"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-group-exporter/pkg/whatsapp"
)

const (
	msgLoggedOut      = "Desconectado com sucesso"
	msgNoSession      = "Nenhuma sessão ativa"
	msgLogoutError    = "Erro ao desconectar"
	msgNoChallenge    = "Nenhum QR Code disponível"
	msgQRError        = "Erro ao gerar imagem do QR Code"
	msgBadImageFormat = "Formato de imagem inválido. Use png, jpeg ou gif."
	msgPairError      = "Erro ao gerar código de pareamento"
	msgAlreadyLogged  = "WhatsApp já está conectado"
)

type Controller struct {
	session typInternal.SessionControl
}

func New(session typInternal.SessionControl) *Controller {
	return &Controller{session: session}
}

// Logout
// @Summary     Log out
// @Description Ends the WhatsApp session and starts a fresh login
// @Tags        Session
// @Produce     json
// @Success     200 {object} typInternal.ResponseLogout
// @Failure     500 {object} router.Response
// @Router      /api/logout [get]
func (ctl *Controller) Logout(c *fiber.Ctx) error {
	hadSession, err := ctl.session.Logout(c.UserContext())
	if err != nil {
		log.Print(c).WithError(err).Error("Logout failed")
		return router.ResponseInternalError(c, msgLogoutError)
	}

	message := msgNoSession
	if hadSession {
		message = msgLoggedOut
	}
	return router.ResponseJSON(c, typInternal.ResponseLogout{Success: true, Message: message})
}

// QR
// @Summary     Current login QR code
// @Description Returns the pending login challenge as an image
// @Tags        Session
// @Produce     png
// @Produce     jpeg
// @Produce     gif
// @Param       format query string false "png (default), jpeg or gif"
// @Param       size   query int    false "Width in pixels"
// @Success     200
// @Failure     400 {object} router.Response
// @Failure     404 {object} router.Response
// @Router      /api/qr [get]
func (ctl *Controller) QR(c *fiber.Ctx) error {
	snap := ctl.session.Snapshot()
	if snap.State != pkgWhatsApp.StateAwaitingLogin || snap.Challenge == "" {
		return router.ResponseNotFound(c, msgNoChallenge)
	}

	data, contentType, err := pkgWhatsApp.ChallengeImage(snap.Challenge, c.Query("format"), c.QueryInt("size"))
	if errors.Is(err, pkgWhatsApp.ErrUnsupportedImageFormat) {
		return router.ResponseBadRequest(c, msgBadImageFormat)
	}
	if err != nil {
		log.Print(c).WithError(err).Error("Failed to convert QR code")
		return router.ResponseInternalError(c, msgQRError)
	}
	return router.ResponseImage(c, contentType, data)
}

// LoginCode
// @Summary     Log in with a pairing code
// @Description Requests an 8 character code to link the account by phone number instead of scanning the QR code
// @Tags        Session
// @Accept      json
// @Produce     json
// @Param       body body typInternal.RequestLoginCode true "Phone in international format"
// @Success     200 {object} typInternal.ResponseLoginCode
// @Failure     400 {object} router.Response
// @Failure     409 {object} router.Response
// @Failure     500 {object} router.Response
// @Router      /api/login/code [post]
func (ctl *Controller) LoginCode(c *fiber.Ctx) error {
	var req typInternal.RequestLoginCode
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Invalid request body")
	}
	if err := validation.ValidatePhone(req.Phone); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	code, err := ctl.session.PairPhone(c.UserContext(), validation.NormalizePhone(req.Phone))
	if errors.Is(err, pkgWhatsApp.ErrAlreadyLoggedIn) {
		return router.ResponseConflict(c, msgAlreadyLogged)
	}
	if err != nil {
		log.Print(c).WithError(err).Error("Pairing code request failed")
		return router.ResponseInternalError(c, msgPairError)
	}
	return router.ResponseJSON(c, typInternal.ResponseLoginCode{Code: code})
}

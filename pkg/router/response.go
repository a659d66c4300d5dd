package router

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

// Response is the error envelope. The "error" key is what the UI reads.
type Response struct {
	Status  bool   `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message || message == "" {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
	}
}

func logError(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, message))
	}
}

func respondError(c *fiber.Ctx, code int, message string) error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}
	response := Response{
		Status:  false,
		Code:    code,
		Message: message,
		Error:   message,
	}

	logError(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

// ResponseJSON writes the payload as-is with status 200.
func ResponseJSON(c *fiber.Ctx, payload interface{}) error {
	logSuccess(c, http.StatusOK, "")
	return c.Status(http.StatusOK).JSON(payload)
}

// ResponseAttachment sends a downloadable file.
func ResponseAttachment(c *fiber.Ctx, filename string, contentType string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	logSuccess(c, http.StatusOK, "attachment "+filename)
	return c.Status(http.StatusOK).Send(data)
}

// ResponseImage sends raw image bytes.
func ResponseImage(c *fiber.Ctx, contentType string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	logSuccess(c, http.StatusOK, "")
	return c.Status(http.StatusOK).Send(data)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func ResponseNotFound(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusNotFound, message)
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusUnauthorized, message)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusBadRequest, message)
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusInternalServerError, message)
}

func ResponseServiceUnavailable(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusServiceUnavailable, message)
}

func ResponseConflict(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusConflict, message)
}

func ResponseBadGateway(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusBadGateway, message)
}

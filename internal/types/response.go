package types

import (
	"time"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
)

type ResponseUser struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ResponseStatus struct {
	Connected bool          `json:"connected"`
	User      *ResponseUser `json:"user"`
	State     string        `json:"state"`
}

type ResponseDebug struct {
	State         string `json:"state"`
	IndexedGroups int    `json:"indexedGroups"`
	WAVersion     string `json:"waVersion"`
}

type ResponseGroups struct {
	Groups []directory.GroupSummary `json:"groups"`
	Total  int                      `json:"total"`
}

type ResponseContacts struct {
	Group    string             `json:"group"`
	Contacts []directory.Member `json:"contacts"`
	Total    int                `json:"total"`
}

type ResponseLogout struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ResponseLoginCode struct {
	Code string `json:"code"`
}

type ResponseAccessToken struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MsgNotConnected is returned whenever the session is not ready.
const MsgNotConnected = "WhatsApp não está conectado. Escaneie o QR Code primeiro."

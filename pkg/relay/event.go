package relay

import (
	"encoding/json"
)

// Event types pushed to UI subscribers.
const (
	EventQR            = "qr"
	EventAuthenticated = "authenticated"
	EventLoading       = "loading"
	EventReady         = "ready"
	EventAuthFailure   = "auth_failure"
	EventDisconnected  = "disconnected"
)

// Event is a lifecycle notification. Fields are flattened next to "type" on
// the wire, e.g. {"type":"ready","name":"...","phone":"..."}.
type Event struct {
	Type   string
	Fields map[string]interface{}
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	return json.Marshal(out)
}

func QR(challenge string) Event {
	return Event{Type: EventQR, Fields: map[string]interface{}{"payload": challenge}}
}

func Authenticated() Event {
	return Event{Type: EventAuthenticated}
}

func Loading(percent int, message string) Event {
	return Event{Type: EventLoading, Fields: map[string]interface{}{"percent": percent, "message": message}}
}

func Ready(name string, phone string) Event {
	return Event{Type: EventReady, Fields: map[string]interface{}{"name": name, "phone": phone}}
}

func AuthFailure(reason string) Event {
	return Event{Type: EventAuthFailure, Fields: map[string]interface{}{"reason": reason}}
}

func Disconnected(reason string) Event {
	return Event{Type: EventDisconnected, Fields: map[string]interface{}{"reason": reason}}
}

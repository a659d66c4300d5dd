package whatsapp

// ConnectionState is the process-wide session lifecycle state. Only Session
// mutates it.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateDisconnected
	StateAwaitingLogin
	StateAuthenticating
	StateReady
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateAwaitingLogin:
		return "awaiting_login"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "idle"
	}
}

type SessionInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Snapshot is a read-only copy of the session state taken under lock.
type Snapshot struct {
	State     ConnectionState
	Challenge string
	Info      *SessionInfo
}

func (s Snapshot) Ready() bool {
	return s.State == StateReady
}

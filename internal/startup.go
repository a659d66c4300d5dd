package internal

import (
	mathrand "math/rand/v2"
	"time"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

// Starter brings the WhatsApp client up.
type Starter interface {
	Start() error
}

// StartupConfig bounds the initial connect retries.
type StartupConfig struct {
	Retries     int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Sleep       func(time.Duration)
}

func startWithRetry(session Starter, cfg StartupConfig) error {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Retries; attempt++ {
		lastErr = session.Start()
		if lastErr == nil {
			return nil
		}
		log.SessionOp("Startup").WithField("attempt", attempt).WithError(lastErr).Warn("Failed to start WhatsApp client")
		if attempt == cfg.Retries {
			break
		}

		// Exponential backoff with small jitter.
		backoff := cfg.BaseBackoff * time.Duration(1<<(attempt-1))
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
		jitter := time.Duration(mathrand.Int64N(int64(500*time.Millisecond) + 1))
		cfg.Sleep(backoff + jitter)
	}
	return lastErr
}

// Startup connects the stored session, or starts a QR login when there is
// none. It does not block on the user scanning the code.
func Startup(session Starter, cfg StartupConfig) {
	log.Print(nil).Info("Running Startup Tasks")

	if err := startWithRetry(session, cfg); err != nil {
		log.SessionOp("Startup").WithError(err).Error("WhatsApp client could not be started")
		return
	}
	log.SessionOp("Startup").Info("WhatsApp client started")
}

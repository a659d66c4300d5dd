package internal

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/env"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-group-exporter/pkg/whatsapp"

	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
)

const (
	healthCheckSpec          = "0 */5 * * * *"
	defaultVersionCronSpec   = "0 0 3 * * *"
	versionRefreshJobTimeout = 30 * time.Second
)

// HealthChecker reports whether the client is connected and logged in, and
// can start a new one when there is none.
type HealthChecker interface {
	typInternal.SessionState
	Starter
	HealthCheck() error
}

// RoutineConfig toggles the scheduled jobs.
type RoutineConfig struct {
	HealthCheck        bool
	VersionRefresh     bool
	VersionRefreshSpec string
	VersionForce       bool
}

func LoadRoutineConfig() RoutineConfig {
	return RoutineConfig{
		HealthCheck:        env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_HEALTH_CHECK_CRON", true),
		VersionRefresh:     env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", false),
		VersionRefreshSpec: env.GetEnvStringOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", defaultVersionCronSpec),
		VersionForce:       env.GetEnvBoolOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_FORCE", false),
	}
}

// Routines registers the scheduled jobs on c and starts it.
func Routines(c *cron.Cron, cfg RoutineConfig, session HealthChecker, versions typInternal.VersionControl) {
	log.Print(nil).Info("Running Routine Tasks")

	if cfg.HealthCheck {
		_, err := c.AddFunc(healthCheckSpec, func() {
			checkHealth(session)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
		}
	} else {
		log.Print(nil).Info("Health check cron disabled; relying on whatsmeow event handlers")
	}

	if cfg.VersionRefresh && versions != nil {
		_, err := c.AddFunc(cfg.VersionRefreshSpec, func() {
			refreshVersion(versions, cfg.VersionForce)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add WA Web version refresh cron job")
		} else {
			log.Print(nil).WithField("spec", cfg.VersionRefreshSpec).WithField("force", cfg.VersionForce).Info("WA Web version refresh cron enabled")
		}
	}

	c.Start()
}

func checkHealth(session HealthChecker) {
	state := session.Snapshot().State.String()
	err := session.HealthCheck()
	if errors.Is(err, pkgWhatsApp.ErrNoClient) {
		log.SessionOp("HealthCheck").WithField("state", state).Warn("No client, starting a new login")
		if err := session.Start(); err != nil {
			log.SessionOp("HealthCheck").WithError(err).Error("Failed to start WhatsApp client")
		}
		return
	}
	if err != nil {
		log.SessionOp("HealthCheck").WithField("state", state).Warn("Client unhealthy: " + err.Error())
		return
	}
	log.SessionOp("HealthCheck").WithField("state", state).Info("Client healthy")
}

func refreshVersion(versions typInternal.VersionControl, force bool) {
	ctx, cancel := context.WithTimeout(context.Background(), versionRefreshJobTimeout)
	defer cancel()

	status, refreshed, err := versions.Refresh(ctx, force)
	entry := log.SessionOp("RefreshVersion").WithField("version", status.CurrentVersion.String()).WithField("force", force)
	if err != nil {
		entry.Error("WA Web version refresh failed: " + err.Error())
		return
	}
	entry.WithField("refreshed", refreshed).Info("WA Web version refresh completed")
}

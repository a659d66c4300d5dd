package internal

import (
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	pkgWhatsApp "github.com/gdbrns/go-whatsapp-group-exporter/pkg/whatsapp"
)

func TestRoutinesRegistersEnabledJobs(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RoutineConfig
		entries int
	}{
		{name: "health only", cfg: RoutineConfig{HealthCheck: true}, entries: 1},
		{name: "both", cfg: RoutineConfig{HealthCheck: true, VersionRefresh: true, VersionRefreshSpec: defaultVersionCronSpec}, entries: 2},
		{name: "bad version spec", cfg: RoutineConfig{VersionRefresh: true, VersionRefreshSpec: "whenever"}, entries: 0},
		{name: "none", cfg: RoutineConfig{}, entries: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cron.New(cron.WithSeconds())
			Routines(c, tt.cfg, &fakeSession{}, &fakeVersions{})
			defer c.Stop()

			assert.Len(t, c.Entries(), tt.entries)
		})
	}
}

func TestLoadRoutineConfig(t *testing.T) {
	t.Setenv("WHATSAPP_ENABLE_HEALTH_CHECK_CRON", "false")
	t.Setenv("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", "true")
	t.Setenv("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", "")

	cfg := LoadRoutineConfig()
	assert.False(t, cfg.HealthCheck)
	assert.True(t, cfg.VersionRefresh)
	assert.Equal(t, defaultVersionCronSpec, cfg.VersionRefreshSpec)
	assert.False(t, cfg.VersionForce)
}

func TestRoutineJobsCallCollaborators(t *testing.T) {
	versions := &fakeVersions{err: errors.New("offline")}
	refreshVersion(versions, true)
	assert.Equal(t, 1, versions.refreshes)

	session := &fakeSession{
		snap:      pkgWhatsApp.Snapshot{State: pkgWhatsApp.StateDisconnected},
		healthErr: pkgWhatsApp.ErrClientNotLogged,
	}
	checkHealth(session)
	assert.Zero(t, session.starts)
}

func TestHealthCheckStartsClientWhenMissing(t *testing.T) {
	session := &fakeSession{
		snap:      pkgWhatsApp.Snapshot{State: pkgWhatsApp.StateFailed},
		healthErr: pkgWhatsApp.ErrNoClient,
	}

	checkHealth(session)

	assert.Equal(t, 1, session.starts)
}

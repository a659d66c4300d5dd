package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

const versionRequestTimeout = 15 * time.Second

type VersionStatus struct {
	CurrentVersion store.WAVersionContainer `json:"current_version"`
	LastRefreshed  *time.Time               `json:"last_refreshed,omitempty"`
	LastError      string                   `json:"last_error,omitempty"`
}

// VersionRefresher keeps the advertised WhatsApp Web version current. An
// outdated version makes the server reject new logins.
type VersionRefresher struct {
	group       singleflight.Group
	minInterval time.Duration
	httpClient  *http.Client

	mu            sync.RWMutex
	lastRefreshed *time.Time
	lastError     string
}

func NewVersionRefresher(minInterval time.Duration) *VersionRefresher {
	return &VersionRefresher{
		minInterval: minInterval,
		httpClient:  &http.Client{Timeout: versionRequestTimeout},
	}
}

func (r *VersionRefresher) Status() VersionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *time.Time
	if r.lastRefreshed != nil {
		t := *r.lastRefreshed
		last = &t
	}
	return VersionStatus{
		CurrentVersion: store.GetWAVersion(),
		LastRefreshed:  last,
		LastError:      r.lastError,
	}
}

func (r *VersionRefresher) record(err error) {
	r.mu.Lock()
	now := time.Now()
	r.lastRefreshed = &now
	r.lastError = ""
	if err != nil {
		r.lastError = err.Error()
	}
	r.mu.Unlock()
}

// Refresh fetches the latest version and applies it process-wide. Unless
// forced, calls within the minimum interval of the previous one are skipped;
// the boolean reports whether a fetch happened.
func (r *VersionRefresher) Refresh(ctx context.Context, force bool) (VersionStatus, bool, error) {
	if !force && r.minInterval > 0 {
		r.mu.RLock()
		last := r.lastRefreshed
		r.mu.RUnlock()
		if last != nil && time.Since(*last) < r.minInterval {
			return r.Status(), false, nil
		}
	}

	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		latest, err := whatsmeow.GetLatestVersion(ctx, r.httpClient)
		if err == nil && latest == nil {
			err = errors.New("latest WhatsApp Web version is nil")
		}
		if err != nil {
			r.record(err)
			return nil, err
		}

		store.SetWAVersion(*latest)
		r.record(nil)
		log.SessionOp("RefreshVersion").WithField("version", latest.String()).Info("WhatsApp Web version refreshed")
		return nil, nil
	})
	return r.Status(), true, err
}

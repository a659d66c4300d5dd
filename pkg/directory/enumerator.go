package directory

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

const (
	// MaxListAttempts bounds the primary group listing retries.
	MaxListAttempts = 5
	// ListBackoffStep is multiplied by the failed attempt number.
	ListBackoffStep = 3 * time.Second
)

// Sleeper pauses the calling goroutine. Tests replace it to avoid real waits.
type Sleeper func(time.Duration)

// BackoffDelay is the wait after the given failed attempt (1-based), i.e. the
// delay before attempt n is (n-1) * ListBackoffStep.
func BackoffDelay(attempt int) time.Duration {
	return time.Duration(attempt) * ListBackoffStep
}

type Enumerator struct {
	primary  GroupSource
	fallback GroupSource
	sleep    Sleeper
	flight   singleflight.Group
}

func NewEnumerator(primary GroupSource, fallback GroupSource) *Enumerator {
	return &Enumerator{
		primary:  primary,
		fallback: fallback,
		sleep:    time.Sleep,
	}
}

// WithSleeper overrides how backoff waits are performed.
func (e *Enumerator) WithSleeper(sleep Sleeper) *Enumerator {
	e.sleep = sleep
	return e
}

// ListGroups returns every group sorted by name. It never fails: when both
// sources come up empty the result is an empty slice. Concurrent callers share
// a single in-flight run, and the run is not tied to the caller's
// cancellation.
func (e *Enumerator) ListGroups(ctx context.Context) []GroupSummary {
	ctx = context.WithoutCancel(ctx)
	res, _, _ := e.flight.Do("groups", func() (interface{}, error) {
		return e.listGroups(ctx), nil
	})
	shared, _ := res.([]GroupSummary)
	// Each caller gets its own copy so sorting or mutation stays local.
	groups := make([]GroupSummary, len(shared))
	copy(groups, shared)
	return groups
}

func (e *Enumerator) listGroups(ctx context.Context) []GroupSummary {
	start := time.Now()
	groups := e.fromPrimary(ctx)
	if len(groups) == 0 {
		groups = e.fromFallback(ctx)
	}
	if groups == nil {
		groups = []GroupSummary{}
	}
	SortGroups(groups)

	log.GroupOp("ListGroups", "").
		WithField("group_count", len(groups)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Groups listed")
	return groups
}

func (e *Enumerator) fromPrimary(ctx context.Context) []GroupSummary {
	if e.primary == nil {
		return nil
	}
	for attempt := 1; attempt <= MaxListAttempts; attempt++ {
		entry := log.GroupOp("ListGroups", "").WithField("attempt", attempt).WithField("max_attempts", MaxListAttempts)

		groups, err := e.primary.EnumerateGroups(ctx)
		switch {
		case err != nil:
			entry.WithError(err).Warn("Primary group listing failed")
		case len(groups) > 0:
			entry.WithField("group_count", len(groups)).Info("Primary group listing succeeded")
			return groups
		default:
			entry.Info("Primary group listing returned no groups")
		}

		if attempt < MaxListAttempts {
			delay := BackoffDelay(attempt)
			entry.WithField("delay_ms", delay.Milliseconds()).Debug("Waiting before next attempt")
			e.sleep(delay)
		}
	}
	return nil
}

func (e *Enumerator) fromFallback(ctx context.Context) []GroupSummary {
	if e.fallback == nil {
		return nil
	}
	log.GroupOp("ListGroups", "").Warn("Primary group listing exhausted, probing session index")

	groups, err := e.fallback.EnumerateGroups(ctx)
	if err != nil {
		log.GroupOp("ListGroups", "").WithError(err).Error("Fallback group listing failed")
		return nil
	}
	log.GroupOp("ListGroups", "").WithField("group_count", len(groups)).Info("Fallback group listing finished")
	return groups
}

package directory

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

const defaultLookupWorkers = 8

type Resolver struct {
	primary  GroupResolver
	fallback GroupResolver
	workers  int
	limiter  *rate.Limiter
}

// NewResolver builds a resolver. lookupsPerSecond <= 0 disables throttling of
// per-member name lookups.
func NewResolver(primary GroupResolver, fallback GroupResolver, workers int, lookupsPerSecond float64) *Resolver {
	if workers <= 0 {
		workers = defaultLookupWorkers
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if lookupsPerSecond > 0 {
		burst := int(lookupsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(lookupsPerSecond), burst)
	}
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		workers:  workers,
		limiter:  limiter,
	}
}

// GetMembers resolves a group's membership. It returns ErrNotFound when the id
// is not a group and ErrUpstream when neither source could answer.
func (r *Resolver) GetMembers(ctx context.Context, groupID string) (*GroupMembers, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	source := r.primary
	raw, err := r.primary.ResolveGroup(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		log.GroupOp("GetMembers", groupID).Info("Group not found")
		return nil, ErrNotFound
	}
	if err != nil {
		log.GroupOp("GetMembers", groupID).WithError(err).Warn("Primary group lookup failed, probing session index")
		if r.fallback == nil {
			return nil, ErrUpstream
		}
		source = r.fallback
		raw, err = r.fallback.ResolveGroup(ctx, groupID)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			log.GroupOp("GetMembers", groupID).WithError(err).Error("Fallback group lookup failed")
			return nil, ErrUpstream
		}
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	name := raw.Name
	if name == "" {
		name = DefaultGroupName
	}
	members := r.resolveMembers(ctx, groupID, source, raw.Participants)
	SortMembers(members)

	log.GroupOp("GetMembers", groupID).
		WithField("member_count", len(members)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Group members resolved")
	return &GroupMembers{Name: name, Members: members}, nil
}

// resolveMembers looks every participant's name up individually. A failed
// lookup leaves that member's name empty and never fails the batch.
func (r *Resolver) resolveMembers(ctx context.Context, groupID string, source GroupResolver, participants []Participant) []Member {
	members := make([]Member, len(participants))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, p := range participants {
		g.Go(func() error {
			members[i] = Member{
				Phone:          p.Phone,
				PhoneFormatted: "+" + p.Phone,
				Name:           r.lookupName(ctx, groupID, source, p),
				IsAdmin:        p.IsAdmin,
				IsSuperAdmin:   p.IsSuperAdmin,
			}
			return nil
		})
	}
	_ = g.Wait()
	return members
}

func (r *Resolver) lookupName(ctx context.Context, groupID string, source GroupResolver, p Participant) string {
	if err := r.limiter.Wait(ctx); err != nil {
		return p.DisplayName
	}
	name, err := source.LookupName(ctx, p.ID)
	if err != nil {
		log.GroupOp("GetMembers", groupID).WithField("participant", p.ID).WithError(err).Debug("Contact lookup failed")
		return ""
	}
	if name == "" {
		return p.DisplayName
	}
	return name
}

package whatsapp

import (
	"context"
	"errors"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

const probeRefreshTimeout = 10 * time.Second

// OfficialSource answers through the client's server queries.
type OfficialSource struct {
	session *Session
}

func NewOfficialSource(session *Session) *OfficialSource {
	return &OfficialSource{session: session}
}

func (o *OfficialSource) EnumerateGroups(ctx context.Context) ([]directory.GroupSummary, error) {
	client, err := o.session.Client()
	if err != nil {
		return nil, directory.ErrNotConnected
	}
	groups, err := client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]directory.GroupSummary, 0, len(groups))
	for _, g := range groups {
		o.session.index.PutGroup(g)
		out = append(out, summarize(g))
	}
	return out, nil
}

func (o *OfficialSource) ResolveGroup(ctx context.Context, groupID string) (*directory.RawGroup, error) {
	jid, ok := ParseGroupJID(groupID)
	if !ok {
		return nil, directory.ErrNotFound
	}
	client, err := o.session.Client()
	if err != nil {
		return nil, directory.ErrNotConnected
	}

	info, err := client.GetGroupInfo(ctx, jid)
	if err != nil {
		if isGroupMissing(err) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	o.session.index.PutGroup(info)
	return rawGroup(ctx, client, info), nil
}

func (o *OfficialSource) LookupName(ctx context.Context, participantID string) (string, error) {
	client, err := o.session.Client()
	if err != nil {
		return "", directory.ErrNotConnected
	}
	return contactName(ctx, client, participantID)
}

// ProbeSource answers from the locally observed group index. It is slower to
// fill than the server queries but keeps working when they fail.
type ProbeSource struct {
	session *Session
}

func NewProbeSource(session *Session) *ProbeSource {
	return &ProbeSource{session: session}
}

func (p *ProbeSource) EnumerateGroups(ctx context.Context) ([]directory.GroupSummary, error) {
	groups := p.session.index.Groups()
	out := make([]directory.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, summarize(g))
	}
	return out, nil
}

func (p *ProbeSource) ResolveGroup(ctx context.Context, groupID string) (*directory.RawGroup, error) {
	jid, ok := ParseGroupJID(groupID)
	if !ok {
		return nil, directory.ErrNotFound
	}
	info, ok := p.session.index.Group(jid)
	if !ok {
		return nil, directory.ErrNotFound
	}

	client := p.session.rawClient()
	if len(info.Participants) == 0 && client != nil {
		p.refresh(ctx, client, jid)
		if refreshed, ok := p.session.index.Group(jid); ok {
			info = refreshed
		}
	}
	return rawGroup(ctx, client, info), nil
}

// refresh asks the server once for the group's metadata. Failures are only
// logged; the caller proceeds with what the index has.
func (p *ProbeSource) refresh(ctx context.Context, client *whatsmeow.Client, jid types.JID) {
	ctx, cancel := context.WithTimeout(ctx, probeRefreshTimeout)
	defer cancel()
	info, err := client.GetGroupInfo(ctx, jid)
	if err != nil {
		log.GroupOp("ProbeRefresh", jid.String()).WithError(err).Debug("Participant refresh failed")
		return
	}
	p.session.index.PutGroup(info)
}

func (p *ProbeSource) LookupName(ctx context.Context, participantID string) (string, error) {
	jid, err := types.ParseJID(participantID)
	if err != nil {
		return "", err
	}
	if name := p.session.index.Name(jid); name != "" {
		return name, nil
	}
	client := p.session.rawClient()
	if client == nil {
		return "", nil
	}
	return contactName(ctx, client, participantID)
}

func summarize(g *types.GroupInfo) directory.GroupSummary {
	return directory.GroupSummary{
		ID:               g.JID.String(),
		Name:             g.Name,
		ParticipantCount: len(g.Participants),
	}
}

func rawGroup(ctx context.Context, client *whatsmeow.Client, info *types.GroupInfo) *directory.RawGroup {
	participants := make([]directory.Participant, 0, len(info.Participants))
	for _, p := range info.Participants {
		participants = append(participants, directory.Participant{
			ID:           p.JID.String(),
			Phone:        participantPhone(ctx, client, p),
			DisplayName:  p.DisplayName,
			IsAdmin:      p.IsAdmin || p.IsSuperAdmin || (!info.OwnerJID.IsEmpty() && p.JID == info.OwnerJID),
			IsSuperAdmin: p.IsSuperAdmin || (!info.OwnerJID.IsEmpty() && p.JID == info.OwnerJID),
		})
	}
	return &directory.RawGroup{Name: info.Name, Participants: participants}
}

func isGroupMissing(err error) bool {
	return errors.Is(err, whatsmeow.ErrGroupNotFound) ||
		errors.Is(err, whatsmeow.ErrNotInGroup) ||
		errors.Is(err, whatsmeow.ErrIQNotFound) ||
		errors.Is(err, whatsmeow.ErrIQBadRequest)
}

// contactName resolves a participant's display name from the contact store.
// Hidden (LID) participants are mapped to their phone identity first.
func contactName(ctx context.Context, client *whatsmeow.Client, participantID string) (string, error) {
	jid, err := types.ParseJID(participantID)
	if err != nil {
		return "", err
	}
	if client.Store == nil || client.Store.Contacts == nil {
		return "", nil
	}
	if jid.Server == types.HiddenUserServer && client.Store.LIDs != nil {
		if pn, err := client.Store.LIDs.GetPNForLID(ctx, jid); err == nil && !pn.IsEmpty() {
			jid = pn
		}
	}

	contact, err := client.Store.Contacts.GetContact(ctx, jid.ToNonAD())
	if err != nil {
		return "", err
	}
	if !contact.Found {
		return "", nil
	}
	for _, name := range []string{contact.PushName, contact.FullName, contact.FirstName, contact.BusinessName} {
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}

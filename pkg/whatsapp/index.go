package whatsapp

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

const (
	pushNameTTL          = 24 * time.Hour
	indexCleanupInterval = 30 * time.Minute
)

// GroupIndex is the client's locally observed view of its groups and of the
// push names it has seen. It is filled from events and never queries the
// server, so it answers while the official queries are still failing.
type GroupIndex struct {
	mu     sync.Mutex
	groups *cache.Cache
	names  *cache.Cache
}

func NewGroupIndex() *GroupIndex {
	return &GroupIndex{
		groups: cache.New(cache.NoExpiration, 0),
		names:  cache.New(pushNameTTL, indexCleanupInterval),
	}
}

func cloneGroup(info *types.GroupInfo) *types.GroupInfo {
	out := *info
	out.Participants = append([]types.GroupParticipant(nil), info.Participants...)
	return &out
}

// PutGroup stores full group metadata, replacing whatever was known.
func (x *GroupIndex) PutGroup(info *types.GroupInfo) {
	if info == nil || info.JID.IsEmpty() {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.groups.Set(info.JID.String(), cloneGroup(info), cache.NoExpiration)
	for _, p := range info.Participants {
		if p.DisplayName != "" {
			x.names.SetDefault(p.JID.String(), p.DisplayName)
		}
	}
}

func (x *GroupIndex) lookupLocked(jid types.JID) *types.GroupInfo {
	v, ok := x.groups.Get(jid.String())
	if !ok {
		return nil
	}
	return v.(*types.GroupInfo)
}

// PutStub records a group seen without full metadata. Existing participants
// are kept; the name only fills a gap.
func (x *GroupIndex) PutStub(jid types.JID, name string, participants []types.GroupParticipant) {
	if jid.IsEmpty() {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	current := x.lookupLocked(jid)
	if current == nil {
		info := &types.GroupInfo{JID: jid, Participants: participants}
		info.Name = name
		x.groups.Set(jid.String(), info, cache.NoExpiration)
		return
	}
	updated := cloneGroup(current)
	if updated.Name == "" {
		updated.Name = name
	}
	if len(updated.Participants) == 0 {
		updated.Participants = participants
	}
	x.groups.Set(jid.String(), updated, cache.NoExpiration)
}

// ApplyGroupEvent folds an incremental group change into the index.
func (x *GroupIndex) ApplyGroupEvent(evt *events.GroupInfo) {
	if evt == nil {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if evt.Delete != nil {
		x.groups.Delete(evt.JID.String())
		return
	}
	current := x.lookupLocked(evt.JID)
	if current == nil {
		current = &types.GroupInfo{JID: evt.JID}
	}
	info := cloneGroup(current)
	if evt.Name != nil {
		info.GroupName = *evt.Name
	}

	left := make(map[types.JID]bool, len(evt.Leave))
	for _, jid := range evt.Leave {
		left[jid] = true
	}
	kept := info.Participants[:0]
	for _, p := range info.Participants {
		if !left[p.JID] {
			kept = append(kept, p)
		}
	}
	info.Participants = kept
	for _, jid := range evt.Join {
		info.Participants = append(info.Participants, types.GroupParticipant{JID: jid})
	}
	setAdmin := func(jids []types.JID, admin bool) {
		for _, jid := range jids {
			for i := range info.Participants {
				if info.Participants[i].JID == jid {
					info.Participants[i].IsAdmin = admin
				}
			}
		}
	}
	setAdmin(evt.Promote, true)
	setAdmin(evt.Demote, false)

	x.groups.Set(evt.JID.String(), info, cache.NoExpiration)
}

// RemoveGroup drops a group the account has left.
func (x *GroupIndex) RemoveGroup(jid types.JID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.groups.Delete(jid.String())
}

// leftBy reports whether any of own is among the leaving members.
func leftBy(leave []types.JID, own []types.JID) bool {
	for _, jid := range leave {
		jid = jid.ToNonAD()
		for _, me := range own {
			if jid == me {
				return true
			}
		}
	}
	return false
}

func (x *GroupIndex) PutName(jid types.JID, name string) {
	if jid.IsEmpty() || strings.TrimSpace(name) == "" {
		return
	}
	x.names.SetDefault(jid.ToNonAD().String(), name)
}

// IngestHistorySync indexes group conversations and push names carried by a
// history sync blob.
func (x *GroupIndex) IngestHistorySync(data *waHistorySync.HistorySync) {
	for _, conv := range data.GetConversations() {
		jid, err := types.ParseJID(conv.GetID())
		if err != nil || jid.Server != types.GroupServer {
			continue
		}
		var participants []types.GroupParticipant
		for _, gp := range conv.GetParticipant() {
			pjid, err := types.ParseJID(gp.GetUserJID())
			if err != nil {
				continue
			}
			participants = append(participants, types.GroupParticipant{
				JID:          pjid,
				IsAdmin:      gp.GetRank() != waHistorySync.GroupParticipant_REGULAR,
				IsSuperAdmin: gp.GetRank() == waHistorySync.GroupParticipant_SUPERADMIN,
			})
		}
		x.PutStub(jid, conv.GetName(), participants)
	}
	for _, pn := range data.GetPushnames() {
		jid, err := types.ParseJID(pn.GetID())
		if err != nil {
			continue
		}
		x.PutName(jid, pn.GetPushname())
	}
}

func (x *GroupIndex) Group(jid types.JID) (*types.GroupInfo, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	info := x.lookupLocked(jid)
	if info == nil {
		return nil, false
	}
	return cloneGroup(info), true
}

func (x *GroupIndex) Groups() []*types.GroupInfo {
	x.mu.Lock()
	defer x.mu.Unlock()
	items := x.groups.Items()
	out := make([]*types.GroupInfo, 0, len(items))
	for _, item := range items {
		out = append(out, cloneGroup(item.Object.(*types.GroupInfo)))
	}
	return out
}

func (x *GroupIndex) Name(jid types.JID) string {
	v, ok := x.names.Get(jid.ToNonAD().String())
	if !ok {
		return ""
	}
	return v.(string)
}

func (x *GroupIndex) Len() int {
	return x.groups.ItemCount()
}

// Flush forgets everything; used when the logged-in account changes.
func (x *GroupIndex) Flush() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.groups.Flush()
	x.names.Flush()
}

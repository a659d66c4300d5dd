package whatsapp

import (
	"context"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
)

// DecomposeJID strips the server part and a leading "+".
func DecomposeJID(id string) string {
	if strings.ContainsRune(id, '@') {
		id = strings.SplitN(id, "@", 2)[0]
	}
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, "+")
}

// ParseGroupJID accepts "<id>@g.us" or a bare group id. It reports false for
// anything that is not a group.
func ParseGroupJID(id string) (types.JID, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.EmptyJID, false
	}
	if strings.ContainsRune(id, '@') {
		parsed, err := types.ParseJID(id)
		if err != nil || parsed.Server != types.GroupServer || parsed.User == "" {
			return types.EmptyJID, false
		}
		return parsed, true
	}

	bare := DecomposeJID(id)
	if strings.ContainsRune(bare, '-') || len(bare) >= 18 {
		return types.NewJID(bare, types.GroupServer), true
	}
	return types.EmptyJID, false
}

// participantPhone picks the best phone number for a participant, resolving
// hidden (LID) identities through the local mapping when possible.
func participantPhone(ctx context.Context, client *whatsmeow.Client, p types.GroupParticipant) string {
	if !p.PhoneNumber.IsEmpty() {
		return p.PhoneNumber.User
	}
	if p.JID.Server == types.DefaultUserServer {
		return p.JID.User
	}
	if p.JID.Server == types.HiddenUserServer && client != nil && client.Store != nil && client.Store.LIDs != nil {
		pn, err := client.Store.LIDs.GetPNForLID(ctx, p.JID)
		if err == nil && !pn.IsEmpty() {
			return pn.User
		}
	}
	return p.JID.User
}

func maskPhoneForLog(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return phone[0:len(phone)-4] + "xxxx"
}

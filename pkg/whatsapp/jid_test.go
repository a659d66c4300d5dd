package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types"
)

func mustGroupJID(t *testing.T, id string) types.JID {
	t.Helper()
	jid, ok := ParseGroupJID(id)
	require.True(t, ok, id)
	return jid
}

func TestParseGroupJID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "120363000000000001@g.us", want: "120363000000000001@g.us", ok: true},
		{in: "120363000000000001", want: "120363000000000001@g.us", ok: true},
		{in: "5511999990000-1600000000", want: "5511999990000-1600000000@g.us", ok: true},
		{in: "5511999990000@s.whatsapp.net", ok: false},
		{in: "5511999990000", ok: false},
		{in: "", ok: false},
		{in: "@g.us", ok: false},
	}
	for _, tc := range cases {
		jid, ok := ParseGroupJID(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, jid.String(), tc.in)
		}
	}
}

func TestDecomposeJID(t *testing.T) {
	assert.Equal(t, "5511999990000", DecomposeJID("+5511999990000@s.whatsapp.net"))
	assert.Equal(t, "5511999990000", DecomposeJID(" 5511999990000 "))
}

func TestParticipantPhone(t *testing.T) {
	ctx := t.Context()

	withPN := types.GroupParticipant{
		JID:         types.NewJID("123456789", types.HiddenUserServer),
		PhoneNumber: types.NewJID("5511988887777", types.DefaultUserServer),
	}
	assert.Equal(t, "5511988887777", participantPhone(ctx, nil, withPN))

	plain := types.GroupParticipant{JID: types.NewJID("5511999990000", types.DefaultUserServer)}
	assert.Equal(t, "5511999990000", participantPhone(ctx, nil, plain))

	hidden := types.GroupParticipant{JID: types.NewJID("123456789", types.HiddenUserServer)}
	assert.Equal(t, "123456789", participantPhone(ctx, nil, hidden))
}

func TestMaskPhoneForLog(t *testing.T) {
	assert.Equal(t, "5511999xxxx", maskPhoneForLog("55119990000"))
	assert.Equal(t, "123", maskPhoneForLog("123"))
}

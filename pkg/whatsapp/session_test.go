package whatsapp

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/relay"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []relay.Event
}

func (r *recordingNotifier) Broadcast(evt relay.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recordingNotifier) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

func (r *recordingNotifier) Last() relay.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type testSession struct {
	*Session
	notifier *recordingNotifier
	starts   atomic.Int32
}

func newTestSession(settle time.Duration) *testSession {
	ts := &testSession{notifier: &recordingNotifier{}}
	ts.Session = &Session{
		notifier:    ts.notifier,
		index:       NewGroupIndex(),
		settleDelay: settle,
		generation:  1,
		identify: func() *SessionInfo {
			return &SessionInfo{Name: "Ana", Phone: "5511999990000"}
		},
		startFn: func() error {
			ts.starts.Add(1)
			return nil
		},
	}
	return ts
}

func TestChallengeMovesToAwaitingLogin(t *testing.T) {
	s := newTestSession(0)

	s.onChallenge(1, "data:image/png;base64,AAA")

	snap := s.Snapshot()
	assert.Equal(t, StateAwaitingLogin, snap.State)
	assert.Equal(t, "data:image/png;base64,AAA", snap.Challenge)
	assert.Equal(t, []string{relay.EventQR}, s.notifier.Types())

	replay := s.ReplayEvents()
	require.Len(t, replay, 1)
	assert.Equal(t, relay.EventQR, replay[0].Type)
	assert.Equal(t, "data:image/png;base64,AAA", replay[0].Fields["payload"])
}

func TestConnectedBecomesReadyAfterSettle(t *testing.T) {
	s := newTestSession(10 * time.Millisecond)

	s.handleEvent(1, &events.Connected{})
	assert.Equal(t, StateAuthenticating, s.Snapshot().State)

	require.Eventually(t, s.Ready, time.Second, 5*time.Millisecond)
	snap := s.Snapshot()
	require.NotNil(t, snap.Info)
	assert.Equal(t, "Ana", snap.Info.Name)
	assert.Equal(t, "5511999990000", snap.Info.Phone)

	require.Eventually(t, func() bool { return len(s.notifier.Types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, relay.EventReady, s.notifier.Last().Type)

	replay := s.ReplayEvents()
	require.Len(t, replay, 1)
	assert.Equal(t, relay.EventReady, replay[0].Type)
}

func TestSettleDroppedWhenDisconnectedMeanwhile(t *testing.T) {
	s := newTestSession(50 * time.Millisecond)

	s.handleEvent(1, &events.Connected{})
	s.handleEvent(1, &events.Disconnected{})

	assert.Never(t, s.Ready, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, StateDisconnected, s.Snapshot().State)
	assert.Equal(t, []string{relay.EventDisconnected}, s.notifier.Types())
	assert.Equal(t, int32(0), s.starts.Load())
}

func TestStaleGenerationEventsAreIgnored(t *testing.T) {
	s := newTestSession(0)

	s.handleEvent(0, &events.Connected{})
	s.onChallenge(0, "data:image/png;base64,OLD")
	s.handleEvent(0, &events.LoggedOut{})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateIdle, s.Snapshot().State)
	assert.Empty(t, s.notifier.Types())
	assert.Equal(t, int32(0), s.starts.Load())
}

func TestLoggedOutRebuildsClient(t *testing.T) {
	s := newTestSession(0)
	s.handleEvent(1, &events.Connected{})
	require.Eventually(t, s.Ready, time.Second, 5*time.Millisecond)

	s.handleEvent(1, &events.LoggedOut{})

	require.Eventually(t, func() bool { return s.starts.Load() == 1 }, time.Second, 5*time.Millisecond)
	snap := s.Snapshot()
	assert.Nil(t, snap.Info)
	assert.Empty(t, snap.Challenge)
	assert.Equal(t, []string{relay.EventReady, relay.EventDisconnected}, s.notifier.Types())
}

func TestStreamReplacedRebuildsClient(t *testing.T) {
	s := newTestSession(0)

	s.handleEvent(1, &events.StreamReplaced{})

	require.Eventually(t, func() bool { return s.starts.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, relay.EventDisconnected, s.notifier.Last().Type)
}

func TestConnectFailureIsAuthFailure(t *testing.T) {
	s := newTestSession(0)
	s.onChallenge(1, "data:image/png;base64,AAA")

	s.handleEvent(1, &events.ConnectFailure{Message: "banned"})

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, snap.Challenge)
	assert.Equal(t, relay.EventAuthFailure, s.notifier.Last().Type)
	assert.Contains(t, s.notifier.Last().Fields["reason"], "banned")
	assert.Empty(t, s.ReplayEvents())
}

func TestQRWatcherTranslatesChannel(t *testing.T) {
	s := newTestSession(0)
	ch := make(chan whatsmeow.QRChannelItem, 2)
	ch <- whatsmeow.QRChannelItem{Event: "code", Code: "2@abc,def,ghi", Timeout: time.Minute}
	ch <- whatsmeow.QRChannelSuccess
	close(ch)

	s.watchQR(t.Context(), 1, ch)

	assert.Equal(t, []string{relay.EventQR, relay.EventAuthenticated}, s.notifier.Types())
	snap := s.Snapshot()
	assert.Equal(t, StateAuthenticating, snap.State)
	assert.Empty(t, snap.Challenge)
}

func TestQRTimeoutStartsFreshClient(t *testing.T) {
	s := newTestSession(0)
	ch := make(chan whatsmeow.QRChannelItem, 1)
	ch <- whatsmeow.QRChannelTimeout

	s.watchQR(t.Context(), 1, ch)

	assert.Equal(t, relay.EventAuthFailure, s.notifier.Types()[0])
	require.Eventually(t, func() bool { return s.starts.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHistorySyncReportsProgressAndIndexesGroups(t *testing.T) {
	s := newTestSession(0)

	s.handleEvent(1, &events.HistorySync{Data: &waHistorySync.HistorySync{
		Progress: proto.Uint32(40),
		Conversations: []*waHistorySync.Conversation{{
			ID:   proto.String("120363000000000001@g.us"),
			Name: proto.String("Equipe"),
			Participant: []*waHistorySync.GroupParticipant{{
				UserJID: proto.String("5511999990000@s.whatsapp.net"),
				Rank:    waHistorySync.GroupParticipant_SUPERADMIN.Enum(),
			}},
		}},
	}})

	require.Equal(t, []string{relay.EventLoading}, s.notifier.Types())
	assert.Equal(t, 40, s.notifier.Last().Fields["percent"])

	group, ok := s.index.Group(mustGroupJID(t, "120363000000000001@g.us"))
	require.True(t, ok)
	assert.Equal(t, "Equipe", group.Name)
	require.Len(t, group.Participants, 1)
	assert.True(t, group.Participants[0].IsSuperAdmin)
}

func TestLogoutWithoutClientIsNoop(t *testing.T) {
	s := newTestSession(0)

	hadSession, err := s.Logout(t.Context())

	require.NoError(t, err)
	assert.False(t, hadSession)
	assert.Equal(t, int32(0), s.starts.Load())
	assert.Empty(t, s.notifier.Types())
}

func TestClientRequiresReady(t *testing.T) {
	s := newTestSession(0)

	_, err := s.Client()
	assert.ErrorIs(t, err, ErrClientNotReady)
	assert.ErrorIs(t, s.HealthCheck(), ErrNoClient)
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting_login", StateAwaitingLogin.String())
	assert.Equal(t, "authenticating", StateAuthenticating.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}

func TestReadySettleDelayIsFiveSeconds(t *testing.T) {
	assert.Equal(t, 5*time.Second, ReadySettleDelay)
	assert.Equal(t, ReadySettleDelay, NewSession(nil, nil, nil, nil, Config{}).settleDelay)
}

func TestQRWatcherStopsWithContext(t *testing.T) {
	s := newTestSession(0)
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.watchQR(ctx, 1, make(chan whatsmeow.QRChannelItem))
	}()
	cancel()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.notifier.Types())
}

func TestFailedStartDiscardsClient(t *testing.T) {
	container, err := OpenDatastore(t.Context(), DatastoreConfig{SessionDir: t.TempDir()}, waLog.Noop)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	s := NewSession(container, &recordingNotifier{}, nil, nil, Config{
		ProxyURL:       "socks5://127.0.0.1:1",
		ConnectTimeout: 10 * time.Second,
		Logger:         waLog.Noop,
	})

	require.Error(t, s.Start())
	baseline := runtime.NumGoroutine()
	for range 4 {
		require.Error(t, s.Start())
	}

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, snap.Challenge)
	assert.Nil(t, s.rawClient())
	s.mu.RLock()
	assert.Nil(t, s.qrCancel)
	s.mu.RUnlock()
	assert.ErrorIs(t, s.HealthCheck(), ErrNoClient)
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOwnLeaveDropsGroupFromIndex(t *testing.T) {
	s := newTestSession(0)
	me := user("5511999990000")
	s.self = func() []types.JID { return []types.JID{me} }
	group := sampleGroup(t)
	group.Participants = append(group.Participants, types.GroupParticipant{JID: me})
	s.index.PutGroup(group)

	s.handleEvent(1, &events.GroupInfo{JID: group.JID, Leave: []types.JID{user("5511999990002")}})
	got, ok := s.index.Group(group.JID)
	require.True(t, ok)
	assert.Len(t, got.Participants, 2)

	meDevice := me
	meDevice.Device = 3
	s.handleEvent(1, &events.GroupInfo{JID: group.JID, Leave: []types.JID{meDevice}})
	_, ok = s.index.Group(group.JID)
	assert.False(t, ok)
	assert.Empty(t, s.index.Groups())
}

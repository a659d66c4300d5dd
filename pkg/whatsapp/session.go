package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/relay"
)

// ReadySettleDelay is how long a freshly connected client is left alone
// before it is reported ready. The server keeps pushing initial state for a
// while after the connection opens.
const ReadySettleDelay = 5 * time.Second

const (
	defaultConnectTimeout   = 5 * time.Minute
	pairPhoneRequestTimeout = 90 * time.Second
	logoutRequestTimeout    = 30 * time.Second
	storeCleanupTimeout     = 5 * time.Second
)

var (
	ErrNoClient          = errors.New("whatsapp client is not initialized")
	ErrAlreadyLoggedIn   = errors.New("whatsapp client is already logged in")
	ErrClientNotReady    = errors.New("whatsapp client is not connected")
	ErrClientNotLogged   = errors.New("whatsapp client is not logged in")
	ErrWAVersionOutdated = errors.New("whatsapp client version is outdated")
	errQRChannelTimeout  = errors.New("QR code expirado, gerando um novo")
)

// Notifier receives lifecycle notifications.
type Notifier interface {
	Broadcast(evt relay.Event)
}

type Config struct {
	ProxyURL       string
	ConnectTimeout time.Duration
	Logger         waLog.Logger
}

// Session owns the single process-wide WhatsApp client and its lifecycle
// state. Every state change goes through it.
type Session struct {
	container *sqlstore.Container
	notifier  Notifier
	index     *GroupIndex
	versions  *VersionRefresher
	config    Config

	mu         sync.RWMutex
	state      ConnectionState
	challenge  string
	info       *SessionInfo
	client     *whatsmeow.Client
	qrCancel   context.CancelFunc
	generation uint64
	epoch      uint64

	settleDelay time.Duration
	startFn     func() error
	identify    func() *SessionInfo
	self        func() []types.JID
}

func NewSession(container *sqlstore.Container, notifier Notifier, index *GroupIndex, versions *VersionRefresher, cfg Config) *Session {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if index == nil {
		index = NewGroupIndex()
	}
	return &Session{
		container:   container,
		notifier:    notifier,
		index:       index,
		versions:    versions,
		config:      cfg,
		settleDelay: ReadySettleDelay,
	}
}

func (s *Session) Index() *GroupIndex {
	return s.index
}

// Start builds a client and connects it. A stored device resumes its
// session; otherwise a login challenge is produced.
func (s *Session) Start() error {
	if s.startFn != nil {
		return s.startFn()
	}
	return s.startClient()
}

func configureDeviceProps() {
	store.DeviceProps.Os = proto.String(runtime.GOOS)
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)
}

func (s *Session) startClient() error {
	if s.container == nil {
		return ErrNoClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ConnectTimeout)
	device, err := s.container.GetFirstDevice(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}

	configureDeviceProps()
	client := whatsmeow.NewClient(device, s.config.Logger)
	if len(s.config.ProxyURL) > 0 {
		if err := client.SetProxyAddress(s.config.ProxyURL); err != nil {
			log.SessionOp("Start").WithError(err).Warn("Ignoring invalid client proxy")
		}
	}
	client.EnableAutoReconnect = true
	client.AutoTrustIdentity = true

	s.mu.Lock()
	if s.qrCancel != nil {
		s.qrCancel()
		s.qrCancel = nil
	}
	s.generation++
	gen := s.generation
	s.client = client
	s.challenge = ""
	s.info = nil
	if device.ID == nil {
		s.state = StateAwaitingLogin
	} else {
		s.state = StateAuthenticating
	}
	s.mu.Unlock()

	client.AddEventHandler(func(evt interface{}) {
		s.handleEvent(gen, evt)
	})

	if device.ID == nil {
		qrCtx, qrCancel := context.WithCancel(context.Background())
		qrChan, err := client.GetQRChannel(qrCtx)
		if err != nil {
			qrCancel()
			s.abandon(gen, client, err)
			return fmt.Errorf("open QR channel: %w", err)
		}
		s.mu.Lock()
		s.qrCancel = qrCancel
		s.mu.Unlock()
		go s.watchQR(qrCtx, gen, qrChan)
		log.SessionOp("Start").Info("No stored device, waiting for QR login")
	} else {
		log.SessionOp("Start").Info("Resuming stored session for " + maskPhoneForLog(device.ID.User))
	}

	if err := client.Connect(); err != nil {
		s.abandon(gen, client, err)
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// abandon tears down a client whose start failed and leaves the session
// Failed without a client, so the next Start begins from scratch.
func (s *Session) abandon(gen uint64, client *whatsmeow.Client, cause error) {
	s.mu.Lock()
	if s.current(gen) {
		if s.qrCancel != nil {
			s.qrCancel()
			s.qrCancel = nil
		}
		s.client = nil
		s.generation++
		s.epoch++
		s.state = StateFailed
		s.challenge = ""
		s.info = nil
	}
	s.mu.Unlock()

	client.Disconnect()
	log.SessionOp("Start").WithError(cause).Warn("Discarded client that failed to start")
}

// watchQR turns the whatsmeow QR channel into lifecycle transitions. An
// expired challenge is reported and a fresh client is started. The channel
// is only closed once codes were emitted, so ctx ends the watch otherwise.
func (s *Session) watchQR(ctx context.Context, gen uint64, qrChan <-chan whatsmeow.QRChannelItem) {
	for {
		var item whatsmeow.QRChannelItem
		select {
		case <-ctx.Done():
			return
		case next, ok := <-qrChan:
			if !ok {
				return
			}
			item = next
		}

		switch item.Event {
		case "code":
			challenge, err := EncodeChallenge(item.Code)
			if err != nil {
				log.SessionOp("QR").WithError(err).Error("Failed to render QR code")
				continue
			}
			s.onChallenge(gen, challenge)
		case whatsmeow.QRChannelSuccess.Event:
			s.onAuthenticated(gen)
		case whatsmeow.QRChannelTimeout.Event:
			s.onAuthFailure(gen, errQRChannelTimeout.Error())
			go s.rebuild(gen)
			return
		case whatsmeow.QRChannelClientOutdated.Event:
			s.onAuthFailure(gen, ErrWAVersionOutdated.Error())
			s.refreshVersion()
			go s.rebuild(gen)
			return
		case "error":
			reason := "erro no canal de QR code"
			if item.Error != nil {
				reason = item.Error.Error()
			}
			s.onAuthFailure(gen, reason)
		default:
			s.onAuthFailure(gen, item.Event)
		}
	}
}

func (s *Session) refreshVersion() {
	if s.versions == nil {
		return
	}
	go func() {
		if _, _, err := s.versions.Refresh(context.Background(), true); err != nil {
			log.SessionOp("RefreshVersion").WithError(err).Warn("WhatsApp Web version refresh failed")
		}
	}()
}

func (s *Session) handleEvent(gen uint64, evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		s.onAuthenticated(gen)
	case *events.PairError:
		reason := "falha no pareamento"
		if e.Error != nil {
			reason = e.Error.Error()
		}
		s.onAuthFailure(gen, reason)
	case *events.Connected:
		s.onConnected(gen)
	case *events.HistorySync:
		if s.index != nil {
			s.index.IngestHistorySync(e.Data)
		}
		if e.Data != nil && e.Data.Progress != nil {
			s.onLoading(gen, int(e.Data.GetProgress()), "Sincronizando conversas")
		}
	case *events.AppStateSyncComplete:
		s.onLoading(gen, 100, fmt.Sprintf("Sincronização de %s concluída", e.Name))
	case *events.JoinedGroup:
		if s.index != nil {
			s.index.PutGroup(&e.GroupInfo)
		}
	case *events.GroupInfo:
		if s.index != nil {
			if leftBy(e.Leave, s.ownJIDs()) {
				s.index.RemoveGroup(e.JID)
				log.GroupOp("Leave", e.JID.String()).Info("Account left group")
			} else {
				s.index.ApplyGroupEvent(e)
			}
		}
	case *events.PushName:
		if s.index != nil {
			s.index.PutName(e.JID, e.NewPushName)
		}
	case *events.Disconnected:
		s.onDisconnected(gen, "conexão perdida", false)
	case *events.LoggedOut:
		s.onDisconnected(gen, fmt.Sprintf("sessão encerrada (%v)", e.Reason), true)
	case *events.StreamReplaced:
		s.onDisconnected(gen, "sessão aberta em outro dispositivo", true)
	case *events.ConnectFailure:
		s.onAuthFailure(gen, fmt.Sprintf("falha de conexão: %v %s", e.Reason, e.Message))
	case *events.TemporaryBan:
		s.onAuthFailure(gen, fmt.Sprintf("banimento temporário: %v, expira em %s", e.Code, e.Expire))
	case *events.ClientOutdated:
		s.onAuthFailure(gen, ErrWAVersionOutdated.Error())
		s.refreshVersion()
	case *events.KeepAliveTimeout:
		log.SessionOp("KeepAlive").Warn(fmt.Sprintf("Keepalive timeout, errors=%d, lastSuccess=%s", e.ErrorCount, e.LastSuccess.Format(time.RFC3339)))
	}
}

func (s *Session) notify(evt relay.Event) {
	if s.notifier != nil {
		s.notifier.Broadcast(evt)
	}
}

// current reports whether gen is the live client generation. Callers hold mu.
func (s *Session) current(gen uint64) bool {
	return gen == s.generation
}

func (s *Session) onChallenge(gen uint64, challenge string) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	s.state = StateAwaitingLogin
	s.challenge = challenge
	s.mu.Unlock()

	log.SessionOp("QR").Info("New login challenge issued")
	s.notify(relay.QR(challenge))
}

func (s *Session) onAuthenticated(gen uint64) {
	s.mu.Lock()
	if !s.current(gen) || s.state == StateAuthenticating {
		s.mu.Unlock()
		return
	}
	s.state = StateAuthenticating
	s.challenge = ""
	s.mu.Unlock()

	log.SessionOp("Login").Info("Client authenticated")
	s.notify(relay.Authenticated())
}

func (s *Session) onLoading(gen uint64, percent int, message string) {
	s.mu.RLock()
	ok := s.current(gen)
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.notify(relay.Loading(percent, message))
}

func (s *Session) onAuthFailure(gen uint64, reason string) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.challenge = ""
	s.info = nil
	s.epoch++
	s.mu.Unlock()

	log.SessionOp("Login").Error("Authentication failed: " + reason)
	s.notify(relay.AuthFailure(reason))
}

// onConnected schedules the transition to Ready after the settle delay. The
// transition is dropped if anything else happened to the session meanwhile.
func (s *Session) onConnected(gen uint64) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	s.epoch++
	epoch := s.epoch
	s.state = StateAuthenticating
	s.challenge = ""
	s.mu.Unlock()

	log.SessionOp("Connect").Info("Client connected, waiting for initial sync to settle")
	go s.settle(gen, epoch)
}

func (s *Session) settle(gen uint64, epoch uint64) {
	if s.settleDelay > 0 {
		time.Sleep(s.settleDelay)
	}
	info := s.identity()

	s.mu.Lock()
	if !s.current(gen) || s.epoch != epoch || info == nil {
		s.mu.Unlock()
		log.SessionOp("Connect").Debug("Dropping stale ready transition")
		return
	}
	s.state = StateReady
	s.info = info
	s.mu.Unlock()

	log.SessionOp("Connect").Info("Client ready as " + maskPhoneForLog(info.Phone))
	s.notify(relay.Ready(info.Name, info.Phone))
}

func (s *Session) identity() *SessionInfo {
	if s.identify != nil {
		return s.identify()
	}
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil || client.Store == nil || client.Store.ID == nil {
		return nil
	}
	return &SessionInfo{Name: client.Store.PushName, Phone: client.Store.ID.User}
}

// ownJIDs lists the account's phone number and LID identities.
func (s *Session) ownJIDs() []types.JID {
	if s.self != nil {
		return s.self()
	}
	client := s.rawClient()
	if client == nil || client.Store == nil {
		return nil
	}
	var own []types.JID
	if jid := client.Store.GetJID(); !jid.IsEmpty() {
		own = append(own, jid.ToNonAD())
	}
	if lid := client.Store.GetLID(); !lid.IsEmpty() {
		own = append(own, lid.ToNonAD())
	}
	return own
}

func (s *Session) onDisconnected(gen uint64, reason string, rebuild bool) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.challenge = ""
	s.info = nil
	s.epoch++
	s.mu.Unlock()

	log.SessionOp("Disconnect").Warn("Client disconnected: " + reason)
	s.notify(relay.Disconnected(reason))
	if rebuild {
		go s.rebuild(gen)
	}
}

// detach takes the client out of the session and invalidates every pending
// callback bound to it.
func (s *Session) detach() *whatsmeow.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	client := s.client
	s.client = nil
	s.generation++
	s.epoch++
	s.challenge = ""
	s.info = nil
	if s.qrCancel != nil {
		s.qrCancel()
		s.qrCancel = nil
	}
	return client
}

// rebuild replaces the client of generation gen with a fresh one.
func (s *Session) rebuild(gen uint64) {
	s.mu.RLock()
	stale := !s.current(gen)
	s.mu.RUnlock()
	if stale {
		return
	}

	if old := s.detach(); old != nil {
		old.Disconnect()
	}
	if s.index != nil {
		s.index.Flush()
	}
	if err := s.Start(); err != nil {
		log.SessionOp("Rebuild").WithError(err).Error("Failed to start a fresh client")
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		s.notify(relay.AuthFailure(err.Error()))
	}
}

// Logout ends the server-side session, drops the client and starts a fresh
// login. It reports false when there was no client to log out.
func (s *Session) Logout(ctx context.Context) (bool, error) {
	s.mu.RLock()
	hasClient := s.client != nil
	s.mu.RUnlock()
	if !hasClient {
		return false, nil
	}

	client := s.detach()
	if client != nil {
		if client.Store != nil && client.Store.ID != nil {
			logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutRequestTimeout)
			err := client.Logout(logoutCtx)
			cancel()
			if err != nil {
				log.SessionOp("Logout").WithError(err).Warn("Server logout failed, deleting local device")
				client.Disconnect()
				storeCtx, storeCancel := context.WithTimeout(context.Background(), storeCleanupTimeout)
				if err := client.Store.Delete(storeCtx); err != nil {
					log.SessionOp("Logout").WithError(err).Error("Failed to delete local device")
				}
				storeCancel()
			}
		}
		client.Disconnect()
	}
	if s.index != nil {
		s.index.Flush()
	}

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	s.notify(relay.Disconnected("logout"))
	log.SessionOp("Logout").Info("Session logged out")

	if err := s.Start(); err != nil {
		return true, fmt.Errorf("restart client: %w", err)
	}
	return true, nil
}

// PairPhone requests a linking code for phone as an alternative to scanning
// the QR code.
func (s *Session) PairPhone(ctx context.Context, phone string) (string, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return "", ErrNoClient
	}
	if client.Store != nil && client.Store.ID != nil {
		return "", ErrAlreadyLoggedIn
	}

	ctx, cancel := context.WithTimeout(ctx, pairPhoneRequestTimeout)
	defer cancel()
	code, err := client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome ("+runtime.GOOS+")")
	if err != nil {
		return "", err
	}
	log.SessionOp("PairPhone").Info("Pairing code issued for " + maskPhoneForLog(phone))
	return code, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.state, Challenge: s.challenge}
	if s.info != nil {
		info := *s.info
		snap.Info = &info
	}
	return snap
}

func (s *Session) Ready() bool {
	return s.Snapshot().Ready()
}

// ReplayEvents is what a new subscriber needs to catch up.
func (s *Session) ReplayEvents() []relay.Event {
	snap := s.Snapshot()
	switch {
	case snap.State == StateReady && snap.Info != nil:
		return []relay.Event{relay.Ready(snap.Info.Name, snap.Info.Phone)}
	case snap.State == StateAwaitingLogin && snap.Challenge != "":
		return []relay.Event{relay.QR(snap.Challenge)}
	default:
		return nil
	}
}

// Client returns the live client when the session is ready.
func (s *Session) Client() (*whatsmeow.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil || s.state != StateReady {
		return nil, ErrClientNotReady
	}
	return s.client, nil
}

// rawClient returns the client regardless of state.
func (s *Session) rawClient() *whatsmeow.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Session) HealthCheck() error {
	client := s.rawClient()
	if client == nil {
		return ErrNoClient
	}
	if !client.IsConnected() {
		return ErrClientNotReady
	}
	if !client.IsLoggedIn() {
		return ErrClientNotLogged
	}
	return nil
}

func (s *Session) Close() {
	if client := s.detach(); client != nil {
		client.Disconnect()
	}
}

package relay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
)

const defaultBufferSize = 32

// ReplayFunc returns the synthetic events a late subscriber needs to catch up
// with the current lifecycle state.
type ReplayFunc func() []Event

// Subscriber receives events in FIFO order on C until it is closed.
type Subscriber struct {
	ID string
	C  <-chan Event

	ch     chan Event
	closed bool
}

type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	replay      ReplayFunc
	bufferSize  int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		bufferSize:  defaultBufferSize,
	}
}

// SetReplay installs the state replay source used on Subscribe.
func (h *Hub) SetReplay(fn ReplayFunc) {
	h.mu.Lock()
	h.replay = fn
	h.mu.Unlock()
}

// Subscribe registers a new subscriber. Replay events are queued before any
// broadcast that happens after this call returns.
func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Event, h.bufferSize)
	sub := &Subscriber{ID: uuid.NewString(), C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.replay != nil {
		for _, evt := range h.replay() {
			select {
			case ch <- evt:
			default:
			}
		}
	}
	h.subscribers[sub.ID] = sub
	log.Print(nil).WithField("subscriber", sub.ID).WithField("subscribers", len(h.subscribers)).Debug("Push subscriber joined")
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked(sub)
}

func (h *Hub) closeLocked(sub *Subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subscribers, sub.ID)
	close(sub.ch)
}

// Broadcast fans the event out to every subscriber. A subscriber whose
// buffer is full is dropped instead of blocking the lifecycle handler.
func (h *Hub) Broadcast(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		select {
		case sub.ch <- evt:
		default:
			log.Print(nil).WithField("subscriber", sub.ID).Warn("Dropping slow push subscriber")
			h.closeLocked(sub)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		h.closeLocked(sub)
	}
}

package session

import (
	"fmt"
	"sync"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/metrics"
)

// EventKind says what changed.
type EventKind int

const (
	EventRevision EventKind = iota + 1
	EventViewport
	EventSelection
	EventLayout
	EventMode
	EventNotification
)

func (k EventKind) String() string {
	switch k {
	case EventRevision:
		return "revision"
	case EventViewport:
		return "viewport"
	case EventSelection:
		return "selection"
	case EventLayout:
		return "layout"
	case EventMode:
		return "mode"
	case EventNotification:
		return "notification"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Level grades a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Notification is a recoverable condition shown to the user.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Event tells subscribers to re-read session state.
type Event struct {
	Kind     EventKind
	Revision uint64
	// Change is set for EventRevision.
	Change *graph.Change
	// Notification is set for EventNotification.
	Notification *Notification
	// Coalesced is set when earlier events were dropped because the
	// subscriber fell behind; consumers should refresh everything.
	Coalesced bool
}

// hub fans events out to subscribers without ever blocking the owner.
type hub struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	buffer  int
	closed  bool
	metrics *metrics.Metrics
}

func newHub(buffer int, m *metrics.Metrics) *hub {
	if buffer < 1 {
		buffer = 1
	}
	return &hub{clients: make(map[chan Event]struct{}), buffer: buffer, metrics: m}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	h.metrics.Subscribers(len(h.clients))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
				h.metrics.Subscribers(len(h.clients))
			}
		})
	}
}

// publish delivers ev to every subscriber. A full subscriber loses its
// oldest event and the new one is flagged Coalesced.
func (h *hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		merged := ev
		merged.Coalesced = true
		select {
		case ch <- merged:
		default:
		}
		h.metrics.Coalesced()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan Event]struct{})
	h.metrics.Subscribers(0)
}

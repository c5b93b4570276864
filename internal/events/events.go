// Package events is a small synchronous pub-sub bus used to fan
// lobby and session lifecycle notifications (joins, leaves, phase
// transitions) out to anything that wants to observe them; the server
// registers handlers that write them to its log.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Type identifies the kind of lifecycle event that occurred.
type Type int

const (
	TypePeerJoined Type = iota
	TypePeerLeft
	TypePeerReconnected
	TypePhaseChanged
	TypeGameStarted
	TypeGameEnded
	TypeSpectatorPromoted
)

func (t Type) String() string {
	switch t {
	case TypePeerJoined:
		return "peer_joined"
	case TypePeerLeft:
		return "peer_left"
	case TypePeerReconnected:
		return "peer_reconnected"
	case TypePhaseChanged:
		return "phase_changed"
	case TypeGameStarted:
		return "game_started"
	case TypeGameEnded:
		return "game_ended"
	case TypeSpectatorPromoted:
		return "spectator_promoted"
	default:
		return "unknown"
	}
}

// Event is one occurrence on the bus. Message is the human-readable
// text a handler typically broadcasts to spectators or logs; Data
// carries anything structured a specific handler needs.
type Event struct {
	Type     Type
	PeerID   uuid.UUID
	Message  string
	Data     interface{}
}

// Handler reacts to an Event. Handlers run synchronously on the
// goroutine that calls Emit, in registration order, so they must not
// block on anything the emitting goroutine itself holds.
type Handler func(Event)

// Bus fans events out to registered handlers, keyed by event Type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

// On registers handler for events of the given type.
func (b *Bus) On(t Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], handler)
}

// Emit runs every handler registered for ev.Type, in order.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

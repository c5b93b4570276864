// Package lobby implements the server-wide lifecycle state machine:
// connection admission (player slot filling, reconnection, spectator
// seating), the pre-game countdown, and post-game cooldown with
// spectator promotion. internal/session owns one game's rules once the
// Lobby hands it the two active peers; the Lobby owns everything
// around that — who gets a seat, when a game starts, what happens to
// the gallery.
package lobby

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"battleship-go/internal/config"
	"battleship-go/internal/cryptutil"
	"battleship-go/internal/events"
	"battleship-go/internal/logutil"
	"battleship-go/internal/reliable"
	"battleship-go/internal/session"
	"battleship-go/internal/wire"
)

// quitHint is sent to every freshly seated connection, right after
// its role notice, mirroring the original's connect-time tip.
const quitHint = "[TIP] Type 'quit' to exit."

// State is the server-wide lifecycle stage.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateSetup
	StateInGame
	StatePostGame
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCountdown:
		return "COUNTDOWN"
	case StateSetup:
		return "SETUP"
	case StateInGame:
		return "IN_GAME"
	case StatePostGame:
		return "POST_GAME"
	default:
		return "UNKNOWN"
	}
}

// Timing constants from the lifecycle design.
const (
	GameStartDelay  = 8 * time.Second
	GameEndDelay    = 10 * time.Second
	MonitorInterval = 5 * time.Second
)

// playerSlot is one of the two seats. A nil Peer means the slot is
// Empty and, depending on state, eligible for reconnection.
type playerSlot struct {
	Peer *reliable.Peer
}

// Lobby coordinates everything outside of one game's rules: the
// connection-slot table (both player slots and the spectator list), the
// lifecycle state, and the countdown-running flag each get their own
// mutex, mirroring how little these concerns actually share.
type Lobby struct {
	cfg    config.ServerConfig
	cipher *cryptutil.Cipher
	bus    *events.Bus
	rng    *rand.Rand

	stateMu sync.Mutex
	state   State

	slotsMu    sync.Mutex
	players    [2]*playerSlot
	spectators []*reliable.Peer

	countdownMu      sync.Mutex
	countdownRunning bool

	sessionMu  sync.Mutex
	session    *session.Session
	readyGate  *session.Gate // set once both player slots are filled while IDLE
}

// New constructs an idle Lobby. cph must already be keyed with the
// server's pre-shared secret; every accepted connection's reliable
// channel is built over it.
func New(cfg config.ServerConfig, cph *cryptutil.Cipher, bus *events.Bus) *Lobby {
	return &Lobby{
		cfg:       cfg,
		cipher:    cph,
		bus:       bus,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		players:   [2]*playerSlot{{}, {}},
		readyGate: session.NewGate(false),
	}
}

func (l *Lobby) setState(s State) {
	l.stateMu.Lock()
	l.state = s
	l.stateMu.Unlock()
	logutil.Info("lobby: state -> %s", s)
}

// State reports the current lifecycle stage.
func (l *Lobby) State() State {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}

func (l *Lobby) bothPlayersPresent() bool {
	l.slotsMu.Lock()
	defer l.slotsMu.Unlock()
	return l.players[0].Peer != nil && l.players[1].Peer != nil
}

func (l *Lobby) connectedCount() int {
	l.slotsMu.Lock()
	defer l.slotsMu.Unlock()
	n := len(l.spectators)
	for _, p := range l.players {
		if p.Peer != nil {
			n++
		}
	}
	return n
}

// broadcastPlayers sends kind/payload to whichever player slots are
// currently filled, ignoring individual send failures — those surface
// through the connection monitor instead.
func (l *Lobby) broadcastPlayers(kind wire.Kind, payload []byte) {
	l.slotsMu.Lock()
	peers := make([]*reliable.Peer, 0, 2)
	for _, p := range l.players {
		if p.Peer != nil {
			peers = append(peers, p.Peer)
		}
	}
	l.slotsMu.Unlock()
	for _, p := range peers {
		go func(p *reliable.Peer) { _ = p.Send(kind, payload) }(p)
	}
}

// broadcastJoinNotice tells every already-connected peer other than
// newPeer that label just joined, and how many of the total connection
// budget are now in use.
func (l *Lobby) broadcastJoinNotice(newPeer *reliable.Peer, label string) {
	l.slotsMu.Lock()
	total := len(l.spectators)
	others := make([]*reliable.Peer, 0, len(l.players)+len(l.spectators))
	for _, p := range l.players {
		if p.Peer != nil {
			total++
			if p.Peer != newPeer {
				others = append(others, p.Peer)
			}
		}
	}
	for _, p := range l.spectators {
		if p != newPeer {
			others = append(others, p)
		}
	}
	l.slotsMu.Unlock()

	max := 2 + l.cfg.MaxSpectators
	msg := []byte(fmt.Sprintf("[INFO] %s has joined (%d/%d total connections).", label, total, max))
	for _, p := range others {
		go func(p *reliable.Peer) { _ = p.Send(wire.KindSystem, msg) }(p)
	}
}

// BroadcastSpectators implements session.SpectatorBroadcaster.
func (l *Lobby) BroadcastSpectators(kind wire.Kind, payload []byte) {
	l.slotsMu.Lock()
	peers := make([]*reliable.Peer, len(l.spectators))
	copy(peers, l.spectators)
	l.slotsMu.Unlock()
	for _, p := range peers {
		go func(p *reliable.Peer) { _ = p.Send(kind, payload) }(p)
	}
}

func (l *Lobby) emit(t events.Type, msg string) {
	if l.bus != nil {
		l.bus.Emit(events.Event{Type: t, Message: msg})
	}
}

func peerLabel(idx int) string {
	if idx == 0 {
		return "Player 1"
	}
	return "Player 2"
}

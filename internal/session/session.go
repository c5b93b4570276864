// Package session implements the per-game state machine: concurrent
// ship placement during setup, the turn-based play loop with a
// bounded move timer, mid-game disconnect/reconnect handling, and
// win/forfeit resolution. It is driven by internal/lobby, which owns
// connection admission and spectator bookkeeping; the session only
// knows about the two active player peers and a narrow interface for
// reaching spectators.
package session

import (
	"math/rand"
	"sync"
	"time"

	"battleship-go/internal/board"
	"battleship-go/internal/events"
	"battleship-go/internal/reliable"
	"battleship-go/internal/wire"
)

// Timing constants from the session engine's design.
const (
	SetupTimeout      = 60 * time.Second
	MoveTimeout       = 20 * time.Second
	ReconnectGrace    = 30 * time.Second
	ReconnectReminder = 15 * time.Second
)

// moveReminderThresholds are the remaining-time marks (seconds) at
// which a voluntary reminder is sent during AwaitMove.
var moveReminderThresholds = []int{15, 10, 5, 3, 1}

// Phase is the session's coarse lifecycle stage.
type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlay
	PhaseEnded
)

// ResultKind classifies how a session ended.
type ResultKind int

const (
	ResultWin ResultKind = iota
	ResultForfeit
	ResultDoubleForfeit
)

// Result is the terminal outcome of a session.
type Result struct {
	Kind    ResultKind
	Winner  int // 0 or 1; meaningless for ResultDoubleForfeit
	Reason  string
}

// SpectatorBroadcaster lets the session reach whatever spectators are
// currently attached without owning the spectator list itself —
// internal/lobby implements this over its own connection table.
type SpectatorBroadcaster interface {
	BroadcastSpectators(kind wire.Kind, payload []byte)
}

// playerSlot is one of the two active seats.
type playerSlot struct {
	Peer  *reliable.Peer
	Board *board.Board
	Ready *Gate
}

// Session owns the two players' boards and the turn state machine for
// one game. It does not own the underlying TCP connections or the
// spectator list; internal/lobby constructs one Session per game and
// feeds it reconnections as they arrive.
type Session struct {
	mu            sync.Mutex
	phase         Phase
	players       [2]*playerSlot
	currentPlayer int
	pendingShot   board.Coord

	reconnectGate *Gate
	broadcaster   SpectatorBroadcaster
	bus           *events.Bus
	rng           *rand.Rand
}

// New constructs a Session for two freshly-connected players.
func New(p0, p1 *reliable.Peer, broadcaster SpectatorBroadcaster, bus *events.Bus, rng *rand.Rand) *Session {
	return &Session{
		phase: PhaseSetup,
		players: [2]*playerSlot{
			{Peer: p0, Board: board.NewBoard(), Ready: NewGate(false)},
			{Peer: p1, Board: board.NewBoard(), Ready: NewGate(false)},
		},
		reconnectGate: NewGate(true),
		broadcaster:   broadcaster,
		bus:           bus,
		rng:           rng,
	}
}

// Phase reports the session's current lifecycle stage.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Reconnect fills player idx's slot with a freshly accepted peer. If
// both slots are now occupied, the reconnect gate opens and the
// paused turn loop resumes with currentPlayer still pointed at idx, so
// the reconnecting player picks up where they left off.
func (s *Session) Reconnect(idx int, peer *reliable.Peer) {
	s.mu.Lock()
	s.players[idx].Peer = peer
	s.currentPlayer = idx
	both := s.players[0].Peer != nil && s.players[1].Peer != nil
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Emit(events.Event{Type: events.TypePeerReconnected, PeerID: peer.ID, Message: peerLabel(idx) + " reconnected"})
	}
	if both {
		s.reconnectGate.Set()
	}
}

// MarkDisconnected clears player idx's slot, e.g. after the
// connection monitor detects a dead peer. Safe to call even if idx is
// already empty.
func (s *Session) MarkDisconnected(idx int) {
	s.mu.Lock()
	s.players[idx].Peer = nil
	s.mu.Unlock()
	s.reconnectGate.Clear()
}

func peerLabel(idx int) string {
	if idx == 0 {
		return "Player 1"
	}
	return "Player 2"
}

func (s *Session) send(idx int, kind wire.Kind, payload []byte) error {
	s.mu.Lock()
	peer := s.players[idx].Peer
	s.mu.Unlock()
	if peer == nil {
		return reliable.ErrPeerLost
	}
	return peer.Send(kind, payload)
}

func (s *Session) broadcastSpectators(kind wire.Kind, payload []byte) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSpectators(kind, payload)
	}
}

func (s *Session) spectatorBoardView() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "Player 1's board:\n" + s.players[0].Board.Render(true) +
		"Player 2's board:\n" + s.players[1].Board.Render(true)
}

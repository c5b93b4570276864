package lobby

import (
	"fmt"
	"net"

	"battleship-go/internal/events"
	"battleship-go/internal/reliable"
	"battleship-go/internal/wire"
)

// Admit classifies a freshly accepted connection: a reconnection into
// an empty player slot, a fresh player seat, a spectator seat, or a
// polite refusal, per the admission rules.
func (l *Lobby) Admit(conn net.Conn) {
	state := l.State()

	if _, ok := l.tryReconnect(conn, state); ok {
		return
	}

	if state == StateSetup || state == StatePostGame {
		l.refuse(conn, "The game is starting or just finished. Please reconnect in a few seconds.")
		return
	}

	if state == StateIdle {
		if _, ok := l.trySeatPlayer(conn); ok {
			return
		}
	}

	if l.connectedCount() >= 2+l.cfg.MaxSpectators {
		l.refuse(conn, "The server is full.")
		return
	}
	l.seatSpectator(conn)
}

// tryReconnect fills an Empty player slot when the state allows
// reconnection (IN_GAME or COUNTDOWN), re-establishing the reliable
// channel under the same slot index and, if a game is in progress,
// notifying the session.
func (l *Lobby) tryReconnect(conn net.Conn, state State) (int, bool) {
	if state != StateInGame && state != StateCountdown {
		return 0, false
	}
	l.slotsMu.Lock()
	idx := -1
	for i, p := range l.players {
		if p.Peer == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		l.slotsMu.Unlock()
		return 0, false
	}
	peer := reliable.NewPeer(conn, l.cipher, reliable.Role{Kind: reliable.RolePlayer, Index: idx})
	l.players[idx].Peer = peer
	l.slotsMu.Unlock()

	_ = peer.Send(wire.KindSystem, []byte("[INFO] Reconnected."))
	l.emit(events.TypePeerReconnected, peerLabel(idx)+" reconnected")

	l.sessionMu.Lock()
	sess := l.session
	l.sessionMu.Unlock()
	if sess != nil {
		sess.Reconnect(idx, peer)
	}
	if l.bothPlayersPresent() {
		l.readyGate.Set()
	}
	return idx, true
}

// trySeatPlayer fills the first vacant player slot while IDLE, opening
// readyGate once both seats are filled so the lifecycle loop can
// start the countdown.
func (l *Lobby) trySeatPlayer(conn net.Conn) (int, bool) {
	l.slotsMu.Lock()
	idx := -1
	for i, p := range l.players {
		if p.Peer == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		l.slotsMu.Unlock()
		return 0, false
	}
	peer := reliable.NewPeer(conn, l.cipher, reliable.Role{Kind: reliable.RolePlayer, Index: idx})
	l.players[idx].Peer = peer
	both := l.players[0].Peer != nil && l.players[1].Peer != nil
	l.slotsMu.Unlock()

	_ = peer.Send(wire.KindSystem, []byte(fmt.Sprintf("[INFO] You are %s. Waiting for an opponent...", peerLabel(idx))))
	_ = peer.Send(wire.KindSystem, []byte(quitHint))
	l.emit(events.TypePeerJoined, peerLabel(idx)+" connected")
	l.broadcastJoinNotice(peer, peerLabel(idx))
	go l.watchWaitingPlayer(idx, peer)

	if both {
		l.readyGate.Set()
	}
	return idx, true
}

func (l *Lobby) seatSpectator(conn net.Conn) {
	l.slotsMu.Lock()
	num := len(l.spectators) + 1
	peer := reliable.NewPeer(conn, l.cipher, reliable.Role{Kind: reliable.RoleSpectator, Index: len(l.spectators)})
	l.spectators = append(l.spectators, peer)
	l.slotsMu.Unlock()

	label := fmt.Sprintf("Spectator %d", num)
	_ = peer.Send(wire.KindSystem, []byte(fmt.Sprintf("[INFO] You are spectating as %s. You'll be seated as a player once a seat opens up.", label)))
	_ = peer.Send(wire.KindSystem, []byte(quitHint))
	l.emit(events.TypePeerJoined, label+" connected")
	l.broadcastJoinNotice(peer, label)
}

// refuse sends a single polite notice over a throwaway reliable peer
// and closes the connection; the caller never seats this peer.
func (l *Lobby) refuse(conn net.Conn, reason string) {
	peer := reliable.NewPeer(conn, l.cipher, reliable.Role{Kind: reliable.RoleSpectator, Index: -1})
	_ = peer.Send(wire.KindSystem, []byte("[INFO] "+reason))
	_ = peer.Close()
}

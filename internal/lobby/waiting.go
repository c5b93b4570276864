package lobby

import (
	"fmt"
	"strings"
	"time"

	"battleship-go/internal/events"
	"battleship-go/internal/reliable"
	"battleship-go/internal/wire"
)

// waitingPollSlice bounds how long each Recv call blocks while a
// seated player waits in IDLE/COUNTDOWN for the game to start, so the
// watcher keeps noticing state transitions and never races the
// session's own reader once RunSetup takes over.
const waitingPollSlice = 250 * time.Millisecond

// watchWaitingPlayer reads a seated player's connection while it's
// still this package's to read — before the state machine hands the
// peer off to internal/session for the game itself — watching for an
// explicit "quit" or a failed read. Either one frees the slot through
// handlePrematureLeave; any other input is ignored.
func (l *Lobby) watchWaitingPlayer(idx int, peer *reliable.Peer) {
	for {
		state := l.State()
		if state != StateIdle && state != StateCountdown {
			return
		}

		l.slotsMu.Lock()
		stillSeated := l.players[idx].Peer == peer
		l.slotsMu.Unlock()
		if !stillSeated {
			return
		}

		payload, kind, ok, err := peer.Recv(waitingPollSlice)
		if err != nil {
			l.handlePrematureLeave(idx, peer, "disconnected")
			return
		}
		if !ok || kind != wire.KindPlayerMove {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(payload)), "quit") {
			l.handlePrematureLeave(idx, peer, "quit")
			return
		}
	}
}

// handlePrematureLeave frees idx's slot, closes the connection, and
// tells everyone else still connected, covering both an explicit quit
// and a connection drop noticed before the game ever started.
func (l *Lobby) handlePrematureLeave(idx int, peer *reliable.Peer, reason string) {
	l.slotsMu.Lock()
	if l.players[idx].Peer == peer {
		l.players[idx].Peer = nil
	}
	l.slotsMu.Unlock()
	_ = peer.Close()
	l.readyGate.Clear()

	l.emit(events.TypePeerLeft, peerLabel(idx)+" "+reason+" while waiting")
	msg := []byte(fmt.Sprintf("[INFO] %s %s while waiting.", peerLabel(idx), reason))
	l.broadcastPlayers(wire.KindSystem, msg)
	l.BroadcastSpectators(wire.KindSystem, msg)
}

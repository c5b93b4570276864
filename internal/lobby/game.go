package lobby

import (
	"context"
	"fmt"
	"time"

	"battleship-go/internal/events"
	"battleship-go/internal/reliable"
	"battleship-go/internal/session"
	"battleship-go/internal/wire"
)

// Run drives the lifecycle state machine forever: wait for two
// players, count down, play a game, cool down and promote spectators,
// repeat. It returns when ctx is canceled (process shutdown).
func (l *Lobby) Run(ctx context.Context) {
	for {
		if !l.waitForTwoPlayers(ctx) {
			return
		}
		if !l.runCountdown(ctx) {
			continue // aborted back to IDLE; wait for two players again
		}

		result := l.runGame(ctx)
		if ctx.Err() != nil {
			return
		}
		l.runPostGame(ctx, result)
	}
}

// waitForTwoPlayers blocks in IDLE until both player slots are filled.
func (l *Lobby) waitForTwoPlayers(ctx context.Context) bool {
	if l.bothPlayersPresent() {
		return true
	}
	select {
	case <-l.readyGate.Chan():
		return l.bothPlayersPresent()
	case <-ctx.Done():
		return false
	}
}

func (l *Lobby) runGame(ctx context.Context) *session.Result {
	l.setState(StateSetup)

	l.slotsMu.Lock()
	p0, p1 := l.players[0].Peer, l.players[1].Peer
	l.slotsMu.Unlock()

	sess := session.New(p0, p1, l, l.bus, l.rng)
	l.sessionMu.Lock()
	l.session = sess
	l.sessionMu.Unlock()
	defer func() {
		l.sessionMu.Lock()
		l.session = nil
		l.sessionMu.Unlock()
	}()

	l.emit(events.TypeGameStarted, "setup phase started")
	if result := sess.RunSetup(ctx); result != nil {
		return result
	}

	l.setState(StateInGame)
	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.monitorConnections(monitorCtx, sess)

	return sess.RunPlay(ctx)
}

// runPostGame announces the result, waits out GAME_END_DELAY,
// promotes waiting spectators into any empty player slots in FIFO
// order, and decides the next state.
func (l *Lobby) runPostGame(ctx context.Context, result *session.Result) {
	l.setState(StatePostGame)
	l.announceResult(result)
	l.emit(events.TypeGameEnded, resultSummary(result))

	select {
	case <-time.After(GameEndDelay):
	case <-ctx.Done():
		return
	}

	l.promoteSpectators()

	if l.bothPlayersPresent() {
		l.readyGate.Set()
	} else {
		l.setState(StateIdle)
	}
}

func (l *Lobby) announceResult(result *session.Result) {
	msg := resultSummary(result)
	l.broadcastPlayers(wire.KindSystem, []byte("[INFO] "+msg))
	l.BroadcastSpectators(wire.KindSystem, []byte("[INFO] "+msg))
}

func resultSummary(result *session.Result) string {
	if result == nil {
		return "Game ended."
	}
	switch result.Kind {
	case session.ResultWin:
		return fmt.Sprintf("%s wins! (%s)", peerLabel(result.Winner), result.Reason)
	case session.ResultForfeit:
		return fmt.Sprintf("%s wins by forfeit. (%s)", peerLabel(result.Winner), result.Reason)
	case session.ResultDoubleForfeit:
		return fmt.Sprintf("Game ended with no winner. (%s)", result.Reason)
	default:
		return "Game ended."
	}
}

// promoteSpectators seats the longest-waiting spectators into any
// empty player slots, then renumbers whoever remains in the gallery so
// their Role.Index (used only for display/logging) stays dense.
func (l *Lobby) promoteSpectators() {
	l.slotsMu.Lock()
	defer l.slotsMu.Unlock()

	for idx := range l.players {
		if l.players[idx].Peer != nil {
			continue
		}
		if len(l.spectators) == 0 {
			break
		}
		promoted := l.spectators[0]
		l.spectators = l.spectators[1:]
		promoted.SetRole(reliable.Role{Kind: reliable.RolePlayer, Index: idx})
		l.players[idx].Peer = promoted
		_ = promoted.Send(wire.KindSystem, []byte(fmt.Sprintf("[INFO] You have been promoted to %s!", peerLabel(idx))))
		l.emit(events.TypeSpectatorPromoted, peerLabel(idx)+" filled by a promoted spectator")
	}

	for i, sp := range l.spectators {
		sp.SetRole(reliable.Role{Kind: reliable.RoleSpectator, Index: i})
	}
}

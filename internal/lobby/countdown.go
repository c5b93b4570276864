package lobby

import (
	"context"
	"fmt"
	"time"

	"battleship-go/internal/wire"
)

// runCountdown ticks GAME_START_DELAY down once per second, aborting
// back to IDLE (and closing every socket, resetting player numbering)
// if a player drops mid-countdown. Returns true once the countdown
// completes with both players still present.
func (l *Lobby) runCountdown(ctx context.Context) bool {
	l.setState(StateCountdown)
	l.countdownMu.Lock()
	l.countdownRunning = true
	l.countdownMu.Unlock()
	defer func() {
		l.countdownMu.Lock()
		l.countdownRunning = false
		l.countdownMu.Unlock()
	}()

	deadline := time.Now().Add(GameStartDelay)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case now := <-ticker.C:
			if !l.bothPlayersPresent() {
				l.abortToIdle()
				return false
			}
			remaining := deadline.Sub(now)
			if remaining <= 0 {
				return true
			}
			secs := int(remaining.Seconds() + 0.999)
			if secs%5 == 0 || secs <= 3 {
				msg := []byte(fmt.Sprintf("[INFO] Game starting in %d...", secs))
				l.broadcastPlayers(wire.KindSystem, msg)
				l.BroadcastSpectators(wire.KindSystem, msg)
			}
		}
	}
}

// abortToIdle closes every connected socket and resets the
// connection-slot table, per the spec's "reset player numbering"
// requirement for a countdown that loses a player.
func (l *Lobby) abortToIdle() {
	l.slotsMu.Lock()
	for i, p := range l.players {
		if p.Peer != nil {
			_ = p.Peer.Close()
			l.players[i].Peer = nil
		}
	}
	for _, sp := range l.spectators {
		_ = sp.Close()
	}
	l.spectators = nil
	l.slotsMu.Unlock()

	l.readyGate.Clear()
	l.setState(StateIdle)
}

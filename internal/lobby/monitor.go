package lobby

import (
	"context"
	"time"

	"battleship-go/internal/events"
	"battleship-go/internal/reliable"
)

// monitorConnections runs only while IN_GAME: a background liveness
// sweep over every connected peer (players and spectators) using the
// non-destructive MSG_PEEK probe, since the player slots' own readers
// are busy running the turn loop and can't double as a liveness check.
func (l *Lobby) monitorConnections(ctx context.Context, sess sessionHandle) {
	ticker := time.NewTicker(MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweepPlayers(sess)
			l.sweepSpectators()
		}
	}
}

func (l *Lobby) sweepPlayers(sess sessionHandle) {
	l.slotsMu.Lock()
	type probe struct {
		idx  int
		peer interface{ ProbeAlive() bool }
	}
	var toCheck []probe
	for i, p := range l.players {
		if p.Peer != nil {
			toCheck = append(toCheck, probe{idx: i, peer: p.Peer})
		}
	}
	l.slotsMu.Unlock()

	for _, c := range toCheck {
		if c.peer.ProbeAlive() {
			continue
		}
		l.slotsMu.Lock()
		l.players[c.idx].Peer = nil
		l.slotsMu.Unlock()
		if sess != nil {
			sess.MarkDisconnected(c.idx)
		}
		l.emit(events.TypePeerLeft, peerLabel(c.idx)+" lost (liveness probe failed)")
	}
}

func (l *Lobby) sweepSpectators() {
	l.slotsMu.Lock()
	defer l.slotsMu.Unlock()
	live := l.spectators[:0]
	for _, sp := range l.spectators {
		if sp.ProbeAlive() {
			live = append(live, sp)
		} else {
			_ = sp.Close()
		}
	}
	for i, sp := range live {
		sp.SetRole(reliable.Role{Kind: reliable.RoleSpectator, Index: i})
	}
	l.spectators = live
}

// sessionHandle is the narrow slice of *session.Session the monitor
// needs; defined here (rather than importing session.Session
// directly into the probe helper) so sweepPlayers stays testable with
// a fake.
type sessionHandle interface {
	MarkDisconnected(idx int)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"battleship-go/internal/board"
	"battleship-go/internal/events"
	"battleship-go/internal/reliable"
	"battleship-go/internal/wire"
)

// recvPollSlice bounds how long a single Recv call blocks while
// waiting for player input, so the caller stays responsive to ctx
// cancellation and to its own reminder-timer bookkeeping.
const recvPollSlice = 250 * time.Millisecond

// recvLine waits for the next line of player text, respecting ctx's
// deadline/cancellation without handing Recv a context directly.
func (s *Session) recvLine(ctx context.Context, peer *reliable.Peer) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		slice := recvPollSlice
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < slice {
				slice = left
			}
		}
		if slice <= 0 {
			return "", ctx.Err()
		}
		payload, _, ok, err := peer.Recv(slice)
		if err != nil {
			return "", err
		}
		if ok {
			return string(payload), nil
		}
	}
}

type moveOutcome int

const (
	moveValid moveOutcome = iota
	moveTimedOut
	movePeerLost
)

// RunPlay runs the turn-based state machine until the game ends. ctx
// is expected to live for the whole game (e.g. tied to process
// shutdown); individual waits derive their own deadlines from it.
func (s *Session) RunPlay(ctx context.Context) *Result {
	for {
		if result := s.awaitBothConnected(ctx); result != nil {
			return result
		}

		s.promptCurrentPlayer()

		outcome := s.awaitMove(ctx)
		switch outcome {
		case moveTimedOut:
			s.switchTurn()
			continue
		case movePeerLost:
			s.mu.Lock()
			idx := s.currentPlayer
			s.mu.Unlock()
			s.MarkDisconnected(idx)
			continue
		}

		if result := s.resolveMove(); result != nil {
			return result
		}
		s.switchTurn()
	}
}

func (s *Session) switchTurn() {
	s.mu.Lock()
	s.currentPlayer = 1 - s.currentPlayer
	s.mu.Unlock()
}

func (s *Session) bothConnected() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p0, p1 := s.players[0].Peer, s.players[1].Peer
	switch {
	case p0 != nil && p1 != nil:
		return true, -1
	case p0 == nil && p1 == nil:
		return false, -1 // both gone: caller treats as double forfeit
	case p0 == nil:
		return false, 0
	default:
		return false, 1
	}
}

// awaitBothConnected blocks until both player slots are filled, or
// returns a terminal *Result if the grace window expires (or both
// players are already gone).
func (s *Session) awaitBothConnected(parent context.Context) *Result {
	both, missingIdx := s.bothConnected()
	if both {
		return nil
	}
	if missingIdx == -1 {
		return &Result{Kind: ResultDoubleForfeit, Reason: "both players disconnected"}
	}

	otherIdx := 1 - missingIdx
	s.reconnectGate.Clear()
	waitCh := s.reconnectGate.Chan()

	ctx, cancel := context.WithTimeout(parent, ReconnectGrace)
	defer cancel()

	ticker := time.NewTicker(ReconnectReminder)
	defer ticker.Stop()

	s.notifyWaitingForReconnect(otherIdx, missingIdx)
	if s.bus != nil {
		s.bus.Emit(events.Event{Type: events.TypePeerLeft, Message: peerLabel(missingIdx) + " disconnected"})
	}

	for {
		select {
		case <-waitCh:
			return nil
		case <-ticker.C:
			s.notifyWaitingForReconnect(otherIdx, missingIdx)
		case <-ctx.Done():
			s.notifyReconnectTimedOut(otherIdx, missingIdx)
			return &Result{Kind: ResultForfeit, Winner: otherIdx, Reason: "opponent did not reconnect in time"}
		}
	}
}

func (s *Session) notifyWaitingForReconnect(otherIdx, missingIdx int) {
	msg := fmt.Sprintf("[INFO] Waiting for %s to reconnect...", peerLabel(missingIdx))
	_ = s.send(otherIdx, wire.KindSystem, []byte(msg))
	s.broadcastSpectators(wire.KindSystem, []byte(msg))
}

func (s *Session) notifyReconnectTimedOut(otherIdx, missingIdx int) {
	msg := fmt.Sprintf("[INFO] %s did not reconnect in time. You win by default!", peerLabel(missingIdx))
	_ = s.send(otherIdx, wire.KindSystem, []byte(msg))
	s.broadcastSpectators(wire.KindSystem, []byte(fmt.Sprintf("%s wins by default (opponent failed to reconnect).", peerLabel(otherIdx))))
}

// promptCurrentPlayer sends the mover their own board, the opponent's
// shot map, and a turn prompt; the opponent gets a waiting notice and
// spectators get a scrubbed view of both boards. The turn prompt and
// the waiting notice are the turn-transition messages the reliable
// channel treats as strict (no stale retransmission after the turn
// moves on).
func (s *Session) promptCurrentPlayer() {
	s.mu.Lock()
	idx := s.currentPlayer
	opp := 1 - idx
	ownBoard := s.players[idx].Board.Render(false)
	oppBoard := s.players[opp].Board.Render(true)
	s.mu.Unlock()

	_ = s.send(idx, wire.KindBoardUpdate, []byte(ownBoard))
	_ = s.send(idx, wire.KindBoardUpdate, []byte(oppBoard))
	_ = s.send(idx, wire.KindSystem, []byte("Your turn! Enter a coordinate (e.g. B5):"))

	_ = s.send(opp, wire.KindSystem, []byte(fmt.Sprintf("[INFO] Waiting for Player %d to move...", idx+1)))

	s.broadcastSpectators(wire.KindGameState, []byte(s.spectatorBoardView()))
}

// awaitMove blocks for up to MoveTimeout waiting for the current
// player's next coordinate, sending reminders as the clock runs down
// and re-prompting (without consuming the turn) on invalid input.
func (s *Session) awaitMove(parent context.Context) moveOutcome {
	s.mu.Lock()
	idx := s.currentPlayer
	opp := 1 - idx
	peer := s.players[idx].Peer
	oppBoard := s.players[opp].Board
	s.mu.Unlock()

	if peer == nil {
		return movePeerLost
	}

	ctx, cancel := context.WithTimeout(parent, MoveTimeout)
	defer cancel()

	sent := make(map[int]bool, len(moveReminderThresholds))
	start := time.Now()

	for {
		remaining := MoveTimeout - time.Since(start)
		if remaining <= 0 {
			_ = peer.Send(wire.KindSystem, []byte("[INFO] Timer expired! Your turn is over."))
			return moveTimedOut
		}
		for _, th := range moveReminderThresholds {
			if int(remaining.Seconds()) <= th && !sent[th] {
				sent[th] = true
				_ = peer.Send(wire.KindSystem, []byte(fmt.Sprintf("[INFO] %ds remaining.", th)))
			}
		}

		pollCtx, pollCancel := context.WithTimeout(ctx, recvPollSlice)
		line, err := s.recvLine(pollCtx, peer)
		pollCancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() == nil {
					continue // poll slice elapsed; re-check the reminders
				}
				_ = peer.Send(wire.KindSystem, []byte("[INFO] Timer expired! Your turn is over."))
				return moveTimedOut
			}
			return movePeerLost
		}

		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "quit") {
			return movePeerLost
		}

		coord, perr := board.ParseCoord(line)
		if perr != nil {
			_ = peer.Send(wire.KindSystem, []byte(fmt.Sprintf("[TIP] %v", perr)))
			continue
		}
		if oppBoard.IsShot(coord.Row, coord.Col) {
			_ = peer.Send(wire.KindSystem, []byte("[INFO] Invalid move. You've already fired at that location."))
			continue
		}

		s.mu.Lock()
		s.pendingShot = coord
		s.mu.Unlock()
		return moveValid
	}
}

// resolveMove applies the current player's stored shot to the
// opponent's board and broadcasts the outcome. A non-nil return means
// the game just ended.
func (s *Session) resolveMove() *Result {
	s.mu.Lock()
	idx := s.currentPlayer
	opp := 1 - idx
	coord := s.pendingShot
	oppBoard := s.players[opp].Board
	s.mu.Unlock()

	result, sunkName := oppBoard.FireAt(coord.Row, coord.Col)

	switch result {
	case board.ResultHit:
		_ = s.send(idx, wire.KindSystem, []byte("HIT!"))
		_ = s.send(opp, wire.KindSystem, []byte(fmt.Sprintf("[INFO] Your ship was hit at %s!", coord)))
		s.broadcastSpectators(wire.KindSystem, []byte(fmt.Sprintf("%s hit a ship at %s!", peerLabel(idx), coord)))
	case board.ResultSunk:
		_ = s.send(idx, wire.KindSystem, []byte(fmt.Sprintf("HIT! You sank the %s!", sunkName)))
		_ = s.send(opp, wire.KindSystem, []byte(fmt.Sprintf("[INFO] Your %s was sunk!", sunkName)))
		s.broadcastSpectators(wire.KindSystem, []byte(fmt.Sprintf("%s sank %s's %s!", peerLabel(idx), peerLabel(opp), sunkName)))
	case board.ResultMiss:
		_ = s.send(idx, wire.KindSystem, []byte("MISS!"))
		_ = s.send(opp, wire.KindSystem, []byte(fmt.Sprintf("[INFO] Your opponent missed at %s.", coord)))
		s.broadcastSpectators(wire.KindSystem, []byte(fmt.Sprintf("%s missed at %s.", peerLabel(idx), coord)))
	case board.ResultAlreadyShot:
		// awaitMove already screens this case out; defensive no-op.
	}

	if oppBoard.AllSunk() {
		msg := fmt.Sprintf("%s sank the entire fleet and wins!", peerLabel(idx))
		s.broadcastSpectators(wire.KindSystem, []byte(msg))
		s.mu.Lock()
		s.phase = PhaseEnded
		s.mu.Unlock()
		return &Result{Kind: ResultWin, Winner: idx, Reason: "opponent's fleet destroyed"}
	}
	return nil
}

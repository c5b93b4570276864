package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"battleship-go/internal/board"
	"battleship-go/internal/reliable"
	"battleship-go/internal/wire"
)

// errPlayerQuit marks a setup-phase forfeit the player asked for
// explicitly, as opposed to a dropped connection.
var errPlayerQuit = errors.New("player quit during setup")

// RunSetup runs both players' ship placement concurrently, bounded by
// SetupTimeout. It returns nil once both players are ready (the
// session should advance to RunPlay), or a terminal *Result if one
// player disconnected before finishing (the opponent wins by
// default and the session ends without ever reaching PLAY).
func (s *Session) RunSetup(ctx context.Context) *Result {
	ctx, cancel := context.WithTimeout(ctx, SetupTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	forfeitIdx := -1

	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			if err := s.runPlayerSetup(gctx, i); err != nil {
				mu.Lock()
				if forfeitIdx == -1 {
					forfeitIdx = i
				}
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	if forfeitIdx != -1 {
		winner := 1 - forfeitIdx
		s.broadcastSpectators(wire.KindSystem, []byte(fmt.Sprintf("%s disconnected during setup. %s wins by default.", peerLabel(forfeitIdx), peerLabel(winner))))
		return &Result{Kind: ResultForfeit, Winner: winner, Reason: "opponent disconnected during setup"}
	}

	s.mu.Lock()
	s.phase = PhasePlay
	s.mu.Unlock()
	return nil
}

// runPlayerSetup drives one player's placement choice to completion.
// A nil return means the player finished (by choice or by timeout
// filling the rest randomly); a non-nil return is a genuine
// disconnect forfeit.
func (s *Session) runPlayerSetup(ctx context.Context, idx int) error {
	slot := s.players[idx]
	if slot.Peer == nil {
		return reliable.ErrPeerLost
	}

	if err := slot.Peer.Send(wire.KindSystem, []byte("[INFO] Place your ships: reply RANDOM or MANUAL.")); err != nil {
		return err
	}

	for {
		line, err := s.recvLine(ctx, slot.Peer)
		if err != nil {
			return s.classifySetupOutcome(ctx, idx, err)
		}

		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "RANDOM":
			slot.Board.PlaceRandom(s.rng)
			slot.Ready.Set()
			return nil
		case "MANUAL":
			err := s.manualPlacement(ctx, idx)
			if err == nil {
				return nil
			}
			return s.classifySetupOutcome(ctx, idx, err)
		case "QUIT":
			return errPlayerQuit
		default:
			_ = slot.Peer.Send(wire.KindSystem, []byte("[TIP] Enter RANDOM or MANUAL."))
		}
	}
}

// classifySetupOutcome turns a recvLine error into the right
// runPlayerSetup return: a timeout completes placement randomly and
// counts as ready (not a forfeit); a sibling's forfeit ends this
// goroutine quietly; anything else is this player's own disconnect.
func (s *Session) classifySetupOutcome(ctx context.Context, idx int, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		slot := s.players[idx]
		slot.Board.PlaceRemainingRandom(s.rng)
		slot.Ready.Set()
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// manualPlacement walks the player through the fixed fleet, one ship
// at a time, re-prompting on invalid input without consuming any of
// the shared setup clock beyond what elapses naturally.
func (s *Session) manualPlacement(ctx context.Context, idx int) error {
	slot := s.players[idx]
	for _, sc := range board.Fleet {
		for {
			prompt := fmt.Sprintf("[INFO] Place your %s (size %d): COORD ORIENT (e.g. B5 H)", sc.Name, sc.Len)
			if err := slot.Peer.Send(wire.KindSystem, []byte(prompt)); err != nil {
				return err
			}

			line, err := s.recvLine(ctx, slot.Peer)
			if err != nil {
				return err
			}
			if strings.EqualFold(strings.TrimSpace(line), "quit") {
				return errPlayerQuit
			}

			fields := strings.Fields(line)
			if len(fields) != 2 {
				_ = slot.Peer.Send(wire.KindSystem, []byte("[TIP] Enter a coordinate and orientation, e.g. B5 H."))
				continue
			}
			coord, cerr := board.ParseCoord(fields[0])
			if cerr != nil {
				_ = slot.Peer.Send(wire.KindSystem, []byte(fmt.Sprintf("[TIP] %v", cerr)))
				continue
			}
			var o board.Orientation
			switch strings.ToUpper(fields[1]) {
			case "H":
				o = board.Horizontal
			case "V":
				o = board.Vertical
			default:
				_ = slot.Peer.Send(wire.KindSystem, []byte("[TIP] Orientation must be H or V."))
				continue
			}
			if !slot.Board.CanPlace(coord.Row, coord.Col, sc.Len, o) {
				_ = slot.Peer.Send(wire.KindSystem, []byte(fmt.Sprintf("[TIP] Cannot place %s there. Try again.", sc.Name)))
				continue
			}
			_ = slot.Board.Place(sc, coord.Row, coord.Col, o)
			break
		}
	}
	slot.Ready.Set()
	return nil
}

package reliable

import (
	"bytes"
	"errors"
	"time"

	"battleship-go/internal/wire"
)

// strictTurnMarkers are the well-known substrings that mark a payload
// as a turn-transition announcement. These get the same one-shot,
// no-retry treatment as PLAYER_MOVE: a stale retransmission of "your
// turn" after the turn has already moved on would be actively
// misleading, so we'd rather drop it than resend it late.
var strictTurnMarkers = [][]byte{
	[]byte("Your turn"),
	[]byte("Waiting for Player"),
}

func isStrict(kind wire.Kind, payload []byte) bool {
	if kind == wire.KindPlayerMove {
		return true
	}
	for _, marker := range strictTurnMarkers {
		if bytes.Contains(payload, marker) {
			return true
		}
	}
	return false
}

// Send reliably delivers payload under kind, blocking until it is
// acknowledged, abandoned (strict kinds get exactly one attempt), or
// the retry budget for non-strict kinds is exhausted.
//
// Returns ErrPeerLost if the connection itself failed, ErrSendFailed
// if every attempt timed out without an ACK.
func (p *Peer) Send(kind wire.Kind, payload []byte) error {
	p.writeMu.Lock()
	seq := p.nextSendSeq
	p.nextSendSeq++
	p.writeMu.Unlock()

	ciphertext := p.cipher.Encrypt(payload, seq)
	pkt := &wire.Packet{Kind: kind, Seq: seq, Payload: ciphertext}
	encoded, err := pkt.Encode()
	if err != nil {
		return err
	}
	p.storePending(seq, encoded)
	defer p.dropPending(seq)

	strict := isStrict(kind, payload)
	waitBudget := AckWaitDefault
	totalAttempts := 1 + MaxRetries
	if strict {
		waitBudget = AckWaitStrict
		totalAttempts = 1
	}

	for attempt := 0; attempt < totalAttempts; attempt++ {
		if attempt == 0 {
			if err := p.writeFrame(encoded); err != nil {
				return ErrPeerLost
			}
		} else {
			time.Sleep(RetryDelay)
			if err := p.writeFrame(encoded); err != nil {
				return ErrPeerLost
			}
		}

		ok, err := p.waitForAck(seq, kind, waitBudget)
		if err != nil {
			return ErrPeerLost
		}
		if ok {
			return nil
		}
	}
	return ErrSendFailed
}

// waitForAck reads frames until seq is acknowledged, the budget runs
// out, or the connection fails. Non-ACK frames observed along the way
// are ACKed immediately and, unless they cause an early abandon, queued
// for the next Recv.
func (p *Peer) waitForAck(seq uint8, awaitingKind wire.Kind, budget time.Duration) (ok bool, err error) {
	start := time.Now()
	deadline := start.Add(budget)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		pkt, rerr := p.readFrame(remaining)
		if rerr != nil {
			if errors.Is(rerr, errNoData) {
				continue
			}
			if errors.Is(rerr, wire.ErrFramingShort) || errors.Is(rerr, wire.ErrChecksumBad) {
				if pkt != nil {
					p.requestRetx(pkt.Seq)
				}
				continue
			}
			return false, rerr
		}

		if pkt.Kind == wire.KindAck {
			if pkt.Seq == seq {
				return true, nil
			}
			// ACK for some other outstanding send of ours; honor it now.
			p.dropPending(pkt.Seq)
			continue
		}

		if pkt.Kind == wire.KindRetxRequest {
			if missing, ok := wire.RequestedSeq(pkt); ok {
				p.retransmitPending(missing)
			}
			continue
		}

		if p.recvWindow.Check(pkt.Seq) {
			// Duplicate of data we already accepted; ACK again for the
			// peer's benefit and move on without re-queueing it.
			p.ackNow(pkt.Seq)
			continue
		}
		p.recvWindow.MarkAck(pkt.Seq)
		p.ackNow(pkt.Seq)

		plaintext := p.cipher.Decrypt(pkt.Payload, pkt.Seq)

		switch {
		case awaitingKind == wire.KindPlayerMove && pkt.Kind == wire.KindPlayerMove:
			// Another move arrived while we're waiting on the ACK for
			// our own; queue it and keep waiting, it doesn't change
			// what we're owed.
			p.queueDeferred(pkt.Kind, plaintext)
			continue
		case pkt.Kind == wire.KindGameState && time.Since(start) >= budget/2:
			// A fresh snapshot mid-wait, past the halfway point of our
			// budget: the state has already moved on, so stop holding
			// the caller up waiting for an ACK that may never come.
			p.queueDeferred(pkt.Kind, plaintext)
			return false, nil
		default:
			p.queueDeferred(pkt.Kind, plaintext)
			continue
		}
	}
}

// Recv waits up to timeout for the next application payload, draining
// anything queued by a concurrent Send's ACK-wait first. ok is false
// with a nil error on a plain timeout; err is non-nil only when the
// connection itself failed.
func (p *Peer) Recv(timeout time.Duration) (payload []byte, kind wire.Kind, ok bool, err error) {
	if f, had := p.popDeferred(); had {
		return f.Payload, f.Kind, true, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, 0, false, nil
		}

		pkt, rerr := p.readFrame(remaining)
		if rerr != nil {
			if errors.Is(rerr, errNoData) {
				return nil, 0, false, nil
			}
			if errors.Is(rerr, wire.ErrFramingShort) || errors.Is(rerr, wire.ErrChecksumBad) {
				if pkt != nil {
					p.requestRetx(pkt.Seq)
				}
				continue
			}
			return nil, 0, false, ErrPeerLost
		}

		switch pkt.Kind {
		case wire.KindAck:
			p.dropPending(pkt.Seq)
			continue
		case wire.KindRetxRequest:
			if missing, ok := wire.RequestedSeq(pkt); ok {
				p.retransmitPending(missing)
			}
			continue
		}

		if p.recvWindow.Check(pkt.Seq) {
			p.ackNow(pkt.Seq)
			continue
		}
		p.recvWindow.MarkAck(pkt.Seq)
		p.ackNow(pkt.Seq)

		plaintext := p.cipher.Decrypt(pkt.Payload, pkt.Seq)
		return plaintext, pkt.Kind, true, nil
	}
}

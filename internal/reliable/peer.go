// Package reliable implements the reliable message channel each peer
// connection runs on top of internal/wire, internal/cryptutil and
// internal/replay: per-sequence ACKs, bounded retransmission, and the
// single-reader/serialized-writer discipline that lets one goroutine
// own a TCP connection's full duplex traffic.
package reliable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"battleship-go/internal/cryptutil"
	"battleship-go/internal/replay"
	"battleship-go/internal/wire"
)

// Timing constants from the wire protocol's retransmission policy.
const (
	AckWaitStrict  = 1000 * time.Millisecond
	AckWaitDefault = 500 * time.Millisecond
	RetryDelay     = 50 * time.Millisecond
	MaxRetries     = 2

	// frameGrace bounds how long we wait for the rest of a frame once
	// its first byte has arrived; a stalled mid-frame write past this
	// is treated as FramingShort rather than held open indefinitely.
	frameGrace = 2 * time.Second
)

// ErrPeerLost signals that the underlying connection failed outright
// (as opposed to a plain ACK-wait timeout, which is expected traffic).
var ErrPeerLost = errors.New("reliable: peer lost")

// ErrSendFailed is returned by Send when every retransmission attempt
// went unacknowledged; the caller treats this the same as ErrPeerLost.
var ErrSendFailed = errors.New("reliable: send exhausted retries without an ACK")

// errNoData is an internal sentinel: the read deadline elapsed before
// a single byte arrived. Not an error condition by itself.
var errNoData = errors.New("reliable: no data within deadline")

type pendingEntry struct {
	Encoded   []byte
	FirstSent time.Time
}

// deferredFrame is a decoded, decrypted payload that arrived while the
// channel was busy waiting on an ACK. Recv drains these before reading
// the wire, so no legitimate traffic is lost to the interleaving.
type deferredFrame struct {
	Kind    wire.Kind
	Payload []byte
}

// Peer owns one TCP connection's full-duplex traffic: the per-peer
// encoder/decoder state, the send-sequence counter, the map of
// in-flight unacknowledged sends, and the receive-side replay window.
//
// Only one goroutine may call Recv on a Peer at a time (the session
// task that owns it); Send may be called from that same task, since
// waiting for an ACK also means reading frames off the same
// connection. writeMu exists only to keep a bare retransmission
// (triggered from the ACK-wait loop) from interleaving bytes with a
// concurrent Send, not to allow concurrent Sends themselves.
type Peer struct {
	ID     uuid.UUID
	Addr   string
	Role   Role
	Name   string

	conn   net.Conn
	cipher *cryptutil.Cipher

	writeMu     sync.Mutex
	nextSendSeq uint8
	pendingAcks map[uint8]pendingEntry

	recvWindow *replay.Window

	deferredMu sync.Mutex
	deferred   []deferredFrame

	closeOnce sync.Once
}

// NewPeer wraps conn as a reliable channel peer. cph must already be
// keyed with the session's pre-shared secret.
func NewPeer(conn net.Conn, cph *cryptutil.Cipher, role Role) *Peer {
	return &Peer{
		ID:          uuid.New(),
		Addr:        conn.RemoteAddr().String(),
		Role:        role,
		conn:        conn,
		cipher:      cph,
		pendingAcks: make(map[uint8]pendingEntry),
		recvWindow:  replay.New(),
	}
}

// Close tears down the underlying connection. Safe to call more than once.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
	})
	return err
}

func (p *Peer) String() string {
	return fmt.Sprintf("peer{%s %s %s}", p.Role, p.Addr, p.ID)
}

// SetRole updates the peer's seat, used when a spectator is promoted
// to a player slot during the post-game transition.
func (p *Peer) SetRole(role Role) {
	p.Role = role
}

// writeFrame serializes raw bytes onto the connection under writeMu so
// a retransmission triggered mid-ACK-wait never tears a concurrent
// write in half.
func (p *Peer) writeFrame(encoded []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.conn.Write(encoded)
	return err
}

// peekByte blocks up to timeout for the connection's next byte. A
// timeout with nothing read yields errNoData; any other error is fatal.
func (p *Peer) peekByte(timeout time.Duration) (byte, error) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	var buf [1]byte
	if _, err := io.ReadFull(p.conn, buf[:]); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, errNoData
		}
		return 0, err
	}
	return buf[0], nil
}

// readFrame waits up to timeout for the next frame. It returns
// errNoData when nothing arrived in time (not fatal), wire.ErrFramingShort
// or wire.ErrChecksumBad when a frame started but couldn't be trusted
// (not fatal, but callers should request retransmission), or any other
// error when the connection itself has failed (fatal).
func (p *Peer) readFrame(timeout time.Duration) (*wire.Packet, error) {
	first, err := p.peekByte(timeout)
	if err != nil {
		return nil, err
	}

	if err := p.conn.SetReadDeadline(time.Now().Add(frameGrace)); err != nil {
		return nil, err
	}
	rest := io.MultiReader(bytes.NewReader([]byte{first}), p.conn)
	pkt, err := wire.Decode(rest)
	if err != nil {
		return pkt, err
	}
	return pkt, nil
}

func (p *Peer) dropPending(seq uint8) {
	p.writeMu.Lock()
	delete(p.pendingAcks, seq)
	p.writeMu.Unlock()
}

func (p *Peer) storePending(seq uint8, encoded []byte) {
	p.writeMu.Lock()
	p.pendingAcks[seq] = pendingEntry{Encoded: encoded, FirstSent: time.Now()}
	p.writeMu.Unlock()
}

// retransmitPending resends the stored bytes for seq if we still have
// them, in response to a peer's RETX_REQUEST. Reports whether it had
// something to resend.
func (p *Peer) retransmitPending(seq uint8) bool {
	p.writeMu.Lock()
	entry, ok := p.pendingAcks[seq]
	p.writeMu.Unlock()
	if !ok {
		return false
	}
	_ = p.writeFrame(entry.Encoded)
	return true
}

func (p *Peer) queueDeferred(kind wire.Kind, payload []byte) {
	p.deferredMu.Lock()
	p.deferred = append(p.deferred, deferredFrame{Kind: kind, Payload: payload})
	p.deferredMu.Unlock()
}

func (p *Peer) popDeferred() (deferredFrame, bool) {
	p.deferredMu.Lock()
	defer p.deferredMu.Unlock()
	if len(p.deferred) == 0 {
		return deferredFrame{}, false
	}
	f := p.deferred[0]
	p.deferred = p.deferred[1:]
	return f, true
}

// ackNow sends a bare ACK for seq immediately, independent of any
// pending send of our own.
func (p *Peer) ackNow(seq uint8) {
	ack := wire.NewAck(seq)
	encoded, err := ack.Encode()
	if err != nil {
		return
	}
	_ = p.writeFrame(encoded)
}

// requestRetx asks the peer to resend seq.
func (p *Peer) requestRetx(seq uint8) {
	req := wire.NewRetxRequest(0, seq)
	encoded, err := req.Encode()
	if err != nil {
		return
	}
	_ = p.writeFrame(encoded)
}

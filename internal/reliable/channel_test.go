package reliable

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"battleship-go/internal/cryptutil"
	"battleship-go/internal/wire"
)

func testCipher(t *testing.T) *cryptutil.Cipher {
	t.Helper()
	key := make([]byte, cryptutil.KeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	c, err := cryptutil.New(key)
	require.NoError(t, err)
	return c
}

func testPeerPair(t *testing.T) (a, b *Peer) {
	t.Helper()
	connA, connB := net.Pipe()
	cph := testCipher(t)
	a = NewPeer(connA, cph, Role{Kind: RolePlayer, Index: 0})
	b = NewPeer(connB, cph, Role{Kind: RolePlayer, Index: 1})
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestSendRecvRoundTrip(t *testing.T) {
	a, b := testPeerPair(t)

	done := make(chan error, 1)
	go func() { done <- a.Send(wire.KindChat, []byte("hello")) }()

	payload, kind, ok, err := b.Recv(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.KindChat, kind)
	require.Equal(t, []byte("hello"), payload)

	require.NoError(t, <-done)
}

func TestRecvTimesOutCleanlyWithNoData(t *testing.T) {
	a, _ := testPeerPair(t)
	_, _, ok, err := a.Recv(50 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSendFailsWithoutAPeer(t *testing.T) {
	connA, connB := net.Pipe()
	connB.Close()
	cph := testCipher(t)
	a := NewPeer(connA, cph, Role{Kind: RolePlayer, Index: 0})
	defer a.Close()

	err := a.Send(wire.KindChat, []byte("anyone there"))
	require.ErrorIs(t, err, ErrPeerLost)
}

// blackHolePeer wraps one end of a pipe with a Peer, and drains the
// *other* end's raw bytes in the background without ever ACKing them
// at the protocol level: bytes written to it are consumed (so Write
// doesn't block on net.Pipe's unbuffered semantics) but silently
// dropped, simulating a peer that received the frame but never
// acknowledges it.
func blackHolePeer(t *testing.T) *Peer {
	t.Helper()
	connA, connB := net.Pipe()
	go io.Copy(io.Discard, connB)
	a := NewPeer(connA, testCipher(t), Role{Kind: RolePlayer, Index: 0})
	t.Cleanup(func() {
		a.Close()
		connB.Close()
	})
	return a
}

func TestStrictKindGetsExactlyOneAttempt(t *testing.T) {
	a := blackHolePeer(t)

	start := time.Now()
	err := a.Send(wire.KindPlayerMove, []byte("E5"))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrSendFailed)
	require.Less(t, elapsed, AckWaitStrict+200*time.Millisecond)
}

func TestDefaultKindRetriesBeforeFailing(t *testing.T) {
	a := blackHolePeer(t)

	start := time.Now()
	err := a.Send(wire.KindSystem, []byte("welcome"))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrSendFailed)
	// (1 + MaxRetries) attempts at AckWaitDefault each, plus RetryDelay
	// between them, must all have elapsed before giving up.
	minExpected := time.Duration(1+MaxRetries) * AckWaitDefault
	require.GreaterOrEqual(t, elapsed, minExpected)
}

// TestBidirectionalSendDefersTheOtherSidesData exercises the case the
// ACK-wait loop exists for: both peers send at once, so each one's
// wait-for-ACK loop sees the other's data frame arrive first. That
// frame must be ACKed right away (so the sender's own wait succeeds)
// and queued rather than discarded, so a later Recv still surfaces it.
func TestBidirectionalSendDefersTheOtherSidesData(t *testing.T) {
	a, b := testPeerPair(t)

	aDone := make(chan error, 1)
	bDone := make(chan error, 1)
	go func() { aDone <- a.Send(wire.KindSystem, []byte("ping")) }()
	go func() { bDone <- b.Send(wire.KindChat, []byte("hi")) }()

	require.NoError(t, <-aDone)
	require.NoError(t, <-bDone)

	payload, kind, ok, err := b.Recv(100 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.KindSystem, kind)
	require.Equal(t, []byte("ping"), payload)

	payload, kind, ok, err = a.Recv(100 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wire.KindChat, kind)
	require.Equal(t, []byte("hi"), payload)
}

func TestRecvDeliversFrameWhileSenderAwaitsAck(t *testing.T) {
	a, b := testPeerPair(t)

	go func() { _ = a.Send(wire.KindChat, []byte("first")) }()
	_, _, ok, err := b.Recv(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

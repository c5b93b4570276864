package lobby

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"battleship-go/internal/config"
	"battleship-go/internal/cryptutil"
	"battleship-go/internal/reliable"
)

func testLobby(t *testing.T) *Lobby {
	t.Helper()
	key := make([]byte, cryptutil.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	cph, err := cryptutil.New(key)
	require.NoError(t, err)
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 5000, MaxSpectators: 2}
	return New(cfg, cph, nil)
}

// ackingClient wraps the far end of a pipe in a reliable.Peer and
// drains it in the background, so every notification the lobby sends
// gets a real ACK instead of tripping Send's retry/backoff path.
func ackingClient(t *testing.T, conn net.Conn, cph *cryptutil.Cipher) {
	t.Helper()
	peer := reliable.NewPeer(conn, cph, reliable.Role{Kind: reliable.RolePlayer, Index: 0})
	t.Cleanup(func() { peer.Close() })
	go func() {
		for {
			_, _, _, err := peer.Recv(200 * time.Millisecond)
			if err != nil {
				return
			}
		}
	}()
}

func admitWithClient(t *testing.T, l *Lobby) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	ackingClient(t, client, l.cipher)
	l.Admit(server)
	return client
}

func TestAdmitSeatsFirstTwoConnectionsAsPlayers(t *testing.T) {
	l := testLobby(t)

	admitWithClient(t, l)
	require.NotNil(t, l.players[0].Peer)
	require.Nil(t, l.players[1].Peer)
	require.False(t, l.readyGate.IsSet())

	admitWithClient(t, l)
	require.NotNil(t, l.players[1].Peer)
	require.True(t, l.readyGate.IsSet())
}

func TestAdmitSeatsThirdConnectionAsSpectator(t *testing.T) {
	l := testLobby(t)
	admitWithClient(t, l)
	admitWithClient(t, l)
	admitWithClient(t, l)

	require.Len(t, l.spectators, 1)
}

func TestAdmitRefusesBeyondCapacity(t *testing.T) {
	l := testLobby(t)
	// 2 players + MaxSpectators(2) fills the server.
	for i := 0; i < 4; i++ {
		admitWithClient(t, l)
	}
	require.Len(t, l.spectators, 2)

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		client.Read(buf)
		close(done)
	}()
	l.Admit(server)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected the refusal message to be sent")
	}
	require.Len(t, l.spectators, 2)
}

func TestAdmitFillsEmptySlotAsReconnectDuringInGame(t *testing.T) {
	l := testLobby(t)
	l.state = StateInGame

	admitWithClient(t, l)
	require.NotNil(t, l.players[0].Peer)
}

func TestAbortToIdleClosesEverySocketAndResetsSlots(t *testing.T) {
	l := testLobby(t)
	for i := 0; i < 3; i++ {
		admitWithClient(t, l)
	}
	require.True(t, l.bothPlayersPresent())

	l.abortToIdle()

	require.Nil(t, l.players[0].Peer)
	require.Nil(t, l.players[1].Peer)
	require.Empty(t, l.spectators)
	require.Equal(t, StateIdle, l.State())
}

func TestPromoteSpectatorsFillsEmptySlotsFIFO(t *testing.T) {
	l := testLobby(t)

	server, client := net.Pipe()
	ackingClient(t, client, l.cipher)
	spectatorPeer := reliable.NewPeer(server, l.cipher, reliable.Role{Kind: reliable.RoleSpectator, Index: 0})
	l.spectators = append(l.spectators, spectatorPeer)

	l.promoteSpectators()

	require.NotNil(t, l.players[0].Peer)
	require.Equal(t, spectatorPeer, l.players[0].Peer)
	require.Empty(t, l.spectators)
}

func TestRunCountdownAbortsToIdleWhenAPlayerDrops(t *testing.T) {
	l := testLobby(t)
	admitWithClient(t, l)
	admitWithClient(t, l)

	done := make(chan bool, 1)
	go func() { done <- l.runCountdown(context.Background()) }()

	// Drop a player mid-countdown.
	time.Sleep(1200 * time.Millisecond)
	l.slotsMu.Lock()
	_ = l.players[0].Peer.Close()
	l.players[0].Peer = nil
	l.slotsMu.Unlock()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("runCountdown did not return after a player dropped")
	}
	require.Equal(t, StateIdle, l.State())
}

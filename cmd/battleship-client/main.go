package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"battleship-go/internal/config"
	"battleship-go/internal/cryptutil"
	"battleship-go/internal/logutil"
	"battleship-go/internal/reliable"
	"battleship-go/internal/wire"
)

// uiState is the client's inferred view of what input makes sense
// right now, driven entirely by substrings in server messages — the
// client carries no session-state copy of its own.
type uiState int

const (
	stateSetup uiState = iota
	stateWaiting
	stateMyTurn
	stateEnded
)

type client struct {
	peer *reliable.Peer

	mu    sync.Mutex
	state uiState
}

func main() {
	cfg := config.LoadClientConfig()
	cipher, err := cryptutil.New([]byte(cfg.PreSharedKey))
	if err != nil {
		logutil.Fatal("invalid pre-shared key: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		logutil.Fatal("connection refused: %v. Make sure the server is running.", err)
	}
	fmt.Printf("[INFO] Connected to server at %s\n", addr)
	fmt.Println("[INFO] Waiting for the game to start with enough players...")

	peer := reliable.NewPeer(conn, cipher, reliable.Role{Kind: reliable.RolePlayer})
	c := &client{peer: peer, state: stateSetup}

	done := make(chan struct{})
	go c.receiveLoop(done)

	c.inputLoop(done)
}

func (c *client) setState(s uiState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *client) getState() uiState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// receiveLoop prints every server line verbatim and updates the
// inferred UI state from well-known substrings, exactly as the
// original line-oriented client did.
func (c *client) receiveLoop(done chan<- struct{}) {
	defer close(done)
	for {
		payload, kind, ok, err := c.peer.Recv(2 * time.Second)
		if err != nil {
			fmt.Println("[INFO] Server disconnected.")
			return
		}
		if !ok {
			continue
		}
		if kind != wire.KindSystem && kind != wire.KindBoardUpdate && kind != wire.KindGameState && kind != wire.KindChat {
			continue
		}

		line := string(payload)
		fmt.Println(line)
		c.inferState(line)
	}
}

func (c *client) inferState(line string) {
	switch {
	case strings.Contains(line, "Place your ships"):
		c.setState(stateSetup)
	case strings.Contains(line, "Your turn") || strings.Contains(line, "Enter a coordinate"):
		c.setState(stateMyTurn)
	case strings.Contains(line, "Waiting for Player"):
		c.setState(stateWaiting)
	case strings.Contains(line, "HIT!") || strings.Contains(line, "MISS!"):
		c.setState(stateWaiting)
	case strings.Contains(line, "wins") || strings.Contains(line, "Game ended"):
		c.setState(stateEnded)
	}
}

// inputLoop reads stdin lines and reliably sends each as PLAYER_MOVE,
// except that outside "setup" and "my turn" the line is discarded with
// a notice — "quit" always goes through.
func (c *client) inputLoop(done <-chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.EqualFold(line, "quit") {
			_ = c.peer.Send(wire.KindPlayerMove, []byte(line))
			fmt.Println("[INFO] You chose to quit.")
			_ = c.peer.Close()
			return
		}

		switch c.getState() {
		case stateSetup, stateMyTurn:
			if err := c.peer.Send(wire.KindPlayerMove, []byte(line)); err != nil {
				fmt.Println("[INFO] Disconnected from server.")
				return
			}
		case stateEnded:
			fmt.Println("[INFO] The game has ended.")
		default:
			fmt.Println("[INFO] It's not your turn; input discarded.")
		}
	}
}

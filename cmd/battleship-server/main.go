package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"battleship-go/internal/config"
	"battleship-go/internal/cryptutil"
	"battleship-go/internal/events"
	"battleship-go/internal/lobby"
	"battleship-go/internal/logutil"
)

const version = "1.0.0"

func main() {
	logutil.Banner("Server", version)

	cfg := config.LoadServerConfig()
	cipher, err := cryptutil.New([]byte(cfg.PreSharedKey))
	if err != nil {
		logutil.Fatal("invalid pre-shared key: %v", err)
	}

	bus := events.NewBus()
	bus.On(events.TypePeerJoined, logEvent)
	bus.On(events.TypePeerLeft, logEvent)
	bus.On(events.TypePeerReconnected, logEvent)
	bus.On(events.TypeGameStarted, logEvent)
	bus.On(events.TypeGameEnded, logEvent)
	bus.On(events.TypeSpectatorPromoted, logEvent)

	lb := lobby.New(cfg, cipher, bus)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logutil.Fatal("failed to bind %s: %v", addr, err)
	}
	logutil.Success("Listening on %s", addr)
	logutil.Info("Max spectators: %d", cfg.MaxSpectators)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go lb.Run(ctx)
	go acceptLoop(ctx, listener, lb)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logutil.Warn("received signal: %v", sig)
	logutil.Info("shutting down gracefully...")

	cancel()
	_ = listener.Close()
	logutil.Success("server stopped")
}

func acceptLoop(ctx context.Context, listener net.Listener, lb *lobby.Lobby) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logutil.Error("accept failed: %v", err)
			continue
		}
		go lb.Admit(conn)
	}
}

func logEvent(ev events.Event) {
	logutil.Info("[%s] %s", ev.Type, ev.Message)
}

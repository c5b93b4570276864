// Command battleship-attacker is an illustrative replay-defense probe,
// not a real attack tool. The original script it's descended from sent
// a single UDP datagram at the server's TCP port — a packet the
// listening TCP socket was never going to see. That quirk is
// preserved in spirit: this is a demonstration of what the replay
// window is built to reject, not a working exploit. See DESIGN.md for
// why it stays this way.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"time"

	"battleship-go/internal/logutil"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "server address to probe")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		logutil.Fatal("connection refused: %v", err)
	}
	defer conn.Close()

	logutil.Info("connected to %s; capturing one frame to replay", *addr)

	captured, err := captureOneFrame(conn)
	if err != nil {
		logutil.Fatal("capture failed: %v", err)
	}
	fmt.Printf("[INFO] captured %d bytes, replaying the identical frame now...\n", len(captured))

	if _, err := conn.Write(captured); err != nil {
		logutil.Fatal("replay write failed: %v", err)
	}
	fmt.Println("[INFO] Replayed captured packet. A correctly implemented replay window silently discards it.")
}

// captureOneFrame reads exactly one framed message's worth of bytes
// off the wire without decrypting or validating it — this tool
// deliberately stays below the protocol layer, since its only job is
// to resend bytes verbatim.
func captureOneFrame(conn net.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	header := make([]byte, 6)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	payloadLen := int(header[4])<<8 | int(header[5])
	frame := make([]byte, 6+payloadLen)
	copy(frame, header)
	if payloadLen > 0 {
		if _, err := io.ReadFull(conn, frame[6:]); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

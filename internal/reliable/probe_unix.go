//go:build unix

package reliable

import (
	"net"
	"syscall"
)

// ProbeAlive performs the connection monitor's non-destructive liveness
// check: a zero-consuming MSG_PEEK read on the underlying socket. It
// never competes with the peer's real reader (readFrame/Recv) because
// MSG_PEEK leaves whatever bytes it sees in the kernel's receive
// buffer for that reader to pick up normally.
//
// Reports true (assume alive) for anything that isn't a *net.TCPConn
// — e.g. the net.Pipe conns used in tests — since there is no socket
// to peek.
func (p *Peer) ProbeAlive() bool {
	tcpConn, ok := p.conn.(*net.TCPConn)
	if !ok {
		return true
	}
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return true
	}

	alive := true
	var buf [1]byte
	ctlErr := rawConn.Read(func(fd uintptr) bool {
		n, _, errno := syscall.Recvfrom(int(fd), buf[:], syscall.MSG_PEEK|syscall.MSG_DONTWAIT)
		switch {
		case errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK:
			// nothing pending; socket itself is fine
		case errno != nil:
			alive = false
		case n == 0:
			// peer performed an orderly shutdown
			alive = false
		}
		return true
	})
	if ctlErr != nil {
		return true
	}
	return alive
}

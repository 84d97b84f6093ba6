package netif

import (
	"net"
	"time"
)

// UDPInterface carries ethernet frames over a real UDP socket bound to
// a local address, with a single fixed peer. It does no goroutine
// dispatch of its own; Receive is polled synchronously with a
// near-zero read deadline so the simulation stays single-threaded.
type UDPInterface struct {
	mac      [6]byte
	conn     net.PacketConn
	peer     net.Addr
	pushback [][]byte
}

// NewUDPInterface binds a UDP socket at localAddr (host:port) and
// configures peerAddr as the single recipient of sent frames.
func NewUDPInterface(localAddr, peerAddr string) (*UDPInterface, error) {
	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, err
	}
	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &UDPInterface{conn: conn, peer: peer}, nil
}

// Close releases the underlying socket.
func (u *UDPInterface) Close() error { return u.conn.Close() }

func (u *UDPInterface) SetMAC(mac [6]byte) { u.mac = mac }
func (u *UDPInterface) MAC() [6]byte       { return u.mac }

func (u *UDPInterface) Send(frame []byte) error {
	_, err := u.conn.WriteTo(frame, u.peer)
	return err
}

// Receive polls the socket with a near-zero (one millisecond) read
// deadline, so it never blocks the caller's event loop for longer.
func (u *UDPInterface) Receive() ([]byte, bool) {
	if len(u.pushback) > 0 {
		frame := u.pushback[0]
		u.pushback = u.pushback[1:]
		return frame, true
	}

	buf := make([]byte, 65535)
	if err := u.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return nil, false
	}
	n, _, err := u.conn.ReadFrom(buf)
	if err != nil {
		return nil, false
	}
	return buf[:n], true
}

// Pending reports whether a frame is available without consuming it
// past this call; any frame read while checking is stashed for the
// next Receive.
func (u *UDPInterface) Pending() bool {
	if len(u.pushback) > 0 {
		return true
	}
	frame, ok := u.Receive()
	if !ok {
		return false
	}
	u.pushback = append(u.pushback, frame)
	return true
}

var _ Interface = (*UDPInterface)(nil)

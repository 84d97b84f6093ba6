package netif

// Loopback is an in-process Interface: frames sent are immediately
// available to be received back through the same instance. Useful for
// tests and for pairing two simulated hosts without a real socket.
type Loopback struct {
	mac   [6]byte
	queue [][]byte
}

// NewLoopback returns an empty loopback interface.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) SetMAC(mac [6]byte) { l.mac = mac }
func (l *Loopback) MAC() [6]byte       { return l.mac }

func (l *Loopback) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.queue = append(l.queue, cp)
	return nil
}

func (l *Loopback) Receive() ([]byte, bool) {
	if len(l.queue) == 0 {
		return nil, false
	}
	frame := l.queue[0]
	l.queue = l.queue[1:]
	return frame, true
}

func (l *Loopback) Pending() bool { return len(l.queue) > 0 }

var _ Interface = (*Loopback)(nil)

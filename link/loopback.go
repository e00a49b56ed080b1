package link

import (
	"sync"
	"time"
)

// Air is an in-memory radio medium. Stations attached to the same Air can
// send to each other once the destination has been registered as a peer.
// It stands in for the radio in demo mode and in tests.
type Air struct {
	mu       sync.Mutex
	stations map[Addr]*Station
}

func NewAir() *Air {
	return &Air{stations: make(map[Addr]*Station)}
}

// Attach creates a station with the given address.
func (a *Air) Attach(addr Addr) *Station {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &Station{addr: addr, air: a, peers: make(map[Addr]bool)}
	a.stations[addr] = s
	return s
}

func (a *Air) deliver(from, to Addr, payload []byte) error {
	a.mu.Lock()
	dst, ok := a.stations[to]
	a.mu.Unlock()
	if !ok {
		return ErrSendRejected
	}
	p := make([]byte, len(payload))
	copy(p, payload)

	dst.mu.Lock()
	defer dst.mu.Unlock()
	dst.rx.push(Packet{From: from, Payload: p})
	return nil
}

// Station is one radio on an Air. It implements PeerLink.
type Station struct {
	addr  Addr
	air   *Air
	mu    sync.Mutex
	peers map[Addr]bool
	rx    ringBuffer
}

func (s *Station) Addr() Addr { return s.addr }

// Identify returns the station's own address.
func (s *Station) Identify(time.Duration) (Addr, error) { return s.addr, nil }

func (s *Station) RegisterPeer(addr Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[addr] = true
	return nil
}

// ForgetPeer drops a registration, as a radio stack reset would.
func (s *Station) ForgetPeer(addr Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, addr)
}

func (s *Station) Send(addr Addr, payload []byte) error {
	s.mu.Lock()
	known := s.peers[addr]
	s.mu.Unlock()
	if !known {
		return &Error{Op: "send", Peer: addr, Err: ErrPeerNotRegistered}
	}
	if err := s.air.deliver(s.addr, addr, payload); err != nil {
		return &Error{Op: "send", Peer: addr, Err: err}
	}
	return nil
}

func (s *Station) Poll() (Packet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkt, ok := s.rx.pop()
	return pkt, ok, nil
}

// Inject queues a packet as if it had arrived over the air.
func (s *Station) Inject(from Addr, payload []byte) {
	p := make([]byte, len(payload))
	copy(p, payload)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rx.push(Packet{From: from, Payload: p})
}

// Pending reports how many packets are waiting to be polled.
func (s *Station) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.count
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity]Packet
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(p Packet) {
	if rb.count == ringCapacity {
		// overwrite the oldest to keep memory bounded
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = p
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() (Packet, bool) {
	if rb.count == 0 {
		return Packet{}, false
	}
	p := rb.data[rb.head]
	rb.data[rb.head] = Packet{}
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return p, true
}

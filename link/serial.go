package link

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	logger "github.com/sirupsen/logrus"
)

const inboundQueue = 64

// Serial is a PeerLink backed by a radio bridge on a serial port. The bridge
// is a small microcontroller running the actual peer to peer radio; the host
// talks to it with the sentences described in bridge.go.
type Serial struct {
	port io.ReadWriteCloser
	wmu  sync.Mutex

	inbound chan Packet

	mu      sync.Mutex
	failed  map[Addr]bool
	readErr error
	closed  bool
	mine    chan Addr
}

// OpenSerial opens the bridge on the given port, e.g. /dev/ttyUSB0.
func OpenSerial(portName string, baud uint) (*Serial, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open radio bridge %s: %w", portName, err)
	}
	logger.Infof("Radio bridge opened on %s at %d baud", portName, baud)
	return NewSerial(port), nil
}

// NewSerial starts reading bridge sentences from port.
func NewSerial(port io.ReadWriteCloser) *Serial {
	s := &Serial{
		port:    port,
		inbound: make(chan Packet, inboundQueue),
		failed:  make(map[Addr]bool),
		mine:    make(chan Addr, 1),
	}
	go s.readLoop()
	return s
}

func (s *Serial) readLoop() {
	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.readErr = err
			}
			s.mu.Unlock()
			return
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		sent, err := parseBridgeLine(line)
		if err != nil {
			logger.Debugf("Bridge sentence ignored [%v] (%q)", err, line)
			continue
		}
		switch m := sent.(type) {
		case recvSentence:
			s.enqueue(Packet{From: m.From, Payload: m.Payload})
		case nakSentence:
			s.mu.Lock()
			s.failed[m.Peer] = true
			s.mu.Unlock()
		case mineSentence:
			select {
			case s.mine <- m.Addr:
			default:
			}
		default:
			logger.Debugf("Bridge sentence %s not handled", sent.DataType())
		}
	}
}

// enqueue drops the oldest packet when the queue is full.
func (s *Serial) enqueue(p Packet) {
	for {
		select {
		case s.inbound <- p:
			return
		default:
		}
		select {
		case <-s.inbound:
			logger.Debug("Bridge inbound queue full, dropped oldest packet")
		default:
		}
	}
}

func (s *Serial) write(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := io.WriteString(s.port, line)
	return err
}

func (s *Serial) RegisterPeer(addr Addr) error {
	s.mu.Lock()
	closed := s.closed
	delete(s.failed, addr)
	s.mu.Unlock()
	if closed {
		return &Error{Op: "register", Peer: addr, Err: ErrClosed}
	}
	if err := s.write(addPeerSentence(addr)); err != nil {
		return &Error{Op: "register", Peer: addr, Err: err}
	}
	return nil
}

// Send reports ErrPeerNotRegistered if the bridge has rejected a previous
// send to addr since the peer was last registered.
func (s *Serial) Send(addr Addr, payload []byte) error {
	s.mu.Lock()
	closed := s.closed
	failed := s.failed[addr]
	delete(s.failed, addr)
	s.mu.Unlock()
	if closed {
		return &Error{Op: "send", Peer: addr, Err: ErrClosed}
	}
	if failed {
		return &Error{Op: "send", Peer: addr, Err: ErrPeerNotRegistered}
	}
	if err := s.write(sendSentence(addr, payload)); err != nil {
		return &Error{Op: "send", Peer: addr, Err: fmt.Errorf("%w: %v", ErrSendRejected, err)}
	}
	return nil
}

// Identify asks the bridge for its own radio address.
func (s *Serial) Identify(timeout time.Duration) (Addr, error) {
	if err := s.write(querySentence()); err != nil {
		return Addr{}, &Error{Op: "identify", Err: err}
	}
	select {
	case a := <-s.mine:
		return a, nil
	case <-time.After(timeout):
		return Addr{}, fmt.Errorf("bridge did not report its address within %v", timeout)
	}
}

// Poll never blocks. A read failure of the port is reported once.
func (s *Serial) Poll() (Packet, bool, error) {
	select {
	case p := <-s.inbound:
		return p, true, nil
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		err := s.readErr
		s.readErr = nil
		return Packet{}, false, &Error{Op: "poll", Err: err}
	}
	return Packet{}, false, nil
}

// Close closes the port; the reader stops on its next read error.
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.port.Close()
}

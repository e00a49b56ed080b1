package link

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPeerNotRegistered = errors.New("peer not registered")
	ErrSendRejected      = errors.New("send rejected")
	ErrClosed            = errors.New("link closed")
)

// Error is returned by PeerLink operations.
type Error struct {
	Op   string
	Peer Addr
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("link %s %v: %v", e.Op, e.Peer, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a send/registration failure that a
// caller can recover from by registering the peer again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrPeerNotRegistered) || errors.Is(err, ErrSendRejected)
}

// Packet is a payload received from a peer.
type Packet struct {
	From    Addr
	Payload []byte
}

// PeerLink is a best effort, unacknowledged, peer addressed radio link.
// None of the methods may block.
type PeerLink interface {
	RegisterPeer(addr Addr) error
	Send(addr Addr, payload []byte) error
	// Poll returns ok == false when nothing is waiting.
	Poll() (pkt Packet, ok bool, err error)
}

// Identifier is a link that can report its own radio address.
type Identifier interface {
	Identify(timeout time.Duration) (Addr, error)
}

package frame

import (
	"errors"
	"fmt"
)

// Size is the length of a frame on the wire: x, y, button.
const Size = 3

// Frame is one joystick sample as sent over the radio.
// There is no header, checksum or version byte.
type Frame struct {
	X      uint8 `json:"x"`
	Y      uint8 `json:"y"`
	Button uint8 `json:"button"` // 0 pressed, 1 released
}

// ErrUnexpectedLength is matched by errors.Is for any FormatError of that kind.
var ErrUnexpectedLength = errors.New("unexpected frame length")

type FormatErrorKind int

const (
	UnexpectedLength FormatErrorKind = iota
)

// FormatError reports a payload that cannot be read as a frame.
type FormatError struct {
	Kind FormatErrorKind
	Len  int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("frame: %d bytes, want %d", e.Len, Size)
}

func (e *FormatError) Unwrap() error {
	if e.Kind == UnexpectedLength {
		return ErrUnexpectedLength
	}
	return nil
}

// Encode packs x, y and button in that order.
// Button is expected to be 0 or 1 but any byte is passed through.
func Encode(x, y, button uint8) []byte {
	return []byte{x, y, button}
}

func (f Frame) Bytes() []byte {
	return Encode(f.X, f.Y, f.Button)
}

// Decode reads a frame from exactly Size bytes. Any other length is a
// *FormatError and nothing is decoded. Button bytes other than 0/1 are kept.
func Decode(b []byte) (Frame, error) {
	if len(b) != Size {
		return Frame{}, &FormatError{Kind: UnexpectedLength, Len: len(b)}
	}
	return Frame{X: b[0], Y: b[1], Button: b[2]}, nil
}

package link

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is the 6 byte hardware address of a radio peer.
type Addr [6]byte

// ParseAddr reads an address written as "7C:DF:A1:12:34:56".
func ParseAddr(s string) (Addr, error) {
	var a Addr
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != len(a) {
		return a, fmt.Errorf("invalid peer address %q: want 6 colon separated bytes", s)
	}
	for i, p := range parts {
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil || len(p) == 0 || len(p) > 2 {
			return a, fmt.Errorf("invalid peer address %q: bad byte %q", s, p)
		}
		a[i] = byte(b)
	}
	return a, nil
}

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Addr) UnmarshalText(text []byte) error {
	parsed, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

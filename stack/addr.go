package stack

import (
	"fmt"
	"strings"
)

// Addr is a 6-byte Bluetooth device address in the order the stack reports
// it (most significant byte first).
type Addr [6]byte

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// ParseAddr parses a colon-separated Bluetooth device address,
// e.g. "11:22:33:44:55:66".
func ParseAddr(s string) (Addr, error) {
	var a Addr
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return a, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i, p := range parts {
		var b byte
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil {
			return a, fmt.Errorf("invalid bluetooth address %q: %v", s, err)
		}
		a[i] = b
	}
	return a, nil
}

// MustParseAddr parses a colon-separated address and panics on failure.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

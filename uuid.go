package bluedroid

import "github.com/go-ble/ble"

// UUID16 returns the 16-bit UUID v as a ble.UUID.
func UUID16(v uint16) ble.UUID { return ble.UUID16(v) }

// UUID32 returns the 32-bit UUID v as a ble.UUID, little endian, matching
// the layout the stack expects for 32-bit service class UUIDs.
func UUID32(v uint32) ble.UUID {
	return ble.UUID{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// ParseUUID parses a 16-bit or 128-bit UUID string, with or without dashes.
func ParseUUID(s string) (ble.UUID, error) { return ble.Parse(s) }

// MustParseUUID parses a UUID string and panics on failure.
// Intended for declaring static attribute trees.
func MustParseUUID(s string) ble.UUID { return ble.MustParse(s) }

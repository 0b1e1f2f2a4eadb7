package bluedroid

import (
	"errors"

	"github.com/go-ble/ble"
)

// MaxEIRPacketLength is the maximum allowed advertising packet and scan
// response packet length.
const MaxEIRPacketLength = 31

// ErrEIRPacketTooLong is the error returned when an advertising or scan
// response packet is too long.
var ErrEIRPacketTooLong = errors.New("max packet length is 31")

// advertising data field types
const (
	typeFlags        = 0x01 // Flags
	typeSomeUUID16   = 0x02 // Incomplete List of 16-bit Service Class UUIDs
	typeAllUUID16    = 0x03 // Complete List of 16-bit Service Class UUIDs
	typeSomeUUID32   = 0x04 // Incomplete List of 32-bit Service Class UUIDs
	typeSomeUUID128  = 0x06 // Incomplete List of 128-bit Service Class UUIDs
	typeShortName    = 0x08 // Shortened Local Name
	typeCompleteName = 0x09 // Complete Local Name
	typeTxPower      = 0x0A // Tx Power Level
	typeAppearance   = 0x19 // Appearance
)

// flag bits
const (
	flagLimitedDiscoverable = 1 << iota // LE Limited Discoverable Mode
	flagGeneralDiscoverable             // LE General Discoverable Mode
	flagLEOnly                          // BR/EDR Not Supported
)

type advPacket struct {
	data []byte
}

// appendField appends a BLE advertising packet field.
// A field consists of len, typ, data; len counts typ plus data.
func (p *advPacket) appendField(typ byte, data []byte) {
	p.data = append(p.data, byte(len(data)+1))
	p.data = append(p.data, typ)
	p.data = append(p.data, data...)
}

// appendUUIDFit appends an advertised service UUID field if it fits in the
// packet, and reports whether it fit. UUIDs are already little endian.
func (p *advPacket) appendUUIDFit(u ble.UUID) bool {
	if len(p.data)+u.Len()+2 > MaxEIRPacketLength {
		return false
	}
	switch u.Len() {
	case 2:
		p.appendField(typeSomeUUID16, u)
	case 4:
		p.appendField(typeSomeUUID32, u)
	case 16:
		p.appendField(typeSomeUUID128, u)
	}
	return true
}

// serviceAdvertisingPacket constructs an advertising payload carrying the
// discoverability flags, the device appearance, and as many of the given
// service UUIDs as fit. It returns the payload and the UUIDs that fit.
func serviceAdvertisingPacket(appearance Appearance, uu []ble.UUID) ([]byte, []ble.UUID) {
	fit := make([]ble.UUID, 0, len(uu))
	adv := new(advPacket)
	adv.appendField(typeFlags, []byte{flagGeneralDiscoverable | flagLEOnly})
	if appearance != AppearanceUnknown {
		adv.appendField(typeAppearance, []byte{byte(appearance), byte(appearance >> 8)})
	}
	for _, u := range uu {
		if ok := adv.appendUUIDFit(u); ok {
			fit = append(fit, u)
		}
	}
	return adv.data, fit
}

// nameScanResponsePacket constructs a scan response payload with the given
// name, truncated as necessary.
func nameScanResponsePacket(name string) []byte {
	typ := byte(typeCompleteName)
	if max := MaxEIRPacketLength - 2; len(name) > max {
		name = name[:max]
		typ = typeShortName
	}
	scan := new(advPacket)
	scan.appendField(typ, []byte(name))
	return scan.data
}

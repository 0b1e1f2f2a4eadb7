// Package stack defines the boundary between the GATT server facade and
// the vendor BLE stack.
//
// A vendor stack exposes a small, flat, handle-based capability set:
// register an application, build a GATT database one attribute at a time,
// answer or forward ATT requests, and push notifications. Everything is
// asynchronous; the stack reports completion of each operation through an
// event delivered on its internal task. The Stack interface below captures
// that capability set, and the Event types in events.go capture the event
// stream. The sim package provides an in-memory implementation.
package stack

import "github.com/go-ble/ble"

// Status is a GATT operation status as reported by the stack. The non-OK
// values are the subset of ATT error codes the facade emits or inspects.
type Status uint8

const (
	StatusOK             Status = 0x00
	StatusInvalidHandle  Status = 0x01
	StatusReadNotPermit  Status = 0x02
	StatusWriteNotPermit Status = 0x03
	StatusInvalidOffset  Status = 0x07
	StatusInvalidAttrLen Status = 0x0d
	StatusNotFound       Status = 0x0a
	StatusNoResources    Status = 0x80
	StatusError          Status = 0x85
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidHandle:
		return "invalid handle"
	case StatusReadNotPermit:
		return "read not permitted"
	case StatusWriteNotPermit:
		return "write not permitted"
	case StatusInvalidOffset:
		return "invalid offset"
	case StatusInvalidAttrLen:
		return "invalid attribute length"
	case StatusNotFound:
		return "attribute not found"
	case StatusNoResources:
		return "insufficient resources"
	default:
		return "error"
	}
}

// Interface identifies a registered GATT application within the stack.
// The stack assigns one per application id during registration.
type Interface uint8

// InterfaceNone is the value an Interface holds before registration.
const InterfaceNone Interface = 0xff

// Perm is an attribute permission bit set.
type Perm uint16

const (
	PermRead      Perm = 1 << 0
	PermReadEnc   Perm = 1 << 1
	PermReadAuth  Perm = 1 << 2
	PermWrite     Perm = 1 << 4
	PermWriteEnc  Perm = 1 << 5
	PermWriteAuth Perm = 1 << 6
)

// Readable reports whether any read permission bit is set.
func (p Perm) Readable() bool { return p&(PermRead|PermReadEnc|PermReadAuth) != 0 }

// Writable reports whether any write permission bit is set.
func (p Perm) Writable() bool { return p&(PermWrite|PermWriteEnc|PermWriteAuth) != 0 }

// Prop is a characteristic property bit set.
// Do not re-order the bits below; they match the BLE spec.
type Prop uint8

const (
	PropBroadcast Prop = 1 << iota // the value may be broadcast
	PropRead                       // the value may be read
	PropWriteNR                    // the value may be written, no response
	PropWrite                      // the value may be written, with a response
	PropNotify                     // the server may notify the value
	PropIndicate                   // the server may indicate the value
	PropSignedWrite                // authenticated signed writes are permitted
	PropExtended                   // extended properties are present
)

// Control selects who answers reads and writes for an attribute: the stack,
// out of its own value store, or the application, via a callback.
type Control uint8

const (
	AutoResponse Control = iota
	RespondByApp
)

// MaxAttrLen is the largest attribute value the stack accepts in a
// response, and the fixed size of the AttrValue buffer.
const MaxAttrLen = 600

// DefaultMaxValueLen is the ATT maximum used when the application does not
// bound a characteristic's value length explicitly.
const DefaultMaxValueLen = 512

// AttrValue is the fixed-size attribute value structure passed to
// SendResponse. Value is left-padded: the first Len bytes are significant.
type AttrValue struct {
	Handle  uint16
	Offset  uint16
	Len     uint16
	AuthReq uint8
	Value   [MaxAttrLen]byte
}

// Bytes returns the significant portion of the value.
func (v *AttrValue) Bytes() []byte { return v.Value[:v.Len] }

// AdvData is an advertisement or scan-response payload, pre-assembled as
// raw AD structures. The stack may read the payload after ConfigAdvData
// returns, so callers must not reuse the backing array.
type AdvData struct {
	ScanRsp bool
	Raw     []byte
}

// AdvParams are the advertising parameters used by StartAdvertising.
// Intervals are in 0.625 ms units.
type AdvParams struct {
	IntervalMin uint16
	IntervalMax uint16
	ChannelMap  uint8
}

// Handler receives the stack's event stream. The stack guarantees serial
// delivery in arrival order on its internal task; a handler must not block.
type Handler func(iface Interface, evt Event)

// Stack is the capability set consumed from the vendor BLE stack.
//
// All mutating calls are asynchronous: they return once the request is
// queued, and completion is reported through the event stream.
type Stack interface {
	// RegisterCallback installs the event handler. It must be called
	// exactly once, before RegisterApp.
	RegisterCallback(h Handler)

	// RegisterApp registers an application id; completion is reported by a
	// RegisterEvent carrying the assigned Interface.
	RegisterApp(appID uint16) error

	SetDeviceName(name string) error
	ConfigAdvData(d *AdvData) error
	StartAdvertising(p *AdvParams) error
	StopAdvertising() error

	// CreateService allocates numHandles attribute handles for a service;
	// completion is reported by a CreateEvent carrying the service handle.
	CreateService(iface Interface, uuid ble.UUID, primary bool, numHandles uint16) error
	StartService(serviceHandle uint16) error

	// AddCharacteristic appends a characteristic declaration and value
	// attribute to a created service; completion is reported by an
	// AddCharEvent carrying the value attribute handle.
	AddCharacteristic(serviceHandle uint16, uuid ble.UUID, perm Perm, prop Prop, control Control, value []byte, maxLen uint16) error

	// AddDescriptor appends a descriptor attribute to the characteristic
	// most recently added to the service; completion is reported by an
	// AddDescEvent.
	AddDescriptor(serviceHandle uint16, uuid ble.UUID, perm Perm, control Control, value []byte) error

	// SetAttrValue replaces the stored value of an attribute and emits a
	// SetAttrValEvent so the server can fan out notifications.
	SetAttrValue(attrHandle uint16, value []byte) error

	// SendResponse answers a pending read or write request.
	SendResponse(iface Interface, connID uint16, transID uint32, status Status, rsp *AttrValue) error

	// SendIndicate pushes a value to one connection. With needConfirm the
	// frame is an indication, otherwise a notification.
	SendIndicate(iface Interface, connID uint16, attrHandle uint16, value []byte, needConfirm bool) error
}

package stack

import "github.com/go-ble/ble"

// Event is one entry in the stack's event stream. Events are delivered
// serially, in arrival order, on the stack's internal task.
type Event interface {
	event()
}

// RegisterEvent reports completion of RegisterApp.
type RegisterEvent struct {
	Status Status
	AppID  uint16
}

// CreateEvent reports completion of CreateService.
type CreateEvent struct {
	Status        Status
	ServiceUUID   ble.UUID
	ServiceHandle uint16
}

// StartEvent reports completion of StartService.
type StartEvent struct {
	Status        Status
	ServiceHandle uint16
}

// AddCharEvent reports completion of AddCharacteristic. AttrHandle is the
// handle of the characteristic value attribute.
type AddCharEvent struct {
	Status        Status
	ServiceHandle uint16
	AttrHandle    uint16
	CharUUID      ble.UUID
}

// AddDescEvent reports completion of AddDescriptor.
type AddDescEvent struct {
	Status        Status
	ServiceHandle uint16
	AttrHandle    uint16
	DescUUID      ble.UUID
}

// ConnectEvent reports a new central connection.
type ConnectEvent struct {
	ConnID uint16
	Peer   Addr
}

// DisconnectEvent reports that a central disconnected.
type DisconnectEvent struct {
	ConnID uint16
	Peer   Addr
	Reason uint8
}

// MtuEvent reports the MTU negotiated on a connection.
type MtuEvent struct {
	ConnID uint16
	MTU    uint16
}

// ReadEvent is an inbound ATT read request.
type ReadEvent struct {
	ConnID  uint16
	TransID uint32
	Peer    Addr
	Handle  uint16
	Offset  uint16
	IsLong  bool
	NeedRsp bool
}

// WriteEvent is an inbound ATT write request. Value is owned by the
// receiver and is not reused by the stack.
type WriteEvent struct {
	ConnID  uint16
	TransID uint32
	Peer    Addr
	Handle  uint16
	Offset  uint16
	NeedRsp bool
	IsPrep  bool
	Value   []byte
}

// SetAttrValEvent reports completion of SetAttrValue.
type SetAttrValEvent struct {
	Status        Status
	ServiceHandle uint16
	AttrHandle    uint16
}

// ResponseEvent reports that a response queued with SendResponse went out.
type ResponseEvent struct {
	Status Status
	ConnID uint16
	Handle uint16
}

func (RegisterEvent) event()   {}
func (CreateEvent) event()     {}
func (StartEvent) event()      {}
func (AddCharEvent) event()    {}
func (AddDescEvent) event()    {}
func (ConnectEvent) event()    {}
func (DisconnectEvent) event() {}
func (MtuEvent) event()        {}
func (ReadEvent) event()       {}
func (WriteEvent) event()      {}
func (SetAttrValEvent) event() {}
func (ResponseEvent) event()   {}

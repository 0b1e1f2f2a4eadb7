// Package sim provides an in-memory implementation of stack.Stack.
//
// It mimics the observable behavior of a vendor BLE stack: asynchronous
// completion events for every registration call, sequential attribute
// handle allocation within each service's declared budget, an internal
// value store for auto-respond attributes, and serial event delivery in
// arrival order. The examples run on it, and the test suites use its
// peer-side API (see peer.go) to drive the server the way a connected
// central would.
package sim

import (
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/XC-/bluedroid/stack"
)

type attrKind int

const (
	kindServiceDecl attrKind = iota
	kindCharDecl
	kindCharValue
	kindDescriptor
)

type attr struct {
	handle    uint16
	svcHandle uint16
	kind      attrKind
	uuid      ble.UUID
	perm      stack.Perm
	prop      stack.Prop
	control   stack.Control
	maxLen    uint16
	value     []byte
}

type service struct {
	handle  uint16
	end     uint16 // first handle past the budget
	next    uint16 // next free handle within the budget
	iface   stack.Interface
	uuid    ble.UUID
	primary bool
	started bool
}

type conn struct {
	id    uint16
	peer  stack.Addr
	mtu   uint16
	inbox []Frame
}

// A Frame is a notification or indication delivered to a peer. Confirm
// reports whether the frame was an indication.
type Frame struct {
	Handle  uint16
	Value   []byte
	Confirm bool
}

// A Response is a captured SendResponse call.
type Response struct {
	ConnID  uint16
	TransID uint32
	Status  stack.Status
	Attr    stack.AttrValue
}

type posted struct {
	iface stack.Interface
	evt   stack.Event
}

// Stack is the simulated vendor stack.
type Stack struct {
	log *logrus.Logger

	mu         sync.Mutex
	handler    stack.Handler
	apps       map[uint16]stack.Interface
	firstIface stack.Interface
	nextIface  stack.Interface
	attrs      *orderedmap.OrderedMap[uint16, *attr]
	services   map[uint16]*service
	nextHandle uint16
	conns      map[uint16]*conn
	nextConnID uint16
	nextTrans  uint32

	deviceName      string
	deviceNameCalls int
	advConfigs      []stack.AdvData
	advStarts       int
	advertising     bool
	responses       []Response

	// serial event task: events posted while a dispatch is in progress are
	// queued and delivered after the current handler returns
	qmu         sync.Mutex
	queue       []posted
	dispatching bool
}

// New creates a simulated stack. A nil logger falls back to the logrus
// standard logger.
func New(log *logrus.Logger) *Stack {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Stack{
		log:        log,
		apps:       make(map[uint16]stack.Interface),
		firstIface: stack.InterfaceNone,
		nextIface:  1,
		attrs:      orderedmap.New[uint16, *attr](),
		services:   make(map[uint16]*service),
		nextHandle: 0x0028,
		conns:      make(map[uint16]*conn),
		nextConnID: 1,
	}
}

// post delivers evt to the registered handler. Delivery is serial and in
// arrival order: posts issued from within a handler are queued and
// dispatched after it returns, on the same goroutine.
func (s *Stack) post(iface stack.Interface, evt stack.Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	s.qmu.Lock()
	s.queue = append(s.queue, posted{iface: iface, evt: evt})
	if s.dispatching {
		s.qmu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.queue) > 0 {
		p := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()
		if h != nil {
			h(p.iface, p.evt)
		}
		s.qmu.Lock()
	}
	s.dispatching = false
	s.qmu.Unlock()
}

// RegisterCallback implements stack.Stack.
func (s *Stack) RegisterCallback(h stack.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// RegisterApp implements stack.Stack.
func (s *Stack) RegisterApp(appID uint16) error {
	s.mu.Lock()
	if _, dup := s.apps[appID]; dup {
		s.mu.Unlock()
		return fmt.Errorf("sim: application id 0x%04X already registered", appID)
	}
	iface := s.nextIface
	s.nextIface++
	s.apps[appID] = iface
	if s.firstIface == stack.InterfaceNone {
		s.firstIface = iface
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"app_id": appID, "interface": iface}).Debug("sim: application registered")
	s.post(iface, stack.RegisterEvent{Status: stack.StatusOK, AppID: appID})
	return nil
}

// SetDeviceName implements stack.Stack.
func (s *Stack) SetDeviceName(name string) error {
	s.mu.Lock()
	s.deviceName = name
	s.deviceNameCalls++
	s.mu.Unlock()
	return nil
}

// ConfigAdvData implements stack.Stack. The payload is copied; the caller
// may reuse the backing array.
func (s *Stack) ConfigAdvData(d *stack.AdvData) error {
	s.mu.Lock()
	s.advConfigs = append(s.advConfigs, stack.AdvData{
		ScanRsp: d.ScanRsp,
		Raw:     append([]byte(nil), d.Raw...),
	})
	s.mu.Unlock()
	return nil
}

// StartAdvertising implements stack.Stack.
func (s *Stack) StartAdvertising(p *stack.AdvParams) error {
	s.mu.Lock()
	s.advertising = true
	s.advStarts++
	s.mu.Unlock()
	s.log.Debug("sim: advertising started")
	return nil
}

// StopAdvertising implements stack.Stack.
func (s *Stack) StopAdvertising() error {
	s.mu.Lock()
	s.advertising = false
	s.mu.Unlock()
	return nil
}

// CreateService implements stack.Stack. The service declaration occupies
// the first handle of the budget; characteristics and descriptors are
// carved out of the remainder in declaration order, giving the standard
// GATT database layout on the air.
func (s *Stack) CreateService(iface stack.Interface, uuid ble.UUID, primary bool, numHandles uint16) error {
	if numHandles == 0 {
		return fmt.Errorf("sim: service %s declared with an empty handle budget", uuid)
	}
	s.mu.Lock()
	h := s.nextHandle
	s.nextHandle += numHandles
	svc := &service{
		handle:  h,
		end:     h + numHandles,
		next:    h + 1,
		iface:   iface,
		uuid:    uuid,
		primary: primary,
	}
	s.services[h] = svc
	s.attrs.Set(h, &attr{
		handle:    h,
		svcHandle: h,
		kind:      kindServiceDecl,
		uuid:      uuid,
		perm:      stack.PermRead,
		control:   stack.AutoResponse,
		maxLen:    stack.MaxAttrLen,
		value:     append([]byte(nil), uuid...),
	})
	s.mu.Unlock()

	s.post(iface, stack.CreateEvent{Status: stack.StatusOK, ServiceUUID: uuid, ServiceHandle: h})
	return nil
}

// StartService implements stack.Stack.
func (s *Stack) StartService(serviceHandle uint16) error {
	s.mu.Lock()
	svc, ok := s.services[serviceHandle]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim: unknown service handle 0x%04X", serviceHandle)
	}
	svc.started = true
	iface := svc.iface
	s.mu.Unlock()

	s.post(iface, stack.StartEvent{Status: stack.StatusOK, ServiceHandle: serviceHandle})
	return nil
}

// AddCharacteristic implements stack.Stack. It allocates a declaration and
// a value attribute; the reported handle is the value attribute's.
func (s *Stack) AddCharacteristic(serviceHandle uint16, uuid ble.UUID, perm stack.Perm, prop stack.Prop, control stack.Control, value []byte, maxLen uint16) error {
	s.mu.Lock()
	svc, ok := s.services[serviceHandle]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim: unknown service handle 0x%04X", serviceHandle)
	}
	iface := svc.iface
	if svc.next+2 > svc.end {
		s.mu.Unlock()
		s.post(iface, stack.AddCharEvent{Status: stack.StatusNoResources, ServiceHandle: serviceHandle, CharUUID: uuid})
		return nil
	}
	if maxLen == 0 {
		maxLen = stack.DefaultMaxValueLen
	}
	decl := svc.next
	valueHandle := svc.next + 1
	svc.next += 2

	declValue := append([]byte{byte(prop), byte(valueHandle), byte(valueHandle >> 8)}, uuid...)
	s.attrs.Set(decl, &attr{
		handle:    decl,
		svcHandle: serviceHandle,
		kind:      kindCharDecl,
		perm:      stack.PermRead,
		control:   stack.AutoResponse,
		maxLen:    stack.MaxAttrLen,
		value:     declValue,
	})
	s.attrs.Set(valueHandle, &attr{
		handle:    valueHandle,
		svcHandle: serviceHandle,
		kind:      kindCharValue,
		uuid:      uuid,
		perm:      perm,
		prop:      prop,
		control:   control,
		maxLen:    maxLen,
		value:     append([]byte(nil), value...),
	})
	s.mu.Unlock()

	s.post(iface, stack.AddCharEvent{Status: stack.StatusOK, ServiceHandle: serviceHandle, AttrHandle: valueHandle, CharUUID: uuid})
	return nil
}

// AddDescriptor implements stack.Stack. The descriptor is appended after
// the most recently added characteristic.
func (s *Stack) AddDescriptor(serviceHandle uint16, uuid ble.UUID, perm stack.Perm, control stack.Control, value []byte) error {
	s.mu.Lock()
	svc, ok := s.services[serviceHandle]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim: unknown service handle 0x%04X", serviceHandle)
	}
	iface := svc.iface
	if svc.next+1 > svc.end {
		s.mu.Unlock()
		s.post(iface, stack.AddDescEvent{Status: stack.StatusNoResources, ServiceHandle: serviceHandle, DescUUID: uuid})
		return nil
	}
	h := svc.next
	svc.next++
	s.attrs.Set(h, &attr{
		handle:    h,
		svcHandle: serviceHandle,
		kind:      kindDescriptor,
		uuid:      uuid,
		perm:      perm,
		control:   control,
		maxLen:    stack.MaxAttrLen,
		value:     append([]byte(nil), value...),
	})
	s.mu.Unlock()

	s.post(iface, stack.AddDescEvent{Status: stack.StatusOK, ServiceHandle: serviceHandle, AttrHandle: h, DescUUID: uuid})
	return nil
}

// SetAttrValue implements stack.Stack.
func (s *Stack) SetAttrValue(attrHandle uint16, value []byte) error {
	s.mu.Lock()
	a, ok := s.attrs.Get(attrHandle)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim: unknown attribute handle 0x%04X", attrHandle)
	}
	a.value = append([]byte(nil), value...)
	svcHandle := a.svcHandle
	iface := s.services[svcHandle].iface
	s.mu.Unlock()

	s.post(iface, stack.SetAttrValEvent{Status: stack.StatusOK, ServiceHandle: svcHandle, AttrHandle: attrHandle})
	return nil
}

// SendResponse implements stack.Stack.
func (s *Stack) SendResponse(iface stack.Interface, connID uint16, transID uint32, status stack.Status, rsp *stack.AttrValue) error {
	s.mu.Lock()
	s.responses = append(s.responses, Response{ConnID: connID, TransID: transID, Status: status, Attr: *rsp})
	s.mu.Unlock()

	s.post(iface, stack.ResponseEvent{Status: status, ConnID: connID, Handle: rsp.Handle})
	return nil
}

// SendIndicate implements stack.Stack.
func (s *Stack) SendIndicate(iface stack.Interface, connID uint16, attrHandle uint16, value []byte, needConfirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connID]
	if !ok {
		return fmt.Errorf("sim: unknown connection id %d", connID)
	}
	c.inbox = append(c.inbox, Frame{
		Handle:  attrHandle,
		Value:   append([]byte(nil), value...),
		Confirm: needConfirm,
	})
	return nil
}

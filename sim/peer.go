package sim

import (
	"fmt"

	"github.com/XC-/bluedroid/stack"
)

// The peer-side API drives the stack the way a connected central would:
// connect, exchange MTU, read and write attributes, and collect the frames
// pushed by the server. Calls are synchronous; because event dispatch is
// serial and re-entrant posts are drained before the outermost post
// returns, a Read or Write observes the server's full reaction before
// returning, so tests need no sleeps or polling.

// Connect establishes a connection from peer. It fails unless the stack is
// advertising. The simulated controller is multi-link and keeps
// advertising after a connection, so several peers can be active at once.
func (s *Stack) Connect(peer stack.Addr) (uint16, error) {
	s.mu.Lock()
	if !s.advertising {
		s.mu.Unlock()
		return 0, fmt.Errorf("sim: not advertising, connection from %s refused", peer)
	}
	id := s.nextConnID
	s.nextConnID++
	s.conns[id] = &conn{id: id, peer: peer, mtu: 23}
	iface := s.firstIface
	s.mu.Unlock()

	s.post(iface, stack.ConnectEvent{ConnID: id, Peer: peer})
	return id, nil
}

// Disconnect drops the connection with the given reason code.
func (s *Stack) Disconnect(connID uint16, reason uint8) error {
	s.mu.Lock()
	c, ok := s.conns[connID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim: unknown connection id %d", connID)
	}
	delete(s.conns, connID)
	iface := s.firstIface
	s.mu.Unlock()

	s.post(iface, stack.DisconnectEvent{ConnID: connID, Peer: c.peer, Reason: reason})
	return nil
}

// ExchangeMTU negotiates a new MTU on the connection.
func (s *Stack) ExchangeMTU(connID uint16, mtu uint16) error {
	s.mu.Lock()
	c, ok := s.conns[connID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sim: unknown connection id %d", connID)
	}
	c.mtu = mtu
	iface := s.firstIface
	s.mu.Unlock()

	s.post(iface, stack.MtuEvent{ConnID: connID, MTU: mtu})
	return nil
}

// Read performs an ATT read of the attribute at handle. Auto-respond
// attributes are answered from the internal store; application-controlled
// attributes are answered by whatever response the server sends while the
// read event is dispatched.
func (s *Stack) Read(connID uint16, handle uint16) ([]byte, stack.Status) {
	s.mu.Lock()
	c, ok := s.conns[connID]
	if !ok {
		s.mu.Unlock()
		return nil, stack.StatusError
	}
	peer := c.peer
	a, known := s.attrs.Get(handle)
	if known && !a.perm.Readable() {
		s.mu.Unlock()
		return nil, stack.StatusReadNotPermit
	}
	var iface stack.Interface
	if known {
		iface = s.services[a.svcHandle].iface
	} else {
		iface = s.firstIface
	}
	trans := s.nextTrans
	s.nextTrans++
	base := len(s.responses)
	needRsp := !known || a.control == stack.RespondByApp
	s.mu.Unlock()

	s.post(iface, stack.ReadEvent{
		ConnID:  connID,
		TransID: trans,
		Peer:    peer,
		Handle:  handle,
		NeedRsp: needRsp,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if known && a.control == stack.AutoResponse {
		return append([]byte(nil), a.value...), stack.StatusOK
	}
	if r, found := s.findResponse(base, connID, trans); found {
		return append([]byte(nil), r.Attr.Bytes()...), r.Status
	}
	return nil, stack.StatusInvalidHandle
}

// Write performs an ATT write of value to the attribute at handle. With
// needRsp false it behaves as a write command: the status only reflects
// stack-side rejection, never an application response.
func (s *Stack) Write(connID uint16, handle uint16, value []byte, needRsp bool) stack.Status {
	s.mu.Lock()
	c, ok := s.conns[connID]
	if !ok {
		s.mu.Unlock()
		return stack.StatusError
	}
	peer := c.peer
	a, known := s.attrs.Get(handle)
	if known {
		if !a.perm.Writable() {
			s.mu.Unlock()
			return stack.StatusWriteNotPermit
		}
		if a.control == stack.AutoResponse {
			if len(value) > int(a.maxLen) {
				s.mu.Unlock()
				return stack.StatusInvalidAttrLen
			}
			a.value = append([]byte(nil), value...)
		}
	}
	var iface stack.Interface
	if known {
		iface = s.services[a.svcHandle].iface
	} else {
		iface = s.firstIface
	}
	var trans uint32
	if needRsp {
		trans = s.nextTrans
		s.nextTrans++
	}
	base := len(s.responses)
	s.mu.Unlock()

	s.post(iface, stack.WriteEvent{
		ConnID:  connID,
		TransID: trans,
		Peer:    peer,
		Handle:  handle,
		NeedRsp: needRsp,
		Value:   append([]byte(nil), value...),
	})

	if !needRsp {
		return stack.StatusOK
	}

	if known && a.control == stack.AutoResponse {
		// The stack acknowledges writes to its own store.
		s.mu.Lock()
		s.responses = append(s.responses, Response{
			ConnID:  connID,
			TransID: trans,
			Status:  stack.StatusOK,
			Attr:    stack.AttrValue{Handle: handle},
		})
		s.mu.Unlock()
		s.post(iface, stack.ResponseEvent{Status: stack.StatusOK, ConnID: connID, Handle: handle})
		return stack.StatusOK
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, found := s.findResponse(base, connID, trans); found {
		return r.Status
	}
	return stack.StatusInvalidHandle
}

// Inbox returns a copy of the notify/indicate frames delivered to the
// connection so far, in delivery order.
func (s *Stack) Inbox(connID uint16) []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connID]
	if !ok {
		return nil
	}
	return append([]Frame(nil), c.inbox...)
}

// Responses returns a copy of every response the server has sent.
func (s *Stack) Responses() []Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Response(nil), s.responses...)
}

// Advertising reports whether the stack is currently advertising.
func (s *Stack) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

// DeviceName returns the configured GAP device name.
func (s *Stack) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceName
}

// DeviceNameCalls returns how many times the device name was configured.
func (s *Stack) DeviceNameCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceNameCalls
}

// AdvConfigs returns a copy of every advertising payload configured so
// far, in call order.
func (s *Stack) AdvConfigs() []stack.AdvData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stack.AdvData(nil), s.advConfigs...)
}

// AdvStarts returns how many times advertising was (re)started.
func (s *Stack) AdvStarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advStarts
}

// Handles returns every allocated attribute handle in allocation order.
func (s *Stack) Handles() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	hs := make([]uint16, 0, s.attrs.Len())
	for p := s.attrs.Oldest(); p != nil; p = p.Next() {
		hs = append(hs, p.Key)
	}
	return hs
}

// findResponse scans responses recorded at or after base for one matching
// the connection and transaction. Caller holds s.mu.
func (s *Stack) findResponse(base int, connID uint16, transID uint32) (Response, bool) {
	for _, r := range s.responses[base:] {
		if r.ConnID == connID && r.TransID == transID {
			return r, true
		}
	}
	return Response{}, false
}

package bluedroid

import (
	"github.com/sirupsen/logrus"

	"github.com/XC-/bluedroid/stack"
)

// handleEvent is the stack's single dispatch point. It runs on the stack
// task; events arrive serially and in order, so no locking happens between
// events. Connection lifecycle events are handled globally and not
// propagated to profiles; everything else is routed within the profile
// owning the event's interface.
func (s *Server) handleEvent(iface stack.Interface, evt stack.Event) {
	switch e := evt.(type) {
	case stack.ConnectEvent:
		s.onConnect(e)
	case stack.DisconnectEvent:
		s.onDisconnect(e)
	case stack.MtuEvent:
		s.onMtu(e)
	case stack.ResponseEvent:
		s.log.WithFields(logrus.Fields{"handle": e.Handle, "status": e.Status}).Debug("response sent")
	case stack.RegisterEvent:
		s.onRegister(iface, e)
	case stack.CreateEvent:
		s.onCreate(iface, e)
	case stack.StartEvent:
		s.onStart(iface, e)
	case stack.AddCharEvent:
		s.onAddChar(iface, e)
	case stack.AddDescEvent:
		s.onAddDesc(iface, e)
	case stack.ReadEvent:
		s.onRead(iface, e)
	case stack.WriteEvent:
		s.onWrite(iface, e)
	case stack.SetAttrValEvent:
		s.onSetAttrVal(iface, e)
	}
}

func (s *Server) onConnect(e stack.ConnectEvent) {
	s.log.WithField("peer", e.Peer.String()).Info("GATT client connected")
	s.conns.add(&Connection{Peer: e.Peer, ID: e.ConnID})
}

func (s *Server) onDisconnect(e stack.DisconnectEvent) {
	s.log.WithField("peer", e.Peer.String()).Info("GATT client disconnected")
	s.conns.remove(e.Peer)
	if err := s.st.StartAdvertising(&s.advParams); err != nil {
		s.log.WithError(err).Warn("cannot restart advertising")
	}
}

func (s *Server) onMtu(e stack.MtuEvent) {
	s.log.WithFields(logrus.Fields{"conn_id": e.ConnID, "mtu": e.MTU}).Debug("MTU changed")
	if c := s.conns.byID(e.ConnID); c != nil {
		c.MTU = e.MTU
	}
}

func (s *Server) onRead(iface stack.Interface, e stack.ReadEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		s.log.WithField("interface", iface).Warn("read event for unknown interface")
		return
	}
	req := Request{
		Peer:         e.Peer,
		ConnID:       e.ConnID,
		TransID:      e.TransID,
		Handle:       e.Handle,
		Offset:       e.Offset,
		NeedResponse: e.NeedRsp,
	}
	for _, svc := range profile.services {
		if c := svc.charByHandle(e.Handle); c != nil {
			s.log.WithField("char", c.String()).Debug("read request")
			if c.control() == stack.RespondByApp {
				s.sendValue(iface, e.ConnID, e.TransID, e.Handle, c.onRead(req))
			}
			return
		}
		if d := svc.descByHandle(e.Handle); d != nil {
			s.log.WithField("desc", d.String()).Debug("read request")
			if d.control() == stack.RespondByApp {
				s.sendValue(iface, e.ConnID, e.TransID, e.Handle, d.onRead(req))
			}
			return
		}
	}
	s.log.WithField("handle", e.Handle).Warn("read event for unknown attribute handle")
}

func (s *Server) onWrite(iface stack.Interface, e stack.WriteEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		s.log.WithField("interface", iface).Warn("write event for unknown interface")
		return
	}
	req := Request{
		Peer:         e.Peer,
		ConnID:       e.ConnID,
		TransID:      e.TransID,
		Handle:       e.Handle,
		Offset:       e.Offset,
		NeedResponse: e.NeedRsp,
	}
	for _, svc := range profile.services {
		if c := svc.charByHandle(e.Handle); c != nil {
			s.log.WithFields(logrus.Fields{"char": c.String(), "len": len(e.Value)}).Debug("write request")
			if len(e.Value) > int(c.maxLen) {
				s.log.WithFields(logrus.Fields{"char": c.String(), "len": len(e.Value), "max": c.maxLen}).Warn("write exceeds maximum value length")
				if e.NeedRsp {
					s.sendStatus(iface, e.ConnID, e.TransID, e.Handle, stack.StatusInvalidAttrLen)
				}
				return
			}
			if c.onWrite != nil {
				c.onWrite(e.Value, req)
			}
			if e.NeedRsp && c.control() == stack.RespondByApp {
				s.sendValue(iface, e.ConnID, e.TransID, e.Handle, c.onRead(req))
			}
			return
		}
		if d := svc.descByHandle(e.Handle); d != nil {
			s.log.WithFields(logrus.Fields{"desc": d.String(), "len": len(e.Value)}).Debug("write request")
			if d.onWrite != nil {
				d.onWrite(e.Value, req)
			}
			if e.NeedRsp && d.control() == stack.RespondByApp {
				s.sendValue(iface, e.ConnID, e.TransID, e.Handle, d.onRead(req))
			}
			return
		}
	}
	s.log.WithField("handle", e.Handle).Warn("write event for unknown attribute handle")
}

func (s *Server) onSetAttrVal(iface stack.Interface, e stack.SetAttrValEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		s.log.WithField("interface", iface).Warn("set attribute value event for unknown interface")
		return
	}
	svc := profile.svcByHandle(e.ServiceHandle)
	if svc == nil {
		s.log.WithField("handle", e.ServiceHandle).Warn("cannot find service described by handle received in set attribute value event")
		return
	}
	c := svc.charByHandle(e.AttrHandle)
	if c == nil {
		s.log.WithField("handle", e.AttrHandle).Warn("cannot find characteristic described by handle received in set attribute value event")
		return
	}
	s.log.WithField("char", c.String()).Debug("set attribute value")
	if c.prop&(stack.PropNotify|stack.PropIndicate) != 0 {
		s.fanOut(iface, c, e.AttrHandle)
	}
}

// sendValue answers a request with the given bytes, left-padded into the
// stack's fixed-size response structure. The length field carries the
// significant byte count.
func (s *Server) sendValue(iface stack.Interface, connID uint16, transID uint32, handle uint16, value []byte) {
	if len(value) > stack.MaxAttrLen {
		value = value[:stack.MaxAttrLen]
	}
	rsp := &stack.AttrValue{Handle: handle, Len: uint16(len(value))}
	copy(rsp.Value[:], value)
	if err := s.st.SendResponse(iface, connID, transID, stack.StatusOK, rsp); err != nil {
		s.log.WithError(err).Warn("cannot send response")
	}
}

func (s *Server) sendStatus(iface stack.Interface, connID uint16, transID uint32, handle uint16, status stack.Status) {
	rsp := &stack.AttrValue{Handle: handle}
	if err := s.st.SendResponse(iface, connID, transID, status, rsp); err != nil {
		s.log.WithError(err).Warn("cannot send response")
	}
}

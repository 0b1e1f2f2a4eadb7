package bluedroid

import (
	"github.com/sirupsen/logrus"

	"github.com/XC-/bluedroid/stack"
)

// The registration driver walks the declarative tree through the stack's
// four-phase asynchronous registration protocol. It exposes no operations;
// it is advanced entirely by the events handled below, on the stack task.
//
// Lookups are by UUID within the parent container located through the
// stack-supplied service handle, never globally. That is what
// disambiguates recurring descriptor UUIDs such as the 0x2902 CCCD.
//
// A non-OK status on a registration event abandons that subtree and the
// driver continues with its siblings. A received handle that matches no
// declared record is a programmer error (or stack misbehavior) and panics.

func (s *Server) onRegister(iface stack.Interface, e stack.RegisterEvent) {
	if e.Status != stack.StatusOK {
		s.log.WithFields(logrus.Fields{"app_id": e.AppID, "status": e.Status}).Warn("profile registration failed")
		return
	}

	profile := s.profileByAppID(e.AppID)
	if profile == nil {
		s.log.WithField("app_id", e.AppID).Panic("no profile found with received application id")
	}
	profile.iface = iface
	profile.registered = true
	s.log.WithFields(logrus.Fields{"profile": profile.String(), "interface": iface}).Info("profile registered")

	// The first successful registration configures the device name and the
	// advertising payloads, exactly once, and begins advertising.
	if !s.advConfigured {
		s.advConfigured = true
		s.must(s.st.SetDeviceName(s.deviceName), "cannot set device name")
		s.must(s.st.ConfigAdvData(&stack.AdvData{Raw: s.advData}), "cannot configure advertising data")
		s.must(s.st.ConfigAdvData(&stack.AdvData{ScanRsp: true, Raw: s.scanRsp}), "cannot configure scan response data")
		s.must(s.st.StartAdvertising(&s.advParams), "cannot start advertising")
	}

	for _, svc := range profile.services {
		s.must(s.st.CreateService(iface, svc.uuid, svc.primary, svc.numHandles()), "cannot create service")
	}
}

func (s *Server) onCreate(iface stack.Interface, e stack.CreateEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		s.log.WithField("interface", iface).Warn("create event for unknown interface")
		return
	}
	svc := profile.findUncreatedSvc(e.ServiceUUID)
	if svc == nil {
		s.log.WithField("uuid", e.ServiceUUID.String()).Panic("cannot find service described by received UUID")
	}
	if e.Status != stack.StatusOK {
		s.log.WithFields(logrus.Fields{"service": svc.String(), "status": e.Status}).Warn("service registration failed")
		return
	}
	svc.handle = e.ServiceHandle
	svc.created = true
	s.log.WithFields(logrus.Fields{"service": svc.String(), "handle": svc.handle}).Info("service registered")

	s.must(s.st.StartService(svc.handle), "cannot start service")

	for _, c := range svc.chars {
		var initial []byte
		if c.control() == stack.AutoResponse {
			initial = c.Value()
		}
		s.must(s.st.AddCharacteristic(svc.handle, c.uuid, c.perm, c.prop, c.control(), initial, c.maxLen), "cannot add characteristic")
	}
}

func (s *Server) onStart(iface stack.Interface, e stack.StartEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		return
	}
	svc := profile.svcByHandle(e.ServiceHandle)
	if svc == nil {
		s.log.WithField("handle", e.ServiceHandle).Panic("cannot find service described by received handle")
	}
	if e.Status != stack.StatusOK {
		s.log.WithField("service", svc.String()).Warn("service failed to start")
		return
	}
	svc.started = true
	s.log.WithField("service", svc.String()).Debug("service started")
}

func (s *Server) onAddChar(iface stack.Interface, e stack.AddCharEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		return
	}
	svc := profile.svcByHandle(e.ServiceHandle)
	if svc == nil {
		s.log.WithField("handle", e.ServiceHandle).Warn("cannot find service described by handle received in characteristic creation event")
		return
	}
	c := svc.findChar(e.CharUUID)
	if c == nil {
		s.log.WithField("uuid", e.CharUUID.String()).Panic("cannot find characteristic described by received UUID")
	}
	if e.Status != stack.StatusOK {
		s.log.WithFields(logrus.Fields{"char": c.String(), "status": e.Status}).Warn("characteristic registration failed")
		return
	}
	c.state.bind(s, svc.handle, e.AttrHandle)
	s.log.WithFields(logrus.Fields{"char": c.String(), "handle": e.AttrHandle}).Info("characteristic registered")

	for _, d := range c.descs {
		var value []byte
		if d.control() == stack.AutoResponse {
			value = d.Value()
		}
		s.must(s.st.AddDescriptor(svc.handle, d.uuid, d.perm, d.control(), value), "cannot add descriptor")
	}
}

func (s *Server) onAddDesc(iface stack.Interface, e stack.AddDescEvent) {
	profile := s.profileByIface(iface)
	if profile == nil {
		return
	}
	svc := profile.svcByHandle(e.ServiceHandle)
	if svc == nil {
		s.log.WithField("handle", e.ServiceHandle).Warn("cannot find service described by handle received in descriptor creation event")
		return
	}
	d := svc.findUnboundDesc(e.DescUUID)
	if d == nil {
		s.log.WithField("uuid", e.DescUUID.String()).Panic("cannot find descriptor described by received UUID")
	}
	if e.Status != stack.StatusOK {
		s.log.WithFields(logrus.Fields{"desc": d.String(), "status": e.Status}).Warn("descriptor registration failed")
		return
	}
	d.state.bind(s, svc.handle, e.AttrHandle)
	s.log.WithFields(logrus.Fields{"desc": d.String(), "handle": e.AttrHandle}).Info("descriptor registered")
}

// must logs and panics on stack call failures during registration; they
// indicate a misbehaving stack rather than a recoverable condition.
func (s *Server) must(err error, msg string) {
	if err != nil {
		s.log.WithError(err).Panic(msg)
	}
}

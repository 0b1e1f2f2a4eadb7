package bluedroid

import (
	"fmt"

	"github.com/go-ble/ble"

	"github.com/XC-/bluedroid/stack"
)

// A Profile is an application-level grouping of services, registered as a
// unit with the stack under a 16-bit application id.
type Profile struct {
	id       uint16
	name     string
	services []*Service

	// assigned by the registration driver, on the stack task
	iface      stack.Interface
	registered bool
}

// NewProfile creates a profile with the given application id.
func NewProfile(id uint16) *Profile {
	return &Profile{id: id, iface: stack.InterfaceNone}
}

// Name sets a human-readable name, used in log output.
func (p *Profile) Name(n string) *Profile {
	p.name = n
	return p
}

// Service attaches a service, cloning it into profile-owned storage. It
// panics if the profile already contains a service with the same UUID.
func (p *Profile) Service(s *Service) *Profile {
	for _, ss := range p.services {
		if ss.uuid.Equal(s.uuid) {
			panic("profile " + p.String() + " already contains a service with uuid " + s.uuid.String())
		}
	}
	p.services = append(p.services, s.clone())
	return p
}

// ID returns the application id.
func (p *Profile) ID() uint16 { return p.id }

// Services returns the profile-owned service list.
func (p *Profile) Services() []*Service { return p.services }

// Interface returns the GATT interface assigned by the stack, and whether
// registration has assigned one yet.
func (p *Profile) Interface() (stack.Interface, bool) { return p.iface, p.registered }

func (p *Profile) String() string {
	if p.name != "" {
		return fmt.Sprintf("%s (0x%04X)", p.name, p.id)
	}
	return fmt.Sprintf("profile 0x%04X", p.id)
}

func (p *Profile) finalize() error {
	for _, s := range p.services {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// svcByHandle locates a service by its assigned handle.
func (p *Profile) svcByHandle(h uint16) *Service {
	for _, s := range p.services {
		if s.created && s.handle == h {
			return s
		}
	}
	return nil
}

// findUncreatedSvc locates a declared service by UUID that has not been
// assigned a handle yet.
func (p *Profile) findUncreatedSvc(u ble.UUID) *Service {
	for _, s := range p.services {
		if !s.created && s.uuid.Equal(u) {
			return s
		}
	}
	return nil
}

// clone copies the profile's structure, including its services.
func (p *Profile) clone() *Profile {
	pp := *p
	pp.services = make([]*Service, 0, len(p.services))
	for _, s := range p.services {
		pp.services = append(pp.services, s.clone())
	}
	return &pp
}

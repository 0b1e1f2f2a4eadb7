package bluedroid

import (
	"fmt"

	"github.com/go-ble/ble"
)

// A Service is an ordered collection of characteristics. Calls to
// Characteristic must occur before the service is used by a server.
type Service struct {
	uuid    ble.UUID
	name    string
	primary bool
	chars   []*Characteristic

	// assigned by the registration driver, on the stack task
	handle  uint16
	created bool
	started bool
}

// NewService creates a secondary service with the given UUID.
func NewService(u ble.UUID) *Service {
	return &Service{uuid: u}
}

// Name sets a human-readable name, used in log output.
func (s *Service) Name(n string) *Service {
	s.name = n
	return s
}

// Primary marks the service as primary.
func (s *Service) Primary() *Service {
	s.primary = true
	return s
}

// Characteristic attaches a characteristic, cloning it into service-owned
// storage. It panics if the service already contains a characteristic with
// the same UUID.
func (s *Service) Characteristic(c *Characteristic) *Service {
	for _, cc := range s.chars {
		if cc.uuid.Equal(c.uuid) {
			panic("service " + s.String() + " already contains a characteristic with uuid " + c.uuid.String())
		}
	}
	s.chars = append(s.chars, c.clone())
	return s
}

// Characteristics returns the service-owned characteristic list.
func (s *Service) Characteristics() []*Characteristic { return s.chars }

// UUID returns the service's UUID.
func (s *Service) UUID() ble.UUID { return s.uuid }

// Handle returns the service handle assigned by the stack, and whether
// registration has assigned one yet.
func (s *Service) Handle() (uint16, bool) { return s.handle, s.created }

func (s *Service) String() string {
	if s.name != "" {
		return fmt.Sprintf("%s (%s)", s.name, s.uuid)
	}
	return s.uuid.String()
}

// numHandles is the handle budget requested from the stack: one for the
// service declaration, a declaration/value pair per characteristic, and
// one per descriptor.
func (s *Service) numHandles() uint16 {
	n := uint16(1)
	for _, c := range s.chars {
		n += 2 + uint16(len(c.descs))
	}
	return n
}

func (s *Service) finalize() error {
	if len(s.uuid) == 0 {
		return fmt.Errorf("service %q has an empty UUID", s.name)
	}
	for _, c := range s.chars {
		if err := c.finalize(); err != nil {
			return fmt.Errorf("service %s: %w", s, err)
		}
		for _, d := range c.descs {
			if err := d.finalize(); err != nil {
				return fmt.Errorf("service %s: characteristic %s: %w", s, c, err)
			}
		}
	}
	return nil
}

// findChar locates a characteristic by UUID.
func (s *Service) findChar(u ble.UUID) *Characteristic {
	for _, c := range s.chars {
		if c.uuid.Equal(u) {
			return c
		}
	}
	return nil
}

// charByHandle locates a characteristic by its value attribute handle.
func (s *Service) charByHandle(h uint16) *Characteristic {
	for _, c := range s.chars {
		if _, ch, ok := c.state.binding(); ok && ch == h {
			return c
		}
	}
	return nil
}

// descByHandle locates a descriptor by attribute handle, searching across
// all characteristics.
func (s *Service) descByHandle(h uint16) *Descriptor {
	for _, c := range s.chars {
		for _, d := range c.descs {
			if _, dh, ok := d.state.binding(); ok && dh == h {
				return d
			}
		}
	}
	return nil
}

// findUnboundDesc locates the first descriptor with the given UUID that has
// not been assigned a handle yet, searching characteristics in declaration
// order. Descriptor UUIDs recur across characteristics (every
// notify/indicate characteristic carries a 0x2902), so the search must skip
// already-registered records to land on the right one.
func (s *Service) findUnboundDesc(u ble.UUID) *Descriptor {
	for _, c := range s.chars {
		for _, d := range c.descs {
			if _, _, ok := d.state.binding(); !ok && d.uuid.Equal(u) {
				return d
			}
		}
	}
	return nil
}

// clone copies the service's structure, including its characteristics.
func (s *Service) clone() *Service {
	ss := *s
	ss.chars = make([]*Characteristic, 0, len(s.chars))
	for _, c := range s.chars {
		ss.chars = append(ss.chars, c.clone())
	}
	return &ss
}

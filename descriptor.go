package bluedroid

import (
	"fmt"

	"github.com/go-ble/ble"

	"github.com/XC-/bluedroid/stack"
)

// A Descriptor is an auxiliary attribute attached to a characteristic.
type Descriptor struct {
	uuid    ble.UUID
	name    string
	perm    stack.Perm
	onRead  ReadFunc
	onWrite WriteFunc
	state   *attrState
}

// NewDescriptor creates a descriptor with the given UUID.
func NewDescriptor(u ble.UUID) *Descriptor {
	return &Descriptor{uuid: u, state: &attrState{}}
}

// Name sets a human-readable name, used in log output.
func (d *Descriptor) Name(n string) *Descriptor {
	d.name = n
	return d
}

// Permissions sets the attribute permission bits.
func (d *Descriptor) Permissions(p stack.Perm) *Descriptor {
	d.perm = p
	return d
}

// OnRead routes read requests to f, switching the descriptor to
// application-controlled responses.
func (d *Descriptor) OnRead(f ReadFunc) *Descriptor {
	d.onRead = f
	return d
}

// OnWrite routes written bytes to f.
func (d *Descriptor) OnWrite(f WriteFunc) *Descriptor {
	d.onWrite = f
	return d
}

// SetValue sets the descriptor's stored value.
func (d *Descriptor) SetValue(v []byte) *Descriptor {
	d.state.setValue(v)
	return d
}

// Value returns a copy of the stored value.
func (d *Descriptor) Value() []byte { return d.state.valueCopy() }

// UUID returns the descriptor's UUID.
func (d *Descriptor) UUID() ble.UUID { return d.uuid }

// Handle returns the attribute handle assigned by the stack, and whether
// registration has assigned one yet.
func (d *Descriptor) Handle() (uint16, bool) {
	_, h, ok := d.state.binding()
	return h, ok
}

func (d *Descriptor) String() string {
	if d.name != "" {
		return fmt.Sprintf("%s (%s)", d.name, d.uuid)
	}
	return d.uuid.String()
}

func (d *Descriptor) control() stack.Control {
	if d.onRead != nil {
		return stack.RespondByApp
	}
	return stack.AutoResponse
}

func (d *Descriptor) finalize() error {
	if len(d.uuid) == 0 {
		return fmt.Errorf("descriptor %q has an empty UUID", d.name)
	}
	return nil
}

// clone copies the descriptor's structure; the value cell is shared with
// the original.
func (d *Descriptor) clone() *Descriptor {
	dd := *d
	return &dd
}

// UserDescription creates a 0x2901 user description descriptor carrying
// the description string as its read-only value.
//
// See Characteristic.ShowName for an easier way to attach one.
func UserDescription(description string) *Descriptor {
	return NewDescriptor(attrUserDescriptionUUID).
		Name("User Description").
		Permissions(stack.PermRead).
		SetValue([]byte(description))
}

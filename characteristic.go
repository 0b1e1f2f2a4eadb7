package bluedroid

import (
	"fmt"

	"github.com/go-ble/ble"

	"github.com/XC-/bluedroid/stack"
)

// A Characteristic is a BLE characteristic under construction or, once its
// service has been attached to a started server, a live attribute.
//
// Builder methods set one field each and return the receiver for chaining.
// Attaching the characteristic to a service clones its structure; the value
// cell stays shared, so SetValue through the original pointer keeps working
// after the server has started.
type Characteristic struct {
	uuid     ble.UUID
	name     string
	perm     stack.Perm
	prop     stack.Prop
	maxLen   uint16
	descs    []*Descriptor
	onRead   ReadFunc
	onWrite  WriteFunc
	showName bool
	state    *attrState
}

// NewCharacteristic creates a characteristic with the given UUID.
func NewCharacteristic(u ble.UUID) *Characteristic {
	return &Characteristic{uuid: u, state: &attrState{}}
}

// Name sets a human-readable name, used in log output and, together with
// ShowName, as the content of the auto-inserted user description descriptor.
func (c *Characteristic) Name(n string) *Characteristic {
	c.name = n
	return c
}

// Permissions sets the attribute permission bits.
func (c *Characteristic) Permissions(p stack.Perm) *Characteristic {
	c.perm = p
	return c
}

// Properties sets the characteristic property bits.
func (c *Characteristic) Properties(p stack.Prop) *Characteristic {
	c.prop = p
	return c
}

// MaxValueLength bounds the stored value. Writes exceeding the bound are
// rejected with an ATT invalid-attribute-length error. Defaults to the ATT
// maximum of 512 bytes.
func (c *Characteristic) MaxValueLength(n uint16) *Characteristic {
	c.maxLen = n
	return c
}

// OnRead routes read requests to f. Supplying a read callback switches the
// characteristic to application-controlled responses; without one the stack
// auto-responds from its stored value.
func (c *Characteristic) OnRead(f ReadFunc) *Characteristic {
	c.onRead = f
	return c
}

// OnWrite routes written bytes to f.
func (c *Characteristic) OnWrite(f WriteFunc) *Characteristic {
	c.onWrite = f
	return c
}

// ShowName requests an auto-inserted 0x2901 user description descriptor
// carrying the characteristic's name.
func (c *Characteristic) ShowName() *Characteristic {
	c.showName = true
	return c
}

// Descriptor attaches a descriptor, cloning it into characteristic-owned
// storage. It panics if the characteristic already contains a descriptor
// with the same UUID.
func (c *Characteristic) Descriptor(d *Descriptor) *Characteristic {
	for _, dd := range c.descs {
		if dd.uuid.Equal(d.uuid) {
			panic("characteristic " + c.String() + " already contains a descriptor with uuid " + d.uuid.String())
		}
	}
	c.descs = append(c.descs, d.clone())
	return c
}

// SetValue replaces the characteristic's value bytes. Before the server
// starts this sets the initial value; afterwards it pushes the value to the
// stack, which reports completion through a set-attribute-value event and
// triggers notification fan-out for notify/indicate characteristics.
func (c *Characteristic) SetValue(v []byte) *Characteristic {
	c.state.setValue(v)
	if srv, handle, ok := c.state.binding(); ok {
		if err := srv.st.SetAttrValue(handle, v); err != nil {
			srv.log.WithError(err).WithField("char", c.String()).Warn("cannot set attribute value")
		}
	}
	return c
}

// Value returns a copy of the current value bytes.
func (c *Characteristic) Value() []byte { return c.state.valueCopy() }

// UUID returns the characteristic's UUID.
func (c *Characteristic) UUID() ble.UUID { return c.uuid }

// Handle returns the value attribute handle assigned by the stack, and
// whether registration has assigned one yet.
func (c *Characteristic) Handle() (uint16, bool) {
	_, h, ok := c.state.binding()
	return h, ok
}

// Descriptors returns the characteristic-owned descriptor list.
func (c *Characteristic) Descriptors() []*Descriptor { return c.descs }

func (c *Characteristic) String() string {
	if c.name != "" {
		return fmt.Sprintf("%s (%s)", c.name, c.uuid)
	}
	return c.uuid.String()
}

// control derives who answers requests for this characteristic.
func (c *Characteristic) control() stack.Control {
	if c.onRead != nil {
		return stack.RespondByApp
	}
	return stack.AutoResponse
}

// finalize checks the local invariants and performs the automatic
// insertions before registration: a user description descriptor when
// requested, and a CCCD when notify or indicate is set and none was
// declared.
func (c *Characteristic) finalize() error {
	if len(c.uuid) == 0 {
		return fmt.Errorf("characteristic %q has an empty UUID", c.name)
	}
	if c.prop&stack.PropRead != 0 && !c.perm.Readable() {
		return fmt.Errorf("characteristic %s is readable by property but not by permission", c)
	}
	if c.prop&(stack.PropWrite|stack.PropWriteNR) != 0 && !c.perm.Writable() {
		return fmt.Errorf("characteristic %s is writable by property but not by permission", c)
	}
	if c.maxLen == 0 {
		c.maxLen = stack.DefaultMaxValueLen
	}
	if v := c.state.valueCopy(); len(v) > int(c.maxLen) {
		return fmt.Errorf("characteristic %s initial value exceeds maximum length %d", c, c.maxLen)
	}
	if c.showName && c.findDescriptor(attrUserDescriptionUUID) == nil {
		c.descs = append(c.descs, UserDescription(c.name))
	}
	if c.prop&(stack.PropNotify|stack.PropIndicate) != 0 && c.findDescriptor(attrClientCharCfgUUID) == nil {
		c.descs = append(c.descs, CCCD())
	}
	return nil
}

func (c *Characteristic) findDescriptor(u ble.UUID) *Descriptor {
	for _, d := range c.descs {
		if d.uuid.Equal(u) {
			return d
		}
	}
	return nil
}

// clone copies the characteristic's structure. The value cell is shared
// with the original so that post-start SetValue calls through either
// pointer affect value bytes only, never structure.
func (c *Characteristic) clone() *Characteristic {
	cc := *c
	cc.descs = make([]*Descriptor, 0, len(c.descs))
	for _, d := range c.descs {
		cc.descs = append(cc.descs, d.clone())
	}
	return &cc
}

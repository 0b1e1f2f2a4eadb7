package bluedroid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/bluedroid/stack"
)

func TestCharacteristicControlMode(t *testing.T) {
	auto := NewCharacteristic(UUID16(0x2A37)).
		Permissions(stack.PermRead).
		Properties(stack.PropRead)
	assert.Equal(t, stack.AutoResponse, auto.control())

	app := NewCharacteristic(UUID16(0x2A37)).
		Permissions(stack.PermRead).
		Properties(stack.PropRead).
		OnRead(func(req Request) []byte { return nil })
	assert.Equal(t, stack.RespondByApp, app.control())
}

func TestCharacteristicFinalizeInsertsCCCD(t *testing.T) {
	c := NewCharacteristic(UUID16(0x2A37)).
		Permissions(stack.PermRead).
		Properties(stack.PropRead | stack.PropNotify)
	require.Nil(t, c.findDescriptor(attrClientCharCfgUUID))

	require.NoError(t, c.finalize())
	assert.NotNil(t, c.findDescriptor(attrClientCharCfgUUID))

	// a second finalize must not insert a duplicate
	require.NoError(t, c.finalize())
	assert.Len(t, c.descs, 1)
}

func TestCharacteristicFinalizeInsertsUserDescription(t *testing.T) {
	c := NewCharacteristic(UUID16(0x2A37)).
		Name("Heart Rate Measurement").
		Permissions(stack.PermRead).
		Properties(stack.PropRead).
		ShowName()
	require.NoError(t, c.finalize())

	d := c.findDescriptor(attrUserDescriptionUUID)
	require.NotNil(t, d)
	assert.Equal(t, []byte("Heart Rate Measurement"), d.Value())
}

func TestCharacteristicFinalizeValidation(t *testing.T) {
	cases := []struct {
		name string
		c    *Characteristic
	}{
		{
			name: "empty UUID",
			c:    NewCharacteristic(nil),
		},
		{
			name: "readable property without permission",
			c:    NewCharacteristic(UUID16(0x2A37)).Properties(stack.PropRead),
		},
		{
			name: "writable property without permission",
			c:    NewCharacteristic(UUID16(0x2A37)).Permissions(stack.PermRead).Properties(stack.PropRead | stack.PropWrite),
		},
		{
			name: "initial value over bound",
			c: NewCharacteristic(UUID16(0x2A37)).
				Permissions(stack.PermRead).
				Properties(stack.PropRead).
				MaxValueLength(4).
				SetValue([]byte("too long")),
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.c.finalize())
		})
	}
}

func TestCharacteristicDuplicateDescriptorPanics(t *testing.T) {
	c := NewCharacteristic(UUID16(0x2A37)).
		Descriptor(UserDescription("one"))
	assert.Panics(t, func() {
		c.Descriptor(UserDescription("two"))
	})
}

func TestCharacteristicCloneSharesValueCell(t *testing.T) {
	orig := NewCharacteristic(UUID16(0x2A37)).
		Permissions(stack.PermRead).
		Properties(stack.PropRead).
		SetValue([]byte("before"))
	cl := orig.clone()

	orig.SetValue([]byte("after"))
	assert.Equal(t, []byte("after"), cl.Value())

	// structure is not shared: descriptors added to the original do not
	// appear on the clone
	orig.Descriptor(UserDescription("extra"))
	assert.Empty(t, cl.Descriptors())
}

func TestCharacteristicValueIsACopy(t *testing.T) {
	c := NewCharacteristic(UUID16(0x2A37)).SetValue([]byte("abc"))
	v := c.Value()
	v[0] = 'x'
	assert.Equal(t, []byte("abc"), c.Value())
}

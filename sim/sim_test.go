package sim

import (
	"io"
	"testing"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/bluedroid/stack"
)

func newTestStack() *Stack {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return New(l)
}

// Events posted from within a handler are delivered after it returns, in
// posting order, on the same goroutine.
func TestSerialEventDispatch(t *testing.T) {
	st := newTestStack()
	var order []string
	st.RegisterCallback(func(iface stack.Interface, evt stack.Event) {
		switch evt.(type) {
		case stack.RegisterEvent:
			order = append(order, "register")
			// re-entrant posts must not interleave
			require.NoError(t, st.CreateService(iface, ble.UUID16(0x180D), true, 4))
			order = append(order, "register done")
		case stack.CreateEvent:
			order = append(order, "create")
		}
	})

	require.NoError(t, st.RegisterApp(0x0001))
	assert.Equal(t, []string{"register", "register done", "create"}, order)
}

func TestHandleAllocation(t *testing.T) {
	st := newTestStack()
	var svcHandle, charHandle, descHandle uint16
	st.RegisterCallback(func(iface stack.Interface, evt stack.Event) {
		switch e := evt.(type) {
		case stack.CreateEvent:
			svcHandle = e.ServiceHandle
		case stack.AddCharEvent:
			charHandle = e.AttrHandle
		case stack.AddDescEvent:
			descHandle = e.AttrHandle
		}
	})

	require.NoError(t, st.RegisterApp(0x0001))
	require.NoError(t, st.CreateService(1, ble.UUID16(0x180D), true, 4))
	require.NoError(t, st.AddCharacteristic(svcHandle, ble.UUID16(0x2A37), stack.PermRead, stack.PropRead, stack.AutoResponse, nil, 0))
	require.NoError(t, st.AddDescriptor(svcHandle, ble.UUID16(0x2902), stack.PermRead|stack.PermWrite, stack.AutoResponse, []byte{0, 0}))

	// declaration at the range start, then a decl/value pair, then the
	// descriptor
	assert.Equal(t, uint16(0x0028), svcHandle)
	assert.Equal(t, svcHandle+2, charHandle)
	assert.Equal(t, svcHandle+3, descHandle)
	assert.Equal(t, []uint16{0x0028, 0x0029, 0x002A, 0x002B}, st.Handles())
}

// Additions past the declared budget complete with a no-resources status
// instead of spilling into the next service's range.
func TestHandleBudgetExhaustion(t *testing.T) {
	st := newTestStack()
	var svcHandle uint16
	var statuses []stack.Status
	st.RegisterCallback(func(iface stack.Interface, evt stack.Event) {
		switch e := evt.(type) {
		case stack.CreateEvent:
			svcHandle = e.ServiceHandle
		case stack.AddCharEvent:
			statuses = append(statuses, e.Status)
		}
	})

	require.NoError(t, st.RegisterApp(0x0001))
	require.NoError(t, st.CreateService(1, ble.UUID16(0x180D), true, 3))
	require.NoError(t, st.AddCharacteristic(svcHandle, ble.UUID16(0x2A37), stack.PermRead, stack.PropRead, stack.AutoResponse, nil, 0))
	require.NoError(t, st.AddCharacteristic(svcHandle, ble.UUID16(0x2A38), stack.PermRead, stack.PropRead, stack.AutoResponse, nil, 0))

	require.Equal(t, []stack.Status{stack.StatusOK, stack.StatusNoResources}, statuses)
	assert.Len(t, st.Handles(), 3)
}

func TestAutoRespondStore(t *testing.T) {
	st := newTestStack()
	var svcHandle, charHandle uint16
	st.RegisterCallback(func(iface stack.Interface, evt stack.Event) {
		switch e := evt.(type) {
		case stack.CreateEvent:
			svcHandle = e.ServiceHandle
		case stack.AddCharEvent:
			charHandle = e.AttrHandle
		}
	})

	require.NoError(t, st.RegisterApp(0x0001))
	require.NoError(t, st.CreateService(1, ble.UUID16(0x180D), true, 3))
	require.NoError(t, st.AddCharacteristic(svcHandle, ble.UUID16(0x2A37), stack.PermRead|stack.PermWrite, stack.PropRead|stack.PropWrite, stack.AutoResponse, []byte("seed"), 8))
	require.NoError(t, st.StartAdvertising(&stack.AdvParams{}))

	connID, err := st.Connect(stack.MustParseAddr("11:22:33:44:55:66"))
	require.NoError(t, err)

	v, status := st.Read(connID, charHandle)
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte("seed"), v)

	assert.Equal(t, stack.StatusOK, st.Write(connID, charHandle, []byte("updated"), true))
	v, _ = st.Read(connID, charHandle)
	assert.Equal(t, []byte("updated"), v)

	// the store enforces the declared bound
	assert.Equal(t, stack.StatusInvalidAttrLen, st.Write(connID, charHandle, []byte("far too long"), true))

	// permission checks happen before any event is raised
	_, status = st.Read(connID, svcHandle+1) // characteristic declaration is read-only
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, stack.StatusWriteNotPermit, st.Write(connID, svcHandle+1, []byte{0}, true))
}

func TestConnectRequiresAdvertising(t *testing.T) {
	st := newTestStack()
	st.RegisterCallback(func(stack.Interface, stack.Event) {})
	require.NoError(t, st.RegisterApp(0x0001))

	_, err := st.Connect(stack.MustParseAddr("11:22:33:44:55:66"))
	assert.Error(t, err)

	require.NoError(t, st.StartAdvertising(&stack.AdvParams{}))
	connID, err := st.Connect(stack.MustParseAddr("11:22:33:44:55:66"))
	require.NoError(t, err)

	require.NoError(t, st.Disconnect(connID, 0x13))
	_, err = st.Connect(stack.MustParseAddr("11:22:33:44:55:66"))
	assert.NoError(t, err, "advertising stays on for a multi-link controller")
}

func TestSetAttrValueEmitsEvent(t *testing.T) {
	st := newTestStack()
	var svcHandle, charHandle uint16
	var got *stack.SetAttrValEvent
	st.RegisterCallback(func(iface stack.Interface, evt stack.Event) {
		switch e := evt.(type) {
		case stack.CreateEvent:
			svcHandle = e.ServiceHandle
		case stack.AddCharEvent:
			charHandle = e.AttrHandle
		case stack.SetAttrValEvent:
			got = &e
		}
	})

	require.NoError(t, st.RegisterApp(0x0001))
	require.NoError(t, st.CreateService(1, ble.UUID16(0x180D), true, 3))
	require.NoError(t, st.AddCharacteristic(svcHandle, ble.UUID16(0x2A37), stack.PermRead, stack.PropRead|stack.PropNotify, stack.AutoResponse, nil, 0))

	require.NoError(t, st.SetAttrValue(charHandle, []byte("pushed")))
	require.NotNil(t, got)
	assert.Equal(t, stack.StatusOK, got.Status)
	assert.Equal(t, svcHandle, got.ServiceHandle)
	assert.Equal(t, charHandle, got.AttrHandle)

	assert.Error(t, st.SetAttrValue(0x7777, nil), "unknown handles are rejected")
}

package bluedroid

import (
	"io"
	"sync"
	"testing"

	"github.com/99designs/keyring"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/bluedroid/nvs"
	"github.com/XC-/bluedroid/sim"
	"github.com/XC-/bluedroid/stack"
)

var (
	testPeer      = stack.MustParseAddr("11:22:33:44:55:66")
	otherPeer     = stack.MustParseAddr("AA:BB:CC:DD:EE:FF")
	staticUUID    = MustParseUUID("d4e0e0d0-1a2b-11e9-ab14-d663bd873d93")
	notifyingUUID = MustParseUUID("a3c87500-8ed3-4bdf-8a39-a01bebede295")
	writableUUID  = MustParseUUID("3c9a3f00-8ed3-4bdf-8a39-a01bebede295")
	serviceUUID   = MustParseUUID("fafafafa-fafa-fafa-fafa-fafafafafafa")
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newMemStore() *nvs.Store {
	return nvs.NewStore(keyring.NewArrayKeyring(nil))
}

// fixture is the example attribute tree running on the simulated stack:
// a static, a notifying and a writable characteristic in one primary
// service.
type fixture struct {
	st  *sim.Stack
	srv *Server

	static    *Characteristic
	notifying *Characteristic
	writable  *Characteristic

	mu       sync.Mutex
	appValue []byte
	writes   [][]byte
}

func newFixture(t *testing.T, ring keyring.Keyring) *fixture {
	t.Helper()
	f := &fixture{appValue: []byte("Initial value")}

	f.static = NewCharacteristic(staticUUID).
		Name("Static Characteristic").
		Permissions(stack.PermRead).
		Properties(stack.PropRead).
		ShowName().
		SetValue([]byte("Hello, world!"))

	f.notifying = NewCharacteristic(notifyingUUID).
		Name("Notifying Characteristic").
		Permissions(stack.PermRead).
		Properties(stack.PropRead | stack.PropNotify).
		SetValue([]byte("Counter: 0"))

	f.writable = NewCharacteristic(writableUUID).
		Name("Writable Characteristic").
		Permissions(stack.PermRead | stack.PermWrite).
		Properties(stack.PropRead | stack.PropWrite).
		OnRead(func(req Request) []byte {
			f.mu.Lock()
			defer f.mu.Unlock()
			return append([]byte(nil), f.appValue...)
		}).
		OnWrite(func(value []byte, req Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.appValue = append([]byte(nil), value...)
			f.writes = append(f.writes, append([]byte(nil), value...))
		})

	service := NewService(serviceUUID).
		Name("Example Service").
		Primary().
		Characteristic(f.static).
		Characteristic(f.notifying).
		Characteristic(f.writable)

	f.st = sim.New(quietLogger())
	f.srv = NewServer(f.st).
		Logger(quietLogger()).
		Profile(NewProfile(0x0001).Name("Default Profile").Service(service)).
		DeviceName("GATT-Server").
		Appearance(AppearanceWristWornPulseOximeter).
		AdvertiseService(service).
		Storage(nvs.NewStore(ring))

	require.NoError(t, f.srv.Start())
	return f
}

func (f *fixture) connect(t *testing.T, peer stack.Addr) uint16 {
	t.Helper()
	id, err := f.st.Connect(peer)
	require.NoError(t, err)
	return id
}

// charHandle resolves a characteristic's value handle in the server-owned
// tree.
func (f *fixture) charHandle(t *testing.T, c *Characteristic) uint16 {
	t.Helper()
	h, ok := c.Handle()
	require.True(t, ok, "characteristic %s has no handle", c)
	return h
}

// cccdHandle resolves the CCCD handle under the notifying characteristic.
func (f *fixture) cccdHandle(t *testing.T) uint16 {
	t.Helper()
	for _, p := range f.srv.Profiles() {
		for _, svc := range p.Services() {
			for _, c := range svc.Characteristics() {
				if !c.UUID().Equal(notifyingUUID) {
					continue
				}
				if d := c.findDescriptor(attrClientCharCfgUUID); d != nil {
					h, ok := d.Handle()
					require.True(t, ok, "CCCD has no handle")
					return h
				}
			}
		}
	}
	t.Fatal("no CCCD in the tree")
	return 0
}

func TestStartValidation(t *testing.T) {
	t.Run("no profiles", func(t *testing.T) {
		srv := NewServer(sim.New(quietLogger())).Logger(quietLogger())
		assert.Error(t, srv.Start())
	})

	t.Run("CCCD without a store", func(t *testing.T) {
		nvs.SetDefault(nil)
		svc := NewService(serviceUUID).Primary().
			Characteristic(NewCharacteristic(notifyingUUID).
				Permissions(stack.PermRead).
				Properties(stack.PropRead | stack.PropNotify))
		srv := NewServer(sim.New(quietLogger())).
			Logger(quietLogger()).
			Profile(NewProfile(0x0001).Service(svc))
		assert.Error(t, srv.Start())
	})

	t.Run("double start", func(t *testing.T) {
		f := newFixture(t, keyring.NewArrayKeyring(nil))
		assert.Error(t, f.srv.Start())
	})
}

// Every attribute receives a distinct handle and every record in the tree
// ends up bound.
func TestRegistrationAssignsUniqueHandles(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))

	seen := make(map[uint16]bool)
	for _, p := range f.srv.Profiles() {
		for _, svc := range p.Services() {
			h, ok := svc.Handle()
			require.True(t, ok, "service %s has no handle", svc)
			assert.False(t, seen[h])
			seen[h] = true
			for _, c := range svc.Characteristics() {
				ch, ok := c.Handle()
				require.True(t, ok, "characteristic %s has no handle", c)
				assert.False(t, seen[ch])
				seen[ch] = true
				for _, d := range c.Descriptors() {
					dh, ok := d.Handle()
					require.True(t, ok, "descriptor %s has no handle", d)
					assert.False(t, seen[dh])
					seen[dh] = true
				}
			}
		}
	}

	// tree: 1 service, 3 characteristics, 2 descriptors (static's user
	// description, the auto-inserted CCCD)
	assert.Len(t, seen, 6)

	handles := f.st.Handles()
	unique := make(map[uint16]bool)
	for _, h := range handles {
		unique[h] = true
	}
	assert.Len(t, unique, len(handles))
}

func TestStaticCharacteristicRead(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)

	v, status := f.st.Read(connID, f.charHandle(t, f.static))
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte("Hello, world!"), v)
}

func TestWritableCharacteristicRoundTrip(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)
	h := f.charHandle(t, f.writable)

	status := f.st.Write(connID, h, []byte("new value"), true)
	assert.Equal(t, stack.StatusOK, status)

	f.mu.Lock()
	assert.Equal(t, [][]byte{[]byte("new value")}, f.writes)
	f.mu.Unlock()

	v, status := f.st.Read(connID, h)
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte("new value"), v)
}

// Responses travel in the stack's fixed-size attribute structure; only the
// first Len bytes are significant and the remainder stays zero.
func TestReadResponsePadding(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)

	_, status := f.st.Read(connID, f.charHandle(t, f.writable))
	require.Equal(t, stack.StatusOK, status)

	rr := f.st.Responses()
	require.NotEmpty(t, rr)
	last := rr[len(rr)-1]
	assert.Equal(t, stack.MaxAttrLen, len(last.Attr.Value))
	assert.Equal(t, uint16(len("Initial value")), last.Attr.Len)
	assert.Equal(t, []byte("Initial value"), last.Attr.Bytes())
	for _, b := range last.Attr.Value[last.Attr.Len:] {
		if b != 0 {
			t.Fatal("padding bytes must be zero")
		}
	}
}

func TestWriteToUnknownHandleIsIgnored(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)

	status := f.st.Write(connID, 0x7777, []byte{0x01}, false)
	assert.Equal(t, stack.StatusOK, status)

	// the server stays functional
	v, status := f.st.Read(connID, f.charHandle(t, f.static))
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte("Hello, world!"), v)
}

func TestWriteExceedingMaxLengthRejected(t *testing.T) {
	var got [][]byte
	c := NewCharacteristic(writableUUID).
		Permissions(stack.PermRead | stack.PermWrite).
		Properties(stack.PropRead | stack.PropWrite).
		MaxValueLength(8).
		OnRead(func(req Request) []byte { return []byte("fixed") }).
		OnWrite(func(value []byte, req Request) { got = append(got, value) })

	st := sim.New(quietLogger())
	srv := NewServer(st).
		Logger(quietLogger()).
		Profile(NewProfile(0x0001).Service(NewService(serviceUUID).Primary().Characteristic(c))).
		DeviceName("GATT-Server")
	require.NoError(t, srv.Start())

	h, ok := srv.Profiles()[0].Services()[0].Characteristics()[0].Handle()
	require.True(t, ok)

	id, err := st.Connect(testPeer)
	require.NoError(t, err)

	status := st.Write(id, h, []byte("way too long for the bound"), true)
	assert.Equal(t, stack.StatusInvalidAttrLen, status)
	assert.Empty(t, got, "rejected write must not reach the application")

	status = st.Write(id, h, []byte("short"), true)
	assert.Equal(t, stack.StatusOK, status)
	assert.Len(t, got, 1)
}

// Advertising and the device name are configured exactly once, on the
// first successful profile registration, even with multiple profiles.
func TestAdvertisingConfiguredOnce(t *testing.T) {
	st := sim.New(quietLogger())
	srv := NewServer(st).
		Logger(quietLogger()).
		Profile(NewProfile(0x0001).Service(NewService(serviceUUID).Primary().
			Characteristic(NewCharacteristic(staticUUID).
				Permissions(stack.PermRead).
				Properties(stack.PropRead)))).
		Profile(NewProfile(0x0002).Service(NewService(UUID16(0x180D)).Primary().
			Characteristic(NewCharacteristic(UUID16(0x2A37)).
				Permissions(stack.PermRead).
				Properties(stack.PropRead)))).
		DeviceName("GATT-Server")
	require.NoError(t, srv.Start())

	assert.Equal(t, 1, st.DeviceNameCalls())
	assert.Equal(t, "GATT-Server", st.DeviceName())
	assert.Equal(t, 1, st.AdvStarts())

	cfgs := st.AdvConfigs()
	require.Len(t, cfgs, 2)
	assert.False(t, cfgs[0].ScanRsp)
	assert.True(t, cfgs[1].ScanRsp)
}

func TestDisconnectRestartsAdvertising(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)
	require.Len(t, f.srv.Connections(), 1)
	starts := f.st.AdvStarts()

	require.NoError(t, f.st.Disconnect(connID, 0x13))

	assert.Empty(t, f.srv.Connections())
	assert.True(t, f.st.Advertising())
	assert.Equal(t, starts+1, f.st.AdvStarts())

	// a fresh peer can connect again
	f.connect(t, otherPeer)
	assert.Len(t, f.srv.Connections(), 1)
}

func TestConnectionTableTracksMTU(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)

	require.NoError(t, f.st.ExchangeMTU(connID, 185))

	conns := f.srv.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, testPeer, conns[0].Peer)
	assert.Equal(t, uint16(185), conns[0].MTU)
}

// SetValue through the application's original pointer keeps working after
// the tree has been cloned into the server and registered.
func TestSetValueAfterStart(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)
	h := f.charHandle(t, f.static)

	f.static.SetValue([]byte("updated"))

	v, status := f.st.Read(connID, h)
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte("updated"), v)
}

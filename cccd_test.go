package bluedroid

import (
	"fmt"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/bluedroid/stack"
)

func TestCCCDKeyFormat(t *testing.T) {
	// the first two address bytes are not part of the key
	assert.Equal(t, "33445566-002B", cccdKey(testPeer, 0x002B))
	assert.Equal(t, "CCDDEEFF-0001", cccdKey(otherPeer, 0x0001))
}

// A peer that never wrote its CCCD reads back the unsubscribed value.
func TestCCCDReadDefault(t *testing.T) {
	f := newFixture(t, keyring.NewArrayKeyring(nil))
	connID := f.connect(t, testPeer)

	v, status := f.st.Read(connID, f.cccdHandle(t))
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte{0x00, 0x00}, v)
}

func TestCCCDWritePersistsPerPeer(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	f := newFixture(t, ring)
	connID := f.connect(t, testPeer)
	cccd := f.cccdHandle(t)

	status := f.st.Write(connID, cccd, []byte{0x01, 0x00}, true)
	require.Equal(t, stack.StatusOK, status)

	item, err := ring.Get(fmt.Sprintf("33445566-%04X", cccd))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, item.Data)

	v, status := f.st.Read(connID, cccd)
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte{0x01, 0x00}, v)

	// another peer still reads the unsubscribed default
	other := f.connect(t, otherPeer)
	v, status = f.st.Read(other, cccd)
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte{0x00, 0x00}, v)
}

// Subscription state outlives the process: a second server built on the
// same storage sees the CCCD contents written before the restart.
func TestCCCDSurvivesReboot(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)

	f1 := newFixture(t, ring)
	connID := f1.connect(t, testPeer)
	cccd := f1.cccdHandle(t)
	require.Equal(t, stack.StatusOK, f1.st.Write(connID, cccd, []byte{0x01, 0x00}, true))

	f2 := newFixture(t, ring)
	connID = f2.connect(t, testPeer)
	require.Equal(t, cccd, f2.cccdHandle(t), "handle numbering must be stable across restarts")

	v, status := f2.st.Read(connID, cccd)
	assert.Equal(t, stack.StatusOK, status)
	assert.Equal(t, []byte{0x01, 0x00}, v)
}

package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	a, err := ParseAddr("11:22:33:44:55:66")
	require.NoError(t, err)
	assert.Equal(t, Addr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, a)
	assert.Equal(t, "11:22:33:44:55:66", a.String())

	// lowercase input, uppercase output
	a, err = ParseAddr("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", a.String())
}

func TestParseAddrInvalid(t *testing.T) {
	for _, s := range []string{"", "11:22:33:44:55", "11:22:33:44:55:66:77", "zz:22:33:44:55:66"} {
		_, err := ParseAddr(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestMustParseAddrPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseAddr("not an address") })
}

func TestAttrValueBytes(t *testing.T) {
	v := &AttrValue{Handle: 0x002A, Len: 3}
	copy(v.Value[:], "abcdef")
	assert.Equal(t, []byte("abc"), v.Bytes())
}

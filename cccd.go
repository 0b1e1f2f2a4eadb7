package bluedroid

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/XC-/bluedroid/nvs"
	"github.com/XC-/bluedroid/stack"
)

// cccdKey derives the storage key for a peer's CCCD contents from the peer
// address and the descriptor's attribute handle.
//
// The first two address bytes are intentionally omitted for compatibility
// with the historical key layout. Peers whose lower four address bytes
// collide share a key; a versioned key format would fix this at the cost of
// orphaning state persisted by earlier firmware.
func cccdKey(peer stack.Addr, handle uint16) string {
	return fmt.Sprintf("%02X%02X%02X%02X-%04X", peer[2], peer[3], peer[4], peer[5], handle)
}

// CCCD creates a 0x2902 client characteristic configuration descriptor.
//
// The two configuration bytes are persisted per peer in the process-wide
// non-volatile store and therefore survive reboots. A peer that has never
// written its CCCD reads back [0x00, 0x00].
//
// The server's Start verifies that a store has been installed (see
// nvs.SetDefault and Server.Storage) before a tree containing a CCCD is
// registered. A storage I/O failure at event time indicates hardware
// misconfiguration and aborts.
func CCCD() *Descriptor {
	return NewDescriptor(attrClientCharCfgUUID).
		Name("Client Characteristic Configuration").
		Permissions(stack.PermRead|stack.PermWrite).
		OnRead(func(req Request) []byte {
			store := nvs.Default()
			if store == nil {
				logrus.Panic("no NVS store configured for CCCD read")
			}
			key := cccdKey(req.Peer, req.Handle)
			value, ok, err := store.Get(key)
			if err != nil {
				logrus.WithError(err).Panic("cannot read CCCD value from NVS")
			}
			if !ok {
				logrus.WithField("key", key).Debug("no CCCD value found")
				return []byte{0x00, 0x00}
			}
			logrus.WithFields(logrus.Fields{"key": key, "value": value}).Debug("read CCCD value")
			return value
		}).
		OnWrite(func(value []byte, req Request) {
			store := nvs.Default()
			if store == nil {
				logrus.Panic("no NVS store configured for CCCD write")
			}
			key := cccdKey(req.Peer, req.Handle)
			logrus.WithFields(logrus.Fields{"key": key, "value": value}).Debug("write CCCD value")
			if err := store.Put(key, value); err != nil {
				logrus.WithError(err).Panic("cannot write CCCD value to NVS")
			}
		})
}

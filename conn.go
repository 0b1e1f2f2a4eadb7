package bluedroid

import (
	"github.com/cornelk/hashmap"

	"github.com/XC-/bluedroid/stack"
)

// A Connection is an active central connection, keyed by the peer's
// Bluetooth device address.
type Connection struct {
	Peer stack.Addr
	ID   uint16
	MTU  uint16
}

// connTable tracks active connections. Insertions and removals happen on
// the stack task; the application may observe the table concurrently, so
// it is backed by a lock-free map.
type connTable struct {
	m *hashmap.Map[string, *Connection]
}

func newConnTable() *connTable {
	return &connTable{m: hashmap.New[string, *Connection]()}
}

func (t *connTable) add(c *Connection) {
	t.m.Set(c.Peer.String(), c)
}

func (t *connTable) remove(peer stack.Addr) {
	t.m.Del(peer.String())
}

func (t *connTable) byID(id uint16) *Connection {
	var found *Connection
	t.m.Range(func(_ string, c *Connection) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// snapshot clones the connection set so disconnects may mutate the table
// while a fan-out over the snapshot is in progress.
func (t *connTable) snapshot() []*Connection {
	conns := make([]*Connection, 0, t.m.Len())
	t.m.Range(func(_ string, c *Connection) bool {
		conns = append(conns, c)
		return true
	})
	return conns
}

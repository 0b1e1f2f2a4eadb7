package bluedroid

import (
	"github.com/sirupsen/logrus"

	"github.com/XC-/bluedroid/stack"
)

// fanOut pushes a characteristic's current value to every active
// connection. Indicate takes precedence over notify when both property
// bits are set. The connection set is snapshotted first so a disconnect
// arriving mid-delivery cannot mutate the set under the loop.
//
// Fan-out goes to all active connections; the stack suppresses delivery to
// peers whose CCCD does not enable the relevant bit. Frames for a single
// characteristic are queued in the order the set-value events were
// observed.
func (s *Server) fanOut(iface stack.Interface, c *Characteristic, attrHandle uint16) {
	value := c.Value()
	indicate := c.prop&stack.PropIndicate != 0
	for _, conn := range s.conns.snapshot() {
		err := s.st.SendIndicate(iface, conn.ID, attrHandle, value, indicate)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"char": c.String(),
				"peer": conn.Peer.String(),
			}).Warn("cannot send value update")
		}
	}
}

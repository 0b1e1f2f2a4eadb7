package bluedroid

import (
	"sync"

	"github.com/XC-/bluedroid/stack"
)

// A Request is the context of an inbound read or write, translated from
// the vendor stack's parameter struct at the router boundary.
type Request struct {
	Peer         stack.Addr
	ConnID       uint16
	TransID      uint32
	Handle       uint16
	Offset       uint16
	NeedResponse bool
}

// ReadFunc supplies an attribute's value in response to a read request.
// It runs on the stack task and must return quickly without blocking.
type ReadFunc func(req Request) []byte

// WriteFunc observes bytes written to an attribute.
// It runs on the stack task and must return quickly without blocking.
type WriteFunc func(value []byte, req Request)

// attrState is the mutable half of a characteristic or descriptor. The
// structural fields of an attribute are cloned when it is attached to a
// parent; the state cell is shared between the clone and the original, so
// the application can keep its original pointer and update the value after
// the tree has been frozen. Handles, once assigned, never change.
type attrState struct {
	mu        sync.Mutex
	value     []byte
	handle    uint16
	svcHandle uint16
	srv       *Server
	bound     bool
}

func (st *attrState) setValue(v []byte) {
	st.mu.Lock()
	st.value = append(st.value[:0:0], v...)
	st.mu.Unlock()
}

func (st *attrState) valueCopy() []byte {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]byte(nil), st.value...)
}

// bind records the handle the stack assigned during registration and the
// server owning the attribute from now on. Called once, on the stack task.
func (st *attrState) bind(srv *Server, svcHandle, handle uint16) {
	st.mu.Lock()
	st.srv = srv
	st.svcHandle = svcHandle
	st.handle = handle
	st.bound = true
	st.mu.Unlock()
}

func (st *attrState) binding() (srv *Server, handle uint16, ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.srv, st.handle, st.bound
}

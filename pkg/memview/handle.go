package memview

import "sync/atomic"

// Handle keeps a materialized buffer alive. Bytes guarded by a handle must not be read after
// the last reference is released.
//
// A nil *Handle is valid and stands for memory whose lifetime is managed elsewhere.
type Handle struct {
	refs    atomic.Int64
	release func()
}

// NewHandle returns a handle holding one reference. release runs once, when the last reference is dropped.
func NewHandle(release func()) *Handle {
	h := &Handle{release: release}
	h.refs.Store(1)

	return h
}

func (h *Handle) Retain() *Handle {
	if h == nil {
		return nil
	}

	if h.refs.Add(1) <= 1 {
		panic("memview: retain of a released handle")
	}

	return h
}

func (h *Handle) Release() {
	if h == nil {
		return
	}

	refs := h.refs.Add(-1)
	if refs < 0 {
		panic("memview: handle released more times than retained")
	}

	if refs == 0 && h.release != nil {
		h.release()
	}
}

// Refs returns the number of live references. A nil handle always reports zero.
func (h *Handle) Refs() int64 {
	if h == nil {
		return 0
	}

	return h.refs.Load()
}

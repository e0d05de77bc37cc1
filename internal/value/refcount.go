package value

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Header is the reference-count bookkeeping embedded in every heap object.
// Counts are atomic: a value may be retained or released from any task that
// holds a reference.
type Header struct {
	count atomic.Int64
	freed atomic.Bool
}

// InitRefCount sets the count of a freshly allocated object to one, owned by
// the constructing caller.
func (h *Header) InitRefCount() { h.count.Store(1) }

func (h *Header) RefHeader() *Header { return h }

// RefCount returns the current count. Only meaningful for assertions; the
// value may be stale by the time the caller reads it.
func (h *Header) RefCount() int64 { return h.count.Load() }

// Freed reports whether the object has already been torn down.
func (h *Header) Freed() bool { return h.freed.Load() }

// HeapObject is any reference-counted payload a Value can own: string,
// buffer, array, record, function, task handle or channel. Closure
// environments share the same Header machinery but are not a Value kind.
type HeapObject interface {
	Kind() Kind
	Inspect() string
	RefHeader() *Header

	// Teardown releases every reference the object owns and drops its
	// backing storage. Called exactly once, by Release, when the count
	// transitions to zero. Never call it directly.
	Teardown()
}

// Retain increments the count of the heap object v owns a handle to.
// Scalar and null values are returned unchanged. The returned Value is the
// caller's new owned copy.
func Retain(v Value) Value {
	if v.ref == nil {
		return v
	}
	h := v.ref.RefHeader()
	if h.freed.Load() {
		panic(fmt.Sprintf("retain after free: %s", v.kind))
	}
	h.count.Add(1)
	return v
}

// Release decrements the count of the heap object v owns a handle to and
// tears the object down when the count reaches zero. The caller must not use
// v afterwards.
func Release(v Value) {
	if v.ref == nil {
		return
	}
	releaseObject(v.ref)
}

func releaseObject(obj HeapObject) {
	h := obj.RefHeader()
	if h.freed.Load() {
		panic(fmt.Sprintf("release after free: %s", obj.Kind()))
	}
	n := h.count.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic(fmt.Sprintf("over-release: %s count went negative", obj.Kind()))
	}
	// The tombstone goes up before teardown so that any alias reached
	// during recursive release trips the use-after-free panic instead of
	// resurrecting the object.
	h.freed.Store(true)
	slog.Debug("freeing heap object",
		slog.String("kind", obj.Kind().String()))
	obj.Teardown()
}

package value

import "log/slog"

// Env is a closure environment: a fixed-length array of captured values,
// indexed by the slot numbers the compiler or evaluator assigned. Several
// function values and tasks may share one environment; its count is
// independent of the values it captures.
type Env struct {
	Header
	slots []Value
}

// NewEnv allocates a null-filled environment with slotCount slots and a
// count of one.
func NewEnv(slotCount int) *Env {
	slog.Debug("new closure environment",
		slog.Int("slots", slotCount))
	env := &Env{slots: make([]Value, slotCount)}
	env.InitRefCount()
	return env
}

func (e *Env) Len() int { return len(e.slots) }

// Retain increments the environment's own count and returns e for chaining.
func (e *Env) Retain() *Env {
	if e.freed.Load() {
		panic("retain after free: closure environment")
	}
	e.count.Add(1)
	return e
}

// Release decrements the environment's own count; at zero every slot is
// released and the slot array is dropped.
func (e *Env) Release() {
	if e.freed.Load() {
		panic("release after free: closure environment")
	}
	n := e.count.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("over-release: closure environment count went negative")
	}
	e.freed.Store(true)
	for _, v := range e.slots {
		Release(v)
	}
	e.slots = nil
}

// Get returns a retained copy of the slot at index. Out-of-range access
// fails loudly: slot indices are compiler-assigned, so a bad index is a bug
// worth surfacing rather than masking with a silent nil.
func (e *Env) Get(index int) (Value, *RuntimeError) {
	if index < 0 || index >= len(e.slots) {
		return Null(), Errorf(OutOfRangeError, "closure slot %d out of range [0, %d)", index, len(e.slots))
	}
	return Retain(e.slots[index]), nil
}

// Set releases the previous occupant of the slot and stores a retained copy
// of v.
func (e *Env) Set(index int, v Value) *RuntimeError {
	if index < 0 || index >= len(e.slots) {
		return Errorf(OutOfRangeError, "closure slot %d out of range [0, %d)", index, len(e.slots))
	}
	old := e.slots[index]
	e.slots[index] = Retain(v)
	Release(old)
	return nil
}

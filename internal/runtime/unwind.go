package runtime

import (
	"fmt"
	"log/slog"
	"os"

	"tern/internal/value"
)

// uncaughtHandler renders an exception that reached the bottom of a context
// with no active frame. Swappable so tests can observe the path without
// killing the test process.
var uncaughtHandler = func(v value.Value) {
	fmt.Fprintf(os.Stderr, "uncaught exception: %s\n", v.Inspect())
	os.Exit(1)
}

// Frame is one entry of a context's exception stack. While armed it owns a
// reference to the in-flight exception value.
type Frame struct {
	active    bool
	armed     bool
	exception value.Value
}

type deferEntry struct {
	action value.Value
	arg    value.Value
}

// Context carries the exception and defer stacks for one flow of control.
// Every spawned task gets its own (a shared process-wide stack would let one
// task's throw land in another task's handler); the main flow of control
// creates one as well.
type Context struct {
	host   value.HostContext
	frames []*Frame
	defers []deferEntry
}

// unwindSignal is the panic payload Throw uses to transfer control to a
// frame's handler. Code between the throw site and the handler never runs.
type unwindSignal struct {
	frame *Frame
}

func NewContext(host value.HostContext) *Context {
	return &Context{host: host}
}

// PushFrame opens a new active exception frame and returns it.
func (c *Context) PushFrame() *Frame {
	frame := &Frame{active: true}
	c.frames = append(c.frames, frame)
	slog.Debug("push exception frame",
		slog.Int("depth", len(c.frames)))
	return frame
}

// PopFrame unlinks the top frame, releasing any exception it still holds.
func (c *Context) PopFrame() {
	if len(c.frames) == 0 {
		panic("exception frame stack underflow")
	}
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	if top.armed {
		value.Release(top.exception)
		top.exception = value.Null()
		top.armed = false
	}
}

// Throw transfers control to the innermost active frame, taking ownership of
// v. With no active frame the exception is uncaught: the value is rendered
// and the process terminates with a non-zero status.
func (c *Context) Throw(v value.Value) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		frame := c.frames[i]
		if !frame.active {
			continue
		}
		frame.active = false
		frame.armed = true
		frame.exception = v
		panic(unwindSignal{frame: frame})
	}
	uncaughtHandler(v)
}

// ThrowError converts a catchable runtime error into a record payload
// {kind, message} and throws it, so language-level handlers can pattern
// match on host failures.
func (c *Context) ThrowError(err *value.RuntimeError) {
	payload := value.NewRecord()
	rec, _ := payload.AsRecord()

	kind := value.NewString(string(err.Kind))
	rec.SetField("kind", kind)
	value.Release(kind)

	msg := value.NewString(err.Message)
	rec.SetField("message", msg)
	value.Release(msg)

	c.Throw(payload)
}

// ExceptionValue returns a retained copy of the exception held by the
// nearest armed frame.
func (c *Context) ExceptionValue() (value.Value, *value.RuntimeError) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].armed {
			return value.Retain(c.frames[i].exception), nil
		}
	}
	return value.Null(), value.Errorf(value.StateError, "no armed exception frame")
}

// Catch runs body inside a fresh exception frame. If body (or anything it
// calls) throws, control lands in handler with the exception value; the
// handler's value borrows the frame's reference, so a handler that stores it
// must retain. Defers registered inside the extent run exactly once, in
// reverse order, before the handler on the unwind path and before returning
// on the normal path.
func (c *Context) Catch(body func() value.Value, handler func(ex value.Value) value.Value) value.Value {
	frame := c.PushFrame()
	mark := c.DeferMark()
	defer c.PopFrame()

	var out value.Value
	func() {
		defer func() {
			c.RunDefersTo(mark)
			if r := recover(); r != nil {
				sig, ok := r.(unwindSignal)
				if !ok || sig.frame != frame {
					panic(r)
				}
				out = handler(frame.exception)
			}
		}()
		out = body()
	}()
	return out
}

// Protect brackets a top-level extent (a task body): defers registered
// inside it are drained when the body exits, whether it returned a value or
// failed with a catchable error.
func (c *Context) Protect(body func() (value.Value, *value.RuntimeError)) (value.Value, *value.RuntimeError) {
	mark := c.DeferMark()
	defer c.RunDefersTo(mark)
	return body()
}

// PushDefer registers a cleanup action and its argument; both are retained
// until the entry runs or the stack is torn down.
func (c *Context) PushDefer(action value.Value, arg value.Value) *value.RuntimeError {
	if _, err := action.AsFunction(); err != nil {
		return value.Errorf(value.TypeError, "defer expects a function, got %s", action.Kind())
	}
	c.defers = append(c.defers, deferEntry{
		action: value.Retain(action),
		arg:    value.Retain(arg),
	})
	return nil
}

// DeferMark captures the current defer stack depth, delimiting a dynamic
// extent for RunDefersTo.
func (c *Context) DeferMark() int { return len(c.defers) }

// RunDefer pops and executes the most recently pushed entry not yet run.
func (c *Context) RunDefer() *value.RuntimeError {
	if len(c.defers) == 0 {
		return value.Errorf(value.StateError, "defer stack is empty")
	}
	entry := c.defers[len(c.defers)-1]
	c.defers = c.defers[:len(c.defers)-1]
	// Release on the way out even if the action throws through us.
	defer func() {
		value.Release(entry.action)
		value.Release(entry.arg)
	}()
	_, err := value.Call(c.host, entry.action, entry.arg)
	return err
}

// RunDefersTo drains entries above mark in strict LIFO order. A failing
// cleanup is logged and does not stop the remaining entries.
func (c *Context) RunDefersTo(mark int) {
	for len(c.defers) > mark {
		if err := c.RunDefer(); err != nil {
			slog.Warn("deferred action failed",
				slog.String("error", err.Error()))
		}
	}
}

// RunAllDefers drains the whole stack in reverse registration order.
func (c *Context) RunAllDefers() {
	c.RunDefersTo(0)
}

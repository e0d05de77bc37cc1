package value

import (
	"fmt"
	"sync"
)

// Channel is a bounded, mutex-protected ring buffer of values used for
// blocking inter-task transfer. Send stores a retained copy; Recv transfers
// ownership to the receiver without retaining, so a value moved through a
// channel is never aliased between tasks. Close is one-way and buffered
// items remain retrievable until drained.
type Channel struct {
	Header
	capacity int
	buf      []Value
	head     int
	tail     int
	count    int
	closed   bool
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
}

// NewChannel allocates a channel. Capacity zero is rejected: a zero-length
// ring can never free a slot, so a send on it would block forever.
func NewChannel(capacity int) (Value, *RuntimeError) {
	if capacity < 1 {
		return Null(), Errorf(OutOfRangeError, "channel capacity must be >= 1, got %d", capacity)
	}
	ch := &Channel{
		capacity: capacity,
		buf:      make([]Value, capacity),
	}
	ch.notEmpty = sync.NewCond(&ch.mu)
	ch.notFull = sync.NewCond(&ch.mu)
	ch.InitRefCount()
	return FromObject(ch), nil
}

func (c *Channel) Kind() Kind      { return KindChannel }
func (c *Channel) Inspect() string { return fmt.Sprintf("<chan %d>", c.capacity) }

func (c *Channel) Cap() int { return c.capacity }

func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send blocks while the channel is full and open, then stores a retained
// copy of v. Sending on a closed channel fails with ClosedChannelError; the
// flag is re-checked after every wakeup so a sender parked on a full channel
// cannot slip a value in behind a close.
func (c *Channel) Send(v Value) *RuntimeError {
	c.mu.Lock()
	for c.count == c.capacity && !c.closed {
		c.notFull.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		return Errorf(ClosedChannelError, "send on closed channel")
	}
	c.buf[c.tail] = Retain(v)
	c.tail = (c.tail + 1) % c.capacity
	c.count++
	c.notEmpty.Signal()
	c.mu.Unlock()
	return nil
}

// Recv blocks while the channel is empty and open. Once closed and drained
// it returns (Null, false). Otherwise ownership of the head value transfers
// to the caller: no retain happens here and the caller must release it.
func (c *Channel) Recv() (Value, bool) {
	c.mu.Lock()
	for c.count == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if c.count == 0 {
		c.mu.Unlock()
		return Null(), false
	}
	v := c.buf[c.head]
	c.buf[c.head] = Value{}
	c.head = (c.head + 1) % c.capacity
	c.count--
	c.notFull.Signal()
	c.mu.Unlock()
	return v, true
}

// Close marks the channel closed and wakes every blocked sender and
// receiver. Idempotent; buffered values are not discarded.
func (c *Channel) Close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
	return true
}

func (c *Channel) Teardown() {
	c.mu.Lock()
	for c.count > 0 {
		Release(c.buf[c.head])
		c.buf[c.head] = Value{}
		c.head = (c.head + 1) % c.capacity
		c.count--
	}
	c.buf = nil
	c.mu.Unlock()
}

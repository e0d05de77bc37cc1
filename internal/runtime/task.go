package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"tern/internal/value"
)

type TaskState int32

const (
	TaskReady TaskState = iota
	TaskRunning
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Task is a thread-backed unit of concurrent execution wrapping a function
// value and its arguments. It is itself a heap object: the spawner holds a
// task-kind Value while the backing goroutine runs, and the task is torn
// down only once no Value references it.
//
// Lifecycle: Ready at spawn, Running once the trampoline starts the function
// body, Completed exactly once when the body returns. No transition leaves
// Completed.
type Task struct {
	value.Header
	ID int64

	rt     *Runtime
	fn     value.Value
	args   []value.Value
	result value.Value
	err    *value.RuntimeError

	state    TaskState
	joined   bool
	detached bool
	done     chan struct{}
	mu       sync.Mutex
}

func (t *Task) Kind() value.Kind { return value.KindTask }
func (t *Task) Inspect() string  { return fmt.Sprintf("<task %d>", t.ID) }

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done exposes the completion signal for select-style waiting.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Teardown() {
	value.Release(t.fn)
	for _, a := range t.args {
		value.Release(a)
	}
	t.args = nil
	value.Release(t.result)
	t.result = value.Null()
}

// Spawn starts a new task running fn(args...) on its own goroutine. The
// function and every argument are retained for the task's lifetime. The
// returned task-kind Value is the spawner's handle.
func (r *Runtime) Spawn(fn value.Value, args ...value.Value) (value.Value, *value.RuntimeError) {
	f, err := fn.AsFunction()
	if err != nil {
		return value.Null(), value.Errorf(value.TypeError, "spawn expects a function, got %s", fn.Kind())
	}
	if len(args) < f.MinArgs {
		return value.Null(), value.Errorf(value.ArityError, "spawn: %s requires at least %d argument(s), got %d", f.Inspect(), f.MinArgs, len(args))
	}
	if f.MaxArgs >= 0 && len(args) > f.MaxArgs {
		return value.Null(), value.Errorf(value.ArityError, "spawn: %s accepts at most %d argument(s), got %d", f.Inspect(), f.MaxArgs, len(args))
	}

	t := &Task{
		ID:    r.nextTask(),
		rt:    r,
		fn:    value.Retain(fn),
		state: TaskReady,
		done:  make(chan struct{}),
	}
	t.args = make([]value.Value, len(args))
	for i, a := range args {
		t.args[i] = value.Retain(a)
	}
	t.InitRefCount()

	slog.Debug("spawning task",
		slog.Int64("task", t.ID),
		slog.String("fn", f.Inspect()))

	handle := value.FromObject(t)
	// The trampoline holds its own task reference: a fire-and-forget
	// spawner may drop its handle while the body is still running, and
	// teardown must not release fn and args out from under it.
	value.Retain(handle)

	go t.run()

	return handle, nil
}

// run is the trampoline executed on the task's own goroutine. The task gets
// a private Context so throws and defers inside the body never touch
// another task's stacks.
func (t *Task) run() {
	t.mu.Lock()
	t.state = TaskRunning
	t.mu.Unlock()

	ctx := NewContext(t.rt)
	res, rerr := ctx.Protect(func() (value.Value, *value.RuntimeError) {
		return value.Call(t.rt, t.fn, t.args...)
	})

	t.mu.Lock()
	if rerr != nil {
		t.err = rerr
		t.result = value.Null()
		value.Release(res)
	} else {
		t.result = res
	}
	t.state = TaskCompleted
	t.mu.Unlock()

	slog.Debug("task completed",
		slog.Int64("task", t.ID),
		slog.Bool("failed", rerr != nil))

	// The body is done with fn and args: drop the trampoline's reference
	// before signalling completion, so once a joiner observes done the
	// remaining handles alone decide when teardown runs.
	value.Release(value.FromObject(t))
	close(t.done)
}

// Join blocks until the task completes and returns a retained copy of its
// result. At most one join succeeds: a second join, or a join after detach,
// fails with StateError. A task whose body raised a catchable error hands
// that error to the joiner.
func (t *Task) Join() (value.Value, *value.RuntimeError) {
	t.mu.Lock()
	if t.joined {
		t.mu.Unlock()
		return value.Null(), value.Errorf(value.StateError, "task %d already joined", t.ID)
	}
	if t.detached {
		t.mu.Unlock()
		return value.Null(), value.Errorf(value.StateError, "task %d is detached and cannot be joined", t.ID)
	}
	// Claim the join before blocking so a concurrent second join fails
	// instead of racing for the result.
	t.joined = true
	t.mu.Unlock()

	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return value.Null(), t.err
	}
	return value.Retain(t.result), nil
}

// Detach marks the task fire-and-forget: its goroutine keeps running but the
// result is never observed and join is no longer possible. Idempotent.
func (t *Task) Detach() *value.RuntimeError {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joined {
		return value.Errorf(value.StateError, "task %d already joined and cannot be detached", t.ID)
	}
	t.detached = true
	return nil
}

package value

import (
	"testing"

	"tern/internal/util"
)

// hostStub satisfies HostContext for call tests.
type hostStub struct {
	nextID int64
}

func (h *hostStub) NextHandleID() int64 {
	h.nextID++
	return h.nextID
}
func (h *hostStub) GetConfiguration() util.Configuration { return util.Configuration{} }
func (h *hostStub) Nil() Value                           { return Null() }
func (h *hostStub) NewError(kind ErrKind, format string, a ...interface{}) *RuntimeError {
	return Errorf(kind, format, a...)
}

func TestCallDispatches(t *testing.T) {
	add := NewFunction("add", 2, 2, nil, func(ctx HostContext, _ *Env, args []Value) (Value, *RuntimeError) {
		a, err := args[0].AsInt()
		if err != nil {
			return Null(), err
		}
		b, err := args[1].AsInt()
		if err != nil {
			return Null(), err
		}
		return I64(a + b), nil
	})
	defer Release(add)

	res, err := Call(&hostStub{}, add, I64(2), I64(3))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if n, _ := res.AsInt(); n != 5 {
		t.Errorf("add(2, 3) = %d, want 5", n)
	}
}

func TestCallNonFunction(t *testing.T) {
	if _, err := Call(&hostStub{}, I64(1)); err == nil || err.Kind != TypeError {
		t.Errorf("calling an integer: error = %v, want TypeError", err)
	}
}

func TestCallArityChecks(t *testing.T) {
	fn := NewFunction("pair", 2, 3, nil, func(ctx HostContext, _ *Env, args []Value) (Value, *RuntimeError) {
		return I64(int64(len(args))), nil
	})
	defer Release(fn)

	if _, err := Call(&hostStub{}, fn, I64(1)); err == nil || err.Kind != ArityError {
		t.Errorf("1 arg: error = %v, want ArityError", err)
	}
	if _, err := Call(&hostStub{}, fn, I64(1), I64(2), I64(3), I64(4)); err == nil || err.Kind != ArityError {
		t.Errorf("4 args: error = %v, want ArityError", err)
	}
	if res, err := Call(&hostStub{}, fn, I64(1), I64(2), I64(3)); err != nil {
		t.Errorf("3 args rejected: %v", err)
	} else if n, _ := res.AsInt(); n != 3 {
		t.Errorf("arg count = %d, want 3", n)
	}
}

func TestCallVariadicUpperBound(t *testing.T) {
	fn := NewFunction("gather", 1, -1, nil, func(ctx HostContext, _ *Env, args []Value) (Value, *RuntimeError) {
		return I64(int64(len(args))), nil
	})
	defer Release(fn)

	res, err := Call(&hostStub{}, fn, I64(1), I64(2), I64(3), I64(4), I64(5))
	if err != nil {
		t.Fatalf("variadic call failed: %v", err)
	}
	if n, _ := res.AsInt(); n != 5 {
		t.Errorf("arg count = %d, want 5", n)
	}
}

func TestCallPassesEnvironmentFirst(t *testing.T) {
	env := NewEnv(1)
	captured := NewString("captured")
	env.Set(0, captured)
	Release(captured)

	fn := NewFunction("closure", 0, 0, env, func(ctx HostContext, e *Env, args []Value) (Value, *RuntimeError) {
		return e.Get(0)
	})

	res, err := Call(&hostStub{}, fn, []Value{}...)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	s, err2 := res.AsString()
	if err2 != nil {
		t.Fatalf("closure result kind = %s", res.Kind())
	}
	if s.Text != "captured" {
		t.Errorf("closure saw %q, want %q", s.Text, "captured")
	}
	Release(res)

	// Function teardown must not release the shared environment.
	Release(fn)
	if env.Freed() {
		t.Fatalf("function teardown released the shared environment")
	}
	env.Release()
}

func TestFunctionTeardownLeavesEnvAlive(t *testing.T) {
	env := NewEnv(1)

	a := NewFunction("a", 0, 0, env, func(ctx HostContext, e *Env, args []Value) (Value, *RuntimeError) {
		return Null(), nil
	})
	b := NewFunction("b", 0, 0, env, func(ctx HostContext, e *Env, args []Value) (Value, *RuntimeError) {
		return Null(), nil
	})

	Release(a)
	if env.Freed() {
		t.Fatalf("environment freed while another function still shares it")
	}
	Release(b)
	if env.Freed() {
		t.Fatalf("environment lifetime must be independent of its functions")
	}
	env.Release()
	if !env.Freed() {
		t.Errorf("environment not freed by its own release")
	}
}

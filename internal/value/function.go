package value

import "fmt"

// Impl is the native entry point of a function value. The shared closure
// environment is passed first (nil for non-capturing functions), followed by
// the already arity-checked arguments. Arguments are borrowed: an
// implementation that stores one must retain it.
type Impl func(ctx HostContext, env *Env, args []Value) (Value, *RuntimeError)

// FunctionObject records the calling convention of a function value: an
// accepted argument-count range, an optional shared closure environment and
// the native entry point. Both evaluator closures and compiled functions use
// this shape.
type FunctionObject struct {
	Header
	Name    string
	MinArgs int
	// MaxArgs < 0 means no upper bound (variadic).
	MaxArgs int
	Env     *Env
	Impl    Impl
}

// NewFunction wraps a native entry point in an owned function value. env may
// be nil; when given, the function shares it without adjusting its count —
// environment lifetime stays the constructing caller's responsibility.
func NewFunction(name string, minArgs, maxArgs int, env *Env, impl Impl) Value {
	obj := &FunctionObject{
		Name:    name,
		MinArgs: minArgs,
		MaxArgs: maxArgs,
		Env:     env,
		Impl:    impl,
	}
	obj.InitRefCount()
	return FromObject(obj)
}

func (f *FunctionObject) Kind() Kind { return KindFunction }

func (f *FunctionObject) Inspect() string {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	if f.MaxArgs < 0 {
		return fmt.Sprintf("fn %s(%d+)", name, f.MinArgs)
	}
	return fmt.Sprintf("fn %s(%d..%d)", name, f.MinArgs, f.MaxArgs)
}

// Teardown drops the parameter metadata and entry point. The closure
// environment is deliberately not released here: it may be shared with other
// functions or tasks, so its count belongs to whoever created it.
func (f *FunctionObject) Teardown() {
	f.Impl = nil
	f.Env = nil
}

// Call invokes a function value with the standard convention: kind check,
// arity check against the declared range, then dispatch with the shared
// environment first.
func Call(ctx HostContext, fn Value, args ...Value) (Value, *RuntimeError) {
	f, err := fn.AsFunction()
	if err != nil {
		return Null(), Errorf(TypeError, "cannot call a %s value", fn.Kind())
	}
	if len(args) < f.MinArgs {
		return Null(), Errorf(ArityError, "%s requires at least %d argument(s), got %d", f.Inspect(), f.MinArgs, len(args))
	}
	if f.MaxArgs >= 0 && len(args) > f.MaxArgs {
		return Null(), Errorf(ArityError, "%s accepts at most %d argument(s), got %d", f.Inspect(), f.MaxArgs, len(args))
	}
	if f.Impl == nil {
		return Null(), Errorf(StateError, "function %s has no entry point", f.Inspect())
	}
	return f.Impl(ctx, f.Env, args)
}

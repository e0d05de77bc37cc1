package runtime

import (
	"tern/internal/value"
)

// Host function wrappers: the builtin-function implementations reachable
// from the language's spawn/join/detach and channel syntax. Each returns an
// owned function value for the registry.

func fnChan(r *Runtime) value.Value {
	return value.NewFunction("chan", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		capacity, err := args[0].AsInt()
		if err != nil {
			return value.Null(), ctx.NewError(value.TypeError, "channel capacity must be an integer, got %s", args[0].Kind())
		}
		return value.NewChannel(int(capacity))
	})
}

func fnChanClose(r *Runtime) value.Value {
	return value.NewFunction("close", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		ch, err := args[0].AsChannel()
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(ch.Close()), nil
	})
}

func fnChanSend(r *Runtime) value.Value {
	return value.NewFunction("send", 2, 2, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		ch, err := args[0].AsChannel()
		if err != nil {
			return value.Null(), err
		}
		if err := ch.Send(args[1]); err != nil {
			return value.Null(), err
		}
		return value.Null(), nil
	})
}

func fnChanRecv(r *Runtime) value.Value {
	return value.NewFunction("recv", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		ch, err := args[0].AsChannel()
		if err != nil {
			return value.Null(), err
		}
		v, _ := ch.Recv()
		// Ownership of v transfers straight through to the caller;
		// the closed-and-drained case is the nil sentinel.
		return v, nil
	})
}

func fnSpawn(r *Runtime) value.Value {
	return value.NewFunction("spawn", 1, -1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		return r.Spawn(args[0], args[1:]...)
	})
}

func fnJoin(r *Runtime) value.Value {
	return value.NewFunction("join", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		task, ok := args[0].Heap().(*Task)
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "join expects a task handle, got %s", args[0].Kind())
		}
		return task.Join()
	})
}

func fnDetach(r *Runtime) value.Value {
	return value.NewFunction("detach", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		task, ok := args[0].Heap().(*Task)
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "detach expects a task handle, got %s", args[0].Kind())
		}
		if err := task.Detach(); err != nil {
			return value.Null(), err
		}
		return value.Null(), nil
	})
}

func fnCfg(r *Runtime) value.Value {
	return value.NewFunction("cfg", 2, 2, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		keyObj, err := args[0].AsString()
		if err != nil {
			return value.Null(), ctx.NewError(value.TypeError, "first argument to cfg must be a string key")
		}
		raw, found := ctx.GetConfiguration().Store.Get(keyObj.Text)
		if !found {
			// Key absent from the TOML store: hand back the caller's
			// default.
			return value.Retain(args[1]), nil
		}
		return nativeToValue(raw), nil
	})
}

// nativeToValue converts a Go value decoded from TOML into an owned runtime
// value.
func nativeToValue(raw interface{}) value.Value {
	switch v := raw.(type) {
	case string:
		return value.NewString(v)
	case int64:
		return value.I64(v)
	case float64:
		return value.F64(v)
	case bool:
		return value.Bool(v)
	case []interface{}:
		arr := value.NewArray(len(v))
		obj, _ := arr.AsArray()
		for _, item := range v {
			el := nativeToValue(item)
			obj.Append(el)
			value.Release(el)
		}
		return arr
	default:
		return value.Null()
	}
}

package runtime

import (
	"math/rand"
	"sync/atomic"

	"tern/internal/foreign"
	"tern/internal/util"
	"tern/internal/value"
)

// Runtime is the shared state both collaborators link against: the host
// function registry reachable from language syntax, the configuration store
// and the ID generators. One Runtime serves every task in the process.
type Runtime struct {
	Config           util.Configuration
	ForeignFunctions map[string]value.Value
	nextID           atomic.Int64
	nextTaskID       atomic.Int64
}

func NewRuntime(config util.Configuration) *Runtime {
	r := &Runtime{
		Config:           config,
		ForeignFunctions: map[string]value.Value{},
	}

	r.register("chan", fnChan(r))
	r.register("close", fnChanClose(r))
	r.register("send", fnChanSend(r))
	r.register("recv", fnChanRecv(r))
	r.register("spawn", fnSpawn(r))
	r.register("join", fnJoin(r))
	r.register("detach", fnDetach(r))
	r.register("cfg", fnCfg(r))

	for name, fn := range foreign.GetForeignFunctions() {
		r.register(name, fn)
	}

	return r
}

func (r *Runtime) register(name string, fn value.Value) {
	if old, ok := r.ForeignFunctions[name]; ok {
		value.Release(old)
	}
	r.ForeignFunctions[name] = fn
}

// LookupForeign returns a retained copy of the named host function.
func (r *Runtime) LookupForeign(name string) (value.Value, bool) {
	fn, ok := r.ForeignFunctions[name]
	if !ok {
		return value.Null(), false
	}
	return value.Retain(fn), true
}

// NextHandleID issues ids for host-side resources (db connections,
// transactions). Salted with a random suffix so handles are not guessable
// from one another.
func (r *Runtime) NextHandleID() int64 {
	return r.nextID.Add(1)<<16 | int64(rand.Intn(0xFFFF))
}

func (r *Runtime) nextTask() int64 {
	return r.nextTaskID.Add(1)
}

// The Runtime is the HostContext native code receives.

func (r *Runtime) GetConfiguration() util.Configuration { return r.Config }

func (r *Runtime) Nil() value.Value { return value.Null() }

func (r *Runtime) NewError(kind value.ErrKind, format string, a ...interface{}) *value.RuntimeError {
	return value.Errorf(kind, format, a...)
}

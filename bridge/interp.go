// Package bridge moves values between Go and the guest VM.
//
// It provides the conversion protocol, heap boxing of Go values into guest
// objects, arena checkpoints bounding the guest root stack, and scope
// resolution for classes and modules defined from Go.
package bridge

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/trellis/config"
	"github.com/chazu/trellis/vm"
)

var log = commonlog.GetLogger("trellis.bridge")

// Interp is a guest interpreter together with its host-side registries.
//
// An Interp is not safe for concurrent use: a single goroutine owns it at a
// time. Use a Worker to drive one interpreter from many goroutines.
type Interp struct {
	vm     *vm.VM
	id     uuid.UUID
	config *config.Config

	classes map[reflect.Type]*ClassSpec
	modules map[reflect.Type]*ModuleSpec

	arenas []*Arena // open checkpoints, innermost last
	closed bool
}

// New creates an interpreter configured by cfg. A nil cfg means
// config.Default().
func New(cfg *config.Config) (*Interp, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("bridge: interpreter identity: %w", err)
	}
	v := vm.NewVM()
	v.SetIncrementalStep(cfg.GC.IncrementalStep)
	v.SetArenaWarnDepth(cfg.GC.ArenaWarnDepth)

	i := &Interp{
		vm:      v,
		id:      id,
		config:  cfg,
		classes: make(map[reflect.Type]*ClassSpec),
		modules: make(map[reflect.Type]*ModuleSpec),
	}
	log.Infof("interpreter %s (%s) started", cfg.Interpreter.Name, i.id)
	return i, nil
}

// NewInterpreter creates an interpreter with the default configuration.
// It panics if New fails.
func NewInterpreter() *Interp {
	i, err := New(nil)
	if err != nil {
		panic(err)
	}
	return i
}

// VM returns the underlying guest VM.
func (i *Interp) VM() *vm.VM {
	return i.vm
}

// ID returns the instance identity of the interpreter.
func (i *Interp) ID() uuid.UUID {
	return i.id
}

// Config returns the configuration the interpreter was created with.
func (i *Interp) Config() *config.Config {
	return i.config
}

// Close finalizes every live boxed payload and releases the interpreter.
// Closing twice is a no-op.
func (i *Interp) Close() error {
	if i.closed {
		return nil
	}
	if n := len(i.arenas); n > 0 {
		log.Warningf("interpreter %s closed with %d open arena checkpoints", i.id, n)
	}
	i.vm.Close()
	i.arenas = nil
	i.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (i *Interp) IsClosed() bool {
	return i.closed
}

// ---------------------------------------------------------------------------
// Calling into the guest
// ---------------------------------------------------------------------------

// Funcall sends name to recv. A guest exception comes back as *GuestError.
func (i *Interp) Funcall(recv vm.Value, name string, args ...vm.Value) (vm.Value, error) {
	if i.closed {
		return vm.Nil, ErrClosed
	}
	if err := validateName("method", name); err != nil {
		return vm.Nil, err
	}
	result, err := i.vm.Send(recv, name, args...)
	if err != nil {
		if exc, ok := err.(*vm.Exception); ok {
			return vm.Nil, fromVMException(exc)
		}
		return vm.Nil, err
	}
	return result, nil
}

// RespondTo reports whether recv has a method named name.
func (i *Interp) RespondTo(recv vm.Value, name string) bool {
	sym, ok := i.vm.Symbols.Lookup(name)
	return ok && i.vm.RespondTo(recv, sym)
}

// Inspect returns the guest inspect representation of v.
func (i *Interp) Inspect(v vm.Value) []byte {
	s, err := i.Funcall(v, "inspect")
	if err != nil || s.Type() != vm.TypeString {
		return []byte(v.GoString())
	}
	return append([]byte(nil), i.vm.Object(s).Bytes()...)
}

// ToS returns the guest to_s representation of v.
func (i *Interp) ToS(v vm.Value) []byte {
	s, err := i.Funcall(v, "to_s")
	if err != nil || s.Type() != vm.TypeString {
		return i.Inspect(v)
	}
	return append([]byte(nil), i.vm.Object(s).Bytes()...)
}

// Freeze marks v immutable and returns it.
func (i *Interp) Freeze(v vm.Value) vm.Value {
	return i.vm.Freeze(v)
}

// ClassOf returns the class of v.
func (i *Interp) ClassOf(v vm.Value) *vm.Class {
	return i.vm.ClassOf(v)
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// FullGC runs a complete collection. Values rooted by open checkpoints,
// globals and constants survive.
func (i *Interp) FullGC() vm.GCStats {
	return i.vm.FullGC()
}

// IncrementalGC runs one bounded collection step.
func (i *Interp) IncrementalGC() vm.GCStats {
	return i.vm.IncrementalGC()
}

// GCStats returns the statistics of the most recent collection pass.
func (i *Interp) GCStats() vm.GCStats {
	return i.vm.LastGCStats()
}

// LiveObjects returns the number of objects on the guest heap.
func (i *Interp) LiveObjects() int {
	return i.vm.LiveObjects()
}

// OpenArenas returns the number of open checkpoints.
func (i *Interp) OpenArenas() int {
	return len(i.arenas)
}

package vm

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("trellis.vm")

// DefaultArenaWarnDepth is the arena depth at which a warning is logged
// unless configured otherwise.
const DefaultArenaWarnDepth = 1 << 16

// ---------------------------------------------------------------------------
// VM: the guest virtual machine
// ---------------------------------------------------------------------------

// VM is a single guest interpreter instance: heap, root stack, collector,
// class table and globals.
//
// A VM is not safe for concurrent use. Exactly one goroutine may drive it
// at a time; the bridge package enforces this with a worker goroutine.
type VM struct {
	// Global tables
	Symbols *SymbolTable // symbol name -> ID
	Classes *ClassTable  // qualified name -> Class
	globals map[Symbol]Value

	heap           heap
	arena          []Value
	arenaWarnDepth int
	arenaWarned    bool
	gc             gcState
	finalized      uint64
	closed         bool

	// Arrays being inspected, and array pairs being compared, by the
	// current call chain. Recursive structures stop at a repeat.
	inspecting map[Value]bool
	comparing  map[[2]Value]bool

	// Well-known classes
	BasicObjectClass *Class
	ObjectClass      *Class
	ModuleClass      *Class
	ClassClass       *Class
	NilClass         *Class
	TrueClass        *Class
	FalseClass       *Class
	IntegerClass     *Class
	FloatClass       *Class
	SymbolClass      *Class
	StringClass      *Class
	ArrayClass       *Class
	KernelModule     *Class

	// Exception hierarchy
	ExceptionClass           *Class
	ScriptErrorClass         *Class
	NotImplementedErrorClass *Class
	LoadErrorClass           *Class
	StandardErrorClass       *Class
	ArgumentErrorClass       *Class
	IOErrorClass             *Class
	NameErrorClass           *Class
	NoMethodErrorClass       *Class
	RangeErrorClass          *Class
	FloatDomainErrorClass    *Class
	RuntimeErrorClass        *Class
	FrozenErrorClass         *Class
	TypeErrorClass           *Class
	ZeroDivisionErrorClass   *Class
}

// NewVM creates and bootstraps a new VM.
func NewVM() *VM {
	vm := &VM{
		Symbols:        NewSymbolTable(),
		Classes:        NewClassTable(),
		globals:        make(map[Symbol]Value),
		arenaWarnDepth: DefaultArenaWarnDepth,
		inspecting:     make(map[Value]bool),
		comparing:      make(map[[2]Value]bool),
	}
	vm.gc.step = DefaultIncrementalStep

	vm.bootstrap()

	// Bootstrap values are all reachable from the class table; none of them
	// needs to stay on the root stack.
	vm.ArenaRestore(0)
	vm.gc.arenaHighWater = 0

	return vm
}

// ---------------------------------------------------------------------------
// Bootstrap: Create core classes
// ---------------------------------------------------------------------------

func (vm *VM) bootstrap() {
	// Phase 1: the four classes that describe each other
	vm.BasicObjectClass = newClass("BasicObject", KindClass, nil, nil)
	vm.ObjectClass = newClass("Object", KindClass, nil, vm.BasicObjectClass)
	vm.ModuleClass = newClass("Module", KindClass, vm.ObjectClass, vm.ObjectClass)
	vm.ClassClass = newClass("Class", KindClass, vm.ObjectClass, vm.ModuleClass)
	vm.BasicObjectClass.Outer = vm.ObjectClass

	vm.install(vm.ObjectClass)
	vm.ObjectClass.ConstSet(vm.Symbols.Intern("Object"), vm.ObjectClass.value)
	vm.install(vm.BasicObjectClass)
	vm.install(vm.ModuleClass)
	vm.install(vm.ClassClass)

	// Phase 2: core classes. String must exist before any string is allocated.
	vm.StringClass = vm.DefineClassUnder(nil, "String", nil)
	vm.ArrayClass = vm.DefineClassUnder(nil, "Array", nil)
	vm.NilClass = vm.DefineClassUnder(nil, "NilClass", nil)
	vm.TrueClass = vm.DefineClassUnder(nil, "TrueClass", nil)
	vm.FalseClass = vm.DefineClassUnder(nil, "FalseClass", nil)
	vm.SymbolClass = vm.DefineClassUnder(nil, "Symbol", nil)
	numeric := vm.DefineClassUnder(nil, "Numeric", nil)
	vm.IntegerClass = vm.DefineClassUnder(nil, "Integer", numeric)
	vm.FloatClass = vm.DefineClassUnder(nil, "Float", numeric)
	vm.KernelModule = vm.DefineModuleUnder(nil, "Kernel")
	vm.ObjectClass.Include(vm.KernelModule)

	// Phase 3: exception hierarchy
	vm.bootstrapExceptions()

	// Phase 4: native methods
	vm.registerObjectPrimitives()
	vm.registerIntegerPrimitives()
	vm.registerFloatPrimitives()
	vm.registerStringPrimitives()
	vm.registerArrayPrimitives()
	vm.registerExceptionPrimitives()
}

func (vm *VM) bootstrapExceptions() {
	def := func(name string, super *Class) *Class {
		return vm.DefineClassUnder(nil, name, super)
	}
	vm.ExceptionClass = def("Exception", nil)
	vm.ScriptErrorClass = def("ScriptError", vm.ExceptionClass)
	vm.NotImplementedErrorClass = def("NotImplementedError", vm.ScriptErrorClass)
	vm.LoadErrorClass = def("LoadError", vm.ScriptErrorClass)
	vm.StandardErrorClass = def("StandardError", vm.ExceptionClass)
	vm.ArgumentErrorClass = def("ArgumentError", vm.StandardErrorClass)
	vm.IOErrorClass = def("IOError", vm.StandardErrorClass)
	vm.NameErrorClass = def("NameError", vm.StandardErrorClass)
	vm.NoMethodErrorClass = def("NoMethodError", vm.NameErrorClass)
	vm.RangeErrorClass = def("RangeError", vm.StandardErrorClass)
	vm.FloatDomainErrorClass = def("FloatDomainError", vm.RangeErrorClass)
	vm.RuntimeErrorClass = def("RuntimeError", vm.StandardErrorClass)
	vm.FrozenErrorClass = def("FrozenError", vm.RuntimeErrorClass)
	vm.TypeErrorClass = def("TypeError", vm.StandardErrorClass)
	vm.ZeroDivisionErrorClass = def("ZeroDivisionError", vm.StandardErrorClass)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Close tears the VM down. Every boxed payload still alive is finalized
// exactly once; afterwards the heap is empty and any allocation panics.
func (vm *VM) Close() {
	if vm.closed {
		return
	}
	finalized := 0
	for slot, obj := range vm.heap.slots {
		if obj == nil {
			continue
		}
		if vm.finalize(obj) {
			finalized++
		}
		vm.release(uint32(slot))
	}
	vm.arena = nil
	vm.globals = make(map[Symbol]Value)
	vm.gc.sweeping = false
	vm.closed = true
	log.Infof("vm closed; %d payloads finalized at teardown", finalized)
}

// IsClosed reports whether Close has been called.
func (vm *VM) IsClosed() bool {
	return vm.closed
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

// GetGlobal returns a global variable, or Nil when unset.
func (vm *VM) GetGlobal(sym Symbol) Value {
	if v, ok := vm.globals[sym]; ok {
		return v
	}
	return Nil
}

// SetGlobal sets a global variable. Globals are collector roots.
func (vm *VM) SetGlobal(sym Symbol, v Value) {
	vm.globals[sym] = v
}

// UnsetGlobal removes a global variable.
func (vm *VM) UnsetGlobal(sym Symbol) {
	delete(vm.globals, sym)
}

// ---------------------------------------------------------------------------
// Class of
// ---------------------------------------------------------------------------

// ClassOf returns the class of any value.
func (vm *VM) ClassOf(v Value) *Class {
	switch v.Type() {
	case TypeNil:
		return vm.NilClass
	case TypeTrue:
		return vm.TrueClass
	case TypeFalse:
		return vm.FalseClass
	case TypeFixnum:
		return vm.IntegerClass
	case TypeFloat:
		return vm.FloatClass
	case TypeSymbol:
		return vm.SymbolClass
	default:
		return vm.Object(v).class
	}
}

// IsKindOf reports whether v is an instance of class or a subclass.
func (vm *VM) IsKindOf(v Value, class *Class) bool {
	return vm.ClassOf(v).IsSubclassOf(class)
}

// IsFrozen reports whether v rejects mutation. Scalars are always frozen.
func (vm *VM) IsFrozen(v Value) bool {
	if !v.IsHeap() {
		return true
	}
	return vm.Object(v).frozen
}

// Freeze marks a heap value immutable and returns it.
func (vm *VM) Freeze(v Value) Value {
	if v.IsHeap() {
		vm.Object(v).frozen = true
	}
	return v
}

// checkFrozen raises FrozenError when v is frozen.
func (vm *VM) checkFrozen(v Value) {
	if v.IsHeap() && vm.Object(v).frozen {
		vm.Raisef(vm.FrozenErrorClass, "can't modify frozen %s: %s", vm.ClassOf(v).FQName(), vm.Inspect(v))
	}
}

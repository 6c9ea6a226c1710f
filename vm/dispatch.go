package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Message send
// ---------------------------------------------------------------------------

// Send invokes selector on recv. A guest exception raised anywhere below
// is recovered here and returned as *Exception; any other panic propagates.
//
// Values allocated during the call stay on the arena stack; restoring them
// is the caller's job.
func (vm *VM) Send(recv Value, selector string, args ...Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(SignaledException)
			if !ok {
				panic(r)
			}
			result = Nil
			err = vm.newException(sig.Exception)
		}
	}()
	return vm.Call(recv, vm.Symbols.Intern(selector), args...), nil
}

// Rescue runs fn and converts a raised guest exception into *Exception.
func (vm *VM) Rescue(fn func() Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(SignaledException)
			if !ok {
				panic(r)
			}
			result = Nil
			err = vm.newException(sig.Exception)
		}
	}()
	return fn(), nil
}

// Call invokes a method from native code. Guest exceptions keep unwinding.
func (vm *VM) Call(recv Value, sym Symbol, args ...Value) Value {
	m := vm.FindMethod(recv, sym)
	if m == nil {
		vm.Raisef(vm.NoMethodErrorClass, "undefined method '%s' for %s",
			vm.Symbols.Name(sym), vm.describe(recv))
	}
	return m(vm, recv, args)
}

// FindMethod resolves sym for recv: singleton methods of a class receiver
// first, then instance methods of recv's class.
func (vm *VM) FindMethod(recv Value, sym Symbol) Method {
	if c := vm.ClassFromValue(recv); c != nil {
		if m := c.lookupClassMethod(sym); m != nil {
			return m
		}
	}
	return vm.ClassOf(recv).LookupMethod(sym)
}

// RespondTo reports whether recv has a method named sym.
func (vm *VM) RespondTo(recv Value, sym Symbol) bool {
	return vm.FindMethod(recv, sym) != nil
}

// CheckArity raises ArgumentError unless min <= len(args) <= max.
// A negative max means no upper bound.
func (vm *VM) CheckArity(args []Value, min, max int) {
	n := len(args)
	if n >= min && (max < 0 || n <= max) {
		return
	}
	switch {
	case min == max:
		vm.Raisef(vm.ArgumentErrorClass, "wrong number of arguments (given %d, expected %d)", n, min)
	case max < 0:
		vm.Raisef(vm.ArgumentErrorClass, "wrong number of arguments (given %d, expected %d+)", n, min)
	default:
		vm.Raisef(vm.ArgumentErrorClass, "wrong number of arguments (given %d, expected %d..%d)", n, min, max)
	}
}

// describe renders recv for NoMethodError messages.
func (vm *VM) describe(recv Value) string {
	switch recv.Type() {
	case TypeNil:
		return "nil"
	case TypeTrue:
		return "true"
	case TypeFalse:
		return "false"
	case TypeClass:
		return "class " + vm.ClassFromValue(recv).FQName()
	case TypeModule:
		return "module " + vm.ClassFromValue(recv).FQName()
	default:
		return fmt.Sprintf("an instance of %s", vm.ClassOf(recv).FQName())
	}
}

// ---------------------------------------------------------------------------
// Conversions through dispatch
// ---------------------------------------------------------------------------

// Inspect calls inspect on v and returns the result as a Go string.
func (vm *VM) Inspect(v Value) string {
	s := vm.Call(v, vm.Symbols.Intern("inspect"))
	if s.Type() != TypeString {
		return vm.defaultInspect(v)
	}
	return string(vm.Object(s).bytes)
}

// ToS calls to_s on v and returns a String value.
func (vm *VM) ToS(v Value) Value {
	if v.Type() == TypeString {
		return v
	}
	s := vm.Call(v, vm.Symbols.Intern("to_s"))
	if s.Type() != TypeString {
		return vm.NewStringFromString(vm.defaultInspect(v))
	}
	return s
}

// StringBytes returns the contents of a String value. The slice aliases
// guest memory.
func (vm *VM) StringBytes(v Value) []byte {
	if v.Type() != TypeString {
		vm.Raisef(vm.TypeErrorClass, "no implicit conversion of %s into String", vm.ClassOf(v).FQName())
	}
	return vm.Object(v).bytes
}

// ArrayElements returns the elements of an Array value. The slice aliases
// guest memory.
func (vm *VM) ArrayElements(v Value) []Value {
	if v.Type() != TypeArray {
		vm.Raisef(vm.TypeErrorClass, "no implicit conversion of %s into Array", vm.ClassOf(v).FQName())
	}
	return vm.Object(v).elems
}

func (vm *VM) defaultInspect(v Value) string {
	c := vm.ClassOf(v)
	if v.IsHeap() {
		return fmt.Sprintf("#<%s:0x%08x>", c.FQName(), v.slot())
	}
	return fmt.Sprintf("#<%s>", c.FQName())
}

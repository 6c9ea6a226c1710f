package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Exception signaling (uses Go panic/recover)
// ---------------------------------------------------------------------------

// SignaledException is panicked when a guest exception is raised. It
// unwinds native frames until the nearest Send boundary recovers it.
type SignaledException struct {
	Exception Value // the exception instance
}

// Raise raises a new exception of class with message.
func (vm *VM) Raise(class *Class, message string) {
	vm.RaiseValue(vm.NewException(class, []byte(message)))
}

// Raisef raises a new exception of class with a formatted message.
func (vm *VM) Raisef(class *Class, format string, args ...any) {
	vm.Raise(class, fmt.Sprintf(format, args...))
}

// RaiseValue raises an existing exception instance.
func (vm *VM) RaiseValue(exc Value) {
	if !vm.IsKindOf(exc, vm.ExceptionClass) {
		vm.Raise(vm.TypeErrorClass, "exception class/object expected")
	}
	panic(SignaledException{Exception: exc})
}

// ---------------------------------------------------------------------------
// Exception: a guest exception seen from Go
// ---------------------------------------------------------------------------

// Exception is the Go error returned by Send when guest code raised.
//
// Class and Message are copied out of the guest heap so the error stays
// meaningful after the arena checkpoint rooting Value has been restored.
type Exception struct {
	Value   Value
	Class   string
	Message string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Class)
}

// newException captures a raised exception value as a Go error.
func (vm *VM) newException(exc Value) *Exception {
	return &Exception{
		Value:   exc,
		Class:   vm.ClassOf(exc).FQName(),
		Message: string(vm.ExceptionMessage(exc)),
	}
}

// ExceptionMessage returns the message bytes of an exception instance.
func (vm *VM) ExceptionMessage(exc Value) []byte {
	if exc.Type() != TypeException {
		return nil
	}
	return vm.Object(exc).bytes
}

func (vm *VM) registerExceptionPrimitives() {
	c := vm.ExceptionClass

	c.AddMethod(vm.Symbols, "initialize", func(vm *VM, self Value, args []Value) Value {
		vm.CheckArity(args, 0, 1)
		obj := vm.Object(self)
		if len(args) == 0 {
			obj.bytes = []byte(vm.ClassOf(self).FQName())
			return Nil
		}
		obj.bytes = append([]byte(nil), vm.StringBytes(vm.ToS(args[0]))...)
		return Nil
	})

	c.AddMethod0(vm.Symbols, "message", func(vm *VM, self Value) Value {
		return vm.NewString(vm.ExceptionMessage(self))
	})

	c.AddMethod0(vm.Symbols, "to_s", func(vm *VM, self Value) Value {
		return vm.NewString(vm.ExceptionMessage(self))
	})

	c.AddMethod0(vm.Symbols, "inspect", func(vm *VM, self Value) Value {
		name := vm.ClassOf(self).FQName()
		msg := string(vm.ExceptionMessage(self))
		if msg == "" || msg == name {
			return vm.NewStringFromString(name)
		}
		return vm.NewStringFromString(fmt.Sprintf("%s (%s)", msg, name))
	})
}

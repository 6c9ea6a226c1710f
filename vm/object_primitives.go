package vm

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Object / Kernel Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() {
	c := vm.ObjectClass
	k := vm.KernelModule

	c.AddMethod(vm.Symbols, "initialize", func(vm *VM, self Value, args []Value) Value {
		vm.CheckArity(args, 0, 0)
		return Nil
	})

	k.AddMethod0(vm.Symbols, "class", func(vm *VM, self Value) Value {
		return vm.ClassOf(self).value
	})

	k.AddMethod0(vm.Symbols, "inspect", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(vm.defaultInspect(self))
	})

	k.AddMethod0(vm.Symbols, "to_s", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(vm.defaultInspect(self))
	})

	k.AddMethod1(vm.Symbols, "==", func(vm *VM, self, other Value) Value {
		return FromBool(self == other)
	})

	k.AddMethod1(vm.Symbols, "equal?", func(vm *VM, self, other Value) Value {
		return FromBool(self == other)
	})

	k.AddMethod1(vm.Symbols, "!=", func(vm *VM, self, other Value) Value {
		return FromBool(vm.Call(self, vm.Symbols.Intern("=="), other).IsFalsy())
	})

	k.AddMethod0(vm.Symbols, "nil?", func(vm *VM, self Value) Value {
		return FromBool(self.IsNil())
	})

	k.AddMethod0(vm.Symbols, "freeze", func(vm *VM, self Value) Value {
		return vm.Freeze(self)
	})

	k.AddMethod0(vm.Symbols, "frozen?", func(vm *VM, self Value) Value {
		return FromBool(vm.IsFrozen(self))
	})

	k.AddMethod1(vm.Symbols, "is_a?", func(vm *VM, self, class Value) Value {
		target := vm.ClassFromValue(class)
		if target == nil {
			vm.Raise(vm.TypeErrorClass, "class or module required")
		}
		return FromBool(vm.IsKindOf(self, target))
	})

	k.AddMethod(vm.Symbols, "send", func(vm *VM, self Value, args []Value) Value {
		vm.CheckArity(args, 1, -1)
		return vm.Call(self, vm.selectorArg(args[0]), args[1:]...)
	})

	k.AddMethod1(vm.Symbols, "respond_to?", func(vm *VM, self, name Value) Value {
		return FromBool(vm.RespondTo(self, vm.selectorArg(name)))
	})

	k.AddMethod(vm.Symbols, "raise", func(vm *VM, self Value, args []Value) Value {
		vm.CheckArity(args, 0, 2)
		vm.RaiseValue(vm.makeException(args))
		return Nil
	})

	vm.registerClassPrimitives()
	vm.registerScalarPrimitives()
}

// makeException builds the exception Kernel#raise signals.
func (vm *VM) makeException(args []Value) Value {
	if len(args) == 0 {
		return vm.NewException(vm.RuntimeErrorClass, []byte("unhandled exception"))
	}
	first := args[0]
	switch {
	case first.Type() == TypeString && len(args) == 1:
		return vm.NewException(vm.RuntimeErrorClass, vm.Object(first).bytes)
	case first.Type() == TypeException && len(args) == 1:
		return first
	case first.Type() == TypeClass:
		exc := vm.Call(first, vm.Symbols.Intern("new"), args[1:]...)
		if exc.Type() == TypeException {
			return exc
		}
	}
	vm.Raise(vm.TypeErrorClass, "exception class/object expected")
	return Nil
}

// selectorArg converts a Symbol or String argument to a symbol.
func (vm *VM) selectorArg(v Value) Symbol {
	switch v.Type() {
	case TypeSymbol:
		return v.Symbol()
	case TypeString:
		return vm.Symbols.InternBytes(vm.Object(v).bytes)
	}
	vm.Raisef(vm.TypeErrorClass, "%s is not a symbol nor a string", vm.Inspect(v))
	return 0
}

// ---------------------------------------------------------------------------
// Module / Class Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerClassPrimitives() {
	m := vm.ModuleClass
	c := vm.ClassClass

	m.AddMethod0(vm.Symbols, "name", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(vm.ClassFromValue(self).FQName())
	})

	m.AddMethod0(vm.Symbols, "to_s", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(vm.ClassFromValue(self).FQName())
	})

	m.AddMethod0(vm.Symbols, "inspect", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(vm.ClassFromValue(self).FQName())
	})

	m.AddMethod1(vm.Symbols, "const_get", func(vm *VM, self, name Value) Value {
		sym := vm.selectorArg(name)
		if v, ok := vm.ClassFromValue(self).ConstGet(sym); ok {
			return v
		}
		vm.Raisef(vm.NameErrorClass, "uninitialized constant %s::%s",
			vm.ClassFromValue(self).FQName(), vm.Symbols.Name(sym))
		return Nil
	})

	m.AddMethod1(vm.Symbols, "===", func(vm *VM, self, other Value) Value {
		return FromBool(vm.IsKindOf(other, vm.ClassFromValue(self)))
	})

	c.AddMethod0(vm.Symbols, "allocate", func(vm *VM, self Value) Value {
		return vm.Allocate(vm.ClassFromValue(self))
	})

	c.AddMethod(vm.Symbols, "new", func(vm *VM, self Value, args []Value) Value {
		obj := vm.Allocate(vm.ClassFromValue(self))
		vm.Call(obj, vm.Symbols.Intern("initialize"), args...)
		return obj
	})

	c.AddMethod0(vm.Symbols, "superclass", func(vm *VM, self Value) Value {
		if super := vm.ClassFromValue(self).Superclass; super != nil {
			return super.value
		}
		return Nil
	})
}

// Allocate creates an uninitialized instance of class. Classes backed by a
// DataType get an envelope with a nil payload that initialize fills in.
func (vm *VM) Allocate(class *Class) Value {
	switch {
	case class.IsModule():
		vm.Raisef(vm.NoMethodErrorClass, "undefined method 'new' for module %s", class.FQName())
	case class.IsSubclassOf(vm.ExceptionClass):
		return vm.NewException(class, nil)
	case class.IsSubclassOf(vm.StringClass):
		return vm.alloc(&Object{tt: TypeString, class: class})
	case class.IsSubclassOf(vm.ArrayClass):
		return vm.alloc(&Object{tt: TypeArray, class: class})
	case class.IsSubclassOf(vm.IntegerClass), class.IsSubclassOf(vm.FloatClass),
		class.IsSubclassOf(vm.SymbolClass), class == vm.NilClass,
		class == vm.TrueClass, class == vm.FalseClass,
		class.IsSubclassOf(vm.ModuleClass):
		vm.Raisef(vm.NoMethodErrorClass, "undefined method 'new' for class %s", class.FQName())
	}
	if dt := class.instanceDataType(); dt != nil {
		return vm.NewData(class, nil, dt)
	}
	return vm.NewObject(class)
}

// ---------------------------------------------------------------------------
// nil, true, false and Symbol
// ---------------------------------------------------------------------------

func (vm *VM) registerScalarPrimitives() {
	n := vm.NilClass
	n.AddMethod0(vm.Symbols, "to_s", func(vm *VM, self Value) Value {
		return vm.NewString(nil)
	})
	n.AddMethod0(vm.Symbols, "inspect", func(vm *VM, self Value) Value {
		return vm.NewStringFromString("nil")
	})

	for _, c := range []*Class{vm.TrueClass, vm.FalseClass} {
		c.AddMethod0(vm.Symbols, "to_s", func(vm *VM, self Value) Value {
			return vm.NewStringFromString(strconv.FormatBool(self.Bool()))
		})
		c.AddMethod0(vm.Symbols, "inspect", func(vm *VM, self Value) Value {
			return vm.NewStringFromString(strconv.FormatBool(self.Bool()))
		})
		c.AddMethod1(vm.Symbols, "&", func(vm *VM, self, other Value) Value {
			return FromBool(self.Bool() && other.IsTruthy())
		})
		c.AddMethod1(vm.Symbols, "|", func(vm *VM, self, other Value) Value {
			return FromBool(self.Bool() || other.IsTruthy())
		})
	}

	s := vm.SymbolClass
	s.AddMethod0(vm.Symbols, "to_s", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(vm.Symbols.Name(self.Symbol()))
	})
	s.AddMethod0(vm.Symbols, "inspect", func(vm *VM, self Value) Value {
		return vm.NewStringFromString(":" + vm.Symbols.Name(self.Symbol()))
	})
}

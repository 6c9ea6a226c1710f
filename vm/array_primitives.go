package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() {
	c := vm.ArrayClass

	length := func(vm *VM, recv Value) Value {
		return FromInt(int64(len(vm.Object(recv).elems)))
	}
	c.AddMethod0(vm.Symbols, "length", length)
	c.AddMethod0(vm.Symbols, "size", length)

	c.AddMethod0(vm.Symbols, "empty?", func(vm *VM, recv Value) Value {
		return FromBool(len(vm.Object(recv).elems) == 0)
	})

	c.AddMethod1(vm.Symbols, "[]", func(vm *VM, recv, arg Value) Value {
		if !arg.IsFixnum() {
			vm.Raisef(vm.TypeErrorClass, "no implicit conversion of %s into Integer", vm.ClassOf(arg).FQName())
		}
		elems := vm.Object(recv).elems
		i := arg.Int()
		if i < 0 {
			i += int64(len(elems))
		}
		if i < 0 || i >= int64(len(elems)) {
			return Nil
		}
		return elems[i]
	})

	c.AddMethod(vm.Symbols, "push", func(vm *VM, recv Value, args []Value) Value {
		vm.checkFrozen(recv)
		obj := vm.Object(recv)
		obj.elems = append(obj.elems, args...)
		return recv
	})

	c.AddMethod0(vm.Symbols, "first", func(vm *VM, recv Value) Value {
		elems := vm.Object(recv).elems
		if len(elems) == 0 {
			return Nil
		}
		return elems[0]
	})

	c.AddMethod0(vm.Symbols, "last", func(vm *VM, recv Value) Value {
		elems := vm.Object(recv).elems
		if len(elems) == 0 {
			return Nil
		}
		return elems[len(elems)-1]
	})

	c.AddMethod1(vm.Symbols, "==", func(vm *VM, recv, arg Value) Value {
		if arg.Type() != TypeArray {
			return False
		}
		a, b := vm.Object(recv).elems, vm.Object(arg).elems
		if len(a) != len(b) {
			return False
		}
		pair := [2]Value{recv, arg}
		if recv == arg || vm.comparing[pair] {
			return True
		}
		vm.comparing[pair] = true
		defer delete(vm.comparing, pair)
		eq := vm.Symbols.Intern("==")
		for i := range a {
			if vm.Call(a[i], eq, b[i]).IsFalsy() {
				return False
			}
		}
		return True
	})

	inspect := func(vm *VM, recv Value) Value {
		if vm.inspecting[recv] {
			return vm.NewStringFromString("[...]")
		}
		vm.inspecting[recv] = true
		defer delete(vm.inspecting, recv)

		elems := vm.Object(recv).elems
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = vm.Inspect(e)
		}
		return vm.NewStringFromString("[" + strings.Join(parts, ", ") + "]")
	}
	c.AddMethod0(vm.Symbols, "inspect", inspect)
	c.AddMethod0(vm.Symbols, "to_s", inspect)
}

package vm

import (
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Float Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerFloatPrimitives() {
	c := vm.FloatClass

	arith := func(name string, op func(a, b float64) float64) {
		c.AddMethod1(vm.Symbols, name, func(vm *VM, recv, arg Value) Value {
			if isNumeric(arg) {
				return FromFloat64(op(recv.Float64(), toFloat(arg)))
			}
			return vm.coerceBinop(recv, arg, name)
		})
	}
	arith("+", func(a, b float64) float64 { return a + b })
	arith("-", func(a, b float64) float64 { return a - b })
	arith("*", func(a, b float64) float64 { return a * b })
	// Division by zero yields ±Infinity or NaN, never an exception.
	arith("/", func(a, b float64) float64 { return a / b })
	arith("%", floatMod)

	c.AddMethod0(vm.Symbols, "-@", func(vm *VM, recv Value) Value {
		return FromFloat64(-recv.Float64())
	})

	c.AddMethod1(vm.Symbols, "==", func(vm *VM, recv, arg Value) Value {
		if !isNumeric(arg) {
			return False
		}
		return FromBool(recv.Float64() == toFloat(arg))
	})
	vm.addComparisons(c)

	c.AddMethod0(vm.Symbols, "nan?", func(vm *VM, recv Value) Value {
		return FromBool(math.IsNaN(recv.Float64()))
	})

	// infinite? answers 1, -1 or nil.
	c.AddMethod0(vm.Symbols, "infinite?", func(vm *VM, recv Value) Value {
		f := recv.Float64()
		switch {
		case math.IsInf(f, 1):
			return FromInt(1)
		case math.IsInf(f, -1):
			return FromInt(-1)
		}
		return Nil
	})

	c.AddMethod0(vm.Symbols, "to_s", func(vm *VM, recv Value) Value {
		return vm.NewStringFromString(formatFloat(recv.Float64()))
	})
	c.AddMethod0(vm.Symbols, "inspect", func(vm *VM, recv Value) Value {
		return vm.NewStringFromString(formatFloat(recv.Float64()))
	})
	c.AddMethod0(vm.Symbols, "to_f", func(vm *VM, recv Value) Value {
		return recv
	})
	c.AddMethod0(vm.Symbols, "to_i", func(vm *VM, recv Value) Value {
		return FromInt(vm.floatToInt(math.Trunc(recv.Float64())))
	})

	c.AddMethod1(vm.Symbols, "coerce", func(vm *VM, recv, arg Value) Value {
		if !isNumeric(arg) {
			vm.Raisef(vm.TypeErrorClass, "%s can't be coerced into Float", vm.describeCoercion(arg))
		}
		return vm.NewArray([]Value{FromFloat64(toFloat(arg)), recv})
	})
}

func formatFixedFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func shortestFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

package vm

import (
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerIntegerPrimitives() {
	c := vm.IntegerClass

	// Arithmetic
	c.AddMethod1(vm.Symbols, "+", func(vm *VM, recv, arg Value) Value {
		switch arg.Type() {
		case TypeFixnum:
			return FromInt(vm.addInt(recv.Int(), arg.Int()))
		case TypeFloat:
			return FromFloat64(float64(recv.Int()) + arg.Float64())
		}
		return vm.coerceBinop(recv, arg, "+")
	})

	c.AddMethod1(vm.Symbols, "-", func(vm *VM, recv, arg Value) Value {
		switch arg.Type() {
		case TypeFixnum:
			b := arg.Int()
			if b == math.MinInt64 {
				vm.Raise(vm.RangeErrorClass, "integer overflow")
			}
			return FromInt(vm.addInt(recv.Int(), -b))
		case TypeFloat:
			return FromFloat64(float64(recv.Int()) - arg.Float64())
		}
		return vm.coerceBinop(recv, arg, "-")
	})

	c.AddMethod1(vm.Symbols, "*", func(vm *VM, recv, arg Value) Value {
		switch arg.Type() {
		case TypeFixnum:
			return FromInt(vm.mulInt(recv.Int(), arg.Int()))
		case TypeFloat:
			return FromFloat64(float64(recv.Int()) * arg.Float64())
		}
		return vm.coerceBinop(recv, arg, "*")
	})

	div := func(vm *VM, recv, arg Value) Value {
		return vm.intDiv(recv.Int(), arg)
	}
	c.AddMethod1(vm.Symbols, "/", div)
	c.AddMethod1(vm.Symbols, "div", func(vm *VM, recv, arg Value) Value {
		if arg.IsFloat() && arg.Float64() == 0 {
			vm.Raise(vm.ZeroDivisionErrorClass, "divided by 0")
		}
		q := vm.intDiv(recv.Int(), arg)
		if q.IsFloat() {
			return FromInt(vm.floatToInt(math.Floor(q.Float64())))
		}
		return q
	})

	c.AddMethod1(vm.Symbols, "%", func(vm *VM, recv, arg Value) Value {
		switch arg.Type() {
		case TypeFixnum:
			b := arg.Int()
			if b == 0 {
				vm.Raise(vm.ZeroDivisionErrorClass, "divided by 0")
			}
			return FromInt(floorMod(recv.Int(), b))
		case TypeFloat:
			return FromFloat64(floatMod(float64(recv.Int()), arg.Float64()))
		}
		return vm.coerceBinop(recv, arg, "%")
	})

	c.AddMethod0(vm.Symbols, "-@", func(vm *VM, recv Value) Value {
		if recv.Int() == math.MinInt64 {
			vm.Raise(vm.RangeErrorClass, "integer overflow")
		}
		return FromInt(-recv.Int())
	})

	// Comparison
	c.AddMethod1(vm.Symbols, "==", func(vm *VM, recv, arg Value) Value {
		switch arg.Type() {
		case TypeFixnum:
			return FromBool(recv.Int() == arg.Int())
		case TypeFloat:
			return FromBool(float64(recv.Int()) == arg.Float64())
		}
		return False
	})
	vm.addComparisons(c)

	// Conversion
	c.AddMethod0(vm.Symbols, "to_s", func(vm *VM, recv Value) Value {
		return vm.NewStringFromString(strconv.FormatInt(recv.Int(), 10))
	})
	c.AddMethod0(vm.Symbols, "inspect", func(vm *VM, recv Value) Value {
		return vm.NewStringFromString(strconv.FormatInt(recv.Int(), 10))
	})
	c.AddMethod0(vm.Symbols, "to_i", func(vm *VM, recv Value) Value {
		return recv
	})
	c.AddMethod0(vm.Symbols, "to_f", func(vm *VM, recv Value) Value {
		return FromFloat64(float64(recv.Int()))
	})

	c.AddMethod(vm.Symbols, "chr", func(vm *VM, recv Value, args []Value) Value {
		vm.CheckArity(args, 0, 1)
		if len(args) == 1 {
			vm.Raisef(vm.NotImplementedErrorClass,
				"encoding parameter of Integer#chr (given %s) not supported", vm.Inspect(args[0]))
		}
		n := recv.Int()
		if n < 0 || n > 255 {
			vm.Raisef(vm.RangeErrorClass, "%d out of char range", n)
		}
		return vm.NewString([]byte{byte(n)})
	})

	// [] returns the bit at the given position, 0 for positions past the width.
	c.AddMethod1(vm.Symbols, "[]", func(vm *VM, recv, arg Value) Value {
		if !arg.IsFixnum() {
			vm.Raisef(vm.TypeErrorClass, "no implicit conversion of %s into Integer", vm.ClassOf(arg).FQName())
		}
		return FromInt(bitAt(recv.Int(), arg.Int()))
	})

	c.AddMethod0(vm.Symbols, "size", func(vm *VM, recv Value) Value {
		return FromInt(8)
	})

	c.AddMethod1(vm.Symbols, "coerce", func(vm *VM, recv, arg Value) Value {
		switch arg.Type() {
		case TypeFixnum:
			return vm.NewArray([]Value{arg, recv})
		case TypeFloat:
			return vm.NewArray([]Value{arg, FromFloat64(float64(recv.Int()))})
		}
		vm.Raisef(vm.TypeErrorClass, "%s can't be coerced into Integer", vm.ClassOf(arg).FQName())
		return Nil
	})
}

// intDiv implements Integer#/. Integer quotients floor toward negative
// infinity; a Float divisor follows IEEE semantics.
func (vm *VM) intDiv(a int64, arg Value) Value {
	switch arg.Type() {
	case TypeFixnum:
		b := arg.Int()
		if b == 0 {
			vm.Raise(vm.ZeroDivisionErrorClass, "divided by 0")
		}
		if a == math.MinInt64 && b == -1 {
			vm.Raise(vm.RangeErrorClass, "integer overflow")
		}
		return FromInt(floorDiv(a, b))
	case TypeFloat:
		return FromFloat64(float64(a) / arg.Float64())
	}

	x, y, isInt := vm.coerce(FromInt(a), arg)
	if isInt {
		if y.Int() == 0 {
			vm.Raise(vm.ZeroDivisionErrorClass, "divided by 0")
		}
		return FromInt(floorDiv(x.Int(), y.Int()))
	}
	if y.Float64() == 0 {
		vm.Raise(vm.ZeroDivisionErrorClass, "divided by 0")
	}
	return FromFloat64(x.Float64() / y.Float64())
}

func (vm *VM) addInt(a, b int64) int64 {
	r := a + b
	if (a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r >= 0) {
		vm.Raise(vm.RangeErrorClass, "integer overflow")
	}
	return r
}

func (vm *VM) mulInt(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		vm.Raise(vm.RangeErrorClass, "integer overflow")
	}
	return r
}

func (vm *VM) floatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		vm.Raise(vm.FloatDomainErrorClass, strconv.FormatFloat(f, 'g', -1, 64))
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		vm.Raise(vm.RangeErrorClass, "float out of range of integer")
	}
	return int64(f)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func floatMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func bitAt(n, pos int64) int64 {
	if pos < 0 {
		return 0
	}
	if pos >= 64 {
		if n < 0 {
			return 1
		}
		return 0
	}
	return (n >> uint(pos)) & 1
}

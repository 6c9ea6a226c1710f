package vm

import (
	"math"
)

// ---------------------------------------------------------------------------
// Numeric coercion
// ---------------------------------------------------------------------------

// coerce performs the arg.coerce(recv) protocol and reduces the returned
// pair to either two Integers (isInt) or two Floats.
func (vm *VM) coerce(recv, arg Value) (x, y Value, isInt bool) {
	x, y = vm.coercePair(recv, arg)
	switch {
	case x.IsFixnum() && y.IsFixnum():
		return x, y, true
	case isNumeric(x) && isNumeric(y):
		return FromFloat64(toFloat(x)), FromFloat64(toFloat(y)), false
	}
	vm.Raisef(vm.TypeErrorClass, "%s can't be coerced into %s",
		vm.ClassOf(arg).FQName(), vm.ClassOf(recv).FQName())
	return Nil, Nil, false
}

// coerceBinop dispatches op on the pair produced by arg.coerce(recv).
func (vm *VM) coerceBinop(recv, arg Value, op string) Value {
	x, y := vm.coercePair(recv, arg)
	return vm.Call(x, vm.Symbols.Intern(op), y)
}

func (vm *VM) coercePair(recv, arg Value) (Value, Value) {
	sym := vm.Symbols.Intern("coerce")
	if !vm.RespondTo(arg, sym) {
		vm.Raisef(vm.TypeErrorClass, "%s can't be coerced into %s",
			vm.describeCoercion(arg), vm.ClassOf(recv).FQName())
	}
	pair := vm.Call(arg, sym, recv)
	if pair.Type() != TypeArray || len(vm.Object(pair).elems) != 2 {
		vm.Raise(vm.TypeErrorClass, "coerce must return [x, y]")
	}
	elems := vm.Object(pair).elems
	return elems[0], elems[1]
}

func (vm *VM) describeCoercion(v Value) string {
	switch v.Type() {
	case TypeNil, TypeTrue, TypeFalse:
		return v.Type().String()
	}
	return vm.ClassOf(v).FQName()
}

func isNumeric(v Value) bool {
	return v.IsFixnum() || v.IsFloat()
}

func toFloat(v Value) float64 {
	if v.IsFixnum() {
		return float64(v.Int())
	}
	return v.Float64()
}

// addComparisons installs <, <=, > and >= for a numeric class.
func (vm *VM) addComparisons(c *Class) {
	cmp := func(name string, test func(a, b float64) bool, itest func(a, b int64) bool) {
		c.AddMethod1(vm.Symbols, name, func(vm *VM, recv, arg Value) Value {
			if recv.IsFixnum() && arg.IsFixnum() {
				return FromBool(itest(recv.Int(), arg.Int()))
			}
			if !isNumeric(arg) {
				vm.Raisef(vm.ArgumentErrorClass, "comparison of %s with %s failed",
					vm.ClassOf(recv).FQName(), vm.Inspect(arg))
			}
			return FromBool(test(toFloat(recv), toFloat(arg)))
		})
	}
	cmp("<", func(a, b float64) bool { return a < b }, func(a, b int64) bool { return a < b })
	cmp("<=", func(a, b float64) bool { return a <= b }, func(a, b int64) bool { return a <= b })
	cmp(">", func(a, b float64) bool { return a > b }, func(a, b int64) bool { return a > b })
	cmp(">=", func(a, b float64) bool { return a >= b }, func(a, b int64) bool { return a >= b })
}

// formatFloat renders a float the way the guest prints it.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return formatFixedFloat(f)
	}
	return shortestFloat(f)
}

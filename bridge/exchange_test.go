package bridge

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/trellis/vm"
)

func TestExchangeAcrossInterpreters(t *testing.T) {
	src := newTestInterp(t)
	dst := newTestInterp(t)

	name := "héllo"
	frozen := src.Freeze(src.ConvertMutString("frozen"))
	tree := src.ConvertMutValues([]vm.Value{
		vm.Nil,
		vm.True,
		vm.False,
		src.ConvertInt(math.MinInt64),
		src.ConvertFloat(2.5),
		src.ConvertMutOptionString(&name),
		vm.FromSymbol(src.VM().Symbols.Intern("sym")),
		src.ConvertMutValues([]vm.Value{src.ConvertInt(1), frozen}),
	})

	data, err := src.MarshalValue(tree)
	if err != nil {
		t.Fatalf("MarshalValue: %v", err)
	}
	again, _ := src.MarshalValue(tree)
	if string(again) != string(data) {
		t.Error("encoding is not deterministic")
	}

	v, origin, err := dst.UnmarshalValue(data)
	if err != nil {
		t.Fatalf("UnmarshalValue: %v", err)
	}
	if origin != src.ID() {
		t.Errorf("origin = %s, want %s", origin, src.ID())
	}
	if got := string(dst.Inspect(v)); got != `[nil, true, false, -9223372036854775808, 2.5, "héllo", :sym, [1, "frozen"]]` {
		t.Errorf("inspect = %s", got)
	}

	elems, _ := dst.BorrowValues(v)
	inner, _ := dst.BorrowValues(elems[7])
	if !dst.VM().IsFrozen(inner[1]) {
		t.Error("frozen flag lost")
	}
	if dst.VM().IsFrozen(elems[5]) {
		t.Error("unfrozen string arrived frozen")
	}
	sym := elems[6].Symbol()
	if got := dst.VM().Symbols.Name(sym); got != "sym" {
		t.Errorf("symbol = %q", got)
	}
}

func TestExchangeRejectsObjects(t *testing.T) {
	i := newTestInterp(t)
	defineWidget(t, i)

	w, err := Box(i, &widget{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = i.MarshalValue(i.ConvertMutValues([]vm.Value{w}))
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.From != GuestData {
		t.Errorf("got %v, want ConversionError from Data", err)
	}

	arr := i.ConvertMutValues(nil)
	if _, err := i.Funcall(arr, "push", arr); err != nil {
		t.Fatal(err)
	}
	if _, err := i.MarshalValue(arr); err == nil {
		t.Error("self-referencing array encoded")
	}

	if _, _, err := i.UnmarshalValue([]byte{0xff}); err == nil {
		t.Error("garbage decoded")
	}
}

func TestExchangeFloatBits(t *testing.T) {
	src := newTestInterp(t)
	dst := newTestInterp(t)

	for _, f := range []float64{0, math.Copysign(0, -1), math.NaN(), math.Inf(-1), math.SmallestNonzeroFloat64, -2.5} {
		data, err := src.MarshalValue(src.ConvertFloat(f))
		if err != nil {
			t.Fatalf("MarshalValue(%v): %v", f, err)
		}
		v, _, err := dst.UnmarshalValue(data)
		if err != nil {
			t.Fatalf("UnmarshalValue(%v): %v", f, err)
		}
		got, err := dst.TryConvertFloat(v)
		if err != nil {
			t.Fatal(err)
		}
		if math.Float64bits(got) != math.Float64bits(f) {
			t.Errorf("%v arrived as %v (bits %#x, want %#x)", f, got, math.Float64bits(got), math.Float64bits(f))
		}
	}
}

func TestExchangeNestingLimit(t *testing.T) {
	src := newTestInterp(t)
	dst := newTestInterp(t)

	nest := func(depth int) vm.Value {
		v := src.ConvertMutValues([]vm.Value{src.ConvertInt(1)})
		for n := 1; n < depth; n++ {
			v = src.ConvertMutValues([]vm.Value{v})
		}
		return v
	}

	for _, depth := range []int{16, MaxExchangeDepth} {
		data, err := src.MarshalValue(nest(depth))
		if err != nil {
			t.Fatalf("depth %d: MarshalValue: %v", depth, err)
		}
		v, _, err := dst.UnmarshalValue(data)
		if err != nil {
			t.Fatalf("depth %d: UnmarshalValue: %v", depth, err)
		}
		levels := 0
		for v.Type() == vm.TypeArray {
			elems, _ := dst.BorrowValues(v)
			v = elems[0]
			levels++
		}
		if levels != depth {
			t.Errorf("depth %d arrived with %d levels", depth, levels)
		}
	}

	_, err := src.MarshalValue(nest(MaxExchangeDepth + 1))
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.From != GuestArray {
		t.Errorf("depth %d: got %v, want ConversionError from Array", MaxExchangeDepth+1, err)
	}
}

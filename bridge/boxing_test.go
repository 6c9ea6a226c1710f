package bridge

import (
	"errors"
	"testing"

	"github.com/chazu/trellis/vm"
)

type counter struct {
	n     int64
	freed *int
}

func (c *counter) Free() { *c.freed++ }

type widget struct {
	name string
}

type handle struct {
	closed *int
}

func (h *handle) Close() error {
	*h.closed++
	return nil
}

type brittle struct{}

func (*brittle) Free() { panic("free failed") }

func defineCounter(t *testing.T, i *Interp, freed *int) {
	t.Helper()
	b, err := DefineClass[counter](i, "Counter", nil)
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	b.AddMethod("initialize", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
		i.VM().CheckArity(args, 1, 1)
		n, err := i.TryConvertInt(args[0])
		if err != nil {
			return vm.Nil, err
		}
		_, err = Replace(i, self, &counter{n: n, freed: freed})
		return vm.Nil, err
	})
	b.AddMethod("value", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
		c, err := Unbox[counter](i, self)
		if err != nil {
			return vm.Nil, err
		}
		return i.ConvertInt(c.n), nil
	})
	b.AddMethod("incr", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
		c, err := Unbox[counter](i, self)
		if err != nil {
			return vm.Nil, err
		}
		c.n++
		return self, nil
	})
	if err := b.Define(); err != nil {
		t.Fatalf("Define: %v", err)
	}
}

func defineWidget(t *testing.T, i *Interp) {
	t.Helper()
	b, err := DefineClass[widget](i, "Widget", nil)
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	if err := b.Define(); err != nil {
		t.Fatalf("Define: %v", err)
	}
}

func TestBoxUnbox(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)

	v, err := Box(i, &counter{n: 41, freed: &freed})
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	if v.Type() != vm.TypeData {
		t.Fatalf("boxed value has type %s", v.Type())
	}
	if got := i.ClassOf(v).FQName(); got != "Counter" {
		t.Errorf("class = %s, want Counter", got)
	}

	if _, err := i.Funcall(v, "incr"); err != nil {
		t.Fatalf("incr: %v", err)
	}
	c, err := Unbox[counter](i, v)
	if err != nil {
		t.Fatalf("Unbox: %v", err)
	}
	if c.n != 42 {
		t.Errorf("guest mutation not visible: n = %d", c.n)
	}
	c.n = 100
	got, err := i.Funcall(v, "value")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if n, _ := i.TryConvertInt(got); n != 100 {
		t.Errorf("host mutation not visible: value = %d", n)
	}
}

func TestUnboxWrongClass(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)
	defineWidget(t, i)

	v, err := Box(i, &counter{freed: &freed})
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	_, err = Unbox[widget](i, v)
	var ue *UnboxError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want UnboxError", err)
	}
	if ue.Expected != "Widget" || ue.Observed != "Counter" {
		t.Errorf("got %+v", ue)
	}

	tests := []struct {
		v        vm.Value
		observed string
	}{
		{vm.Nil, "nil"},
		{i.ConvertInt(1), "Integer"},
		{i.ConvertMutString("s"), "String"},
	}
	for _, tt := range tests {
		_, err := Unbox[counter](i, tt.v)
		if !errors.As(err, &ue) || ue.Observed != tt.observed {
			t.Errorf("Unbox(%s): got %v", tt.observed, err)
		}
	}
}

func TestBoxUnregisteredType(t *testing.T) {
	i := newTestInterp(t)

	_, err := Box(i, &widget{})
	var nd *NotDefinedError
	if !errors.As(err, &nd) || nd.Kind != NotDefinedClass {
		t.Fatalf("got %v, want NotDefinedError(class)", err)
	}
	if _, err := Box[widget](i, nil); !errors.Is(err, errNilPayload) {
		t.Errorf("Box(nil) = %v", err)
	}
}

func TestBoxBeforeDefine(t *testing.T) {
	i := newTestInterp(t)

	if _, err := DefineClass[widget](i, "Widget", nil); err != nil {
		t.Fatal(err)
	}
	_, err := Box(i, &widget{})
	var nd *NotDefinedError
	if !errors.As(err, &nd) || nd.FQName != "Widget" {
		t.Fatalf("got %v, want Widget not defined", err)
	}
}

func TestNewInstanceRunsInitialize(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)

	v, err := NewInstance[counter](i, i.ConvertInt(9))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	c, err := Unbox[counter](i, v)
	if err != nil || c.n != 9 {
		t.Fatalf("Unbox = %v, %v", c, err)
	}

	_, err = NewInstance[counter](i, i.ConvertMutString("nine"))
	var ge *GuestError
	if !errors.As(err, &ge) || ge.Class != "TypeError" {
		t.Fatalf("got %v, want TypeError", err)
	}
	if string(ge.Msg) != "failed to convert from String to int64" {
		t.Errorf("message = %q", ge.Msg)
	}

	_, err = NewInstance[counter](i)
	if !errors.As(err, &ge) || ge.Class != "ArgumentError" {
		t.Errorf("got %v, want ArgumentError", err)
	}
}

func TestUninitializedEnvelope(t *testing.T) {
	i := newTestInterp(t)
	defineWidget(t, i)

	class := i.VM().ClassGet("Widget")
	v, err := i.Funcall(class.Value(), "allocate")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	_, err = Unbox[widget](i, v)
	var ue *UnboxError
	if !errors.As(err, &ue) || !ue.Uninitialized {
		t.Fatalf("got %v, want uninitialized", err)
	}
	if got := ue.Error(); got != "uninitialized Widget" {
		t.Errorf("message = %q", got)
	}

	old, err := Replace(i, v, &widget{name: "w"})
	if err != nil || old != nil {
		t.Fatalf("Replace = %v, %v", old, err)
	}
	w, err := Unbox[widget](i, v)
	if err != nil || w.name != "w" {
		t.Errorf("Unbox after Replace = %v, %v", w, err)
	}
}

func TestTakeAndReplace(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)

	first := &counter{n: 1, freed: &freed}
	v, _ := Box(i, first)

	second := &counter{n: 2, freed: &freed}
	old, err := Replace(i, v, second)
	if err != nil || old != first {
		t.Fatalf("Replace returned %v, %v", old, err)
	}

	taken, err := Take[counter](i, v)
	if err != nil || taken != second {
		t.Fatalf("Take returned %v, %v", taken, err)
	}
	if _, err := Unbox[counter](i, v); err == nil {
		t.Fatal("Unbox after Take should fail")
	}

	// The envelope is finalized with no payload: logged, not fatal.
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if freed != 0 {
		t.Errorf("host-owned payloads were freed %d times", freed)
	}
}

func TestFinalizerRunsOnce(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)

	a := i.CreateArenaSavepoint()
	if _, err := Box(i, &counter{freed: &freed}); err != nil {
		t.Fatal(err)
	}
	a.Restore()

	i.FullGC()
	if freed != 1 {
		t.Fatalf("after FullGC freed = %d, want 1", freed)
	}
	i.FullGC()
	i.Close()
	i.Close()
	if freed != 1 {
		t.Errorf("finalizer ran %d times", freed)
	}
}

func TestFinalizerRunsAtClose(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)

	v, err := Box(i, &counter{freed: &freed})
	if err != nil {
		t.Fatal(err)
	}
	if err := i.SetGlobalVariable("$counter", v); err != nil {
		t.Fatal(err)
	}
	i.FullGC()
	if freed != 0 {
		t.Fatalf("rooted payload freed")
	}
	i.Close()
	if freed != 1 {
		t.Errorf("freed = %d at close, want 1", freed)
	}
}

func TestFinalizerClosesCloser(t *testing.T) {
	i := newTestInterp(t)
	b, err := DefineClass[handle](i, "Handle", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Define(); err != nil {
		t.Fatal(err)
	}

	closed := 0
	i.WithArena(func(*Arena) error {
		_, err := Box(i, &handle{closed: &closed})
		return err
	})
	i.FullGC()
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}
}

func TestPanickingFinalizerIsContained(t *testing.T) {
	i := NewInterpreter()
	freed := 0
	defineCounter(t, i, &freed)
	b, err := DefineClass[brittle](i, "Brittle", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Define(); err != nil {
		t.Fatal(err)
	}

	i.WithArena(func(*Arena) error {
		for n := 0; n < 3; n++ {
			if _, err := Box(i, &brittle{}); err != nil {
				return err
			}
			if _, err := Box(i, &counter{freed: &freed}); err != nil {
				return err
			}
		}
		return nil
	})
	stats := i.FullGC()
	if freed != 3 {
		t.Errorf("freed = %d after a sweep with panicking finalizers, want 3", freed)
	}
	if stats.Finalized != 6 {
		t.Errorf("finalized = %d, want 6", stats.Finalized)
	}

	v, err := Box(i, &brittle{})
	if err != nil {
		t.Fatal(err)
	}
	if err := i.SetGlobalVariable("$brittle", v); err != nil {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if !i.IsClosed() {
		t.Error("Close did not complete after a panicking finalizer")
	}
}

func TestNativeErrorBecomesGuestException(t *testing.T) {
	i := newTestInterp(t)
	freed := 0
	defineCounter(t, i, &freed)
	defineWidget(t, i)

	w, err := Box(i, &widget{})
	if err != nil {
		t.Fatal(err)
	}
	counterClass := i.VM().ClassGet("Counter")
	// Call Counter#value with a Widget receiver.
	m := counterClass.LookupMethod(i.VM().Symbols.Intern("value"))
	_, err = i.VM().Rescue(func() vm.Value { return m(i.VM(), w, nil) })
	var exc *vm.Exception
	if !errors.As(err, &exc) {
		t.Fatalf("got %v, want guest exception", err)
	}
	if exc.Class != "TypeError" || exc.Message != "wrong argument type Widget (expected Counter)" {
		t.Errorf("got %s", exc)
	}
}

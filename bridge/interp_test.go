package bridge

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chazu/trellis/config"
	"github.com/chazu/trellis/vm"
)

func TestNewUsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Interpreter.Name = "under-test"
	i, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer i.Close()

	if i.Config() != cfg {
		t.Error("Config() mismatch")
	}
	j := NewInterpreter()
	defer j.Close()
	if i.ID() == j.ID() {
		t.Error("interpreters share an identity")
	}
}

func TestFuncallDivisionByZero(t *testing.T) {
	i := newTestInterp(t)

	_, err := i.Funcall(i.ConvertInt(1), "/", i.ConvertInt(0))
	var ge *GuestError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want GuestError", err)
	}
	if ge.Class != "ZeroDivisionError" || string(ge.Msg) != "divided by 0" {
		t.Errorf("got %s", ge)
	}
	if got := ge.Error(); got != "divided by 0 (ZeroDivisionError)" {
		t.Errorf("Error() = %q", got)
	}

	v, err := i.Funcall(i.ConvertFloat(1), "/", i.ConvertInt(0))
	if err != nil {
		t.Fatalf("float division: %v", err)
	}
	if f, _ := i.TryConvertFloat(v); !math.IsInf(f, 1) {
		t.Errorf("1.0 / 0 = %v", f)
	}
}

func TestFuncallNoMethod(t *testing.T) {
	i := newTestInterp(t)

	_, err := i.Funcall(i.ConvertInt(3), "frobnicate")
	var ge *GuestError
	if !errors.As(err, &ge) || ge.Class != "NoMethodError" {
		t.Fatalf("got %v", err)
	}
	if got := string(ge.Msg); got != "undefined method 'frobnicate' for an instance of Integer" {
		t.Errorf("message = %q", got)
	}
	if i.RespondTo(i.ConvertInt(3), "frobnicate") || !i.RespondTo(i.ConvertInt(3), "+") {
		t.Error("RespondTo wrong")
	}
}

func TestRaiseHostErrors(t *testing.T) {
	i := newTestInterp(t)
	spec := mustClassSpec(t, "Raiser", nil, nil)

	plain := errors.New("plain failure")
	var raised vm.Value
	err := ForClass(i, spec).
		AddSelfMethod("plain", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			return vm.Nil, fmt.Errorf("wrapped: %w", plain)
		}).
		AddSelfMethod("missing", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			return vm.Nil, notDefined(NotDefinedMethod, "Raiser#missing")
		}).
		AddSelfMethod("reraise", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			_, err := i.Funcall(self, "missing")
			var ge *GuestError
			if errors.As(err, &ge) {
				raised = ge.Value
			}
			return vm.Nil, err
		}).
		Define()
	if err != nil {
		t.Fatal(err)
	}
	class, _ := spec.Resolve(i)

	tests := []struct {
		method string
		class  string
		msg    string
	}{
		{"plain", "RuntimeError", "wrapped: plain failure"},
		{"missing", "ScriptError", "method Raiser#missing not defined"},
		{"reraise", "ScriptError", "method Raiser#missing not defined"},
	}
	for _, tt := range tests {
		_, err := i.Funcall(class.Value(), tt.method)
		var ge *GuestError
		if !errors.As(err, &ge) {
			t.Errorf("%s: got %v", tt.method, err)
			continue
		}
		if ge.Class != tt.class || string(ge.Msg) != tt.msg {
			t.Errorf("%s: got %s", tt.method, ge)
		}
		if tt.method == "reraise" && ge.Value != raised {
			t.Error("re-raised exception is not the original instance")
		}
	}
}

func TestInspectAndToS(t *testing.T) {
	i := newTestInterp(t)

	tests := []struct {
		v       vm.Value
		inspect string
		toS     string
	}{
		{vm.Nil, "nil", ""},
		{i.ConvertInt(-5), "-5", "-5"},
		{i.ConvertFloat(1), "1.0", "1.0"},
		{i.ConvertMutString("a\"b"), `"a\"b"`, `a"b`},
		{i.ConvertMutInts([]int64{1, 2}), "[1, 2]", "[1, 2]"},
	}
	for _, tt := range tests {
		if got := string(i.Inspect(tt.v)); got != tt.inspect {
			t.Errorf("Inspect = %q, want %q", got, tt.inspect)
		}
		if got := string(i.ToS(tt.v)); got != tt.toS {
			t.Errorf("ToS = %q, want %q", got, tt.toS)
		}
	}
}

func TestClosedInterpreter(t *testing.T) {
	i := NewInterpreter()
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if !i.IsClosed() {
		t.Error("IsClosed false")
	}
	if _, err := i.Funcall(vm.Nil, "inspect"); !errors.Is(err, ErrClosed) {
		t.Errorf("Funcall = %v", err)
	}
	if err := i.DefineGlobalConstant("X", vm.Nil); !errors.Is(err, ErrClosed) {
		t.Errorf("DefineGlobalConstant = %v", err)
	}
	if _, err := i.MarshalValue(vm.Nil); !errors.Is(err, ErrClosed) {
		t.Errorf("MarshalValue = %v", err)
	}
}

func TestInitRelease(t *testing.T) {
	i := newTestInterp(t)
	rel := config.Default().Release

	if err := InitRelease(i, rel); err != nil {
		t.Fatal(err)
	}
	v, err := i.GlobalConstant("TRELLIS_VERSION")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := i.TryConvertMutString(v); s != rel.Version {
		t.Errorf("TRELLIS_VERSION = %q", s)
	}
	if !i.VM().IsFrozen(v) {
		t.Error("TRELLIS_VERSION not frozen")
	}
	if _, err := i.Funcall(v, "<<", i.ConvertMutString("x")); err == nil {
		t.Error("appended to a frozen constant")
	}
	p, _ := i.GlobalConstant("TRELLIS_PATCHLEVEL")
	if !p.IsFixnum() {
		t.Errorf("TRELLIS_PATCHLEVEL = %#v", p)
	}
	d, _ := i.GlobalConstant("TRELLIS_DESCRIPTION")
	if s, _ := i.TryConvertMutString(d); s != Description(rel) {
		t.Errorf("TRELLIS_DESCRIPTION = %q", s)
	}

	i.FullGC()
	if _, err := i.TryConvertMutString(v); err != nil {
		t.Errorf("constant collected: %v", err)
	}

	bad := rel
	bad.Revision = "abc"
	err = InitRelease(i, bad)
	var nd *NotDefinedError
	if !errors.As(err, &nd) || nd.Kind != NotDefinedGlobalConstant || nd.FQName != "TRELLIS_REVISION" {
		t.Errorf("got %v", err)
	}
}

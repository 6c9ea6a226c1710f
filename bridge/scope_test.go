package bridge

import (
	"errors"
	"testing"

	"github.com/chazu/trellis/vm"
)

type (
	modA struct{}
	clsB struct{}
	clsC struct{}
	clsD struct{}
	modE struct{}
)

func defineNesting(t *testing.T, i *Interp) (a *ModuleSpec, d *ClassSpec, e *ModuleSpec) {
	t.Helper()
	must := func(b *Builder, err error) *Builder {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if err := b.Define(); err != nil {
			t.Fatal(err)
		}
		return b
	}

	must(DefineModule[modA](i, "A", nil))
	a, _ = ModuleSpecOf[modA](i)
	must(DefineClass[clsB](i, "B", a.Scope()))
	must(DefineClass[clsC](i, "C", a.Scope()))
	b, _ := ClassSpecOf[clsB](i)
	c, _ := ClassSpecOf[clsC](i)
	must(DefineClass[clsD](i, "D", b.Scope()))
	must(DefineModule[modE](i, "E", c.Scope()))
	d, _ = ClassSpecOf[clsD](i)
	e, _ = ModuleSpecOf[modE](i)
	return a, d, e
}

func TestFQName(t *testing.T) {
	i := newTestInterp(t)
	a, d, e := defineNesting(t, i)

	if got := a.FQName(); got != "A" {
		t.Errorf("A = %q", got)
	}
	if got := d.FQName(); got != "A::B::D" {
		t.Errorf("D = %q", got)
	}
	if got := e.FQName(); got != "A::C::E" {
		t.Errorf("E = %q", got)
	}
	if got := e.Scope().Enclosing().Enclosing().Name(); got != "A" {
		t.Errorf("root of E's chain = %q", got)
	}

	class, err := d.Resolve(i)
	if err != nil {
		t.Fatalf("resolve D: %v", err)
	}
	if got := class.FQName(); got != "A::B::D" {
		t.Errorf("guest name of D = %q", got)
	}
	module, err := e.Resolve(i)
	if err != nil {
		t.Fatalf("resolve E: %v", err)
	}
	if !module.IsModule() || module.FQName() != "A::C::E" {
		t.Errorf("E resolved to %s", module.FQName())
	}
	if i.VM().ClassPath("A::B::D") != class {
		t.Error("ClassPath disagrees with scope resolution")
	}
}

func TestScopeIsAnOwnedCopy(t *testing.T) {
	i := newTestInterp(t)
	_, d, _ := defineNesting(t, i)

	s1, s2 := d.Scope(), d.Scope()
	if s1 == s2 || s1.Enclosing() == s2.Enclosing() {
		t.Error("scopes share their enclosing chain")
	}
	if s1.FQName() != s2.FQName() || s1.Kind() != ScopeClass {
		t.Errorf("copies differ: %s vs %s", s1.FQName(), s2.FQName())
	}
}

func TestResolveRewalksEveryCall(t *testing.T) {
	i := newTestInterp(t)
	a, d, _ := defineNesting(t, i)

	first, err := d.Resolve(i)
	if err != nil {
		t.Fatal(err)
	}

	// Rebind the top-level constant A to an unrelated module.
	v := i.VM()
	replacement := v.DefineModuleUnder(v.DefineModuleUnder(nil, "Elsewhere"), "A")
	v.ObjectClass.ConstSet(a.Symbol(), replacement.Value())

	_, err = d.Resolve(i)
	var nd *NotDefinedError
	if !errors.As(err, &nd) || nd.Kind != NotDefinedEnclosingScope || nd.FQName != "A::B" {
		t.Fatalf("after rebinding A: got %v, want enclosing scope A::B not defined", err)
	}

	// Define B and D under the new A: resolution finds the new class.
	if err := ForClass(i, mustClassSpec(t, "B", a.Scope(), nil)).Define(); err != nil {
		t.Fatal(err)
	}
	if err := ForClass(i, d).Define(); err != nil {
		t.Fatal(err)
	}
	second, err := d.Resolve(i)
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("resolution returned the class from before the redefinition")
	}
	if second.Outer.Outer != replacement {
		t.Error("resolved class is not nested in the new A")
	}
}

func mustClassSpec(t *testing.T, name string, enclosing *EnclosingScope, dt *vm.DataType) *ClassSpec {
	t.Helper()
	spec, err := NewClassSpec(name, enclosing, dt)
	if err != nil {
		t.Fatal(err)
	}
	return spec
}

func TestResolveNotDefined(t *testing.T) {
	i := newTestInterp(t)

	missing, err := NewModuleSpec(i, "Missing", nil)
	if err != nil {
		t.Fatal(err)
	}
	spec := mustClassSpec(t, "Leaf", missing.Scope(), nil)

	tests := []struct {
		name   string
		err    error
		kind   NotDefinedKind
		fqname string
	}{
		{"module", func() error { _, err := missing.Resolve(i); return err }(), NotDefinedModule, "Missing"},
		{"enclosing", func() error { _, err := spec.Resolve(i); return err }(), NotDefinedEnclosingScope, "Missing"},
		{"define under missing", ForClass(i, spec).Define(), NotDefinedEnclosingScope, "Missing"},
		{"class", func() error { _, err := mustClassSpec(t, "Nope", nil, nil).Resolve(i); return err }(), NotDefinedClass, "Nope"},
		{"super", ForClass(i, mustClassSpec(t, "Sub", nil, nil)).WithSuper(mustClassSpec(t, "Base", nil, nil)).Define(), NotDefinedSuperClass, "Base"},
	}
	for _, tt := range tests {
		var nd *NotDefinedError
		if !errors.As(tt.err, &nd) {
			t.Errorf("%s: got %v, want NotDefinedError", tt.name, tt.err)
			continue
		}
		if nd.Kind != tt.kind || nd.FQName != tt.fqname {
			t.Errorf("%s: got %s %s, want %s %s", tt.name, nd.Kind, nd.FQName, tt.kind, tt.fqname)
		}
	}
}

func TestDefineWithSuperAndMethods(t *testing.T) {
	i := newTestInterp(t)

	base := mustClassSpec(t, "Base", nil, nil)
	err := ForClass(i, base).
		AddMethod("kind", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			return i.ConvertMutString("base"), nil
		}).
		AddSelfMethod("build", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			return i.Funcall(self, "new")
		}).
		Define()
	if err != nil {
		t.Fatal(err)
	}
	sub := mustClassSpec(t, "Sub", nil, nil)
	if err := ForClass(i, sub).WithSuper(base).Define(); err != nil {
		t.Fatal(err)
	}

	subClass, _ := sub.Resolve(i)
	obj, err := i.Funcall(subClass.Value(), "build")
	if err != nil {
		t.Fatalf("Sub.build: %v", err)
	}
	kind, err := i.Funcall(obj, "kind")
	if err != nil {
		t.Fatalf("kind: %v", err)
	}
	if got, _ := i.TryConvertMutString(kind); got != "base" {
		t.Errorf("kind = %q", got)
	}

	// Reopening with a different superclass is a guest TypeError.
	err = ForClass(i, sub).Define()
	var ge *GuestError
	if !errors.As(err, &ge) || ge.Class != "TypeError" {
		t.Errorf("got %v, want superclass mismatch", err)
	}
}

func TestDefineModuleWithInclude(t *testing.T) {
	i := newTestInterp(t)

	greeter, err := NewModuleSpec(i, "Greeter", nil)
	if err != nil {
		t.Fatal(err)
	}
	err = ForModule(i, greeter).
		AddMethod("greet", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			return i.ConvertMutString("hello"), nil
		}).
		AddSelfMethod("version", func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error) {
			return i.ConvertInt(2), nil
		}).
		Define()
	if err != nil {
		t.Fatal(err)
	}
	person := mustClassSpec(t, "Person", nil, nil)
	if err := ForClass(i, person).Include(greeter).Define(); err != nil {
		t.Fatal(err)
	}

	class, _ := person.Resolve(i)
	p, _ := i.Funcall(class.Value(), "new")
	got, err := i.Funcall(p, "greet")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := i.TryConvertMutString(got); s != "hello" {
		t.Errorf("greet = %q", s)
	}
	module, _ := greeter.Resolve(i)
	if v, err := i.Funcall(module.Value(), "version"); err != nil || v.Int() != 2 {
		t.Errorf("Greeter.version = %#v, %v", v, err)
	}
}

func TestNamesWithNULAreRejected(t *testing.T) {
	i := newTestInterp(t)

	checks := []struct {
		name string
		err  error
		kind string
	}{
		{"class", func() error { _, err := NewClassSpec("Bad\x00Name", nil, nil); return err }(), "constant"},
		{"module", func() error { _, err := NewModuleSpec(i, "\x00", nil); return err }(), "constant"},
		{"method", ForClass(i, mustClassSpec(t, "Ok", nil, nil)).AddMethod("m\x00", nil).Define(), "method"},
		{"funcall", func() error { _, err := i.Funcall(vm.Nil, "to_s\x00"); return err }(), "method"},
		{"constant", i.DefineGlobalConstant("X\x00Y", vm.Nil), "constant"},
		{"global", i.SetGlobalVariable("$a\x00b", vm.Nil), "global"},
	}
	for _, c := range checks {
		var ine *InvalidNameError
		if !errors.As(c.err, &ine) || ine.Kind != c.kind || ine.Empty {
			t.Errorf("%s: got %v", c.name, c.err)
		}
	}

	if _, err := NewClassSpec("", nil, nil); err == nil {
		t.Error("empty class name accepted")
	}
	if i.VM().ClassGet("Ok") != nil {
		t.Error("class defined despite an invalid method name")
	}
}

func TestSymbols(t *testing.T) {
	i := newTestInterp(t)

	if _, ok := i.CheckIntern([]byte("never_seen_before")); ok {
		t.Fatal("CheckIntern created a symbol")
	}
	sym, err := i.Intern([]byte("with\x00nul"))
	if err != nil {
		t.Fatal(err)
	}
	again, ok := i.CheckIntern([]byte("with\x00nul"))
	if !ok || again != sym {
		t.Errorf("CheckIntern = %d, %t, want %d", again, ok, sym)
	}
	name, ok := i.SymbolName(sym)
	if !ok || string(name) != "with\x00nul" {
		t.Errorf("SymbolName = %q, %t", name, ok)
	}
	if _, ok := i.SymbolName(0); ok {
		t.Error("symbol 0 has a name")
	}
}

func TestConstantsAndGlobals(t *testing.T) {
	i := newTestInterp(t)
	_, _, _ = defineNesting(t, i)

	if err := i.DefineGlobalConstant("ANSWER", i.ConvertInt(42)); err != nil {
		t.Fatal(err)
	}
	v, err := i.GlobalConstant("ANSWER")
	if err != nil || v.Int() != 42 {
		t.Errorf("ANSWER = %#v, %v", v, err)
	}
	if _, err := i.GlobalConstant("QUESTION"); err == nil {
		t.Error("missing constant found")
	}

	if err := DefineClassConstant[clsD](i, "LIMIT", i.ConvertInt(7)); err != nil {
		t.Fatal(err)
	}
	got, err := i.Funcall(i.VM().ClassPath("A::B::D").Value(), "const_get", i.ConvertMutString("LIMIT"))
	if err != nil || got.Int() != 7 {
		t.Errorf("D::LIMIT = %#v, %v", got, err)
	}
	if err := DefineModuleConstant[modE](i, "NAME", i.ConvertMutString("e")); err != nil {
		t.Fatal(err)
	}
	if err := DefineModuleConstant[widget](i, "NAME", vm.Nil); err == nil {
		t.Error("constant defined on unregistered module")
	}

	s := i.ConvertMutString("global")
	if err := i.SetGlobalVariable("$g", s); err != nil {
		t.Fatal(err)
	}
	i.FullGC()
	g, err := i.GetGlobalVariable("$g")
	if err != nil || g != s {
		t.Fatalf("$g = %#v, %v", g, err)
	}
	if err := i.UnsetGlobalVariable("$g"); err != nil {
		t.Fatal(err)
	}
	if g, _ := i.GetGlobalVariable("$g"); !g.IsNil() {
		t.Errorf("$g after unset = %#v", g)
	}

	var ine *InvalidNameError
	if err := i.SetGlobalVariable("g", vm.Nil); !errors.As(err, &ine) || !ine.NoPrefix {
		t.Errorf("SetGlobalVariable(g) = %v", err)
	}
	if err := i.SetGlobalVariable("$", vm.Nil); !errors.As(err, &ine) || !ine.Empty {
		t.Errorf("SetGlobalVariable($) = %v", err)
	}
}

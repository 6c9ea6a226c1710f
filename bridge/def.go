package bridge

import (
	"fmt"
	"reflect"

	"github.com/chazu/trellis/vm"
)

// Method is a native method callable from guest code. Returning a non-nil
// error raises it in the guest, converted through its Exception
// implementation when it has one.
type Method func(i *Interp, self vm.Value, args []vm.Value) (vm.Value, error)

// wrap adapts a bridge Method to the VM calling convention.
func (i *Interp) wrap(m Method) vm.Method {
	return func(_ *vm.VM, self vm.Value, args []vm.Value) vm.Value {
		result, err := m(i, self, args)
		if err != nil {
			Raise(i, err)
		}
		return result
	}
}

// ---------------------------------------------------------------------------
// Class and module specs
// ---------------------------------------------------------------------------

// ClassSpec describes a guest class defined from Go: its name, the scope it
// is nested in and, for classes whose instances box Go values, its data
// type.
type ClassSpec struct {
	name      string
	enclosing *EnclosingScope
	dataType  *vm.DataType
	host      reflect.Type
}

// NewClassSpec validates name and builds a class spec. A nil enclosing
// scope places the class at top level.
func NewClassSpec(name string, enclosing *EnclosingScope, dataType *vm.DataType) (*ClassSpec, error) {
	if err := validateName("constant", name); err != nil {
		return nil, err
	}
	return &ClassSpec{name: name, enclosing: enclosing.clone(), dataType: dataType}, nil
}

func (s *ClassSpec) Name() string { return s.name }
func (s *ClassSpec) Enclosing() *EnclosingScope { return s.enclosing }
func (s *ClassSpec) DataType() *vm.DataType { return s.dataType }
func (s *ClassSpec) Scope() *EnclosingScope { return EnclosingScopeOfClass(s) }
func (s *ClassSpec) FQName() string { return qualify(s.enclosing, s.name) }
func (s *ClassSpec) String() string { return s.FQName() }
func (s *ClassSpec) Resolve(i *Interp) (*vm.Class, error) { return s.Scope().Resolve(i) }

// ModuleSpec describes a guest module defined from Go.
type ModuleSpec struct {
	name      string
	sym       vm.Symbol
	enclosing *EnclosingScope
}

// NewModuleSpec validates name, interns it in i and builds a module spec.
func NewModuleSpec(i *Interp, name string, enclosing *EnclosingScope) (*ModuleSpec, error) {
	if err := validateName("constant", name); err != nil {
		return nil, err
	}
	sym, err := i.Intern([]byte(name))
	if err != nil {
		return nil, err
	}
	return &ModuleSpec{name: name, sym: sym, enclosing: enclosing.clone()}, nil
}

func (s *ModuleSpec) Name() string { return s.name }
func (s *ModuleSpec) Symbol() vm.Symbol { return s.sym }
func (s *ModuleSpec) Enclosing() *EnclosingScope { return s.enclosing }
func (s *ModuleSpec) Scope() *EnclosingScope { return EnclosingScopeOfModule(s) }
func (s *ModuleSpec) FQName() string { return qualify(s.enclosing, s.name) }
func (s *ModuleSpec) String() string { return s.FQName() }
func (s *ModuleSpec) Resolve(i *Interp) (*vm.Class, error) { return s.Scope().Resolve(i) }

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

type methodDef struct {
	name   string
	method Method
	self   bool
}

// Builder collects the methods of a class or module and defines them in
// the guest in one step. Errors are deferred to Define.
type Builder struct {
	i        *Interp
	class    *ClassSpec
	module   *ModuleSpec
	super    *ClassSpec
	includes []*ModuleSpec
	methods  []methodDef
	err      error
}

// ForClass starts a definition of spec.
func ForClass(i *Interp, spec *ClassSpec) *Builder {
	return &Builder{i: i, class: spec}
}

// ForModule starts a definition of spec.
func ForModule(i *Interp, spec *ModuleSpec) *Builder {
	return &Builder{i: i, module: spec}
}

// WithSuper sets the superclass. It has no effect on modules.
func (b *Builder) WithSuper(super *ClassSpec) *Builder {
	b.super = super
	return b
}

// Include mixes a module into the class or module being defined.
func (b *Builder) Include(m *ModuleSpec) *Builder {
	b.includes = append(b.includes, m)
	return b
}

// AddMethod adds an instance method.
func (b *Builder) AddMethod(name string, m Method) *Builder {
	return b.add(name, m, false)
}

// AddSelfMethod adds a singleton method on the class or module itself.
func (b *Builder) AddSelfMethod(name string, m Method) *Builder {
	return b.add(name, m, true)
}

func (b *Builder) add(name string, m Method, self bool) *Builder {
	if b.err != nil {
		return b
	}
	if err := validateName("method", name); err != nil {
		b.err = err
		return b
	}
	b.methods = append(b.methods, methodDef{name: name, method: m, self: self})
	return b
}

// Define creates (or reopens) the class or module in the guest and installs
// its methods. The enclosing scope and superclass are resolved now, so they
// must already be defined.
func (b *Builder) Define() error {
	if b.err != nil {
		return b.err
	}
	i := b.i
	if i.closed {
		return ErrClosed
	}

	var enclosing *EnclosingScope
	var fqname string
	if b.class != nil {
		enclosing, fqname = b.class.enclosing, b.class.FQName()
	} else {
		enclosing, fqname = b.module.enclosing, b.module.FQName()
	}
	outer, err := resolveEnclosing(i, enclosing)
	if err != nil {
		return err
	}

	var super *vm.Class
	if b.class != nil && b.super != nil {
		super, err = b.super.Resolve(i)
		if err != nil {
			return notDefined(NotDefinedSuperClass, b.super.FQName())
		}
	}

	var mixins []*vm.Class
	for _, m := range b.includes {
		c, err := m.Resolve(i)
		if err != nil {
			return err
		}
		mixins = append(mixins, c)
	}

	var target *vm.Class
	_, err = i.vm.Rescue(func() vm.Value {
		if b.class != nil {
			target = i.vm.DefineClassUnder(outer, b.class.name, super)
		} else {
			target = i.vm.DefineModuleUnder(outer, b.module.name)
		}
		return vm.Nil
	})
	if err != nil {
		if exc, ok := err.(*vm.Exception); ok {
			return fromVMException(exc)
		}
		return err
	}

	if b.class != nil && b.class.dataType != nil {
		target.DataType = b.class.dataType
	}
	for _, m := range mixins {
		target.Include(m)
	}
	for _, def := range b.methods {
		sym := i.vm.Symbols.Intern(def.name)
		if def.self {
			target.SetClassMethod(sym, i.wrap(def.method))
		} else {
			target.SetMethod(sym, i.wrap(def.method))
		}
	}
	log.Debugf("defined %s with %d methods", fqname, len(b.methods))
	return nil
}

// ---------------------------------------------------------------------------
// Registry: Go types bound to guest classes and modules
// ---------------------------------------------------------------------------

// DefineClass registers T as the host type of a new guest class whose
// instances box *T, and returns a builder for it. The class is not created
// until the builder's Define runs.
func DefineClass[T any](i *Interp, name string, enclosing *EnclosingScope) (*Builder, error) {
	spec, err := NewClassSpec(name, enclosing, nil)
	if err != nil {
		return nil, err
	}
	spec.dataType = &vm.DataType{Name: spec.FQName(), Free: boxFree[T](spec.FQName())}
	spec.host = reflect.TypeFor[T]()
	i.classes[spec.host] = spec
	return ForClass(i, spec), nil
}

// RegisterClass binds T to an existing spec without boxing support, for
// plain classes that still need to be found by host type.
func RegisterClass[T any](i *Interp, spec *ClassSpec) {
	spec.host = reflect.TypeFor[T]()
	i.classes[spec.host] = spec
}

// DefineModule registers T as the host type of a new guest module.
func DefineModule[T any](i *Interp, name string, enclosing *EnclosingScope) (*Builder, error) {
	spec, err := NewModuleSpec(i, name, enclosing)
	if err != nil {
		return nil, err
	}
	i.modules[reflect.TypeFor[T]()] = spec
	return ForModule(i, spec), nil
}

// ClassSpecOf returns the class spec registered for T.
func ClassSpecOf[T any](i *Interp) (*ClassSpec, bool) {
	spec, ok := i.classes[reflect.TypeFor[T]()]
	return spec, ok
}

// ModuleSpecOf returns the module spec registered for T.
func ModuleSpecOf[T any](i *Interp) (*ModuleSpec, bool) {
	spec, ok := i.modules[reflect.TypeFor[T]()]
	return spec, ok
}

func hostTypeName[T any]() string {
	return fmt.Sprint(reflect.TypeFor[T]())
}

package vm

import (
	"sort"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Class: guest classes and modules
// ---------------------------------------------------------------------------

// ClassKind distinguishes classes from modules.
type ClassKind uint8

const (
	KindClass ClassKind = iota
	KindModule
)

func (k ClassKind) String() string {
	if k == KindModule {
		return "module"
	}
	return "class"
}

// Method is a native method body. Guest exceptions are raised with
// VM.Raise and friends, which unwind to the nearest Send boundary.
type Method func(vm *VM, self Value, args []Value) Value

// Class represents a guest class or module.
type Class struct {
	Name       string
	Kind       ClassKind
	Outer      *Class // lexical owner; nil for top-level
	Superclass *Class // nil for BasicObject and modules
	DataType   *DataType

	includes     []*Class
	methods      map[Symbol]Method
	classMethods map[Symbol]Method
	consts       map[Symbol]Value
	constMu      sync.RWMutex

	value Value // the guest Class or Module object describing this class
}

// FQName returns the fully qualified name, e.g. "A::B::C".
func (c *Class) FQName() string {
	if c.Outer == nil || c.Outer.Outer == nil && c.Outer.Name == "Object" {
		return c.Name
	}
	return c.Outer.FQName() + "::" + c.Name
}

// Value returns the guest object describing the class.
func (c *Class) Value() Value {
	return c.value
}

// IsModule reports whether c is a module.
func (c *Class) IsModule() bool {
	return c.Kind == KindModule
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
		for _, m := range current.includes {
			if m == other {
				return true
			}
		}
	}
	return false
}

// instanceDataType returns the DataType instances of c are boxed with,
// inherited from the nearest ancestor that declares one.
func (c *Class) instanceDataType() *DataType {
	for current := c; current != nil; current = current.Superclass {
		if current.DataType != nil {
			return current.DataType
		}
	}
	return nil
}

// AddMethod registers a variable-arity instance method.
func (c *Class) AddMethod(symbols *SymbolTable, name string, m Method) {
	c.methods[symbols.Intern(name)] = m
}

// AddMethod0 registers a zero-argument instance method.
func (c *Class) AddMethod0(symbols *SymbolTable, name string, fn func(vm *VM, self Value) Value) {
	c.AddMethod(symbols, name, func(vm *VM, self Value, args []Value) Value {
		vm.CheckArity(args, 0, 0)
		return fn(vm, self)
	})
}

// AddMethod1 registers a one-argument instance method.
func (c *Class) AddMethod1(symbols *SymbolTable, name string, fn func(vm *VM, self, arg Value) Value) {
	c.AddMethod(symbols, name, func(vm *VM, self Value, args []Value) Value {
		vm.CheckArity(args, 1, 1)
		return fn(vm, self, args[0])
	})
}

// AddClassMethod registers a singleton method on the class itself.
func (c *Class) AddClassMethod(symbols *SymbolTable, name string, m Method) {
	c.classMethods[symbols.Intern(name)] = m
}

// SetMethod installs an instance method under an interned name.
func (c *Class) SetMethod(sym Symbol, m Method) {
	c.methods[sym] = m
}

// SetClassMethod installs a singleton method under an interned name.
func (c *Class) SetClassMethod(sym Symbol, m Method) {
	c.classMethods[sym] = m
}

// Include appends a module to the ancestor chain after c's own methods.
func (c *Class) Include(m *Class) {
	for _, existing := range c.includes {
		if existing == m {
			return
		}
	}
	c.includes = append(c.includes, m)
}

// LookupMethod finds an instance method along the ancestor chain.
func (c *Class) LookupMethod(sym Symbol) Method {
	for current := c; current != nil; current = current.Superclass {
		if m, ok := current.methods[sym]; ok {
			return m
		}
		for i := len(current.includes) - 1; i >= 0; i-- {
			if m := current.includes[i].LookupMethod(sym); m != nil {
				return m
			}
		}
	}
	return nil
}

// lookupClassMethod finds a singleton method on c or its superclasses.
func (c *Class) lookupClassMethod(sym Symbol) Method {
	for current := c; current != nil; current = current.Superclass {
		if m, ok := current.classMethods[sym]; ok {
			return m
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// ConstGet returns a constant defined directly on c.
func (c *Class) ConstGet(sym Symbol) (Value, bool) {
	c.constMu.RLock()
	defer c.constMu.RUnlock()
	v, ok := c.consts[sym]
	return v, ok
}

// ConstSet defines or replaces a constant on c.
func (c *Class) ConstSet(sym Symbol, v Value) {
	c.constMu.Lock()
	defer c.constMu.Unlock()
	c.consts[sym] = v
}

func (c *Class) forEachConst(fn func(Value)) {
	c.constMu.RLock()
	defer c.constMu.RUnlock()
	for _, v := range c.consts {
		fn(v)
	}
}

// ---------------------------------------------------------------------------
// ClassTable: all classes known to the VM
// ---------------------------------------------------------------------------

// ClassTable keeps every defined class and module alive and indexes them
// by fully qualified name. Name resolution itself goes through constants on
// the owning class, as guest code sees them.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with the same qualified name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	key := c.FQName()
	old := ct.classes[key]
	ct.classes[key] = c
	return old
}

// Lookup finds a class by fully qualified name.
func (ct *ClassTable) Lookup(fqname string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[fqname]
}

// Len returns the number of registered classes and modules.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}

// Names returns every qualified name in sorted order.
func (ct *ClassTable) Names() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	names := make([]string, 0, len(ct.classes))
	for name := range ct.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ct *ClassTable) each(fn func(*Class)) {
	ct.mu.RLock()
	classes := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		classes = append(classes, c)
	}
	ct.mu.RUnlock()
	for _, c := range classes {
		fn(c)
	}
}

// ---------------------------------------------------------------------------
// Definition and lookup on the VM
// ---------------------------------------------------------------------------

func newClass(name string, kind ClassKind, outer, super *Class) *Class {
	return &Class{
		Name:         name,
		Kind:         kind,
		Outer:        outer,
		Superclass:   super,
		methods:      make(map[Symbol]Method),
		classMethods: make(map[Symbol]Method),
		consts:       make(map[Symbol]Value),
	}
}

// install creates the guest object describing c, binds c as a constant of
// its owner and registers it in the class table.
func (vm *VM) install(c *Class) *Class {
	tt, meta := TypeClass, vm.ClassClass
	if c.Kind == KindModule {
		tt, meta = TypeModule, vm.ModuleClass
	}
	c.value = vm.alloc(&Object{tt: tt, class: meta, owner: c})
	if c.Outer != nil {
		c.Outer.ConstSet(vm.Symbols.Intern(c.Name), c.value)
	}
	vm.Classes.Register(c)
	return c
}

// DefineClassUnder defines class name under outer (nil means top level),
// or returns the existing class when it is already defined with a
// compatible superclass. super nil means Object.
func (vm *VM) DefineClassUnder(outer *Class, name string, super *Class) *Class {
	if outer == nil {
		outer = vm.ObjectClass
	}
	if super == nil {
		super = vm.ObjectClass
	}
	if existing := vm.constClass(outer, name); existing != nil {
		if existing.Kind != KindClass {
			vm.Raise(vm.TypeErrorClass, name+" is not a class")
		}
		if existing.Superclass != super {
			vm.Raise(vm.TypeErrorClass, "superclass mismatch for class "+name)
		}
		return existing
	}
	return vm.install(newClass(name, KindClass, outer, super))
}

// DefineModuleUnder defines module name under outer (nil means top level),
// or returns the existing module.
func (vm *VM) DefineModuleUnder(outer *Class, name string) *Class {
	if outer == nil {
		outer = vm.ObjectClass
	}
	if existing := vm.constClass(outer, name); existing != nil {
		if existing.Kind != KindModule {
			vm.Raise(vm.TypeErrorClass, name+" is not a module")
		}
		return existing
	}
	return vm.install(newClass(name, KindModule, outer, nil))
}

// ClassGetUnder returns the class named name directly under outer, or nil
// when no such constant exists or it is not a class.
func (vm *VM) ClassGetUnder(outer *Class, name string) *Class {
	if outer == nil {
		outer = vm.ObjectClass
	}
	c := vm.constClass(outer, name)
	if c == nil || c.Kind != KindClass {
		return nil
	}
	return c
}

// ModuleGetUnder returns the module named name directly under outer, or nil.
func (vm *VM) ModuleGetUnder(outer *Class, name string) *Class {
	if outer == nil {
		outer = vm.ObjectClass
	}
	c := vm.constClass(outer, name)
	if c == nil || c.Kind != KindModule {
		return nil
	}
	return c
}

// ClassGet returns a top-level class by name.
func (vm *VM) ClassGet(name string) *Class {
	return vm.ClassGetUnder(nil, name)
}

// ModuleGet returns a top-level module by name.
func (vm *VM) ModuleGet(name string) *Class {
	return vm.ModuleGetUnder(nil, name)
}

// ClassPath resolves a "::"-separated path from the top level.
func (vm *VM) ClassPath(path string) *Class {
	scope := vm.ObjectClass
	for _, part := range strings.Split(path, "::") {
		scope = vm.constClass(scope, part)
		if scope == nil {
			return nil
		}
	}
	return scope
}

func (vm *VM) constClass(outer *Class, name string) *Class {
	sym, ok := vm.Symbols.Lookup(name)
	if !ok {
		return nil
	}
	v, ok := outer.ConstGet(sym)
	if !ok || (v.Type() != TypeClass && v.Type() != TypeModule) {
		return nil
	}
	return vm.Object(v).owner
}

// ClassFromValue returns the class described by a Class or Module value.
func (vm *VM) ClassFromValue(v Value) *Class {
	if v.Type() != TypeClass && v.Type() != TypeModule {
		return nil
	}
	return vm.Object(v).owner
}

// ModuleGetUnderSym returns the module bound to sym directly under outer,
// or nil.
func (vm *VM) ModuleGetUnderSym(outer *Class, sym Symbol) *Class {
	if outer == nil {
		outer = vm.ObjectClass
	}
	v, ok := outer.ConstGet(sym)
	if !ok || v.Type() != TypeModule {
		return nil
	}
	return vm.Object(v).owner
}

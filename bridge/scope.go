package bridge

import (
	"errors"

	"github.com/chazu/trellis/vm"
)

// ScopeKind distinguishes class scopes from module scopes.
type ScopeKind uint8

const (
	ScopeClass ScopeKind = iota
	ScopeModule
)

// EnclosingScope identifies the class or module a definition is nested in.
//
// A scope holds its own copy of its enclosing chain, never a reference to
// another live scope, so scopes form a tree without back references. It is
// immutable once built; only its resolution is repeated.
type EnclosingScope struct {
	kind      ScopeKind
	name      string
	sym       vm.Symbol // modules only
	enclosing *EnclosingScope
}

// EnclosingScopeOfClass returns the scope a class spec describes.
func EnclosingScopeOfClass(spec *ClassSpec) *EnclosingScope {
	return &EnclosingScope{
		kind:      ScopeClass,
		name:      spec.name,
		enclosing: spec.enclosing.clone(),
	}
}

// EnclosingScopeOfModule returns the scope a module spec describes.
func EnclosingScopeOfModule(spec *ModuleSpec) *EnclosingScope {
	return &EnclosingScope{
		kind:      ScopeModule,
		name:      spec.name,
		sym:       spec.sym,
		enclosing: spec.enclosing.clone(),
	}
}

func (s *EnclosingScope) clone() *EnclosingScope {
	if s == nil {
		return nil
	}
	c := *s
	c.enclosing = s.enclosing.clone()
	return &c
}

// Kind returns whether the scope is a class or a module.
func (s *EnclosingScope) Kind() ScopeKind {
	return s.kind
}

// Name returns the unqualified name.
func (s *EnclosingScope) Name() string {
	return s.name
}

// Enclosing returns the scope this one is nested in, or nil at top level.
func (s *EnclosingScope) Enclosing() *EnclosingScope {
	return s.enclosing
}

// FQName returns the fully qualified name, root first, e.g. "A::B::C".
func (s *EnclosingScope) FQName() string {
	return qualify(s.enclosing, s.name)
}

// Resolve walks the enclosing chain from the root and returns the guest
// class or module. Nothing is cached: every call asks the class table.
func (s *EnclosingScope) Resolve(i *Interp) (*vm.Class, error) {
	outer, err := resolveEnclosing(i, s.enclosing)
	if err != nil {
		return nil, err
	}
	switch s.kind {
	case ScopeModule:
		if m := i.vm.ModuleGetUnderSym(outer, s.sym); m != nil {
			return m, nil
		}
		return nil, notDefined(NotDefinedModule, s.FQName())
	default:
		if c := i.vm.ClassGetUnder(outer, s.name); c != nil {
			return c, nil
		}
		return nil, notDefined(NotDefinedClass, s.FQName())
	}
}

// resolveEnclosing resolves the owner of a definition. A nil scope is the
// top level. A missing owner is reported as a missing enclosing scope,
// naming the outermost level that is absent.
func resolveEnclosing(i *Interp, scope *EnclosingScope) (*vm.Class, error) {
	if scope == nil {
		return nil, nil
	}
	outer, err := scope.Resolve(i)
	if err == nil {
		return outer, nil
	}
	var nd *NotDefinedError
	if errors.As(err, &nd) && nd.Kind == NotDefinedEnclosingScope {
		return nil, err
	}
	return nil, notDefined(NotDefinedEnclosingScope, scope.FQName())
}

func qualify(enclosing *EnclosingScope, name string) string {
	if enclosing == nil {
		return name
	}
	return enclosing.FQName() + "::" + name
}

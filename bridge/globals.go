package bridge

import (
	"github.com/chazu/trellis/vm"
)

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

// Intern returns the symbol for name, creating it if needed. Any byte
// sequence is a valid symbol name.
func (i *Interp) Intern(name []byte) (vm.Symbol, error) {
	if i.closed {
		return 0, ErrClosed
	}
	return i.vm.Symbols.InternBytes(name), nil
}

// CheckIntern returns the symbol for name only if it already exists.
func (i *Interp) CheckIntern(name []byte) (vm.Symbol, bool) {
	return i.vm.Symbols.Lookup(string(name))
}

// SymbolName returns a copy of the name of sym.
func (i *Interp) SymbolName(sym vm.Symbol) ([]byte, bool) {
	if sym == 0 || int(sym) > i.vm.Symbols.Len() {
		return nil, false
	}
	return []byte(i.vm.Symbols.Name(sym)), true
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// DefineGlobalConstant binds a top-level constant.
func (i *Interp) DefineGlobalConstant(name string, v vm.Value) error {
	if i.closed {
		return ErrClosed
	}
	if err := validateName("constant", name); err != nil {
		return err
	}
	i.vm.ObjectClass.ConstSet(i.vm.Symbols.Intern(name), v)
	return nil
}

// GlobalConstant returns a top-level constant.
func (i *Interp) GlobalConstant(name string) (vm.Value, error) {
	if sym, ok := i.vm.Symbols.Lookup(name); ok {
		if v, ok := i.vm.ObjectClass.ConstGet(sym); ok {
			return v, nil
		}
	}
	return vm.Nil, notDefined(NotDefinedGlobalConstant, name)
}

// DefineClassConstant binds a constant under the guest class registered
// for T.
func DefineClassConstant[T any](i *Interp, name string, v vm.Value) error {
	if err := validateName("constant", name); err != nil {
		return err
	}
	spec, ok := ClassSpecOf[T](i)
	if !ok {
		return notDefined(NotDefinedClass, hostTypeName[T]())
	}
	class, err := spec.Resolve(i)
	if err != nil {
		return err
	}
	class.ConstSet(i.vm.Symbols.Intern(name), v)
	return nil
}

// DefineModuleConstant binds a constant under the guest module registered
// for T.
func DefineModuleConstant[T any](i *Interp, name string, v vm.Value) error {
	if err := validateName("constant", name); err != nil {
		return err
	}
	spec, ok := ModuleSpecOf[T](i)
	if !ok {
		return notDefined(NotDefinedModule, hostTypeName[T]())
	}
	module, err := spec.Resolve(i)
	if err != nil {
		return err
	}
	module.ConstSet(i.vm.Symbols.Intern(name), v)
	return nil
}

// ---------------------------------------------------------------------------
// Global variables
// ---------------------------------------------------------------------------

func globalName(name string) error {
	if err := validateName("global", name); err != nil {
		return err
	}
	if name[0] != '$' {
		return &InvalidNameError{Kind: "global", NoPrefix: true}
	}
	if len(name) == 1 {
		return &InvalidNameError{Kind: "global", Empty: true}
	}
	return nil
}

// SetGlobalVariable sets a global variable. Names include the leading '$'.
func (i *Interp) SetGlobalVariable(name string, v vm.Value) error {
	if i.closed {
		return ErrClosed
	}
	if err := globalName(name); err != nil {
		return err
	}
	i.vm.SetGlobal(i.vm.Symbols.Intern(name), v)
	return nil
}

// GetGlobalVariable returns a global variable, or nil when it is unset.
func (i *Interp) GetGlobalVariable(name string) (vm.Value, error) {
	if err := globalName(name); err != nil {
		return vm.Nil, err
	}
	sym, ok := i.vm.Symbols.Lookup(name)
	if !ok {
		return vm.Nil, nil
	}
	return i.vm.GetGlobal(sym), nil
}

// UnsetGlobalVariable removes a global variable.
func (i *Interp) UnsetGlobalVariable(name string) error {
	if err := globalName(name); err != nil {
		return err
	}
	if sym, ok := i.vm.Symbols.Lookup(name); ok {
		i.vm.UnsetGlobal(sym)
	}
	return nil
}

package bridge

import (
	"errors"
	"fmt"

	"github.com/chazu/trellis/vm"
)

// Exception is an error that has a guest-side representation.
//
// Name is the guest exception class raised when the error crosses into
// guest code; Message is its message text.
type Exception interface {
	error
	Name() string
	Message() []byte
	ToGuest(i *Interp) (vm.Value, bool)
}

// ---------------------------------------------------------------------------
// ConversionError
// ---------------------------------------------------------------------------

// ConversionError reports a guest value whose tag does not fit the
// requested host type.
type ConversionError struct {
	From GuestType
	To   HostType
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert from %s to %s", e.From, e.To)
}

func (e *ConversionError) Name() string    { return "TypeError" }
func (e *ConversionError) Message() []byte { return []byte(e.Error()) }

func (e *ConversionError) ToGuest(i *Interp) (vm.Value, bool) {
	return i.newException(e)
}

func conversionError(v vm.Value, to HostType) error {
	return &ConversionError{From: GuestTypeOf(v), To: to}
}

// ---------------------------------------------------------------------------
// UnboxError
// ---------------------------------------------------------------------------

// UnboxError reports a boxed value whose class does not match the host
// type it was unboxed as, or an envelope without a payload.
type UnboxError struct {
	Expected      string
	Observed      string
	Uninitialized bool
}

func (e *UnboxError) Error() string {
	if e.Uninitialized {
		return "uninitialized " + e.Expected
	}
	return fmt.Sprintf("wrong argument type %s (expected %s)", e.Observed, e.Expected)
}

func (e *UnboxError) Name() string    { return "TypeError" }
func (e *UnboxError) Message() []byte { return []byte(e.Error()) }

func (e *UnboxError) ToGuest(i *Interp) (vm.Value, bool) {
	return i.newException(e)
}

// ---------------------------------------------------------------------------
// NotDefinedError
// ---------------------------------------------------------------------------

// NotDefinedKind names the kind of item a NotDefinedError refers to.
type NotDefinedKind uint8

const (
	NotDefinedEnclosingScope NotDefinedKind = iota
	NotDefinedSuperClass
	NotDefinedClass
	NotDefinedMethod
	NotDefinedModule
	NotDefinedGlobalConstant
	NotDefinedClassConstant
	NotDefinedModuleConstant
)

var notDefinedKinds = [...]string{
	NotDefinedEnclosingScope: "enclosing scope",
	NotDefinedSuperClass:     "super class",
	NotDefinedClass:          "class",
	NotDefinedMethod:         "method",
	NotDefinedModule:         "module",
	NotDefinedGlobalConstant: "global constant",
	NotDefinedClassConstant:  "class constant",
	NotDefinedModuleConstant: "module constant",
}

func (k NotDefinedKind) String() string {
	if int(k) < len(notDefinedKinds) {
		return notDefinedKinds[k]
	}
	return "item"
}

// NotDefinedError reports a class, module, method or constant missing from
// the guest class table.
type NotDefinedError struct {
	Kind   NotDefinedKind
	FQName string
}

func (e *NotDefinedError) Error() string {
	return fmt.Sprintf("%s %s not defined", e.Kind, e.FQName)
}

func (e *NotDefinedError) Name() string    { return "ScriptError" }
func (e *NotDefinedError) Message() []byte { return []byte(e.Error()) }

func (e *NotDefinedError) ToGuest(i *Interp) (vm.Value, bool) {
	return i.newException(e)
}

func notDefined(kind NotDefinedKind, fqname string) error {
	return &NotDefinedError{Kind: kind, FQName: fqname}
}

// ---------------------------------------------------------------------------
// InvalidNameError
// ---------------------------------------------------------------------------

// InvalidNameError rejects a constant, method or global name before it
// reaches the guest class table.
type InvalidNameError struct {
	Kind     string // "constant", "method" or "global"
	Empty    bool
	NoPrefix bool // a global name without its leading '$'
}

func (e *InvalidNameError) Error() string {
	if e.Empty {
		return e.Kind + " name must not be empty"
	}
	if e.NoPrefix {
		return e.Kind + " name must start with '$'"
	}
	return "Invalid " + e.Kind + " name contained a NUL byte"
}

func (e *InvalidNameError) Name() string    { return "NameError" }
func (e *InvalidNameError) Message() []byte { return []byte(e.Error()) }

func (e *InvalidNameError) ToGuest(i *Interp) (vm.Value, bool) {
	return i.newException(e)
}

func validateName(kind, name string) error {
	if name == "" {
		return &InvalidNameError{Kind: kind, Empty: true}
	}
	for j := 0; j < len(name); j++ {
		if name[j] == 0 {
			return &InvalidNameError{Kind: kind}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// GuestError
// ---------------------------------------------------------------------------

// GuestError is a guest exception that unwound to the host.
//
// Class and message are copied out of the guest heap; Value is the raised
// instance and is only usable while the checkpoint that was open when it
// was raised is still open.
type GuestError struct {
	Value vm.Value
	Class string
	Msg   []byte
}

func (e *GuestError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Msg, e.Class)
}

func (e *GuestError) Name() string    { return e.Class }
func (e *GuestError) Message() []byte { return e.Msg }

// ToGuest returns the original instance when it is still alive and builds
// an equivalent exception otherwise.
func (e *GuestError) ToGuest(i *Interp) (vm.Value, bool) {
	if i.vm.IsLive(e.Value) && e.Value.Type() == vm.TypeException {
		return e.Value, true
	}
	return i.newException(e)
}

func fromVMException(exc *vm.Exception) *GuestError {
	return &GuestError{Value: exc.Value, Class: exc.Class, Msg: []byte(exc.Message)}
}

// ---------------------------------------------------------------------------
// Raising host errors into the guest
// ---------------------------------------------------------------------------

var (
	// ErrClosed is returned by operations on a closed interpreter.
	ErrClosed = errors.New("bridge: interpreter is closed")

	errNilPayload = errors.New("bridge: cannot box a nil payload")
)

// newException instantiates the guest class named by exc with its message.
// The message goes through the conversion protocol and the class's own
// constructor, the same path guest code takes.
func (i *Interp) newException(exc Exception) (vm.Value, bool) {
	if i.closed {
		return vm.Nil, false
	}
	class := i.vm.ClassPath(exc.Name())
	if class == nil || !class.IsSubclassOf(i.vm.ExceptionClass) {
		log.Warningf("exception class %s is not defined; raising RuntimeError", exc.Name())
		class = i.vm.RuntimeErrorClass
	}
	message := i.ConvertMutBytes(exc.Message())
	v, err := i.vm.Send(class.Value(), "new", message)
	if err != nil || v.Type() != vm.TypeException {
		log.Errorf("could not instantiate %s: %v", exc.Name(), err)
		return vm.Nil, false
	}
	return v, true
}

// Raise converts err into a guest exception and raises it. It only
// returns normally when err is nil. Native methods defined through a
// Builder do not need to call it: returning the error has the same effect.
func Raise(i *Interp, err error) {
	if err == nil {
		return
	}
	var exc Exception
	if !errors.As(err, &exc) {
		exc = &GuestError{Class: "RuntimeError", Msg: []byte(err.Error())}
	}
	v, ok := exc.ToGuest(i)
	if !ok {
		v = i.vm.NewException(i.vm.RuntimeErrorClass, exc.Message())
	}
	i.vm.RaiseValue(v)
}

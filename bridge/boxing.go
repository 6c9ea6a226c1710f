package bridge

import (
	"io"

	"github.com/chazu/trellis/vm"
)

// Freer is implemented by payloads that hold resources to release when
// their envelope is finalized. Payloads implementing io.Closer are closed
// instead.
type Freer interface {
	Free()
}

// boxFree builds the finalizer of a boxed class. It receives only the
// payload and runs at most once per envelope. It is called from the middle
// of a sweep, so a panic from Close or Free is logged and swallowed.
func boxFree[T any](class string) func(any) {
	return func(payload any) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("finalizer for %s panicked: %v", class, r)
			}
		}()
		if payload == nil {
			log.Errorf("finalizer for %s received a nil payload; skipping", class)
			return
		}
		p, ok := payload.(*T)
		if !ok || p == nil {
			log.Errorf("finalizer for %s received %T; skipping", class, payload)
			return
		}
		switch x := any(p).(type) {
		case io.Closer:
			if err := x.Close(); err != nil {
				log.Warningf("closing %s payload: %v", class, err)
			}
		case Freer:
			x.Free()
		}
	}
}

// boxedClass resolves the class and data type registered for T.
func boxedClass[T any](i *Interp) (*vm.Class, *vm.DataType, error) {
	if i.closed {
		return nil, nil, ErrClosed
	}
	spec, ok := ClassSpecOf[T](i)
	if !ok || spec.dataType == nil {
		return nil, nil, notDefined(NotDefinedClass, hostTypeName[T]())
	}
	class, err := spec.Resolve(i)
	if err != nil {
		return nil, nil, err
	}
	return class, spec.dataType, nil
}

// Box moves payload into a new guest instance of the class registered for
// T. The guest owns payload from now on: the envelope's finalizer releases
// it, and the host must only reach it again through Unbox.
func Box[T any](i *Interp, payload *T) (vm.Value, error) {
	if payload == nil {
		return vm.Nil, errNilPayload
	}
	class, dt, err := boxedClass[T](i)
	if err != nil {
		return vm.Nil, err
	}
	return i.vm.NewData(class, payload, dt), nil
}

// envelope checks that v is an instance of the class registered for T and
// returns its heap object.
func envelope[T any](i *Interp, v vm.Value) (*vm.Object, *vm.Class, error) {
	class, dt, err := boxedClass[T](i)
	if err != nil {
		return nil, nil, err
	}
	if v.Type() != vm.TypeData {
		return nil, nil, &UnboxError{Expected: class.FQName(), Observed: i.observedName(v)}
	}
	obj := i.vm.Object(v)
	if obj.DataType() != dt {
		return nil, nil, &UnboxError{Expected: class.FQName(), Observed: obj.Class().FQName()}
	}
	return obj, class, nil
}

func (i *Interp) observedName(v vm.Value) string {
	switch v.Type() {
	case vm.TypeNil:
		return "nil"
	case vm.TypeTrue:
		return "true"
	case vm.TypeFalse:
		return "false"
	}
	return i.vm.ClassOf(v).FQName()
}

// Unbox borrows the payload of a boxed value. The pointer aliases
// guest-owned memory: mutations are visible to later unboxes, and it is only
// valid while v is rooted.
func Unbox[T any](i *Interp, v vm.Value) (*T, error) {
	obj, class, err := envelope[T](i, v)
	if err != nil {
		return nil, err
	}
	p, ok := obj.Data().(*T)
	if !ok || p == nil {
		return nil, &UnboxError{Expected: class.FQName(), Uninitialized: true}
	}
	return p, nil
}

// Take detaches the payload of a boxed value and hands ownership back to
// the host. The envelope is left uninitialized.
func Take[T any](i *Interp, v vm.Value) (*T, error) {
	p, err := Unbox[T](i, v)
	if err != nil {
		return nil, err
	}
	i.vm.ReplaceData(v, nil)
	return p, nil
}

// Replace stores payload in a boxed value, initialized or not, and returns
// the previous payload, which the host now owns. It returns nil when the
// envelope was uninitialized.
func Replace[T any](i *Interp, v vm.Value, payload *T) (*T, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	if _, _, err := envelope[T](i, v); err != nil {
		return nil, err
	}
	if i.vm.IsFrozen(v) {
		return nil, &GuestError{Class: "FrozenError", Msg: []byte("can't modify frozen " + i.vm.ClassOf(v).FQName())}
	}
	old, _ := i.vm.ReplaceData(v, payload).(*T)
	return old, nil
}

// NewInstance creates an instance of the class registered for T by sending
// it new, so that a guest-side initialize runs.
func NewInstance[T any](i *Interp, args ...vm.Value) (vm.Value, error) {
	class, _, err := boxedClass[T](i)
	if err != nil {
		return vm.Nil, err
	}
	return i.Funcall(class.Value(), "new", args...)
}

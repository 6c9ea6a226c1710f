package bridge

import (
	"math"
	"unicode/utf8"

	"github.com/chazu/trellis/vm"
)

// The conversion protocol comes in four variants:
//
//	Convert*        infallible, never allocates guest memory
//	TryConvert*     fallible, never allocates guest memory
//	ConvertMut*     infallible, allocates a guest heap object
//	TryConvertMut*  fallible, reads or allocates guest heap objects
//
// Every allocating variant roots its result in the current arena
// checkpoint. Option values are represented by pointers: nil is nil.

// ---------------------------------------------------------------------------
// Convert: host scalar -> guest
// ---------------------------------------------------------------------------

// ConvertBool converts a bool.
func (i *Interp) ConvertBool(b bool) vm.Value {
	return vm.FromBool(b)
}

// ConvertInt converts an int64.
func (i *Interp) ConvertInt(n int64) vm.Value {
	return vm.FromInt(n)
}

// ConvertInt32 converts an int32.
func (i *Interp) ConvertInt32(n int32) vm.Value {
	return vm.FromInt(int64(n))
}

// ConvertUint8 converts a uint8.
func (i *Interp) ConvertUint8(n uint8) vm.Value {
	return vm.FromInt(int64(n))
}

// ConvertUint32 converts a uint32.
func (i *Interp) ConvertUint32(n uint32) vm.Value {
	return vm.FromInt(int64(n))
}

// ConvertFloat converts a float64.
func (i *Interp) ConvertFloat(f float64) vm.Value {
	return vm.FromFloat64(f)
}

// ConvertNil converts the unit value.
func (i *Interp) ConvertNil() vm.Value {
	return vm.Nil
}

// ConvertOptionInt converts an optional int64.
func (i *Interp) ConvertOptionInt(n *int64) vm.Value {
	if n == nil {
		return vm.Nil
	}
	return vm.FromInt(*n)
}

// ---------------------------------------------------------------------------
// TryConvert: guest -> host scalar
// ---------------------------------------------------------------------------

// TryConvertBool converts true or false.
func (i *Interp) TryConvertBool(v vm.Value) (bool, error) {
	if !v.IsBool() {
		return false, conversionError(v, HostBool)
	}
	return v.Bool(), nil
}

// TryConvertInt converts an Integer.
func (i *Interp) TryConvertInt(v vm.Value) (int64, error) {
	if !v.IsFixnum() {
		return 0, conversionError(v, HostInt)
	}
	return v.Int(), nil
}

// TryConvertUsize converts a non-negative Integer.
func (i *Interp) TryConvertUsize(v vm.Value) (uint, error) {
	if !v.IsFixnum() || v.Int() < 0 || uint64(v.Int()) > math.MaxUint {
		return 0, conversionError(v, HostInt)
	}
	return uint(v.Int()), nil
}

// TryConvertFloat converts a Float.
func (i *Interp) TryConvertFloat(v vm.Value) (float64, error) {
	if !v.IsFloat() {
		return 0, conversionError(v, HostFloat)
	}
	return v.Float64(), nil
}

// TryConvertOptionInt converts nil or an Integer.
func (i *Interp) TryConvertOptionInt(v vm.Value) (*int64, error) {
	if v.IsNil() {
		return nil, nil
	}
	n, err := i.TryConvertInt(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// TryConvertOptionBool converts nil, true or false.
func (i *Interp) TryConvertOptionBool(v vm.Value) (*bool, error) {
	if v.IsNil() {
		return nil, nil
	}
	b, err := i.TryConvertBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ---------------------------------------------------------------------------
// ConvertMut: host -> guest heap
// ---------------------------------------------------------------------------

// ConvertMutString allocates a guest String holding a copy of s.
func (i *Interp) ConvertMutString(s string) vm.Value {
	return i.vm.NewStringFromString(s)
}

// ConvertMutBytes allocates a guest String holding a copy of b.
func (i *Interp) ConvertMutBytes(b []byte) vm.Value {
	return i.vm.NewString(b)
}

// ConvertMutOptionString allocates a String, or returns nil for a nil s.
func (i *Interp) ConvertMutOptionString(s *string) vm.Value {
	if s == nil {
		return vm.Nil
	}
	return i.ConvertMutString(*s)
}

// ConvertMutOptionBytes allocates a String, or returns nil for a nil b.
func (i *Interp) ConvertMutOptionBytes(b *[]byte) vm.Value {
	if b == nil {
		return vm.Nil
	}
	return i.ConvertMutBytes(*b)
}

// ---------------------------------------------------------------------------
// TryConvertMut: guest heap -> host
// ---------------------------------------------------------------------------

// TryConvertMutString copies a String that holds valid UTF-8.
func (i *Interp) TryConvertMutString(v vm.Value) (string, error) {
	b, err := i.BorrowBytes(v)
	if err != nil {
		return "", conversionError(v, HostString)
	}
	if !utf8.Valid(b) {
		return "", conversionError(v, HostString)
	}
	return string(b), nil
}

// TryConvertMutBytes copies the bytes of a String.
func (i *Interp) TryConvertMutBytes(v vm.Value) ([]byte, error) {
	b, err := i.BorrowBytes(v)
	if err != nil {
		return nil, err
	}
	return append(make([]byte, 0, len(b)), b...), nil
}

// TryConvertMutOptionString converts nil or a UTF-8 String.
func (i *Interp) TryConvertMutOptionString(v vm.Value) (*string, error) {
	if v.IsNil() {
		return nil, nil
	}
	s, err := i.TryConvertMutString(v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TryConvertMutOptionBytes converts nil or a String.
func (i *Interp) TryConvertMutOptionBytes(v vm.Value) (*[]byte, error) {
	if v.IsNil() {
		return nil, nil
	}
	b, err := i.TryConvertMutBytes(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BorrowBytes returns the bytes of a String without copying. The slice
// aliases guest memory: it must not be modified, and it is only valid until
// the checkpoint rooting v is restored.
func (i *Interp) BorrowBytes(v vm.Value) ([]byte, error) {
	if v.Type() != vm.TypeString {
		return nil, conversionError(v, HostBytes)
	}
	return i.vm.Object(v).Bytes(), nil
}

// BorrowValues returns the elements of an Array without copying, with the
// same validity rules as BorrowBytes.
func (i *Interp) BorrowValues(v vm.Value) ([]vm.Value, error) {
	if v.Type() != vm.TypeArray {
		return nil, conversionError(v, HostSlice)
	}
	return i.vm.Object(v).Elements(), nil
}

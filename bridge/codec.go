package bridge

import (
	"iter"

	"github.com/chazu/trellis/vm"
)

// Codec converts one host type to and from guest values. Container
// conversions are built from element codecs with SliceOf and Optional.
type Codec[T any] struct {
	Host HostType
	To   func(i *Interp, x T) (vm.Value, error)
	From func(i *Interp, v vm.Value) (T, error)
}

// Element codecs for the host types the bridge supports.
var (
	ValueCodec = Codec[vm.Value]{
		Host: HostObject,
		To:   func(i *Interp, v vm.Value) (vm.Value, error) { return v, nil },
		From: func(i *Interp, v vm.Value) (vm.Value, error) { return v, nil },
	}
	BoolCodec = Codec[bool]{
		Host: HostBool,
		To:   func(i *Interp, b bool) (vm.Value, error) { return i.ConvertBool(b), nil },
		From: (*Interp).TryConvertBool,
	}
	IntCodec = Codec[int64]{
		Host: HostInt,
		To:   func(i *Interp, n int64) (vm.Value, error) { return i.ConvertInt(n), nil },
		From: (*Interp).TryConvertInt,
	}
	FloatCodec = Codec[float64]{
		Host: HostFloat,
		To:   func(i *Interp, f float64) (vm.Value, error) { return i.ConvertFloat(f), nil },
		From: (*Interp).TryConvertFloat,
	}
	StringCodec = Codec[string]{
		Host: HostString,
		To:   func(i *Interp, s string) (vm.Value, error) { return i.ConvertMutString(s), nil },
		From: (*Interp).TryConvertMutString,
	}
	BytesCodec = Codec[[]byte]{
		Host: HostBytes,
		To:   func(i *Interp, b []byte) (vm.Value, error) { return i.ConvertMutBytes(b), nil },
		From: (*Interp).TryConvertMutBytes,
	}
)

// Optional lifts c to pointers, mapping a nil pointer to guest nil and
// back.
func Optional[T any](c Codec[T]) Codec[*T] {
	return Codec[*T]{
		Host: HostOption,
		To: func(i *Interp, x *T) (vm.Value, error) {
			if x == nil {
				return vm.Nil, nil
			}
			return c.To(i, *x)
		},
		From: func(i *Interp, v vm.Value) (*T, error) {
			if v.IsNil() {
				return nil, nil
			}
			x, err := c.From(i, v)
			if err != nil {
				return nil, err
			}
			return &x, nil
		},
	}
}

// SliceOf lifts c to slices, converted to and from guest Arrays.
func SliceOf[T any](c Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Host: HostSlice,
		To: func(i *Interp, xs []T) (vm.Value, error) {
			return ToGuestSlice(i, c, xs)
		},
		From: func(i *Interp, v vm.Value) ([]T, error) {
			return FromGuestSlice(i, c, v)
		},
	}
}

// ToGuestSlice converts every element of xs and then allocates exactly one
// guest Array holding the results. Inner allocations finish before the
// array is created; all of them are rooted in the current checkpoint. On an
// element error no array is allocated.
func ToGuestSlice[T any](i *Interp, c Codec[T], xs []T) (vm.Value, error) {
	elems := make([]vm.Value, 0, len(xs))
	for _, x := range xs {
		v, err := c.To(i, x)
		if err != nil {
			return vm.Nil, err
		}
		elems = append(elems, v)
	}
	return i.vm.NewArray(elems), nil
}

// ToGuestSeq is ToGuestSlice for a sequence the caller does not own.
func ToGuestSeq[T any](i *Interp, c Codec[T], seq iter.Seq[T]) (vm.Value, error) {
	var elems []vm.Value
	for x := range seq {
		v, err := c.To(i, x)
		if err != nil {
			return vm.Nil, err
		}
		elems = append(elems, v)
	}
	return i.vm.NewArray(elems), nil
}

// FromGuestSlice converts a guest Array element by element. A non-Array
// fails with ConversionError; the first failing element aborts the
// conversion and no partial result is returned.
func FromGuestSlice[T any](i *Interp, c Codec[T], v vm.Value) ([]T, error) {
	elems, err := i.BorrowValues(v)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		x, err := c.From(i, e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func mustConvert(v vm.Value, err error) vm.Value {
	if err != nil {
		// Element codecs used by the infallible conversions never fail.
		panic(err)
	}
	return v
}

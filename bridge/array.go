package bridge

import (
	"github.com/chazu/trellis/vm"
)

// Named container conversions. Each one is a thin wrapper over a Codec; the
// guest side is always a freshly allocated Array that never aliases the
// host slice.

var (
	optionValues       = SliceOf(Optional(ValueCodec))
	byteSlices         = SliceOf(BytesCodec)
	strs               = SliceOf(StringCodec)
	ints               = SliceOf(IntCodec)
	optionByteSlices   = SliceOf(Optional(BytesCodec))
	optionStrings      = SliceOf(Optional(StringCodec))
	nestedOptionBytes  = SliceOf(SliceOf(Optional(BytesCodec)))
	nestedOptionString = SliceOf(SliceOf(Optional(StringCodec)))
)

// ConvertMutValues allocates an Array holding vs.
func (i *Interp) ConvertMutValues(vs []vm.Value) vm.Value {
	return i.vm.NewArray(vs)
}

// TryConvertMutValues copies the elements of an Array.
func (i *Interp) TryConvertMutValues(v vm.Value) ([]vm.Value, error) {
	elems, err := i.BorrowValues(v)
	if err != nil {
		return nil, err
	}
	return append(make([]vm.Value, 0, len(elems)), elems...), nil
}

// ConvertMutOptionValues allocates an Array, mapping nil entries to nil.
func (i *Interp) ConvertMutOptionValues(vs []*vm.Value) vm.Value {
	return mustConvert(optionValues.To(i, vs))
}

// TryConvertMutOptionValues converts an Array, mapping nil elements to nil
// pointers.
func (i *Interp) TryConvertMutOptionValues(v vm.Value) ([]*vm.Value, error) {
	return optionValues.From(i, v)
}

// ConvertMutByteSlices allocates an Array of Strings.
func (i *Interp) ConvertMutByteSlices(bs [][]byte) vm.Value {
	return mustConvert(byteSlices.To(i, bs))
}

// TryConvertMutByteSlices converts an Array of Strings.
func (i *Interp) TryConvertMutByteSlices(v vm.Value) ([][]byte, error) {
	return byteSlices.From(i, v)
}

// ConvertMutStrings allocates an Array of Strings.
func (i *Interp) ConvertMutStrings(ss []string) vm.Value {
	return mustConvert(strs.To(i, ss))
}

// TryConvertMutStrings converts an Array of UTF-8 Strings.
func (i *Interp) TryConvertMutStrings(v vm.Value) ([]string, error) {
	return strs.From(i, v)
}

// ConvertMutInts allocates an Array of Integers.
func (i *Interp) ConvertMutInts(ns []int64) vm.Value {
	return mustConvert(ints.To(i, ns))
}

// TryConvertMutInts converts an Array of Integers.
func (i *Interp) TryConvertMutInts(v vm.Value) ([]int64, error) {
	return ints.From(i, v)
}

// ConvertMutOptionByteSlices allocates an Array of Strings and nils.
func (i *Interp) ConvertMutOptionByteSlices(bs []*[]byte) vm.Value {
	return mustConvert(optionByteSlices.To(i, bs))
}

// TryConvertMutOptionByteSlices converts an Array of Strings and nils.
func (i *Interp) TryConvertMutOptionByteSlices(v vm.Value) ([]*[]byte, error) {
	return optionByteSlices.From(i, v)
}

// ConvertMutOptionStrings allocates an Array of Strings and nils.
func (i *Interp) ConvertMutOptionStrings(ss []*string) vm.Value {
	return mustConvert(optionStrings.To(i, ss))
}

// TryConvertMutOptionStrings converts an Array of UTF-8 Strings and nils.
func (i *Interp) TryConvertMutOptionStrings(v vm.Value) ([]*string, error) {
	return optionStrings.From(i, v)
}

// ConvertMutNestedOptionByteSlices allocates an Array of Arrays of Strings
// and nils. Each inner Array is complete before the outer one is created.
func (i *Interp) ConvertMutNestedOptionByteSlices(bs [][]*[]byte) vm.Value {
	return mustConvert(nestedOptionBytes.To(i, bs))
}

// TryConvertMutNestedOptionByteSlices converts an Array of Arrays of
// Strings and nils.
func (i *Interp) TryConvertMutNestedOptionByteSlices(v vm.Value) ([][]*[]byte, error) {
	return nestedOptionBytes.From(i, v)
}

// ConvertMutNestedOptionStrings allocates an Array of Arrays of Strings and
// nils.
func (i *Interp) ConvertMutNestedOptionStrings(ss [][]*string) vm.Value {
	return mustConvert(nestedOptionString.To(i, ss))
}

// TryConvertMutNestedOptionStrings converts an Array of Arrays of UTF-8
// Strings and nils.
func (i *Interp) TryConvertMutNestedOptionStrings(v vm.Value) ([][]*string, error) {
	return nestedOptionString.From(i, v)
}

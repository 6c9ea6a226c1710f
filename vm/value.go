package vm

import (
	"fmt"
	"math"
)

// Type is the dynamic type tag carried by every Value.
//
// The set is closed: scalar tags hold their payload inline, heap tags hold
// a generation-checked index into the VM heap.
type Type uint8

const (
	TypeNil Type = iota
	TypeFalse
	TypeTrue
	TypeFixnum
	TypeFloat
	TypeSymbol

	// Heap types. Everything at or above TypeString lives in the heap.
	TypeString
	TypeArray
	TypeObject
	TypeClass
	TypeModule
	TypeException
	TypeData
)

var typeNames = [...]string{
	TypeNil:       "nil",
	TypeFalse:     "false",
	TypeTrue:      "true",
	TypeFixnum:    "fixnum",
	TypeFloat:     "float",
	TypeSymbol:    "symbol",
	TypeString:    "string",
	TypeArray:     "array",
	TypeObject:    "object",
	TypeClass:     "class",
	TypeModule:    "module",
	TypeException: "exception",
	TypeData:      "data",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// IsHeap reports whether values of this type reference a heap slot.
func (t Type) IsHeap() bool {
	return t >= TypeString
}

// Value is an opaque handle to a guest value.
//
// Scalars (nil, booleans, fixnums, floats, symbols) are stored inline.
// Heap values store a slot index in the low 32 bits and the slot's
// generation in the high 32 bits; dereferencing a Value whose slot has
// been reclaimed and reused is detected and treated as fatal.
//
// A heap Value is only guaranteed to stay alive while it is rooted, either
// by being reachable from guest-visible state or by sitting on the arena
// stack.
type Value struct {
	tt   Type
	bits uint64
}

// Pre-defined special values
var (
	Nil   = Value{tt: TypeNil}
	True  = Value{tt: TypeTrue}
	False = Value{tt: TypeFalse}
)

// Type returns the dynamic type tag of v.
func (v Value) Type() Type {
	return v.tt
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v.tt == TypeNil
}

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool {
	return v.tt == TypeTrue || v.tt == TypeFalse
}

// IsFixnum returns true if v is an inline integer.
func (v Value) IsFixnum() bool {
	return v.tt == TypeFixnum
}

// IsFloat returns true if v is a float.
func (v Value) IsFloat() bool {
	return v.tt == TypeFloat
}

// IsSymbol returns true if v is an interned symbol.
func (v Value) IsSymbol() bool {
	return v.tt == TypeSymbol
}

// IsHeap returns true if v references a heap object.
func (v Value) IsHeap() bool {
	return v.tt.IsHeap()
}

// IsTruthy returns true if v is considered "truthy" in conditionals.
// Only false and nil are falsy; everything else is truthy.
func (v Value) IsTruthy() bool {
	return v.tt != TypeFalse && v.tt != TypeNil
}

// IsFalsy returns true if v is nil or false.
func (v Value) IsFalsy() bool {
	return !v.IsTruthy()
}

// ---------------------------------------------------------------------------
// Scalar constructors and accessors
// ---------------------------------------------------------------------------

// FromInt creates a fixnum Value. Every int64 is representable.
func FromInt(n int64) Value {
	return Value{tt: TypeFixnum, bits: uint64(n)}
}

// Int returns v as an int64.
// Panics if v is not a fixnum.
func (v Value) Int() int64 {
	if v.tt != TypeFixnum {
		panic("Value.Int: not a fixnum")
	}
	return int64(v.bits)
}

// FromFloat64 creates a float Value.
func FromFloat64(f float64) Value {
	return Value{tt: TypeFloat, bits: math.Float64bits(f)}
}

// Float64 returns v as a float64.
// Panics if v is not a float.
func (v Value) Float64() float64 {
	if v.tt != TypeFloat {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(v.bits)
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v.tt {
	case TypeTrue:
		return true
	case TypeFalse:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromSymbol creates a Value from an interned symbol.
func FromSymbol(sym Symbol) Value {
	return Value{tt: TypeSymbol, bits: uint64(sym)}
}

// Symbol returns the symbol encoded in v.
// Panics if v is not a symbol.
func (v Value) Symbol() Symbol {
	if v.tt != TypeSymbol {
		panic("Value.Symbol: not a symbol")
	}
	return Symbol(v.bits)
}

// ---------------------------------------------------------------------------
// Heap references
// ---------------------------------------------------------------------------

func heapValue(tt Type, slot uint32, gen uint32) Value {
	return Value{tt: tt, bits: uint64(gen)<<32 | uint64(slot)}
}

func (v Value) slot() uint32 {
	return uint32(v.bits)
}

func (v Value) generation() uint32 {
	return uint32(v.bits >> 32)
}

// GoString renders v for debugging; it never touches the heap.
func (v Value) GoString() string {
	switch v.tt {
	case TypeNil, TypeTrue, TypeFalse:
		return v.tt.String()
	case TypeFixnum:
		return fmt.Sprintf("%d", v.Int())
	case TypeFloat:
		return fmt.Sprintf("%g", v.Float64())
	case TypeSymbol:
		return fmt.Sprintf("sym#%d", v.bits)
	default:
		return fmt.Sprintf("<%s slot=%d gen=%d>", v.tt, v.slot(), v.generation())
	}
}

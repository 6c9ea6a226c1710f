package bridge

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/trellis/vm"
)

// ---------------------------------------------------------------------------
// Value exchange between interpreters
// ---------------------------------------------------------------------------

// Guest values are bound to the heap of the interpreter that allocated
// them. MarshalValue deep-copies a tree of plain data (nil, booleans,
// numbers, strings, symbols and arrays) into CBOR so another interpreter,
// possibly in another process, can rebuild it with UnmarshalValue. Boxed
// and plain objects are not exchangeable.

// MaxExchangeDepth is the deepest array nesting MarshalValue accepts.
const MaxExchangeDepth = 128

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// The envelope is one map. Each array level adds a map and its element
	// array, and the innermost elements are maps.
	dm, err := cbor.DecOptions{
		MaxNestedLevels:  2*MaxExchangeDepth + 2,
		MaxArrayElements: math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

type wireKind uint8

const (
	wireNil wireKind = iota
	wireTrue
	wireFalse
	wireInt
	wireFloat
	wireString
	wireSymbol
	wireArray
)

type wireValue struct {
	Kind   wireKind    `cbor:"1,keyasint"`
	Int    int64       `cbor:"2,keyasint,omitempty"`
	Float  uint64      `cbor:"3,keyasint,omitempty"` // IEEE 754 bits
	Bytes  []byte      `cbor:"4,keyasint,omitempty"`
	Elems  []wireValue `cbor:"5,keyasint,omitempty"`
	Frozen bool        `cbor:"6,keyasint,omitempty"`
}

type wireEnvelope struct {
	Origin [16]byte  `cbor:"1,keyasint"`
	Value  wireValue `cbor:"2,keyasint"`
}

// MarshalValue encodes v, tagged with the identity of i. Arrays nested
// deeper than MaxExchangeDepth fail with a ConversionError.
func (i *Interp) MarshalValue(v vm.Value) ([]byte, error) {
	if i.closed {
		return nil, ErrClosed
	}
	w, err := i.toWire(v, make(map[vm.Value]bool))
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&wireEnvelope{Origin: i.id, Value: w})
}

func (i *Interp) toWire(v vm.Value, path map[vm.Value]bool) (wireValue, error) {
	switch v.Type() {
	case vm.TypeNil:
		return wireValue{Kind: wireNil}, nil
	case vm.TypeTrue:
		return wireValue{Kind: wireTrue}, nil
	case vm.TypeFalse:
		return wireValue{Kind: wireFalse}, nil
	case vm.TypeFixnum:
		return wireValue{Kind: wireInt, Int: v.Int()}, nil
	case vm.TypeFloat:
		return wireValue{Kind: wireFloat, Float: math.Float64bits(v.Float64())}, nil
	case vm.TypeSymbol:
		return wireValue{Kind: wireSymbol, Bytes: []byte(i.vm.Symbols.Name(v.Symbol()))}, nil
	case vm.TypeString:
		obj := i.vm.Object(v)
		return wireValue{Kind: wireString, Bytes: obj.Bytes(), Frozen: obj.IsFrozen()}, nil
	case vm.TypeArray:
		if path[v] || len(path) >= MaxExchangeDepth {
			return wireValue{}, conversionError(v, HostBytes)
		}
		path[v] = true
		defer delete(path, v)
		obj := i.vm.Object(v)
		elems := make([]wireValue, 0, len(obj.Elements()))
		for _, e := range obj.Elements() {
			w, err := i.toWire(e, path)
			if err != nil {
				return wireValue{}, err
			}
			elems = append(elems, w)
		}
		return wireValue{Kind: wireArray, Elems: elems, Frozen: obj.IsFrozen()}, nil
	default:
		return wireValue{}, conversionError(v, HostBytes)
	}
}

// UnmarshalValue rebuilds a value encoded by MarshalValue on the heap of i
// and returns it with the identity of the interpreter that encoded it. The
// result is rooted in the current checkpoint.
func (i *Interp) UnmarshalValue(data []byte) (vm.Value, uuid.UUID, error) {
	if i.closed {
		return vm.Nil, uuid.Nil, ErrClosed
	}
	var env wireEnvelope
	if err := cborDecMode.Unmarshal(data, &env); err != nil {
		return vm.Nil, uuid.Nil, fmt.Errorf("bridge: unmarshal value: %w", err)
	}
	v, err := i.fromWire(&env.Value)
	if err != nil {
		return vm.Nil, uuid.Nil, err
	}
	return v, uuid.UUID(env.Origin), nil
}

func (i *Interp) fromWire(w *wireValue) (vm.Value, error) {
	switch w.Kind {
	case wireNil:
		return vm.Nil, nil
	case wireTrue:
		return vm.True, nil
	case wireFalse:
		return vm.False, nil
	case wireInt:
		return vm.FromInt(w.Int), nil
	case wireFloat:
		return vm.FromFloat64(math.Float64frombits(w.Float)), nil
	case wireSymbol:
		return vm.FromSymbol(i.vm.Symbols.InternBytes(w.Bytes)), nil
	case wireString:
		s := i.vm.NewString(w.Bytes)
		if w.Frozen {
			i.vm.Freeze(s)
		}
		return s, nil
	case wireArray:
		elems := make([]vm.Value, 0, len(w.Elems))
		for j := range w.Elems {
			e, err := i.fromWire(&w.Elems[j])
			if err != nil {
				return vm.Nil, err
			}
			elems = append(elems, e)
		}
		a := i.vm.NewArray(elems)
		if w.Frozen {
			i.vm.Freeze(a)
		}
		return a, nil
	default:
		return vm.Nil, fmt.Errorf("bridge: unmarshal value: unknown kind %d", w.Kind)
	}
}

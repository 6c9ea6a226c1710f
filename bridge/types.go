package bridge

import (
	"github.com/chazu/trellis/vm"
)

// GuestType is the coarse guest-side type catalog used in diagnostics.
type GuestType uint8

const (
	GuestNil GuestType = iota
	GuestBool
	GuestFixnum
	GuestFloat
	GuestSymbol
	GuestString
	GuestArray
	GuestObject
	GuestClass
	GuestModule
	GuestException
	GuestData
)

var guestTypeNames = [...]string{
	GuestNil:       "NilClass",
	GuestBool:      "Boolean",
	GuestFixnum:    "Integer",
	GuestFloat:     "Float",
	GuestSymbol:    "Symbol",
	GuestString:    "String",
	GuestArray:     "Array",
	GuestObject:    "Object",
	GuestClass:     "Class",
	GuestModule:    "Module",
	GuestException: "Exception",
	GuestData:      "Data",
}

// String returns the guest class name for the tag.
func (t GuestType) String() string {
	if int(t) < len(guestTypeNames) {
		return guestTypeNames[t]
	}
	return "Unknown"
}

// GuestTypeOf maps a value's tag to the guest catalog.
func GuestTypeOf(v vm.Value) GuestType {
	switch v.Type() {
	case vm.TypeNil:
		return GuestNil
	case vm.TypeTrue, vm.TypeFalse:
		return GuestBool
	case vm.TypeFixnum:
		return GuestFixnum
	case vm.TypeFloat:
		return GuestFloat
	case vm.TypeSymbol:
		return GuestSymbol
	case vm.TypeString:
		return GuestString
	case vm.TypeArray:
		return GuestArray
	case vm.TypeClass:
		return GuestClass
	case vm.TypeModule:
		return GuestModule
	case vm.TypeException:
		return GuestException
	case vm.TypeData:
		return GuestData
	default:
		return GuestObject
	}
}

// HostType is the host-side type catalog named in conversion errors.
type HostType uint8

const (
	HostBool HostType = iota
	HostBytes
	HostFloat
	HostInt
	HostMap
	HostOption
	HostString
	HostSlice
	HostObject
	HostUnit
)

var hostTypeNames = [...]string{
	HostBool:   "bool",
	HostBytes:  "[]byte",
	HostFloat:  "float64",
	HostInt:    "int64",
	HostMap:    "map",
	HostOption: "option",
	HostString: "string",
	HostSlice:  "slice",
	HostObject: "object",
	HostUnit:   "unit",
}

func (t HostType) String() string {
	if int(t) < len(hostTypeNames) {
		return hostTypeNames[t]
	}
	return "unknown"
}

package vm

// Object is a heap-allocated guest object.
//
// One struct covers every heap type; which fields are meaningful depends on
// tt. Objects are only reachable from host code through a Value.
type Object struct {
	tt     Type
	class  *Class
	gen    uint32
	mark   uint32 // GC epoch in which the object was last found reachable
	frozen bool

	bytes []byte           // TypeString contents, TypeException message
	elems []Value          // TypeArray elements
	ivars map[Symbol]Value // instance variables
	owner *Class           // TypeClass and TypeModule: the class being described

	data     any       // TypeData payload, owned by the envelope
	dataType *DataType // TypeData finalizer table
}

// DataType describes how the collector reclaims a TypeData payload.
//
// Free receives only the payload. It is called by the sweep phase of a
// collection, or when the VM is closed, at most once per envelope and never
// with the envelope itself. Mark, when set, reports guest values the payload
// keeps alive.
type DataType struct {
	Name string
	Free func(payload any)
	Mark func(payload any, mark func(Value))
}

// Class returns the class of the object.
func (obj *Object) Class() *Class {
	return obj.class
}

// Type returns the object's type tag.
func (obj *Object) Type() Type {
	return obj.tt
}

// IsFrozen reports whether the object rejects mutation.
func (obj *Object) IsFrozen() bool {
	return obj.frozen
}

// Bytes returns the byte contents of a string or exception message.
// The slice aliases guest memory and must not be retained past the arena
// checkpoint that roots the object.
func (obj *Object) Bytes() []byte {
	return obj.bytes
}

// Elements returns the elements of an array. The slice aliases guest memory.
func (obj *Object) Elements() []Value {
	return obj.elems
}

// Data returns the payload of a TypeData object.
func (obj *Object) Data() any {
	return obj.data
}

// DataType returns the finalizer table of a TypeData object.
func (obj *Object) DataType() *DataType {
	return obj.dataType
}

// Owner returns the class described by a class or module object.
func (obj *Object) Owner() *Class {
	return obj.owner
}

// GetIvar returns an instance variable, or Nil.
func (obj *Object) GetIvar(sym Symbol) Value {
	if obj.ivars == nil {
		return Nil
	}
	if v, ok := obj.ivars[sym]; ok {
		return v
	}
	return Nil
}

// SetIvar stores an instance variable.
func (obj *Object) SetIvar(sym Symbol, v Value) {
	if obj.ivars == nil {
		obj.ivars = make(map[Symbol]Value)
	}
	obj.ivars[sym] = v
}

// forEachChild reports every Value directly referenced by obj.
func (obj *Object) forEachChild(fn func(Value)) {
	for _, e := range obj.elems {
		fn(e)
	}
	for _, v := range obj.ivars {
		fn(v)
	}
	if obj.owner != nil {
		obj.owner.forEachConst(fn)
	}
	if obj.tt == TypeData && obj.data != nil && obj.dataType != nil && obj.dataType.Mark != nil {
		obj.dataType.Mark(obj.data, fn)
	}
}

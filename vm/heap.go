package vm

import "fmt"

// heap is the slot table backing every heap Value.
//
// Freed slots go on a free list and are reused; each reuse bumps the slot
// generation so that stale Values are detected on dereference.
type heap struct {
	slots []*Object
	gens  []uint32
	free  []uint32
	live  int
}

// StaleValueError is panicked when a Value refers to a reclaimed object.
// Holding a Value past the restoration of the arena checkpoint that rooted
// it is a host-side bug, not a recoverable condition.
type StaleValueError struct {
	Value Value
}

func (e *StaleValueError) Error() string {
	return fmt.Sprintf("vm: dereferenced collected value %#v", e.Value)
}

// alloc places obj in a free slot, roots it in the current arena checkpoint
// and returns its Value.
func (vm *VM) alloc(obj *Object) Value {
	if vm.closed {
		panic("vm: allocation after Close")
	}
	h := &vm.heap
	var slot uint32
	if n := len(h.free); n > 0 {
		slot = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		slot = uint32(len(h.slots))
		h.slots = append(h.slots, nil)
		h.gens = append(h.gens, 0)
	}
	h.gens[slot]++
	obj.gen = h.gens[slot]
	if vm.gc.sweeping {
		// Allocate black: objects born during a sweep survive it.
		obj.mark = vm.gc.epoch
	}
	h.slots[slot] = obj
	h.live++
	vm.gc.allocated++

	v := heapValue(obj.tt, slot, obj.gen)
	vm.Protect(v)
	return v
}

// Object dereferences a heap Value. It returns nil for scalar values and
// panics with *StaleValueError when the slot has been reclaimed.
func (vm *VM) Object(v Value) *Object {
	if !v.IsHeap() {
		return nil
	}
	slot := v.slot()
	h := &vm.heap
	if int(slot) >= len(h.slots) {
		panic(&StaleValueError{Value: v})
	}
	obj := h.slots[slot]
	if obj == nil || obj.gen != v.generation() {
		panic(&StaleValueError{Value: v})
	}
	return obj
}

// IsLive reports whether a heap Value still refers to an allocated object.
// Scalars are always live.
func (vm *VM) IsLive(v Value) bool {
	if !v.IsHeap() {
		return true
	}
	slot := v.slot()
	h := &vm.heap
	if int(slot) >= len(h.slots) {
		return false
	}
	obj := h.slots[slot]
	return obj != nil && obj.gen == v.generation()
}

// LiveObjects returns the number of allocated heap objects.
func (vm *VM) LiveObjects() int {
	return vm.heap.live
}

// release frees a slot. The caller has already run any finalizer.
func (vm *VM) release(slot uint32) {
	h := &vm.heap
	h.slots[slot] = nil
	h.free = append(h.free, slot)
	h.live--
}

// ---------------------------------------------------------------------------
// Allocation helpers
// ---------------------------------------------------------------------------

// NewString allocates a String holding a copy of b.
func (vm *VM) NewString(b []byte) Value {
	buf := make([]byte, len(b))
	copy(buf, b)
	return vm.alloc(&Object{tt: TypeString, class: vm.StringClass, bytes: buf})
}

// NewStringFromString allocates a String from a Go string.
func (vm *VM) NewStringFromString(s string) Value {
	return vm.alloc(&Object{tt: TypeString, class: vm.StringClass, bytes: []byte(s)})
}

// NewArray allocates an Array holding a copy of elems. Every element must
// already be rooted; the new array becomes their root once it is.
func (vm *VM) NewArray(elems []Value) Value {
	buf := make([]Value, len(elems))
	copy(buf, elems)
	return vm.alloc(&Object{tt: TypeArray, class: vm.ArrayClass, elems: buf})
}

// NewObject allocates a plain instance of class.
func (vm *VM) NewObject(class *Class) Value {
	return vm.alloc(&Object{tt: TypeObject, class: class})
}

// NewData allocates a TypeData envelope of class holding payload.
// Ownership of payload moves into the envelope; dt.Free reclaims it when
// the collector frees the envelope.
func (vm *VM) NewData(class *Class, payload any, dt *DataType) Value {
	return vm.alloc(&Object{tt: TypeData, class: class, data: payload, dataType: dt})
}

// NewException allocates an exception instance of class with message.
func (vm *VM) NewException(class *Class, message []byte) Value {
	buf := make([]byte, len(message))
	copy(buf, message)
	return vm.alloc(&Object{tt: TypeException, class: class, bytes: buf})
}

// ReplaceData swaps the payload of a TypeData object and returns the one it
// held. The envelope's finalizer will see the new payload.
func (vm *VM) ReplaceData(v Value, payload any) any {
	obj := vm.Object(v)
	if obj == nil || obj.tt != TypeData {
		panic(fmt.Sprintf("vm: ReplaceData on %s", v.Type()))
	}
	old := obj.data
	obj.data = payload
	return old
}

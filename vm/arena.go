package vm

import "fmt"

// ---------------------------------------------------------------------------
// Arena: the root-protection stack
// ---------------------------------------------------------------------------

// The arena is a stack of Values that the collector treats as roots. Every
// allocation pushes its result; nothing pops implicitly. Host code brackets
// call regions with ArenaSave/ArenaRestore so that temporaries created in
// the region stop being rooted when it ends.

// ArenaMisuseError is panicked when the arena stack is restored to an index
// it never reached. It indicates a broken checkpoint discipline.
type ArenaMisuseError struct {
	Index int
	Len   int
}

func (e *ArenaMisuseError) Error() string {
	return fmt.Sprintf("vm: arena restore to %d but stack holds %d roots", e.Index, e.Len)
}

// ArenaSave returns the current depth of the arena stack.
func (vm *VM) ArenaSave() int {
	return len(vm.arena)
}

// ArenaRestore truncates the arena stack to idx, unrooting every Value
// protected since the matching ArenaSave.
func (vm *VM) ArenaRestore(idx int) {
	if idx < 0 || idx > len(vm.arena) {
		err := &ArenaMisuseError{Index: idx, Len: len(vm.arena)}
		log.Critical(err.Error())
		panic(err)
	}
	clear(vm.arena[idx:])
	vm.arena = vm.arena[:idx]
	if idx < vm.arenaWarnDepth {
		vm.arenaWarned = false
	}
}

// Protect roots v in the current arena checkpoint. Scalars are ignored.
func (vm *VM) Protect(v Value) Value {
	if !v.IsHeap() {
		return v
	}
	vm.arena = append(vm.arena, v)
	if n := len(vm.arena); vm.arenaWarnDepth > 0 && n >= vm.arenaWarnDepth && !vm.arenaWarned {
		vm.arenaWarned = true
		log.Warningf("arena stack reached %d roots; a host call region is probably missing a checkpoint", n)
	}
	if n := len(vm.arena); n > vm.gc.arenaHighWater {
		vm.gc.arenaHighWater = n
	}
	return v
}

// ArenaLen returns the number of rooted Values on the arena stack.
func (vm *VM) ArenaLen() int {
	return len(vm.arena)
}

// SetArenaWarnDepth sets the arena depth at which a warning is logged.
// Zero disables the warning.
func (vm *VM) SetArenaWarnDepth(n int) {
	vm.arenaWarnDepth = n
}

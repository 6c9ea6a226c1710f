package bridge

import (
	"fmt"

	"github.com/chazu/trellis/vm"
)

// ---------------------------------------------------------------------------
// Arena checkpoints
// ---------------------------------------------------------------------------

// Every guest allocation is rooted on the VM's arena stack until the
// checkpoint that was open at the time is restored. Host code that calls
// into the guest in a loop must open a checkpoint per iteration, or the
// stack, and with it the live heap, grows without bound.

// ArenaMisuseError is panicked when checkpoints are not restored in the
// reverse order they were created, restored twice, or created on a closed
// interpreter. All of these are host bugs.
type ArenaMisuseError struct {
	Op    string
	Depth int // position of the checkpoint, 0 = outermost
	Open  int // checkpoints open at the time
}

func (e *ArenaMisuseError) Error() string {
	return fmt.Sprintf("bridge: arena %s at depth %d with %d checkpoints open", e.Op, e.Depth, e.Open)
}

func (i *Interp) arenaMisuse(op string, depth int) {
	err := &ArenaMisuseError{Op: op, Depth: depth, Open: len(i.arenas)}
	log.Critical(err.Error(), "interpreter", i.id.String())
	panic(err)
}

// Arena is an open checkpoint. Values allocated while it is the innermost
// checkpoint stop being rooted when it is restored, unless they were
// explicitly kept with Protect.
type Arena struct {
	i        *Interp
	index    int
	depth    int
	restored bool
	kept     []vm.Value
}

// CreateArenaSavepoint opens a checkpoint at the current top of the arena
// stack. It panics on a closed interpreter.
func (i *Interp) CreateArenaSavepoint() *Arena {
	if i.closed {
		i.arenaMisuse("create on closed interpreter", len(i.arenas))
	}
	a := &Arena{i: i, index: i.vm.ArenaSave(), depth: len(i.arenas)}
	i.arenas = append(i.arenas, a)
	return a
}

// Interp returns the interpreter the checkpoint belongs to.
func (a *Arena) Interp() *Interp {
	return a.i
}

// Protect keeps v rooted after this checkpoint is restored: it is rooted
// again in the enclosing checkpoint. Scalars need no protection.
func (a *Arena) Protect(v vm.Value) vm.Value {
	if v.IsHeap() {
		a.kept = append(a.kept, v)
	}
	return v
}

// Restore truncates the arena stack to where it stood when the checkpoint
// was created. Checkpoints must be restored innermost first. Restoring after
// the interpreter has been closed does nothing.
func (a *Arena) Restore() {
	i := a.i
	if i.closed {
		a.restored = true
		return
	}
	if a.restored {
		i.arenaMisuse("restored twice", a.depth)
	}
	if a.depth != len(i.arenas)-1 {
		i.arenaMisuse("restored out of order", a.depth)
	}
	i.vm.ArenaRestore(a.index)
	for _, v := range a.kept {
		if i.vm.IsLive(v) {
			i.vm.Protect(v)
		}
	}
	a.kept = nil
	a.restored = true
	i.arenas = i.arenas[:a.depth]
}

// WithArena runs fn inside a fresh checkpoint and restores it afterwards,
// whether fn returns or panics. On a closed interpreter it returns
// ErrClosed, where CreateArenaSavepoint panics.
func (i *Interp) WithArena(fn func(a *Arena) error) error {
	if i.closed {
		return ErrClosed
	}
	a := i.CreateArenaSavepoint()
	defer a.Restore()
	return fn(a)
}

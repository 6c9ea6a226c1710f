package vm

import (
	"time"
)

// ---------------------------------------------------------------------------
// Collector: mark and sweep over the heap slot table
// ---------------------------------------------------------------------------

// GCStats holds statistics from a single collection pass.
type GCStats struct {
	Full           bool
	Live           int
	Swept          int
	Finalized      int
	ArenaDepth     int
	ArenaHighWater int
	Allocated      uint64
	Duration       time.Duration
	Timestamp      time.Time
}

// DefaultIncrementalStep is the number of slots an incremental pass sweeps.
const DefaultIncrementalStep = 1024

type gcState struct {
	epoch          uint32
	sweeping       bool
	sweepPos       int
	step           int
	allocated      uint64
	arenaHighWater int
	passes         uint64
	last           GCStats
}

// SetIncrementalStep sets how many heap slots one incremental pass sweeps.
func (vm *VM) SetIncrementalStep(n int) {
	if n <= 0 {
		n = DefaultIncrementalStep
	}
	vm.gc.step = n
}

// FullGC marks from the roots and sweeps the whole heap, finishing any
// incremental cycle in progress.
func (vm *VM) FullGC() GCStats {
	start := time.Now()
	stats := GCStats{Full: true, Timestamp: start}

	if vm.gc.sweeping {
		vm.sweep(len(vm.heap.slots), &stats)
	}
	vm.markRoots()
	vm.sweep(len(vm.heap.slots), &stats)

	return vm.finishPass(start, stats)
}

// IncrementalGC performs one bounded step of collection. The first step
// of a cycle marks from the roots; every step sweeps at most the configured
// number of slots. Objects allocated while a cycle is sweeping survive it.
func (vm *VM) IncrementalGC() GCStats {
	start := time.Now()
	stats := GCStats{Timestamp: start}

	if !vm.gc.sweeping {
		vm.markRoots()
	}
	step := vm.gc.step
	if step <= 0 {
		step = DefaultIncrementalStep
	}
	vm.sweep(step, &stats)

	return vm.finishPass(start, stats)
}

// LastGCStats returns the statistics of the most recent pass.
func (vm *VM) LastGCStats() GCStats {
	return vm.gc.last
}

// GCPasses returns the number of collection passes run so far.
func (vm *VM) GCPasses() uint64 {
	return vm.gc.passes
}

func (vm *VM) finishPass(start time.Time, stats GCStats) GCStats {
	stats.Live = vm.heap.live
	stats.ArenaDepth = len(vm.arena)
	stats.ArenaHighWater = vm.gc.arenaHighWater
	stats.Allocated = vm.gc.allocated
	stats.Duration = time.Since(start)
	vm.gc.passes++
	vm.gc.last = stats
	log.Debugf("gc pass full=%t live=%d swept=%d finalized=%d arena=%d",
		stats.Full, stats.Live, stats.Swept, stats.Finalized, stats.ArenaDepth)
	return stats
}

// markRoots starts a new cycle: every object reachable from the arena
// stack, the globals and the class table gets the new epoch.
func (vm *VM) markRoots() {
	vm.gc.epoch++
	vm.gc.sweeping = true
	vm.gc.sweepPos = 0

	epoch := vm.gc.epoch
	var work []Value
	push := func(v Value) {
		if v.IsHeap() {
			work = append(work, v)
		}
	}

	for _, v := range vm.arena {
		push(v)
	}
	for _, v := range vm.globals {
		push(v)
	}
	vm.Classes.each(func(c *Class) {
		push(c.value)
		c.forEachConst(push)
	})

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		if !vm.IsLive(v) {
			continue
		}
		obj := vm.heap.slots[v.slot()]
		if obj.mark == epoch {
			continue
		}
		obj.mark = epoch
		obj.forEachChild(push)
	}
}

// sweep frees up to n unmarked slots starting at the sweep cursor and runs
// their finalizers.
func (vm *VM) sweep(n int, stats *GCStats) {
	epoch := vm.gc.epoch
	end := vm.gc.sweepPos + n
	if end > len(vm.heap.slots) {
		end = len(vm.heap.slots)
	}
	for slot := vm.gc.sweepPos; slot < end; slot++ {
		obj := vm.heap.slots[slot]
		if obj == nil || obj.mark == epoch {
			continue
		}
		if vm.finalize(obj) {
			stats.Finalized++
		}
		vm.release(uint32(slot))
		stats.Swept++
	}
	vm.gc.sweepPos = end
	if end >= len(vm.heap.slots) {
		vm.gc.sweeping = false
		vm.gc.sweepPos = 0
	}
}

// finalize hands a TypeData payload to its DataType.Free exactly once.
// It reports whether a finalizer ran.
func (vm *VM) finalize(obj *Object) bool {
	if obj.tt != TypeData || obj.dataType == nil || obj.dataType.Free == nil {
		return false
	}
	payload := obj.data
	obj.data = nil
	obj.dataType.Free(payload)
	vm.finalized++
	return true
}

// Finalized returns the number of finalizers run over the VM's lifetime.
func (vm *VM) Finalized() uint64 {
	return vm.finalized
}

// Package alloc implements the per-thread bump allocator of §4.E: hand out
// bytes from a thread's nursery, and when the request can't be satisfied
// (or an exclusive phase is pending), take the safepoint path and trigger a
// minor collection.
package alloc

import (
	"corevm/internal/coordinator"
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
	"corevm/internal/platform"
	"corevm/internal/roots"
)

// Allocate installs obj in the heap, charging size bytes against t's
// nursery budget, and returns the Ref it is now addressed by. It is the
// only safepoint in this core (§5): every allocation polls
// machine.Exclusive and takes the Idle round trip when one is pending.
func Allocate(t *machine.Thread, obj object.Value, size int) object.Ref {
	m := t.Machine

	if size >= len(t.Nursery) {
		platform.Abort("alloc: request exceeds nursery capacity (large-object allocation is out of scope)")
	}

	for {
		if t.NurseryPos+size < len(t.Nursery) && m.Exclusive == nil {
			t.NurseryPos += size
			return m.Heap.Allocate(obj, size)
		}
		safepoint(t)
		if t.NurseryPos+size < len(t.Nursery) && m.Exclusive == nil {
			continue
		}
		collectMinor(t)
	}
}

// safepoint takes the Active<->Idle round trip described in §4.E: while
// another thread has requested exclusive, park until it clears.
func safepoint(t *machine.Thread) {
	coordinator.Safepoint(t)
}

// collectMinor runs a minor collection under an exclusive phase this thread
// itself acquires, then returns to Active. §4.D: a minor collection is a
// nursery reset on every scanned thread, performed by the root scanner
// itself as it visits each thread.
func collectMinor(t *machine.Thread) {
	coordinator.AcquireExclusive(t)
	defer coordinator.ReleaseExclusive(t)

	iter := roots.MachineIterator{M: t.Machine}
	t.Machine.Heap.Collect(heap.Minor, iter)
}

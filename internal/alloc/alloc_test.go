package alloc

import (
	"testing"

	"corevm/internal/coordinator"
	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
)

func newTestThread(nurserySize int) (*machine.Machine, *machine.Thread) {
	mf := finder.NewMemoryFinder()
	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 16, NurserySize: nurserySize}
	m := machine.NewMachine(h, mf, cfg)

	th := machine.NewThread(m, nil, cfg)
	m.Root = th
	coordinator.Admit(th)
	return m, th
}

// TestAllocateBumpsNursery is §4.E's bump-allocator path: a single
// allocation that fits the nursery charges its size against the cursor and
// returns a resolvable Ref without touching the exclusive phase at all.
func TestAllocateBumpsNursery(t *testing.T) {
	_, th := newTestThread(1 << 10)

	ref := Allocate(th, object.NewPair(object.Null, object.Null, object.Null), 32)
	if th.NurseryPos != 32 {
		t.Errorf("NurseryPos = %d, want 32", th.NurseryPos)
	}
	if th.Machine.Heap.Resolve(ref) == nil {
		t.Errorf("allocated ref resolved to nil")
	}
}

// TestAllocateTriggersMinorCollectionWhenNurseryFull drives the nursery to
// exhaustion with no rooted objects; the fallback to collectMinor must
// reclaim them all, reset the cursor, and let allocation continue rather
// than abort or deadlock.
func TestAllocateTriggersMinorCollectionWhenNurseryFull(t *testing.T) {
	m, th := newTestThread(64)

	var last object.Ref
	for i := 0; i < 8; i++ {
		last = Allocate(th, object.NewPair(object.Null, object.Null, object.Null), 20)
	}

	if th.NurseryPos >= len(th.Nursery) {
		t.Errorf("NurseryPos = %d did not reset below nursery size %d after overflow", th.NurseryPos, len(th.Nursery))
	}
	if m.Heap.Stats().Collections == 0 {
		t.Errorf("expected at least one minor collection to have run")
	}
	if th.Machine.Heap.Resolve(last) == nil {
		t.Errorf("most recent allocation did not survive (unrooted collections should only reclaim strictly earlier garbage)")
	}
}

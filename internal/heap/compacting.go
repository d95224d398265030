package heap

import (
	"sync"

	"corevm/internal/object"
	"corevm/internal/platform"
)

// CompactingHeap is a reference Heap implementation: a single growable
// table of live values, collected by marking from roots (the same
// roots-then-worklist shape as a mark-sweep collector) and then compacting
// survivors to the front of a fresh table, reassigning every live object's
// Ref. Every
// root slot the RootIterator visited, and every Ref field any surviving
// object held, is rewritten to the relocated address before Collect
// returns — the same end-to-end contract a real copying collector gives,
// over a simpler, single-generation backing store.
//
// Allocate/Resolve are safe for concurrent use by multiple mutator threads;
// Collect assumes the caller already holds exclusive access (§4.F) and does
// not itself coordinate with the thread coordinator.
type CompactingHeap struct {
	mu    sync.Mutex
	table []object.Value // table[0] is unused; object.Null addresses it
	sizes []uint64       // parallel to table; the size Allocate was called with for each slot
	stats Stats
}

// NewCompactingHeap constructs an empty heap.
func NewCompactingHeap() *CompactingHeap {
	return &CompactingHeap{table: make([]object.Value, 1), sizes: make([]uint64, 1)}
}

func (h *CompactingHeap) Allocate(obj object.Value, size int) object.Ref {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.table = append(h.table, obj)
	h.sizes = append(h.sizes, uint64(size))
	h.stats.LiveObjects++
	h.stats.BytesLive += uint64(size)
	return object.Ref(len(h.table) - 1)
}

func (h *CompactingHeap) Resolve(ref object.Ref) object.Value {
	if ref == object.Null {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if int(ref) >= len(h.table) {
		return nil
	}
	return h.table[ref]
}

// Check is the write barrier hook (§4.B). This heap is single-generation,
// so there is no old->new generational pointer to record; the hook still
// takes the heap monitor so every call site uses the same discipline a
// generational backend would require.
func (h *CompactingHeap) Check(slot *object.Ref, heapMonitor *platform.Monitor) {
	release := platform.Scoped(heapMonitor)
	defer release()
}

func (h *CompactingHeap) Collect(kind CollectionKind, roots RootIterator) {
	marked := make(map[object.Ref]bool, len(h.table))
	var worklist []object.Ref
	var rootSlots []*object.Ref

	mark := func(r object.Ref) {
		if r == object.Null || marked[r] {
			return
		}
		marked[r] = true
		worklist = append(worklist, r)
	}

	roots.Iterate(VisitorFunc(func(slotPtr *object.Ref) {
		rootSlots = append(rootSlots, slotPtr)
		mark(*slotPtr)
	}))

	// The root scanner resolves frames through Resolve while it walks, so
	// the table lock is taken only once root iteration is done.
	h.mu.Lock()
	defer h.mu.Unlock()

	for len(worklist) > 0 {
		r := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		obj := h.table[r]
		if obj == nil {
			continue
		}
		obj.VisitRefs(func(f *object.Ref) {
			mark(*f)
		})
	}

	newTable := make([]object.Value, 1, len(marked)+1)
	newSizes := make([]uint64, 1, len(marked)+1)
	remap := make(map[object.Ref]object.Ref, len(marked))
	for old := object.Ref(1); int(old) < len(h.table); old++ {
		if marked[old] {
			newTable = append(newTable, h.table[old])
			newSizes = append(newSizes, h.sizes[old])
			remap[old] = object.Ref(len(newTable) - 1)
		}
	}

	// A root slot can also be a field of a surviving object (frame fields,
	// the current code's constant pool), so each slot is rewritten once.
	relocated := make(map[*object.Ref]bool)
	relocate := func(f *object.Ref) {
		if relocated[f] {
			return
		}
		relocated[f] = true
		if nr, ok := remap[*f]; ok {
			*f = nr
		} else {
			*f = object.Null
		}
	}

	for _, obj := range newTable[1:] {
		obj.VisitRefs(relocate)
	}
	for _, s := range rootSlots {
		relocate(s)
	}

	reclaimed := len(h.table) - len(newTable)
	h.table = newTable
	h.sizes = newSizes
	h.stats.Collections++
	h.stats.LiveObjects = len(newTable) - 1
	var bytesLive uint64
	for _, s := range newSizes[1:] {
		bytesLive += s
	}
	h.stats.BytesLive = bytesLive
	_ = reclaimed
}

func (h *CompactingHeap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

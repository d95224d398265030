// Package heap defines the pluggable collector contract (§4.B) and the
// root-visiting interfaces it's driven by. The concrete collector in this
// package (CompactingHeap) exists to make the contract testable end to end;
// §1 treats concrete heap implementations as an out-of-scope external
// collaborator, so a real embedder is free to swap in a generational or
// mark-sweep collector behind the same Heap interface.
//
// Object storage itself is centralized here rather than spread across each
// thread's own backing array: every Value lives in one growable table
// indexed by object.Ref, and a thread's "nursery" (§3 Thread) is a budget —
// bytes allocated since the root scanner last reset it during a collection
// — rather than a separate arena.
// A collection still walks every root, traces reachability, and relocates
// survivors by reassigning their Ref (the table compacts), so the
// relocation-safety invariants §8 tests for hold exactly as specified; only
// the physical layout backing them is simplified, matching §4.B's framing
// that a concrete heap's internals are an opaque, swappable concern.
package heap

import (
	"corevm/internal/object"
	"corevm/internal/platform"
)

// CollectionKind distinguishes a minor (nursery-only) collection from a
// major (whole-heap) one. §4.B.
type CollectionKind int

const (
	Minor CollectionKind = iota
	Major
)

// Visitor is handed every GC root by a RootIterator. Visit may overwrite
// *slot with a relocated Ref — §4.D: "Visitors must treat the slot address
// as stable for the duration of the call and be free to overwrite *slot
// with a forwarded address."
type Visitor interface {
	Visit(slot *object.Ref)
}

// VisitorFunc adapts a plain function to a Visitor.
type VisitorFunc func(slot *object.Ref)

func (f VisitorFunc) Visit(slot *object.Ref) { f(slot) }

// RootIterator supplies every live root to a Visitor. A Heap implementation
// does not know or care what the roots actually are — a Machine's root
// scanner is the one RootIterator this core ships (§4.D).
type RootIterator interface {
	Iterate(v Visitor)
}

// Heap is the pluggable collector contract of §4.B.
type Heap interface {
	// Allocate installs obj in the heap and returns the Ref it is now
	// addressed by. size is the byte cost charged against the calling
	// thread's nursery budget by the allocator (§4.E) — the heap itself
	// only needs it for Stats.
	Allocate(obj object.Value, size int) object.Ref

	// Resolve returns the current payload behind ref. Collection may
	// change what Resolve(ref) returns for the same ref (relocation); it
	// always returns nil for object.Null.
	Resolve(ref object.Ref) object.Value

	// Collect performs a collection of the given kind. The caller
	// guarantees exclusive access (§4.F) before calling. Collect calls
	// roots.Iterate to discover every live reference and may relocate the
	// objects it reaches; every slot the iterator visited is updated
	// in-place with the object's new Ref before Collect returns.
	Collect(kind CollectionKind, roots RootIterator)

	// Check is the write barrier: called after every store of a reference
	// into a heap slot. Its semantics are opaque to the core beyond
	// "records old->new generational pointers if any" (§4.B).
	Check(slot *object.Ref, heapMonitor *platform.Monitor)

	// Stats reports coarse usage for diagnostics.
	Stats() Stats
}

// Stats is a coarse, collector-agnostic usage snapshot.
type Stats struct {
	LiveObjects int
	BytesLive   uint64
	Collections int
}

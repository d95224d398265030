package machine

import (
	"corevm/internal/heap"
	"corevm/internal/object"
	"corevm/internal/platform"
)

// ClassMapBuckets is the bucket count for the class map's hash chain (§3
// "Class map"). Fixed rather than configurable: growing it is a rehash the
// core never needs to perform within the scope of this module.
const ClassMapBuckets = 257

// ClassFinder is the external class-byte supplier (§6): "find(name) →
// (bytes, length) | absent". It is called under the class monitor.
// internal/finder provides the concrete implementations; machine only needs
// the shape so classloader/dispatch/interp can depend on a *Machine without
// machine depending back on finder or classloader.
type ClassFinder interface {
	Find(name string) ([]byte, bool)
}

// Machine is the process-wide state every thread shares (§3 Machine).
type Machine struct {
	Heap   heap.Heap
	Finder ClassFinder

	Root *Thread

	// Exclusive is the thread currently holding the exclusive phase, or nil.
	Exclusive *Thread

	ActiveCount int
	LiveCount   int

	StateMonitor *platform.Monitor
	HeapMonitor  *platform.Monitor
	ClassMonitor *platform.Monitor

	// ClassMap is the bucket array of the class map (§3), chained by name
	// within a bucket. §9 explicitly allows substituting the source's
	// triple-chain-in-the-heap layout for a native structure as long as
	// lookup stays deterministic under the given hash and every entry stays
	// visible to the root scanner — this is that substitution: the chain
	// links are a Go slice, not heap-resident Triples, but every Class Ref
	// an entry holds is still visited (and so still relocatable) by
	// internal/roots.
	ClassMap [ClassMapBuckets][]ClassMapEntry

	Config ThreadConfig
}

// ClassMapEntry is one chained slot: a class name and the Class it resolved
// to.
type ClassMapEntry struct {
	Name  string
	Class object.Ref
}

// NewMachine wires up a fresh Machine with its three monitors and no
// threads yet; callers create the root Thread with NewThread(m, nil, cfg)
// and register it via coordinator.Admit.
func NewMachine(h heap.Heap, finder ClassFinder, cfg ThreadConfig) *Machine {
	return &Machine{
		Heap:         h,
		Finder:       finder,
		StateMonitor: platform.NewMonitor(),
		HeapMonitor:  platform.NewMonitor(),
		ClassMonitor: platform.NewMonitor(),
		Config:       cfg,
	}
}

// HashClassName computes the multiplicative hash of §3's class map:
// h = Σ 31^(n-1-i) · b_i over the name bytes, reduced mod ClassMapBuckets.
func HashClassName(name string) int {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return int(h % ClassMapBuckets)
}

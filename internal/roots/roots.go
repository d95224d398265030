// Package roots implements heap.RootIterator over a *machine.Machine,
// per §4.D: for each thread, visit thread/frame/code/exception, every live
// operand-stack slot, and every protector's slot, then recurse into
// children; the machine-level iterator additionally visits the class map.
package roots

import (
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// MachineIterator walks every thread reachable from a Machine's root thread
// plus the class map. It is the one heap.RootIterator this core ships.
type MachineIterator struct {
	M *machine.Machine
}

func (it MachineIterator) Iterate(v heap.Visitor) {
	if it.M.Root != nil {
		visitThread(it.M.Root, v)
	}
	for i := range it.M.ClassMap {
		bucket := it.M.ClassMap[i]
		for j := range bucket {
			v.Visit(&bucket[j].Class)
		}
	}
}

// visitThread implements §4.D's per-thread order: thread (its own Class
// word is carried on Frame/other heap values, not the Thread struct itself
// — Thread is not a heap value in this port), frame, code's
// constant pool, exception, live stack slots [0, sp), protector slots, then
// children.
func visitThread(t *machine.Thread, v heap.Visitor) {
	if t.Frame != object.Null {
		v.Visit(&t.Frame)
		visitFrameChain(t, v)
	}
	if t.Code != nil {
		for i := range t.Code.ConstPool {
			v.Visit(&t.Code.ConstPool[i])
		}
	}
	v.Visit(&t.Exception)

	for i := 0; i < t.SP; i++ {
		v.Visit(&t.Stack[i])
	}

	for p := t.Protectors; p != nil; p = p.Next {
		v.Visit(p.Slot)
	}

	// The scanner resets the nursery cursor after root copying has
	// extracted survivors (§4.D: "a minor collection is a nursery reset
	// after root copying has extracted survivors").
	t.NurseryPos = 0

	for _, child := range t.Children {
		visitThread(child, v)
	}
}

// visitFrameChain walks the Ref chain starting at t.Frame, resolving each
// link through the machine's heap and visiting every Ref field the object
// model itself knows about (Method, Next, Locals) via VisitRefs rather than
// duplicating that field list here.
func visitFrameChain(t *machine.Thread, v heap.Visitor) {
	cur := t.Frame
	for cur != object.Null {
		val := t.Machine.Heap.Resolve(cur)
		f, ok := val.(*object.Frame)
		if !ok || f == nil {
			return
		}
		f.VisitRefs(func(slot *object.Ref) { v.Visit(slot) })
		cur = f.Next
	}
}

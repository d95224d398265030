// Package dispatch implements §4.H: virtual/interface/special/static
// method resolution, instanceOf, and class-initialiser interposition.
package dispatch

import (
	"corevm/internal/machine"
	"corevm/internal/object"
)

// Virtual resolves a virtual call: the method at vtableOffset in the
// receiver's actual class's method table.
func Virtual(m *machine.Machine, receiverClass object.Ref, vtableOffset int) object.Ref {
	class, _ := m.Heap.Resolve(receiverClass).(*object.Class)
	if class == nil || vtableOffset >= len(class.MethodTable) {
		return object.Null
	}
	return class.MethodTable[vtableOffset]
}

// Interface resolves an interface call: linear-scan the receiver class's
// interface table for ifaceTypeID, then index the paired method vector by
// offset.
func Interface(m *machine.Machine, receiverClass object.Ref, ifaceTypeID int32, offset int) object.Ref {
	class, _ := m.Heap.Resolve(receiverClass).(*object.Class)
	if class == nil {
		return object.Null
	}
	for _, entry := range class.InterfaceTable {
		iface, _ := m.Heap.Resolve(entry.Interface).(*object.Class)
		if iface != nil && iface.TypeID == ifaceTypeID {
			if offset >= len(entry.Methods) {
				return object.Null
			}
			return entry.Methods[offset]
		}
	}
	return object.Null
}

// Special resolves an invokespecial call (§4.H): if the declaring class has
// AccSuper set, the callee isn't <init>, and declaringClass is a strict
// superclass of currentClass, dispatch to the override found starting at
// currentClass's own direct superclass (not currentClass's own vtable slot,
// which would just select currentClass's override right back and recurse
// forever on a `super.foo()` call); otherwise dispatch to the named method
// itself.
func Special(m *machine.Machine, currentClass, declaringClass object.Ref, named *object.Method) object.Ref {
	decl, _ := m.Heap.Resolve(declaringClass).(*object.Class)
	if decl == nil || decl.Flags&object.AccSuper == 0 || named.Name == "<init>" {
		return methodRefOf(m, named)
	}
	if !isStrictSuperclass(m, declaringClass, currentClass) {
		return methodRefOf(m, named)
	}
	cur, _ := m.Heap.Resolve(currentClass).(*object.Class)
	if cur == nil || cur.Super == object.Null {
		return methodRefOf(m, named)
	}
	super, _ := m.Heap.Resolve(cur.Super).(*object.Class)
	if super == nil || named.VtableOffset >= len(super.MethodTable) {
		return methodRefOf(m, named)
	}
	return super.MethodTable[named.VtableOffset]
}

// methodRefOf finds the Ref addressing named within its own owning class's
// method table — used when Special falls through to "the named method
// itself" and only has the *object.Method in hand, not its Ref.
func methodRefOf(m *machine.Machine, named *object.Method) object.Ref {
	owner, _ := m.Heap.Resolve(named.Owning).(*object.Class)
	if owner == nil || named.VtableOffset >= len(owner.MethodTable) {
		return object.Null
	}
	return owner.MethodTable[named.VtableOffset]
}

func isStrictSuperclass(m *machine.Machine, ancestor, class object.Ref) bool {
	c, _ := m.Heap.Resolve(class).(*object.Class)
	for c != nil {
		if c.Super == object.Null {
			return false
		}
		if c.Super == ancestor {
			return true
		}
		c, _ = m.Heap.Resolve(c.Super).(*object.Class)
	}
	return false
}

// InstanceOf implements §4.H instanceOf: false for null; for an interface
// class, walk objectClass(o)'s superclass chain scanning each level's
// interface table; otherwise walk the superclass chain comparing type ids.
func InstanceOf(m *machine.Machine, class object.Ref, o object.Ref) bool {
	if o == object.Null {
		return false
	}
	val := m.Heap.Resolve(o)
	objClassRef := classWordOf(val)
	target, _ := m.Heap.Resolve(class).(*object.Class)
	if target == nil {
		return false
	}

	if target.IsInterface() {
		c, _ := m.Heap.Resolve(objClassRef).(*object.Class)
		for c != nil {
			for _, entry := range c.InterfaceTable {
				iface, _ := m.Heap.Resolve(entry.Interface).(*object.Class)
				if iface != nil && iface.TypeID == target.TypeID {
					return true
				}
			}
			if c.Super == object.Null {
				break
			}
			c, _ = m.Heap.Resolve(c.Super).(*object.Class)
		}
		return false
	}

	c, _ := m.Heap.Resolve(objClassRef).(*object.Class)
	for c != nil {
		if c.TypeID == target.TypeID {
			return true
		}
		if c.Super == object.Null {
			break
		}
		c, _ = m.Heap.Resolve(c.Super).(*object.Class)
	}
	return false
}

// classWordOf extracts the Class ref every heap Value carries as its first
// word, without requiring every kind to expose a dedicated accessor.
func classWordOf(v object.Value) object.Ref {
	var class object.Ref
	v.VisitRefs(func(r *object.Ref) {
		if class == object.Null {
			class = *r
		}
	})
	return class
}

// Interpose implements the class-initialiser interposition shared by all
// four dispatch paths (§4.H): if target's class has any pending
// initialisers, pop the head and return its Code so the caller can rewind
// ip by 3 and redirect to it with parameterCount 0. The ip rewind itself is
// the interpreter's job (it owns the live ip, not this package) — Interpose
// only drains the pending-initialiser list.
func Interpose(m *machine.Machine, classRef object.Ref) (redirectCode *object.Code, interposed bool) {
	class, _ := m.Heap.Resolve(classRef).(*object.Class)
	if class == nil || class.Initializers == object.Null {
		return nil, false
	}
	pair, _ := m.Heap.Resolve(class.Initializers).(*object.Pair)
	if pair == nil {
		return nil, false
	}
	initMethod, _ := m.Heap.Resolve(pair.First).(*object.Method)
	class.Initializers = pair.Second
	if initMethod == nil {
		return nil, false
	}
	return initMethod.Code, true
}

// Package classloader implements §4.G: demand-loading classes into the
// machine's class map, and in-place constant-pool resolution of
// object.Reference entries to their resolved Class/Field/Method.
package classloader

import (
	"corevm/internal/alloc"
	"corevm/internal/except"
	"corevm/internal/machine"
	"corevm/internal/object"
	"corevm/internal/platform"
)

// ClassFileLoader parses raw class bytes into a *object.Class already
// allocated on the heap. The binary class-file format itself is out of
// scope (§1/§6); internal/classfile provides the one implementation this
// core ships, a programmatic builder rather than a byte parser.
type ClassFileLoader interface {
	Load(t *machine.Thread, bytes []byte) (object.Ref, error)
}

// ResolveClass implements §4.G resolveClass: look up name in the class map
// under the class monitor; on miss, ask the finder for bytes, parse, and
// insert. On any failure it sets t.Exception and returns object.Null.
func ResolveClass(t *machine.Thread, loader ClassFileLoader, name string) object.Ref {
	m := t.Machine
	release := platform.Scoped(m.ClassMonitor)

	if ref := lookup(m, name); ref != object.Null {
		release()
		return ref
	}

	bytes, ok := m.Finder.Find(name)
	if !ok {
		release()
		t.Exception = makeClassNotFound(t, loader, name)
		return object.Null
	}

	ref, err := loader.Load(t, bytes)
	if err != nil {
		release()
		t.Exception = makeClassNotFound(t, loader, name)
		return object.Null
	}

	insert(m, name, ref)
	release()
	return ref
}

// lookup walks the chained bucket for name. Caller must hold the class
// monitor.
func lookup(m *machine.Machine, name string) object.Ref {
	bucket := m.ClassMap[machine.HashClassName(name)]
	for _, e := range bucket {
		if e.Name == name {
			return e.Class
		}
	}
	return object.Null
}

// insert appends a resolved class to its bucket. Caller must hold the class
// monitor. §8 "Resolution idempotence" requires resolveClass to be callable
// twice and observe the same identity, so insert is a caller-checked
// precondition (ResolveClass only calls it after a confirmed miss) rather
// than an upsert.
func insert(m *machine.Machine, name string, ref object.Ref) {
	h := machine.HashClassName(name)
	m.ClassMap[h] = append(m.ClassMap[h], machine.ClassMapEntry{Name: name, Class: ref})
}

// ResolveConstant resolves constant-pool slot index in place: if it already
// holds a Class/Field/Method, it is a no-op returning that value; if it
// holds an *object.Reference, it resolves the named class-name/member-name/
// descriptor triple and overwrites the slot (§3 "Reference entry": "On
// first use they are atomically replaced in-place ... readers must
// tolerate either shape at the slot").
func ResolveConstant(t *machine.Thread, loader ClassFileLoader, pool []object.Ref, index int) object.Ref {
	m := t.Machine
	slot := pool[index]
	val := m.Heap.Resolve(slot)

	switch val.(type) {
	case *object.Class, *object.Field, *object.Method:
		return slot
	}

	ref, ok := val.(*object.Reference)
	if !ok {
		platform.Abort("classloader: constant-pool slot holds neither a resolved member nor a Reference")
	}

	classRef := ResolveClass(t, loader, ref.ClassName)
	if t.HasException() {
		return object.Null
	}

	if ref.MemberName == "" {
		pool[index] = classRef
		m.Heap.Check(&pool[index], m.HeapMonitor)
		return classRef
	}

	class, _ := m.Heap.Resolve(classRef).(*object.Class)
	member := resolveMember(t, loader, class, ref.MemberName, ref.Descriptor, m)
	if t.HasException() {
		return object.Null
	}

	pool[index] = member
	m.Heap.Check(&pool[index], m.HeapMonitor)
	return member
}

// resolveMember walks class and its superclasses for a field or method
// named name with descriptor desc. A descriptor that starts with "(" names
// a method; anything else names a field, mirroring how the JVM family
// disambiguates member descriptors.
func resolveMember(t *machine.Thread, loader ClassFileLoader, class *object.Class, name, desc string, m *machine.Machine) object.Ref {
	isMethod := len(desc) > 0 && desc[0] == '('

	for c := class; c != nil; {
		if isMethod {
			for _, mref := range c.MethodTable {
				meth, _ := m.Heap.Resolve(mref).(*object.Method)
				if meth != nil && meth.Name == name && meth.Descriptor == desc {
					return mref
				}
			}
		} else {
			for _, fref := range c.FieldTable {
				f, _ := m.Heap.Resolve(fref).(*object.Field)
				if f != nil && f.Name == name && f.Descriptor == desc {
					return fref
				}
			}
		}
		if c.Super == object.Null {
			break
		}
		c, _ = m.Heap.Resolve(c.Super).(*object.Class)
	}

	if isMethod {
		t.Exception = makeNoSuchMethod(t, loader, name)
	} else {
		t.Exception = makeNoSuchField(t, loader, name)
	}
	return object.Null
}

func resolver(loader ClassFileLoader) except.ClassResolver {
	return func(t *machine.Thread, name string) object.Ref {
		return ResolveClass(t, loader, name)
	}
}

func makeClassNotFound(t *machine.Thread, loader ClassFileLoader, name string) object.Ref {
	return except.Make(t, resolver(loader), alloc.Allocate, except.ClassNotFoundException, except.Messagef("%s", name))
}

func makeNoSuchMethod(t *machine.Thread, loader ClassFileLoader, name string) object.Ref {
	return except.Make(t, resolver(loader), alloc.Allocate, except.NoSuchMethodError, except.Messagef("%s", name))
}

func makeNoSuchField(t *machine.Thread, loader ClassFileLoader, name string) object.Ref {
	return except.Make(t, resolver(loader), alloc.Allocate, except.NoSuchFieldError, except.Messagef("%s", name))
}

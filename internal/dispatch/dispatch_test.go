package dispatch

import (
	"testing"

	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
)

func newTestMachine() *machine.Machine {
	mf := finder.NewMemoryFinder()
	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 16, NurserySize: 1 << 12}
	return machine.NewMachine(h, mf, cfg)
}

func mustAlloc(m *machine.Machine, v object.Value) object.Ref {
	return m.Heap.Allocate(v, 32)
}

// buildClass hand-assembles a minimal Class with the given name, super, and
// type id, wired into the heap directly (skipping classloader/classfile
// entirely) so this package's tests stay independent of class loading.
func buildClass(m *machine.Machine, name string, super object.Ref, typeID int32) object.Ref {
	c := object.NewClass(object.Null, name)
	c.Super = super
	c.TypeID = typeID
	return mustAlloc(m, c)
}

func classOf(m *machine.Machine, ref object.Ref) *object.Class {
	c, _ := m.Heap.Resolve(ref).(*object.Class)
	return c
}

// TestInstanceOfSuperclassChain walks §4.H's instanceOf over a three-level
// chain: Object <- Animal <- Dog. A Dog instance is an instance of all
// three; an unrelated class is not.
func TestInstanceOfSuperclassChain(t *testing.T) {
	m := newTestMachine()
	objectRef := buildClass(m, "Object", object.Null, 1)
	animalRef := buildClass(m, "Animal", objectRef, 2)
	dogRef := buildClass(m, "Dog", animalRef, 3)
	otherRef := buildClass(m, "Other", objectRef, 4)

	dog := mustAlloc(m, object.NewInstance(dogRef, 0))

	for _, tt := range []struct {
		class object.Ref
		want  bool
	}{
		{dogRef, true},
		{animalRef, true},
		{objectRef, true},
		{otherRef, false},
	} {
		if got := InstanceOf(m, tt.class, dog); got != tt.want {
			t.Errorf("InstanceOf(%s, dog) = %v, want %v", classOf(m, tt.class).Name, got, tt.want)
		}
	}
}

// TestInstanceOfNull is §4.H: instanceOf always reports false for null.
func TestInstanceOfNull(t *testing.T) {
	m := newTestMachine()
	objectRef := buildClass(m, "Object", object.Null, 1)
	if InstanceOf(m, objectRef, object.Null) {
		t.Errorf("InstanceOf(Object, null) = true, want false")
	}
}

// TestInstanceOfInterface exercises the interface-table scan: Dog
// implements Barks via its interface table entry; Cat does not.
func TestInstanceOfInterface(t *testing.T) {
	m := newTestMachine()
	objectRef := buildClass(m, "Object", object.Null, 1)
	barksRef := buildClass(m, "Barks", object.Null, 2)
	barks := classOf(m, barksRef)
	barks.Flags |= object.AccInterface

	dogRef := buildClass(m, "Dog", objectRef, 3)
	dog := classOf(m, dogRef)
	dog.InterfaceTable = []object.InterfaceEntry{{Interface: barksRef, Methods: nil}}

	catRef := buildClass(m, "Cat", objectRef, 4)

	dogInst := mustAlloc(m, object.NewInstance(dogRef, 0))
	catInst := mustAlloc(m, object.NewInstance(catRef, 0))

	if !InstanceOf(m, barksRef, dogInst) {
		t.Errorf("InstanceOf(Barks, dog) = false, want true")
	}
	if InstanceOf(m, barksRef, catInst) {
		t.Errorf("InstanceOf(Barks, cat) = true, want false")
	}
}

// TestVirtualDispatchOverride covers §8's vtable-monotonicity property in
// the dispatcher's own terms: a subclass's override at the same vtable
// offset is what Virtual resolves to for an instance of the subclass.
func TestVirtualDispatchOverride(t *testing.T) {
	m := newTestMachine()
	objectRef := buildClass(m, "Object", object.Null, 1)

	baseMethod := mustAlloc(m, object.NewMethod(object.Null, objectRef, "speak", "()V", 0, 0, 0, &object.Code{}))
	base := classOf(m, objectRef)
	base.MethodTable = []object.Ref{baseMethod}

	dogRef := buildClass(m, "Dog", objectRef, 2)
	dog := classOf(m, dogRef)
	overrideMethod := mustAlloc(m, object.NewMethod(object.Null, dogRef, "speak", "()V", 0, 0, 0, &object.Code{}))
	dog.MethodTable = []object.Ref{overrideMethod}

	got := Virtual(m, dogRef, 0)
	if got != overrideMethod {
		t.Errorf("Virtual(Dog, offset 0) = %v, want the override %v", got, overrideMethod)
	}
	got = Virtual(m, objectRef, 0)
	if got != baseMethod {
		t.Errorf("Virtual(Object, offset 0) = %v, want the base method %v", got, baseMethod)
	}
}

// TestSpecialSuperDispatch covers §4.H invokespecial: a `super.speak()`
// call from Dog (naming Animal.speak, Animal's AccSuper flag set) must land
// on Animal's own implementation — looked up starting at Dog's direct
// superclass — never back on Dog's own override, or every super call would
// recurse into itself forever.
func TestSpecialSuperDispatch(t *testing.T) {
	m := newTestMachine()
	objectRef := buildClass(m, "Object", object.Null, 1)
	animalRef := buildClass(m, "Animal", objectRef, 2)
	animal := classOf(m, animalRef)
	animal.Flags |= object.AccSuper
	animalMethod := mustAlloc(m, object.NewMethod(object.Null, animalRef, "speak", "()V", 0, 0, 0, &object.Code{}))
	animal.MethodTable = []object.Ref{animalMethod}

	dogRef := buildClass(m, "Dog", animalRef, 3)
	dog := classOf(m, dogRef)
	dogMethod := mustAlloc(m, object.NewMethod(object.Null, dogRef, "speak", "()V", 0, 0, 0, &object.Code{}))
	dog.MethodTable = []object.Ref{dogMethod}

	named := classOf(m, animalRef).MethodTable[0]
	namedMethod, _ := m.Heap.Resolve(named).(*object.Method)

	got := Special(m, dogRef, animalRef, namedMethod)
	if got != animalMethod {
		t.Errorf("Special super-dispatch from Dog naming Animal.speak = %v, want Animal's own implementation %v", got, animalMethod)
	}
}

// TestSpecialNonSuperFallsBackToNamed covers the else branch: without the
// super-dispatch flag, or when the declaring class isn't a strict
// superclass of the current class, invokespecial targets the named method
// directly.
func TestSpecialNonSuperFallsBackToNamed(t *testing.T) {
	m := newTestMachine()
	objectRef := buildClass(m, "Object", object.Null, 1)
	dogRef := buildClass(m, "Dog", objectRef, 2)
	dog := classOf(m, dogRef)
	dogMethod := mustAlloc(m, object.NewMethod(object.Null, dogRef, "speak", "()V", 0, 0, 0, &object.Code{}))
	dog.MethodTable = []object.Ref{dogMethod}
	namedMethod, _ := m.Heap.Resolve(dogMethod).(*object.Method)

	// Dog's own class does not have AccSuper set, so invokespecial on Dog's
	// own method (a private-method-style call) must target it directly.
	got := Special(m, dogRef, dogRef, namedMethod)
	if got != dogMethod {
		t.Errorf("Special(Dog, Dog, speak) = %v, want the named method %v", got, dogMethod)
	}
}

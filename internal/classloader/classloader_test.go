package classloader_test

import (
	"testing"

	"corevm/internal/classfile"
	"corevm/internal/classloader"
	"corevm/internal/coordinator"
	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
)

func newTestThread(t *testing.T) (*machine.Thread, *finder.MemoryFinder, *classfile.Loader) {
	t.Helper()
	mf := finder.NewMemoryFinder()
	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 32, NurserySize: 1 << 14}
	m := machine.NewMachine(h, mf, cfg)

	root := machine.NewThread(m, nil, cfg)
	m.Root = root
	coordinator.Admit(root)

	return root, mf, classfile.NewLoader()
}

// TestResolveClassIdempotence is §8's "resolveClass twice yields the same
// identity": a cache hit must return the exact Ref the first resolve
// produced, not a freshly parsed duplicate.
func TestResolveClassIdempotence(t *testing.T) {
	th, mf, loader := newTestThread(t)
	mf.MustRegister("Object", classfile.NewClass("Object", ""))

	first := classloader.ResolveClass(th, loader, "Object")
	if th.HasException() {
		t.Fatalf("first resolve threw")
	}
	second := classloader.ResolveClass(th, loader, "Object")
	if th.HasException() {
		t.Fatalf("second resolve threw")
	}
	if first != second {
		t.Errorf("resolveClass(Object) twice gave different Refs: %v vs %v", first, second)
	}
}

// TestResolveClassNotFound exercises the finder-miss path: a name the
// finder doesn't carry sets t.Exception to a ClassNotFoundException and
// returns object.Null, without panicking or looping.
func TestResolveClassNotFound(t *testing.T) {
	th, mf, loader := newTestThread(t)
	// ClassNotFoundException must itself be resolvable for the factory to
	// build the exception instance it reports the miss with.
	mf.MustRegister("Object", classfile.NewClass("Object", ""))
	mf.MustRegister("ClassNotFoundException", classfile.NewClass("ClassNotFoundException", "Object"))

	ref := classloader.ResolveClass(th, loader, "DoesNotExist")
	if ref != object.Null {
		t.Errorf("expected Null ref for an unresolvable class, got %v", ref)
	}
	if !th.HasException() {
		t.Fatalf("expected t.Exception set on a resolve miss")
	}
	inst, ok := th.Machine.Heap.Resolve(th.Exception).(*object.Instance)
	if !ok {
		t.Fatalf("exception is not an Instance")
	}
	class, _ := th.Machine.Heap.Resolve(inst.Header.Class).(*object.Class)
	if class == nil || class.Name != "ClassNotFoundException" {
		t.Errorf("exception class = %+v, want ClassNotFoundException", class)
	}
}

// TestResolveConstantTolerance exercises §3's "Reference entry" contract:
// a pool slot holding a raw Reference resolves in place to a Class on
// first use, and is a no-op thereafter.
func TestResolveConstantTolerance(t *testing.T) {
	th, mf, loader := newTestThread(t)
	mf.MustRegister("Object", classfile.NewClass("Object", ""))
	mf.MustRegister("Other", classfile.NewClass("Other", "Object"))

	pool := []object.Ref{
		alloc(th, object.NewReference(object.Null, "Other", "", "")),
	}

	first := classloader.ResolveConstant(th, loader, pool, 0)
	if th.HasException() {
		t.Fatalf("resolve constant threw")
	}
	if _, ok := th.Machine.Heap.Resolve(pool[0]).(*object.Class); !ok {
		t.Fatalf("pool slot was not replaced in place with a Class")
	}

	second := classloader.ResolveConstant(th, loader, pool, 0)
	if second != first {
		t.Errorf("second ResolveConstant on an already-resolved slot returned a different ref")
	}
}

func alloc(th *machine.Thread, v object.Value) object.Ref {
	return th.Machine.Heap.Allocate(v, 32)
}

package classfile

import (
	"testing"

	"corevm/internal/bytecode"
	"corevm/internal/coordinator"
	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
)

func newLoaderTestThread(nurserySize int) (*machine.Machine, *machine.Thread, *Loader, *finder.MemoryFinder) {
	mf := finder.NewMemoryFinder()
	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 16, NurserySize: nurserySize}
	m := machine.NewMachine(h, mf, cfg)

	th := machine.NewThread(m, nil, cfg)
	m.Root = th
	coordinator.Admit(th)
	return m, th, NewLoader(), mf
}

// TestBuildSurvivesMinorCollectionMidBuild drives Loader.build against a
// nursery too small to hold every field/method/constant it allocates in
// one pass, forcing a minor collection somewhere inside the per-field or
// per-method loop while classRef is not yet reachable from the class map
// (classloader.ResolveClass only inserts it after Load returns). If
// classRef and its in-progress tables weren't protected, the collection
// would reclaim them as garbage and the class graph that comes back would
// have dangling or renumbered refs.
func TestBuildSurvivesMinorCollectionMidBuild(t *testing.T) {
	m, th, loader, mf := newLoaderTestThread(96)
	mf.MustRegister("Object", NewClass("Object", ""))

	main_ := NewClass("Main", "Object")
	main_.StaticField("counter", "I")
	for i := 0; i < 4; i++ {
		main_.Field(fieldName(i), "I")
	}
	for i := 0; i < 4; i++ {
		mb := NewMethod(methodName(i), "()I", 0, 0).MaxStack(1).MaxLocals(0)
		c := mb.Const(IntConst(int32(i)))
		mb.Emit(bytecode.Ldc).EmitU8(uint8(c)).Emit(bytecode.Ireturn)
		main_.Method(mb)
	}

	raw, err := main_.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	classRef, err := loader.Load(th, raw)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Heap.Stats().Collections == 0 {
		t.Fatalf("test did not actually provoke a minor collection; nursery too large")
	}

	class, ok := m.Heap.Resolve(classRef).(*object.Class)
	if !ok || class == nil {
		t.Fatalf("classRef did not survive the collection")
	}
	if class.Name != "Main" {
		t.Errorf("class.Name = %q, want Main", class.Name)
	}
	if len(class.FieldTable) != 5 { // 4 instance + 1 static, inherited from Object contributes none
		t.Fatalf("FieldTable has %d entries, want 5", len(class.FieldTable))
	}
	if len(class.MethodTable) != 4 {
		t.Fatalf("MethodTable has %d entries, want 4", len(class.MethodTable))
	}
	for i, mref := range class.MethodTable {
		meth, ok := m.Heap.Resolve(mref).(*object.Method)
		if !ok || meth == nil {
			t.Fatalf("method %d did not survive the collection", i)
		}
		if meth.Name != methodName(i) {
			t.Errorf("method %d name = %q, want %q", i, meth.Name, methodName(i))
		}
		if meth.Code == nil || len(meth.Code.ConstPool) != 1 {
			t.Fatalf("method %d code/pool did not survive the collection intact", i)
		}
		v, ok := m.Heap.Resolve(meth.Code.ConstPool[0]).(*object.Int)
		if !ok || v == nil || v.Value != int32(i) {
			t.Errorf("method %d const pool[0] = %+v, want boxed Int %d", i, v, i)
		}
	}
}

func fieldName(i int) string  { return "f" + string(rune('a'+i)) }
func methodName(i int) string { return "m" + string(rune('a'+i)) }

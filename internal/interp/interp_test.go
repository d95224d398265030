package interp

import (
	"testing"

	"corevm/internal/bytecode"
	"corevm/internal/classfile"
	"corevm/internal/classloader"
	"corevm/internal/coordinator"
	"corevm/internal/except"
	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// exceptionClassNames lists every standard-library exception class the
// core itself mints (§7.1). Tests register bare stand-ins for each under
// the in-memory finder, the same way a real embedder would ship the actual
// standard-library classes alongside the core's own.
var exceptionClassNames = []string{
	"NullPointerException",
	"ArrayIndexOutOfBoundsException",
	"NegativeArrayStoreException",
	"ClassCastException",
	"ClassNotFoundException",
	"NoSuchFieldError",
	"NoSuchMethodError",
	"StackOverflowError",
	"ArithmeticException",
}

// newTestEnv wires a fresh Machine plus an admitted root Thread and Runtime,
// with "Object" and every standard exception class pre-registered.
func newTestEnv(t *testing.T) (*machine.Machine, *machine.Thread, *Runtime, *finder.MemoryFinder) {
	t.Helper()
	mf := finder.NewMemoryFinder()
	mf.MustRegister("Object", classfile.NewClass("Object", ""))
	for _, name := range exceptionClassNames {
		mf.MustRegister(name, classfile.NewClass(name, "Object"))
	}

	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 64, NurserySize: 1 << 16}
	m := machine.NewMachine(h, mf, cfg)

	root := machine.NewThread(m, nil, cfg)
	m.Root = root
	coordinator.Admit(root)

	loader := classfile.NewLoader()
	rt := &Runtime{Loader: loader}
	return m, root, rt, mf
}

func resolveMethod(t *testing.T, th *machine.Thread, classRef object.Ref, name, descriptor string) object.Ref {
	t.Helper()
	class, _ := th.Machine.Heap.Resolve(classRef).(*object.Class)
	for _, mref := range class.MethodTable {
		m, _ := th.Machine.Heap.Resolve(mref).(*object.Method)
		if m != nil && m.Name == name && m.Descriptor == descriptor {
			return mref
		}
	}
	t.Fatalf("no method %s%s on %s", name, descriptor, class.Name)
	return object.Null
}

func boxedIntOf(t *testing.T, th *machine.Thread, ref object.Ref) int32 {
	t.Helper()
	v, ok := th.Machine.Heap.Resolve(ref).(*object.Int)
	if !ok || v == nil {
		t.Fatalf("ref %v is not a boxed Int", ref)
	}
	return v.Value
}

func exceptionString(t *testing.T, th *machine.Thread, excRef object.Ref) string {
	t.Helper()
	inst, ok := th.Machine.Heap.Resolve(excRef).(*object.Instance)
	if !ok {
		t.Fatalf("exception ref %v is not an Instance", excRef)
	}
	str, ok := th.Machine.Heap.Resolve(inst.Get(0)).(*object.String)
	if !ok {
		t.Fatalf("exception message slot is not a String")
	}
	ba, ok := th.Machine.Heap.Resolve(str.Bytes).(*object.ByteArray)
	if !ok {
		t.Fatalf("exception message bytes slot is not a ByteArray")
	}
	buf := make([]byte, len(ba.Elements))
	for i, b := range ba.Elements {
		buf[i] = byte(b)
	}
	return string(buf)
}

func exceptionClassName(t *testing.T, th *machine.Thread, excRef object.Ref) string {
	t.Helper()
	inst, ok := th.Machine.Heap.Resolve(excRef).(*object.Instance)
	if !ok {
		t.Fatalf("exception ref %v is not an Instance", excRef)
	}
	class, ok := th.Machine.Heap.Resolve(inst.Header.Class).(*object.Class)
	if !ok {
		t.Fatalf("exception class word does not resolve to a Class")
	}
	return class.Name
}

// TestArithmeticScenario is §8 scenario 1: `int add() { return 2 + 3; }`
// compiled as iconst_2 iconst_3 iadd ireturn must return a boxed Int of 5.
func TestArithmeticScenario(t *testing.T) {
	_, root, rt, mf := newTestEnv(t)

	main_ := classfile.NewClass("Main", "Object")
	add := classfile.NewMethod("add", "()I", 0, 0).MaxStack(2).MaxLocals(0).
		Emit(bytecode.Iconst2).
		Emit(bytecode.Iconst3).
		Emit(bytecode.Iadd).
		Emit(bytecode.Ireturn)
	main_.Method(add)
	mf.MustRegister("Main", main_)

	classRef := classloader.ResolveClass(root, rt.Loader, "Main")
	if root.HasException() {
		t.Fatalf("resolve Main: %s", exceptionString(t, root, root.Exception))
	}
	addRef := resolveMethod(t, root, classRef, "add", "()I")

	result := Run(rt, root, addRef, nil)
	if root.HasException() {
		t.Fatalf("add threw: %s", exceptionClassName(t, root, root.Exception))
	}
	if got := boxedIntOf(t, root, result); got != 5 {
		t.Errorf("add() = %d, want 5", got)
	}
}

// TestNullPointerScenario is §8 scenario 2: `int len(int[] a) { return
// a.length; }` invoked with null must raise NullPointerException with a
// one-frame trace at the arraylength opcode.
func TestNullPointerScenario(t *testing.T) {
	_, root, rt, mf := newTestEnv(t)

	main_ := classfile.NewClass("Main", "Object")
	lenMethod := classfile.NewMethod("len", "([I)I", 1, 0).MaxStack(1).MaxLocals(1).
		Emit(bytecode.Aload0).
		Emit(bytecode.Arraylength).
		Emit(bytecode.Ireturn)
	main_.Method(lenMethod)
	mf.MustRegister("Main", main_)

	classRef := classloader.ResolveClass(root, rt.Loader, "Main")
	if root.HasException() {
		t.Fatalf("resolve Main: %s", exceptionString(t, root, root.Exception))
	}
	lenRef := resolveMethod(t, root, classRef, "len", "([I)I")

	result := Run(rt, root, lenRef, []object.Ref{object.Null})
	if result != object.Null {
		t.Errorf("expected Run to return Null on uncaught exception, got %v", result)
	}
	if !root.HasException() {
		t.Fatalf("expected an in-flight exception, got none")
	}
	if name := exceptionClassName(t, root, root.Exception); name != "NullPointerException" {
		t.Errorf("exception class = %s, want NullPointerException", name)
	}

	inst, _ := root.Machine.Heap.Resolve(root.Exception).(*object.Instance)
	trace, _ := root.Machine.Heap.Resolve(inst.Get(except.FieldTraceMethods)).(*object.ObjectArray)
	if trace == nil {
		t.Fatalf("exception has no trace array")
	}
	if len(trace.Elements) != 1 {
		t.Fatalf("trace has %d frames, want exactly 1", len(trace.Elements))
	}
	frameMethod, _ := root.Machine.Heap.Resolve(trace.Elements[0]).(*object.Method)
	if frameMethod == nil || frameMethod.Name != "len" {
		t.Errorf("trace[0] method = %+v, want len", frameMethod)
	}
}

// TestArrayIndexOutOfBoundsScenario is §8 scenario 3: `int[] a = new int[3];
// a[5] = 0;` must raise ArrayIndexOutOfBoundsException with message
// "5 not in [0,3]".
func TestArrayIndexOutOfBoundsScenario(t *testing.T) {
	_, root, rt, mf := newTestEnv(t)

	main_ := classfile.NewClass("Main", "Object")
	bad := classfile.NewMethod("bad", "()I", 0, 0).MaxStack(3).MaxLocals(0).
		Emit(bytecode.Iconst3).
		Emit(bytecode.Newarray).EmitU8(uint8(bytecode.TInt)).
		Emit(bytecode.Iconst5).
		Emit(bytecode.Iconst0).
		Emit(bytecode.Iastore).
		Emit(bytecode.Iconst0).
		Emit(bytecode.Ireturn)
	main_.Method(bad)
	mf.MustRegister("Main", main_)

	classRef := classloader.ResolveClass(root, rt.Loader, "Main")
	if root.HasException() {
		t.Fatalf("resolve Main: %s", exceptionString(t, root, root.Exception))
	}
	badRef := resolveMethod(t, root, classRef, "bad", "()I")

	Run(rt, root, badRef, nil)
	if !root.HasException() {
		t.Fatalf("expected an in-flight exception, got none")
	}
	if name := exceptionClassName(t, root, root.Exception); name != "ArrayIndexOutOfBoundsException" {
		t.Errorf("exception class = %s, want ArrayIndexOutOfBoundsException", name)
	}
	if msg := exceptionString(t, root, root.Exception); msg != "5 not in [0,3]" {
		t.Errorf("exception message = %q, want %q", msg, "5 not in [0,3]")
	}
}

// TestCatchScenario is §8 scenario 4: throwing an E selects the outward
// handler catching E over a lexically earlier, unrelated handler catching
// F, and execution resumes returning 1.
func TestCatchScenario(t *testing.T) {
	_, root, rt, mf := newTestEnv(t)

	mf.MustRegister("E", classfile.NewClass("E", "Object"))
	mf.MustRegister("F", classfile.NewClass("F", "Object"))

	main_ := classfile.NewClass("Main", "Object")
	tryCatch := classfile.NewMethod("tryCatch", "()I", 0, 0).MaxStack(3).MaxLocals(0)
	// Catch type 0 is catch-all, so pool index 0 is taken by a filler
	// constant and both handlers name their class by a nonzero index.
	tryCatch.Const(classfile.IntConst(0))
	classE := tryCatch.Const(classfile.ClassRef("E"))
	classF := tryCatch.Const(classfile.ClassRef("F"))
	tryCatch.
		Emit(bytecode.New).EmitU16(classE). // pc 0..2
		Emit(bytecode.Athrow).              // pc 3
		Emit(bytecode.Bipush).EmitU8(99).   // pc 4..5 (F handler: wrong answer if selected)
		Emit(bytecode.Ireturn).             // pc 6
		Emit(bytecode.Iconst1).             // pc 7 (E handler)
		Emit(bytecode.Ireturn)              // pc 8
	tryCatch.Handler(0, 4, 4, classF)
	tryCatch.Handler(0, 4, 7, classE)
	main_.Method(tryCatch)
	mf.MustRegister("Main", main_)

	classRef := classloader.ResolveClass(root, rt.Loader, "Main")
	if root.HasException() {
		t.Fatalf("resolve Main: %s", exceptionString(t, root, root.Exception))
	}
	methodRef := resolveMethod(t, root, classRef, "tryCatch", "()I")

	result := Run(rt, root, methodRef, nil)
	if root.HasException() {
		t.Fatalf("tryCatch threw uncaught: %s", exceptionClassName(t, root, root.Exception))
	}
	if got := boxedIntOf(t, root, result); got != 1 {
		t.Errorf("tryCatch() = %d, want 1", got)
	}
}

// TestClassInitInterposeScenario is §8 scenario 5: ten consecutive `new
// C()` calls must run C's <clinit> exactly once.
func TestClassInitInterposeScenario(t *testing.T) {
	_, root, rt, mf := newTestEnv(t)

	c := classfile.NewClass("C", "Object")
	c.StaticField("counter", "I")
	makeC := classfile.NewMethod("makeC", "()LC;", 0, 0).MaxStack(1).MaxLocals(0)
	classC := makeC.Const(classfile.ClassRef("C"))
	makeC.Emit(bytecode.New).EmitU16(classC).Emit(bytecode.Areturn)
	c.Method(makeC)

	clinit := classfile.NewMethod("<clinit>", "()V", 0, object.AccStatic).MaxStack(2).MaxLocals(0)
	counterField := clinit.Const(classfile.MemberRef("C", "counter", "I"))
	clinit.
		Emit(bytecode.Getstatic).EmitU16(counterField).
		Emit(bytecode.Iconst1).
		Emit(bytecode.Iadd).
		Emit(bytecode.Putstatic).EmitU16(counterField).
		Emit(bytecode.Return)
	c.Init(clinit)
	mf.MustRegister("C", c)

	classRef := classloader.ResolveClass(root, rt.Loader, "C")
	if root.HasException() {
		t.Fatalf("resolve C: %s", exceptionString(t, root, root.Exception))
	}
	makeCRef := resolveMethod(t, root, classRef, "makeC", "()LC;")

	for i := 0; i < 10; i++ {
		Run(rt, root, makeCRef, nil)
		if root.HasException() {
			t.Fatalf("makeC() call %d threw: %s", i, exceptionClassName(t, root, root.Exception))
		}
	}

	class, _ := root.Machine.Heap.Resolve(classRef).(*object.Class)
	if class.Initializers != object.Null {
		t.Errorf("class.Initializers should be drained (Null) after first use")
	}
	counter := boxedIntOf(t, root, class.StaticTable[0])
	if counter != 1 {
		t.Errorf("counter = %d after 10 new C() calls, want 1 (clinit must run exactly once)", counter)
	}
}

// TestInvokeSurvivesMinorCollectionMidCall uses a nursery sized so that
// pushFrame's own frame allocation is the one that pushes the nursery past
// capacity, forcing a minor collection in the exact window between invoke
// popping the call argument off the operand stack and that argument landing
// in the callee's locals. If the argument weren't protected across that
// window, the collector would treat it as garbage and the callee would
// read a stale or reclaimed ref out of its locals slot.
func TestInvokeSurvivesMinorCollectionMidCall(t *testing.T) {
	mf := finder.NewMemoryFinder()
	mf.MustRegister("Object", classfile.NewClass("Object", ""))

	main_ := classfile.NewClass("Main", "Object")
	addOne := classfile.NewMethod("addOne", "(I)I", 1, object.AccStatic).MaxStack(2).MaxLocals(1).
		Emit(bytecode.Iload0).
		Emit(bytecode.Iconst1).
		Emit(bytecode.Iadd).
		Emit(bytecode.Ireturn)
	main_.Method(addOne)

	entry := classfile.NewMethod("entry", "()I", 0, object.AccStatic).MaxStack(2).MaxLocals(0)
	addOneRef := entry.Const(classfile.MemberRef("Main", "addOne", "(I)I"))
	entry.
		Emit(bytecode.Iconst5).
		Emit(bytecode.Invokestatic).EmitU16(addOneRef).
		Emit(bytecode.Ireturn)
	main_.Method(entry)
	mf.MustRegister("Main", main_)

	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 16, NurserySize: 79}
	m := machine.NewMachine(h, mf, cfg)
	root := machine.NewThread(m, nil, cfg)
	m.Root = root
	coordinator.Admit(root)

	loader := classfile.NewLoader()
	rt := &Runtime{Loader: loader}

	classRef := classloader.ResolveClass(root, rt.Loader, "Main")
	if root.HasException() {
		t.Fatalf("resolve Main: %s", exceptionString(t, root, root.Exception))
	}
	entryRef := resolveMethod(t, root, classRef, "entry", "()I")

	result := Run(rt, root, entryRef, nil)
	if root.HasException() {
		t.Fatalf("entry threw: %s", exceptionClassName(t, root, root.Exception))
	}
	if m.Heap.Stats().Collections == 0 {
		t.Fatalf("test did not actually provoke a minor collection; nursery too large")
	}
	if got := boxedIntOf(t, root, result); got != 6 {
		t.Errorf("entry() = %d, want 6 (addOne(5) survived a mid-call collection)", got)
	}
}

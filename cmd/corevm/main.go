// cmd/corevm is a minimal launcher exercising the whole stack end to end:
// it builds a couple of classes programmatically with internal/classfile,
// wires a Machine with a CompactingHeap and an in-memory finder, admits a
// root thread plus a couple of worker threads, and runs a handful of
// methods through internal/interp — printing results the way the teacher's
// own cmd/sentra prints build/run results, with stdlib log and manual flag
// handling rather than a framework.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"corevm/internal/alloc"
	"corevm/internal/bytecode"
	"corevm/internal/classfile"
	"corevm/internal/classloader"
	"corevm/internal/coordinator"
	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/interp"
	"corevm/internal/machine"
	"corevm/internal/object"
)

const VERSION = "0.1.0"

func main() {
	workers := flag.Int("workers", 4, "number of worker threads to run concurrently")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("corevm", VERSION)
		return
	}

	mf := finder.NewMemoryFinder()
	loader := classfile.NewLoader()
	registerClasses(mf)

	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 256, NurserySize: 1 << 16}
	m := machine.NewMachine(h, mf, cfg)

	root := machine.NewThread(m, nil, cfg)
	m.Root = root
	coordinator.Admit(root)

	rt := &interp.Runtime{Loader: loader}

	entryRef := classloader.ResolveClass(root, loader, "Main")
	if root.HasException() {
		log.Fatalf("corevm: failed to load Main: %v", describeException(root))
	}
	entryMethod := resolveEntry(root, entryRef, "entry", "()I")

	result := interp.Run(rt, root, entryMethod, nil)
	if root.HasException() {
		log.Fatalf("corevm: entry threw: %v", describeException(root))
	}
	log.Printf("Main.entry() = %d", boxedInt(root, result))

	log.Printf("running %d worker threads concurrently", *workers)
	var g errgroup.Group
	for i := 0; i < *workers; i++ {
		i := i
		g.Go(func() error {
			return runWorker(m, loader, cfg, i)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("corevm: worker failed: %v", err)
	}

	coordinator.Exit(root)
	reportStats(h)
}

// runWorker is a child thread computing Main.add(i, i+1) on its own stack
// and nursery, demonstrating the coordinator admitting/exiting threads
// concurrently with the allocator's safepoint polling.
func runWorker(m *machine.Machine, loader classloader.ClassFileLoader, cfg machine.ThreadConfig, i int) error {
	t := machine.NewThread(m, m.Root, cfg)
	coordinator.Admit(t)
	defer coordinator.Zombie(t)

	rt := &interp.Runtime{Loader: loader}
	classRef := classloader.ResolveClass(t, loader, "Main")
	if t.HasException() {
		return fmt.Errorf("worker %d: resolve Main: %s", i, describeException(t))
	}
	addMethod := resolveEntry(t, classRef, "add", "(II)I")

	args := make([]object.Ref, 2)
	release := machine.RegisterAll(t, args)
	args[0] = alloc.Allocate(t, object.NewInt(object.Null, int32(i)), 8)
	args[1] = alloc.Allocate(t, object.NewInt(object.Null, int32(i+1)), 8)
	release()
	result := interp.Run(rt, t, addMethod, args)
	if t.HasException() {
		return fmt.Errorf("worker %d: add threw: %s", i, describeException(t))
	}
	log.Printf("worker %d: Main.add(%d, %d) = %d", i, i, i+1, boxedInt(t, result))
	return nil
}

// registerClasses builds the Object root class and a Main class with a
// static counter field, a class initialiser that stamps it, and two
// methods: add(int,int)int and a no-arg entry point that invokes add
// through invokestatic (exercising class-init interposition on first call).
func registerClasses(mf *finder.MemoryFinder) {
	object_ := classfile.NewClass("Object", "")
	mf.MustRegister("Object", object_)

	main_ := classfile.NewClass("Main", "Object")
	main_.StaticField("counter", "I")

	add := classfile.NewMethod("add", "(II)I", 2, 0).
		MaxStack(2).MaxLocals(2).
		Emit(bytecode.Iload0).
		Emit(bytecode.Iload1).
		Emit(bytecode.Iadd).
		Emit(bytecode.Ireturn)
	main_.Method(add)

	entry := classfile.NewMethod("entry", "()I", 0, object.AccStatic).MaxStack(2).MaxLocals(0)
	addRef := entry.Const(classfile.MemberRef("Main", "add", "(II)I"))
	entry.Emit(bytecode.Iconst2).
		Emit(bytecode.Iconst3).
		Emit(bytecode.Invokestatic).EmitU16(addRef).
		Emit(bytecode.Ireturn)
	main_.Method(entry)

	clinit := classfile.NewMethod("<clinit>", "()V", 0, object.AccStatic).MaxStack(1).MaxLocals(0)
	counterConst := clinit.Const(classfile.IntConst(42))
	counterField := clinit.Const(classfile.MemberRef("Main", "counter", "I"))
	clinit.Emit(bytecode.Ldc).EmitU8(uint8(counterConst)).
		Emit(bytecode.Putstatic).EmitU16(counterField).
		Emit(bytecode.Return)
	main_.Init(clinit)

	mf.MustRegister("Main", main_)
}

func resolveEntry(t *machine.Thread, classRef object.Ref, name, descriptor string) object.Ref {
	class, _ := t.Machine.Heap.Resolve(classRef).(*object.Class)
	for _, mref := range class.MethodTable {
		meth, _ := t.Machine.Heap.Resolve(mref).(*object.Method)
		if meth != nil && meth.Name == name && meth.Descriptor == descriptor {
			return mref
		}
	}
	log.Fatalf("corevm: no method %s%s on %s", name, descriptor, class.Name)
	return object.Null
}

func boxedInt(t *machine.Thread, ref object.Ref) int32 {
	v, _ := t.Machine.Heap.Resolve(ref).(*object.Int)
	if v == nil {
		return 0
	}
	return v.Value
}

func describeException(t *machine.Thread) string {
	inst, _ := t.Machine.Heap.Resolve(t.Exception).(*object.Instance)
	if inst == nil {
		return "<no exception detail>"
	}
	str, _ := t.Machine.Heap.Resolve(inst.Get(0)).(*object.String)
	if str == nil {
		return "<unreadable message>"
	}
	bs, _ := t.Machine.Heap.Resolve(str.Bytes).(*object.ByteArray)
	if bs == nil {
		return "<unreadable message>"
	}
	buf := make([]byte, len(bs.Elements))
	for i, b := range bs.Elements {
		buf[i] = byte(b)
	}
	return string(buf)
}

func reportStats(h *heap.CompactingHeap) {
	s := h.Stats()
	log.Printf("heap: %d live objects, %s live after %d collection(s)",
		s.LiveObjects, humanize.Bytes(s.BytesLive), s.Collections)
}

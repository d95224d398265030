package interp

import (
	"corevm/internal/alloc"
	"corevm/internal/bytecode"
	"corevm/internal/classloader"
	"corevm/internal/dispatch"
	"corevm/internal/except"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// handleObject implements §4.I's object opcodes: new (init interpose then
// allocate+stamp), get/putfield (null receiver -> NPE), get/putstatic
// (init interpose), checkcast, instanceof.
func handleObject(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	switch op {
	case bytecode.New:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		classRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		if code, interposed := dispatch.Interpose(t.Machine, classRef); interposed {
			st.ip -= 3
			enterInitializer(rt, t, st, code)
			return true
		}
		class, _ := t.Machine.Heap.Resolve(classRef).(*object.Class)
		inst := object.NewInstance(classRef, class.FixedSize)
		t.Push(alloc.Allocate(t, inst, 16+8*class.FixedSize))

	case bytecode.Getfield:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		fieldRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		field, _ := t.Machine.Heap.Resolve(fieldRef).(*object.Field)
		recvRef := t.Pop()
		if recvRef == object.Null {
			rt.throwNamed(t, st.ip-1, except.NullPointerException, "")
			return true
		}
		recv, _ := t.Machine.Heap.Resolve(recvRef).(*object.Instance)
		t.Push(recv.Get(field.Offset))

	case bytecode.Putfield:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		fieldRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		field, _ := t.Machine.Heap.Resolve(fieldRef).(*object.Field)
		v := t.Pop()
		recvRef := t.Pop()
		if recvRef == object.Null {
			rt.throwNamed(t, st.ip-1, except.NullPointerException, "")
			return true
		}
		recv, _ := t.Machine.Heap.Resolve(recvRef).(*object.Instance)
		recv.Set(field.Offset, v)
		t.Machine.Heap.Check(&recv.Fields[field.Offset], t.Machine.HeapMonitor)

	case bytecode.Getstatic:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		fieldRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		field, _ := t.Machine.Heap.Resolve(fieldRef).(*object.Field)
		owner, _ := t.Machine.Heap.Resolve(field.Owning).(*object.Class)
		if code, interposed := dispatch.Interpose(t.Machine, field.Owning); interposed {
			st.ip -= 3
			enterInitializer(rt, t, st, code)
			return true
		}
		t.Push(owner.StaticTable[field.Offset])

	case bytecode.Putstatic:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		fieldRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		field, _ := t.Machine.Heap.Resolve(fieldRef).(*object.Field)
		owner, _ := t.Machine.Heap.Resolve(field.Owning).(*object.Class)
		if code, interposed := dispatch.Interpose(t.Machine, field.Owning); interposed {
			st.ip -= 3
			enterInitializer(rt, t, st, code)
			return true
		}
		v := t.Pop()
		owner.StaticTable[field.Offset] = v
		t.Machine.Heap.Check(&owner.StaticTable[field.Offset], t.Machine.HeapMonitor)

	case bytecode.Checkcast:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		classRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		v := t.Top()
		if v != object.Null && !dispatch.InstanceOf(t.Machine, classRef, v) {
			rt.throwNamed(t, st.ip-1, except.ClassCastException, "")
			return true
		}

	case bytecode.Instanceof:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		classRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
		if t.HasException() {
			return true
		}
		v := t.Pop()
		if dispatch.InstanceOf(t.Machine, classRef, v) {
			t.Push(allocBoxedInt(t, 1))
		} else {
			t.Push(allocBoxedInt(t, 0))
		}

	default:
		return false
	}
	return true
}

// enterInitializer redirects execution to a class initialiser's code with
// no arguments, per §4.H's interposition contract: the triggering opcode
// (whose ip was already rewound by 3) re-executes once the initialiser
// returns through the normal return path, because the initialiser's
// caller-frame link is the same frame that was about to execute it.
func enterInitializer(rt *Runtime, t *machine.Thread, st *execState, code *object.Code) {
	if code == nil {
		return
	}
	frame := object.NewFrame(object.Null, object.Null, st.frameRef, t.SP, code.MaxLocals)
	frameRef := alloc.Allocate(t, frame, 32+8*code.MaxLocals)
	rt.store(t, st)
	*st = rt.loadState(t, frameRef)
	st.code = code
}

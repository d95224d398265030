package interp

import (
	"corevm/internal/bytecode"
	"corevm/internal/classloader"
	"corevm/internal/dispatch"
	"corevm/internal/except"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// invoke implements §4.I's four invoke* opcodes and the entry-to-a-new-
// frame contract: verify stack headroom, write ip back, build the new
// frame with locals copied from the parameter slots, and continue with the
// callee loaded into st. Returns false if an exception was raised (either
// resolving the callee or because the receiver was null) — the caller must
// then unwind.
func invoke(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	idx := int(readU16(st.code.Body, st.ip))
	st.ip += 2

	memberRef := classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
	if t.HasException() {
		return false
	}
	named, _ := t.Machine.Heap.Resolve(memberRef).(*object.Method)
	if named == nil {
		rt.throwNamed(t, st.ip-1, except.NoSuchMethodError, "")
		return false
	}

	paramCount := named.ParameterCount
	var calleeRef object.Ref

	if op == bytecode.Invokestatic {
		if code, interposed := dispatch.Interpose(t.Machine, named.Owning); interposed {
			st.ip -= 3
			enterInitializer(rt, t, st, code)
			return true
		}
		calleeRef = memberRef
	} else {
		receiverRef := t.Stack[t.SP-1-paramCount]
		if receiverRef == object.Null {
			rt.throwNamed(t, st.ip-1, except.NullPointerException, "")
			return false
		}
		receiverClass := classWordOfRef(t, receiverRef)

		switch op {
		case bytecode.Invokevirtual:
			calleeRef = dispatch.Virtual(t.Machine, receiverClass, named.VtableOffset)
		case bytecode.Invokeinterface:
			owner, _ := t.Machine.Heap.Resolve(named.Owning).(*object.Class)
			calleeRef = dispatch.Interface(t.Machine, receiverClass, owner.TypeID, named.VtableOffset)
		case bytecode.Invokespecial:
			calleeRef = dispatch.Special(t.Machine, classWordOfRef(t, receiverRef), named.Owning, named)
		}
		if calleeRef == object.Null {
			rt.throwNamed(t, st.ip-1, except.NoSuchMethodError, "")
			return false
		}
		callee, _ := t.Machine.Heap.Resolve(calleeRef).(*object.Method)
		if code, interposed := dispatch.Interpose(t.Machine, callee.Owning); interposed {
			st.ip -= 3
			enterInitializer(rt, t, st, code)
			return true
		}
	}

	callee, _ := t.Machine.Heap.Resolve(calleeRef).(*object.Method)
	if callee == nil {
		rt.throwNamed(t, st.ip-1, except.NoSuchMethodError, "")
		return false
	}

	if t.SP+callee.Code.MaxStack-paramCount > len(t.Stack) {
		rt.throwNamed(t, st.ip-1, except.StackOverflowError, "")
		return false
	}

	argBase := t.SP - paramCount
	args := make([]object.Ref, paramCount)
	copy(args, t.Stack[argBase:t.SP])
	t.SP = argBase

	// args are off the operand stack now (t.SP no longer roots them) and
	// not yet copied into the new frame's locals — pushFrame's own
	// allocation is the only thing that can trigger a minor collection
	// before they land somewhere rooted, so protect them across it.
	release := machine.RegisterAll(t, args)
	rt.store(t, st)
	frameRef := pushFrame(rt, t, calleeRef, callee, args, st.frameRef)
	release()
	*st = rt.loadState(t, frameRef)
	return true
}

func classWordOfRef(t *machine.Thread, r object.Ref) object.Ref {
	v := t.Machine.Heap.Resolve(r)
	var class object.Ref
	v.VisitRefs(func(slot *object.Ref) {
		if class == object.Null {
			class = *slot
		}
	})
	return class
}

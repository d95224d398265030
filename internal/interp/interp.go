// Package interp is the opcode dispatch loop of §4.I: a single flat loop
// over one thread's frame chain, with invoke/return switching the active
// frame in place rather than recursing through Go's call stack — frames
// are heap values reachable from the root scanner, so the Go call stack
// must stay shallow regardless of how deep the interpreted call chain
// grows.
package interp

import (
	"corevm/internal/alloc"
	"corevm/internal/bytecode"
	"corevm/internal/classloader"
	"corevm/internal/dispatch"
	"corevm/internal/except"
	"corevm/internal/machine"
	"corevm/internal/object"
	"corevm/internal/platform"
)

// Runtime bundles the collaborators the loop needs beyond the thread it's
// running: a class loader for resolving constant-pool entries encountered
// mid-dispatch, and the resolver/allocator except.Make needs to mint
// exception instances.
type Runtime struct {
	Loader classloader.ClassFileLoader
}

func (rt *Runtime) resolver() except.ClassResolver {
	return func(t *machine.Thread, name string) object.Ref {
		return classloader.ResolveClass(t, rt.Loader, name)
	}
}

func (rt *Runtime) throwNamed(t *machine.Thread, ip int, kind except.Kind, msg string) {
	t.Exception = except.MakeWithTrace(t, rt.resolver(), alloc.Allocate, kind, msg, ip)
}

// execState is the interpreter's working set for the currently active
// frame — the live values that Thread's own fields only hold a written-back
// snapshot of while a callee is executing.
type execState struct {
	frameRef object.Ref
	frame    *object.Frame
	method   *object.Method
	code     *object.Code
	ip       int
}

func (rt *Runtime) loadState(t *machine.Thread, ref object.Ref) execState {
	f, _ := t.Machine.Heap.Resolve(ref).(*object.Frame)
	meth, _ := t.Machine.Heap.Resolve(f.Method).(*object.Method)
	var code *object.Code
	if meth != nil {
		code = meth.Code
	}
	return execState{frameRef: ref, frame: f, method: meth, code: code, ip: f.IP}
}

func (rt *Runtime) store(t *machine.Thread, st *execState) {
	st.frame.IP = st.ip
	t.Frame = st.frameRef
	t.Code = st.code
	t.IP = st.ip
}

// Run executes method on t starting with args already placed in a fresh
// frame's locals, and returns the value areturn/ireturn/lreturn produced
// (object.Null for the void `return_` form) once the frame chain unwinds
// past the one Run pushed.
func Run(rt *Runtime, t *machine.Thread, methodRef object.Ref, args []object.Ref) object.Ref {
	method, _ := t.Machine.Heap.Resolve(methodRef).(*object.Method)

	// args arrive from the caller unrooted (not on any operand stack, no
	// protector of their own) — pushFrame's allocation is the only thing
	// that can trigger a minor collection before they're copied into the
	// new frame's locals, so protect them across it.
	release := machine.RegisterAll(t, args)
	entry := pushFrame(rt, t, methodRef, method, args, object.Null)
	release()
	st := rt.loadState(t, entry)
	rt.store(t, &st) // the entry frame is t's current frame from here on

	for {
		op := bytecode.OpCode(st.code.Body[st.ip])
		st.ip++

		switch {
		case handleLoadStore(rt, t, &st, op):
		case handleConst(rt, t, &st, op):
		case handleStack(rt, t, &st, op):
		case handleArith(rt, t, &st, op):
		case handleConvert(rt, t, &st, op):
		case handleBranch(rt, t, &st, op):
		case handleArray(rt, t, &st, op):
		case handleObject(rt, t, &st, op):
		case op == bytecode.Wide:
			handleWide(rt, t, &st)
		case op == bytecode.Jsr:
			opAt := st.ip - 1
			off := int(readS16(st.code.Body, st.ip))
			ret := int32(st.ip + 2)
			st.ip = opAt + off
			t.Push(allocBoxedInt(t, ret))
		case op == bytecode.JsrW:
			opAt := st.ip - 1
			off := int(readS32(st.code.Body, st.ip))
			ret := int32(st.ip + 4)
			st.ip = opAt + off
			t.Push(allocBoxedInt(t, ret))
		case op == bytecode.Ret:
			idx := int(st.code.Body[st.ip])
			st.ip++
			v, _ := t.Machine.Heap.Resolve(st.frame.Locals[idx]).(*object.Int)
			st.ip = int(v.Value)

		case op == bytecode.Invokevirtual, op == bytecode.Invokeinterface,
			op == bytecode.Invokespecial, op == bytecode.Invokestatic:
			if !invoke(rt, t, &st, op) {
				if t.HasException() {
					if !unwind(rt, t, &st) {
						return object.Null
					}
					continue
				}
				return object.Null
			}

		case op == bytecode.Areturn, op == bytecode.Ireturn, op == bytecode.Lreturn, op == bytecode.Return:
			var result object.Ref
			if op != bytecode.Return {
				result = t.Pop()
			}
			next := st.frame.Next
			if next == object.Null {
				rt.store(t, &st)
				return result
			}
			st = rt.loadState(t, next)
			if result != object.Null {
				t.Push(result)
			}

		case op == bytecode.Athrow:
			exc := t.Pop()
			if exc == object.Null {
				rt.throwNamed(t, st.ip-1, except.NullPointerException, "")
			} else {
				t.Exception = exc
			}
			if !unwind(rt, t, &st) {
				return object.Null
			}

		default:
			platform.Abort(except.Messagef("interp: unknown opcode %d at ip %d", op, st.ip-1))
		}

		if t.HasException() && !isHandlerOpcode(op) {
			if !unwind(rt, t, &st) {
				return object.Null
			}
		}
	}
}

// isHandlerOpcode reports opcodes whose handler already drove unwind
// itself (invoke, athrow), so the generic post-dispatch exception check
// doesn't double-unwind.
func isHandlerOpcode(op bytecode.OpCode) bool {
	switch op {
	case bytecode.Invokevirtual, bytecode.Invokeinterface, bytecode.Invokespecial, bytecode.Invokestatic, bytecode.Athrow:
		return true
	default:
		return false
	}
}

// pushFrame allocates a new frame for method with args copied into its
// locals, linking next as its caller, and returns the new frame's Ref.
func pushFrame(rt *Runtime, t *machine.Thread, methodRef object.Ref, method *object.Method, args []object.Ref, next object.Ref) object.Ref {
	frame := object.NewFrame(object.Null, methodRef, next, t.SP, method.Code.MaxLocals)
	for i, a := range args {
		frame.Locals[i] = a
	}
	frameRef := alloc.Allocate(t, frame, 32+8*method.Code.MaxLocals)
	return frameRef
}

func allocBoxedInt(t *machine.Thread, v int32) object.Ref {
	return alloc.Allocate(t, object.NewInt(object.Null, v), 8)
}

func allocBoxedLong(t *machine.Thread, v int64) object.Ref {
	return alloc.Allocate(t, object.NewLong(object.Null, v), 16)
}

func boxedIntValue(t *machine.Thread, r object.Ref) int32 {
	v, _ := t.Machine.Heap.Resolve(r).(*object.Int)
	if v == nil {
		return 0
	}
	return v.Value
}

func boxedLongValue(t *machine.Thread, r object.Ref) int64 {
	v, _ := t.Machine.Heap.Resolve(r).(*object.Long)
	if v == nil {
		return 0
	}
	return v.Value
}

func readS16(body []byte, ip int) int16 {
	return int16(uint16(body[ip])<<8 | uint16(body[ip+1]))
}

func readU16(body []byte, ip int) uint16 {
	return uint16(body[ip])<<8 | uint16(body[ip+1])
}

func readS32(body []byte, ip int) int32 {
	return int32(uint32(body[ip])<<24 | uint32(body[ip+1])<<16 | uint32(body[ip+2])<<8 | uint32(body[ip+3]))
}

// unwind implements §4.I throw_: scan the frame chain outward for a
// handler. On match, restore sp, set ip, push the exception, clear it, and
// resume. If the chain is exhausted, install the uncaught-exception
// synthetic frame. Returns false if that handler chain itself cannot be
// entered (no handler installed) and Run should return.
func unwind(rt *Runtime, t *machine.Thread, st *execState) bool {
	exc := t.Exception
	cur := *st
	for {
		for _, h := range cur.code.Handlers {
			if cur.ip-1 < h.StartPC || cur.ip-1 >= h.EndPC {
				continue
			}
			matches := h.CatchType == 0
			if !matches && int(h.CatchType) < len(cur.code.ConstPool) {
				catchClass := classloader.ResolveConstant(t, rt.Loader, cur.code.ConstPool, int(h.CatchType))
				matches = dispatch.InstanceOf(t.Machine, catchClass, exc)
			}
			if matches {
				t.SP = cur.frame.StackBase
				cur.ip = h.HandlerPC
				t.Exception = object.Null
				t.Push(exc)
				*st = cur
				rt.store(t, st)
				return true
			}
		}
		if cur.frame.Next == object.Null {
			break
		}
		cur = rt.loadState(t, cur.frame.Next)
	}

	// Uncaught: install the synthetic top frame and dispatch into it with
	// the exception on an empty stack (§4.I).
	if t.UncaughtHandler == object.Null {
		return false
	}
	handler, _ := t.Machine.Heap.Resolve(t.UncaughtHandler).(*object.Method)
	if handler == nil {
		return false
	}
	t.SP = 0
	frameRef := pushFrame(rt, t, t.UncaughtHandler, handler, nil, object.Null)
	*st = rt.loadState(t, frameRef)
	t.Exception = object.Null
	t.Push(exc)
	rt.store(t, st)
	return true
}

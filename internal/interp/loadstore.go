package interp

import (
	"corevm/internal/bytecode"
	"corevm/internal/machine"
	"corevm/internal/object"
)

func handleLoadStore(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	switch op {
	case bytecode.Aload, bytecode.Iload, bytecode.Lload:
		idx := int(st.code.Body[st.ip])
		st.ip++
		t.Push(st.frame.Locals[idx])
	case bytecode.Aload0, bytecode.Iload0, bytecode.Lload0:
		t.Push(st.frame.Locals[0])
	case bytecode.Aload1, bytecode.Iload1, bytecode.Lload1:
		t.Push(st.frame.Locals[1])
	case bytecode.Aload2, bytecode.Iload2, bytecode.Lload2:
		t.Push(st.frame.Locals[2])
	case bytecode.Aload3, bytecode.Iload3, bytecode.Lload3:
		t.Push(st.frame.Locals[3])

	case bytecode.Astore, bytecode.Istore, bytecode.Lstore:
		idx := int(st.code.Body[st.ip])
		st.ip++
		st.frame.Locals[idx] = t.Pop()
	case bytecode.Astore0, bytecode.Istore0, bytecode.Lstore0:
		st.frame.Locals[0] = t.Pop()
	case bytecode.Astore1, bytecode.Istore1, bytecode.Lstore1:
		st.frame.Locals[1] = t.Pop()
	case bytecode.Astore2, bytecode.Istore2, bytecode.Lstore2:
		st.frame.Locals[2] = t.Pop()
	case bytecode.Astore3, bytecode.Istore3, bytecode.Lstore3:
		st.frame.Locals[3] = t.Pop()

	case bytecode.Iinc:
		idx := int(st.code.Body[st.ip])
		st.ip++
		delta := int8(st.code.Body[st.ip])
		st.ip++
		v := boxedIntValue(t, st.frame.Locals[idx])
		st.frame.Locals[idx] = allocBoxedInt(t, v+int32(delta))

	default:
		return false
	}
	return true
}

// handleWide re-dispatches the next opcode with a 16-bit index instead of
// an 8-bit one, exactly matching the wide-prefix set original_source's
// vm.cpp uses: load/store/iinc/ret all get a wide variant (§9 supplemented
// features).
func handleWide(rt *Runtime, t *machine.Thread, st *execState) {
	op := bytecode.OpCode(st.code.Body[st.ip])
	st.ip++
	idx := int(readU16(st.code.Body, st.ip))
	st.ip += 2

	switch op {
	case bytecode.Aload, bytecode.Iload, bytecode.Lload:
		t.Push(st.frame.Locals[idx])
	case bytecode.Astore, bytecode.Istore, bytecode.Lstore:
		st.frame.Locals[idx] = t.Pop()
	case bytecode.Ret:
		v, _ := t.Machine.Heap.Resolve(st.frame.Locals[idx]).(*object.Int)
		if v != nil {
			st.ip = int(v.Value)
		}
	case bytecode.Iinc:
		delta := int16(readU16(st.code.Body, st.ip))
		st.ip += 2
		v := boxedIntValue(t, st.frame.Locals[idx])
		st.frame.Locals[idx] = allocBoxedInt(t, v+int32(delta))
	}
}

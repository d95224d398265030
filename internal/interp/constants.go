package interp

import (
	"corevm/internal/bytecode"
	"corevm/internal/classloader"
	"corevm/internal/machine"
	"corevm/internal/object"
)

func handleConst(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	switch op {
	case bytecode.AconstNull:
		t.Push(object.Null)
	case bytecode.Iconst0:
		t.Push(allocBoxedInt(t, 0))
	case bytecode.Iconst1:
		t.Push(allocBoxedInt(t, 1))
	case bytecode.Iconst2:
		t.Push(allocBoxedInt(t, 2))
	case bytecode.Iconst3:
		t.Push(allocBoxedInt(t, 3))
	case bytecode.Iconst4:
		t.Push(allocBoxedInt(t, 4))
	case bytecode.Iconst5:
		t.Push(allocBoxedInt(t, 5))
	case bytecode.Lconst0:
		t.Push(allocBoxedLong(t, 0))
	case bytecode.Lconst1:
		t.Push(allocBoxedLong(t, 1))

	case bytecode.Bipush:
		v := int8(st.code.Body[st.ip])
		st.ip++
		t.Push(allocBoxedInt(t, int32(v)))

	case bytecode.Sipush:
		v := readS16(st.code.Body, st.ip)
		st.ip += 2
		t.Push(allocBoxedInt(t, int32(v)))

	case bytecode.Ldc:
		idx := int(st.code.Body[st.ip])
		st.ip++
		t.Push(classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx))

	case bytecode.LdcW:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		t.Push(classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx))

	case bytecode.Ldc2W:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		t.Push(classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx))

	default:
		return false
	}
	return true
}

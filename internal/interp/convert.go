package interp

import (
	"corevm/internal/bytecode"
	"corevm/internal/machine"
)

func handleConvert(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	switch op {
	case bytecode.I2b:
		v := boxedIntValue(t, t.Pop())
		t.Push(allocBoxedInt(t, int32(int8(v))))
	case bytecode.I2c:
		v := boxedIntValue(t, t.Pop())
		t.Push(allocBoxedInt(t, int32(uint16(v))))
	case bytecode.I2s:
		v := boxedIntValue(t, t.Pop())
		t.Push(allocBoxedInt(t, int32(int16(v))))
	case bytecode.I2l:
		v := boxedIntValue(t, t.Pop())
		t.Push(allocBoxedLong(t, int64(v)))
	case bytecode.L2i:
		v := boxedLongValue(t, t.Pop())
		t.Push(allocBoxedInt(t, int32(v)))
	default:
		return false
	}
	return true
}

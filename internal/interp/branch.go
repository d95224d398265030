package interp

import (
	"corevm/internal/bytecode"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// handleBranch implements §4.I's comparisons and branches. Offsets are
// signed, big-endian, relative to the opcode byte itself — so every branch
// here computes its target from the opcode's own position (st.ip-1), not
// from the post-operand ip.
func handleBranch(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	opAt := st.ip - 1

	switch op {
	case bytecode.IfIcmpeq, bytecode.IfIcmpne, bytecode.IfIcmplt,
		bytecode.IfIcmple, bytecode.IfIcmpgt, bytecode.IfIcmpge:
		off := readS16(st.code.Body, st.ip)
		st.ip += 2
		b := boxedIntValue(t, t.Pop())
		a := boxedIntValue(t, t.Pop())
		if intCmpMatches(op, a, b) {
			st.ip = opAt + int(off)
		}

	case bytecode.Ifeq, bytecode.Ifne, bytecode.Iflt, bytecode.Ifle, bytecode.Ifgt, bytecode.Ifge:
		off := readS16(st.code.Body, st.ip)
		st.ip += 2
		a := boxedIntValue(t, t.Pop())
		if intZeroCmpMatches(op, a) {
			st.ip = opAt + int(off)
		}

	case bytecode.IfAcmpeq, bytecode.IfAcmpne:
		off := readS16(st.code.Body, st.ip)
		st.ip += 2
		b := t.Pop()
		a := t.Pop()
		eq := a == b
		if op == bytecode.IfAcmpne {
			eq = !eq
		}
		if eq {
			st.ip = opAt + int(off)
		}

	case bytecode.Ifnull, bytecode.Ifnonnull:
		off := readS16(st.code.Body, st.ip)
		st.ip += 2
		a := t.Pop()
		isNull := a == object.Null
		if op == bytecode.Ifnonnull {
			isNull = !isNull
		}
		if isNull {
			st.ip = opAt + int(off)
		}

	case bytecode.Goto:
		off := readS16(st.code.Body, st.ip)
		st.ip = opAt + int(off)

	case bytecode.GotoW:
		off := readS32(st.code.Body, st.ip)
		st.ip = opAt + int(off)

	default:
		return false
	}
	return true
}

// intCmpMatches corrects if_icmple to <= (§9 open question: "the source
// uses < instead of <=").
func intCmpMatches(op bytecode.OpCode, a, b int32) bool {
	switch op {
	case bytecode.IfIcmpeq:
		return a == b
	case bytecode.IfIcmpne:
		return a != b
	case bytecode.IfIcmplt:
		return a < b
	case bytecode.IfIcmple:
		return a <= b
	case bytecode.IfIcmpgt:
		return a > b
	case bytecode.IfIcmpge:
		return a >= b
	default:
		return false
	}
}

func intZeroCmpMatches(op bytecode.OpCode, a int32) bool {
	switch op {
	case bytecode.Ifeq:
		return a == 0
	case bytecode.Ifne:
		return a != 0
	case bytecode.Iflt:
		return a < 0
	case bytecode.Ifle:
		return a <= 0
	case bytecode.Ifgt:
		return a > 0
	case bytecode.Ifge:
		return a >= 0
	default:
		return false
	}
}

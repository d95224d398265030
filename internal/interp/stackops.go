package interp

import (
	"corevm/internal/bytecode"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// isWide reports whether the value at r occupies a double-width category
// slot — long (there is no distinct double kind in this core's opcode
// set). Every value here is boxed into one Ref regardless, but pop2/dup2's
// consumed-slot-count still depends on this per §4.I.
func isWide(t *machine.Thread, r object.Ref) bool {
	_, ok := t.Machine.Heap.Resolve(r).(*object.Long)
	return ok
}

func handleStack(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	switch op {
	case bytecode.Pop:
		t.Pop()

	case bytecode.Pop2:
		top := t.Top()
		t.Pop()
		if !isWide(t, top) {
			t.Pop()
		}

	case bytecode.Dup:
		v := t.Top()
		t.Push(v)

	case bytecode.DupX1:
		a := t.Pop()
		b := t.Pop()
		t.Push(a)
		t.Push(b)
		t.Push(a)

	case bytecode.DupX2:
		a := t.Pop()
		b := t.Pop()
		c := t.Pop()
		t.Push(a)
		t.Push(c)
		t.Push(b)
		t.Push(a)

	case bytecode.Dup2:
		a := t.Pop()
		if isWide(t, a) {
			t.Push(a)
			t.Push(a)
			break
		}
		b := t.Pop()
		t.Push(b)
		t.Push(a)
		t.Push(b)
		t.Push(a)

	case bytecode.Dup2X1:
		a := t.Pop()
		if isWide(t, a) {
			b := t.Pop()
			t.Push(a)
			t.Push(b)
			t.Push(a)
			break
		}
		b := t.Pop()
		c := t.Pop()
		t.Push(b)
		t.Push(a)
		t.Push(c)
		t.Push(b)
		t.Push(a)

	case bytecode.Dup2X2:
		a := t.Pop()
		if isWide(t, a) {
			b := t.Pop()
			if isWide(t, b) {
				t.Push(a)
				t.Push(b)
				t.Push(a)
			} else {
				c := t.Pop()
				t.Push(a)
				t.Push(c)
				t.Push(b)
				t.Push(a)
			}
			break
		}
		b := t.Pop()
		c := t.Pop()
		if isWide(t, c) {
			t.Push(b)
			t.Push(a)
			t.Push(c)
			t.Push(b)
			t.Push(a)
			break
		}
		d := t.Pop()
		t.Push(b)
		t.Push(a)
		t.Push(d)
		t.Push(c)
		t.Push(b)
		t.Push(a)

	case bytecode.Swap:
		a := t.Pop()
		b := t.Pop()
		t.Push(a)
		t.Push(b)

	default:
		return false
	}
	return true
}

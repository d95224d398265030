package interp

import (
	"corevm/internal/alloc"
	"corevm/internal/bytecode"
	"corevm/internal/classloader"
	"corevm/internal/except"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// handleArray implements §4.I's array opcodes: newarray/anewarray,
// arraylength, and the per-type element load/store family. Index out of
// range throws ArrayIndexOutOfBoundsException with the message
// "i not in [0,len]"; a null array throws NullPointerException.
func handleArray(rt *Runtime, t *machine.Thread, st *execState, op bytecode.OpCode) bool {
	switch op {
	case bytecode.Newarray:
		atype := bytecode.ArrayType(st.code.Body[st.ip])
		st.ip++
		length := int(boxedIntValue(t, t.Pop()))
		if length < 0 {
			rt.throwNamed(t, st.ip-1, except.NegativeArrayStoreException, except.Messagef("%d", length))
			return true
		}
		t.Push(newPrimitiveArray(t, atype, length))

	case bytecode.Anewarray:
		idx := int(readU16(st.code.Body, st.ip))
		st.ip += 2
		elemClass := resolveIndex(rt, t, st, idx)
		if t.HasException() {
			return true
		}
		length := int(boxedIntValue(t, t.Pop()))
		if length < 0 {
			rt.throwNamed(t, st.ip-1, except.NegativeArrayStoreException, except.Messagef("%d", length))
			return true
		}
		arr := object.NewObjectArray(object.Null, elemClass, length)
		// Sized by actual reference width rather than a hardcoded 4 bytes
		// (§9 open question: anewarray's source zeroes c*4 bytes
		// unconditionally, incorrect on 64-bit references).
		t.Push(alloc.Allocate(t, arr, 16+length*refWidth))

	case bytecode.Arraylength:
		arrRef := t.Pop()
		if arrRef == object.Null {
			rt.throwNamed(t, st.ip-1, except.NullPointerException, "")
			return true
		}
		t.Push(allocBoxedInt(t, int32(arrayLength(t, arrRef))))

	case bytecode.Aaload:
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.ObjectArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		t.Push(a.Elements[idx])

	case bytecode.Aastore:
		v := t.Pop()
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.ObjectArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		a.Elements[idx] = v
		t.Machine.Heap.Check(&a.Elements[idx], t.Machine.HeapMonitor)

	case bytecode.Baload:
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.ByteArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		t.Push(allocBoxedInt(t, int32(a.Elements[idx])))

	case bytecode.Bastore:
		v := boxedIntValue(t, t.Pop())
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.ByteArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		a.Elements[idx] = int8(v)

	case bytecode.Caload:
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.CharArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		t.Push(allocBoxedInt(t, int32(a.Elements[idx])))

	case bytecode.Castore:
		v := boxedIntValue(t, t.Pop())
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.CharArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		a.Elements[idx] = uint16(v)

	case bytecode.Saload:
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.ShortArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		t.Push(allocBoxedInt(t, int32(a.Elements[idx])))

	case bytecode.Sastore:
		v := boxedIntValue(t, t.Pop())
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.ShortArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		a.Elements[idx] = int16(v)

	case bytecode.Iaload:
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.IntArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		t.Push(allocBoxedInt(t, a.Elements[idx]))

	case bytecode.Iastore:
		v := boxedIntValue(t, t.Pop())
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.IntArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		a.Elements[idx] = v

	case bytecode.Laload:
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.LongArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		t.Push(allocBoxedLong(t, a.Elements[idx]))

	case bytecode.Lastore:
		v := boxedLongValue(t, t.Pop())
		idx, arr := arrIndexAndArray(rt, t, st)
		if arr == nil {
			return true
		}
		a := arr.(*object.LongArray)
		if !checkBounds(rt, t, st, idx, len(a.Elements)) {
			return true
		}
		a.Elements[idx] = v

	default:
		return false
	}
	return true
}

// refWidth is the simulated reference width used to size anewarray's
// backing allocation; object.Ref is a uint32 handle, so 4 bytes per slot.
const refWidth = 4

func resolveIndex(rt *Runtime, t *machine.Thread, st *execState, idx int) object.Ref {
	return classloader.ResolveConstant(t, rt.Loader, st.code.ConstPool, idx)
}

func arrIndexAndArray(rt *Runtime, t *machine.Thread, st *execState) (int, object.Value) {
	idxRef := t.Pop()
	idx := int(boxedIntValue(t, idxRef))
	arrRef := t.Pop()
	if arrRef == object.Null {
		rt.throwNamed(t, st.ip-1, except.NullPointerException, "")
		return 0, nil
	}
	return idx, t.Machine.Heap.Resolve(arrRef)
}

func checkBounds(rt *Runtime, t *machine.Thread, st *execState, idx, length int) bool {
	if idx < 0 || idx >= length {
		rt.throwNamed(t, st.ip-1, except.ArrayIndexOutOfBoundsException, except.Messagef("%d not in [0,%d]", idx, length))
		return false
	}
	return true
}

func arrayLength(t *machine.Thread, r object.Ref) int {
	v := t.Machine.Heap.Resolve(r)
	if la, ok := v.(interface{ Length() int }); ok {
		return la.Length()
	}
	return 0
}

func newPrimitiveArray(t *machine.Thread, atype bytecode.ArrayType, length int) object.Ref {
	switch atype {
	case bytecode.TBoolean:
		return alloc.Allocate(t, object.NewBooleanArray(object.Null, length), 16+length)
	case bytecode.TChar:
		return alloc.Allocate(t, object.NewCharArray(object.Null, length), 16+length*2)
	case bytecode.TFloat:
		return alloc.Allocate(t, object.NewFloatArray(object.Null, length), 16+length*4)
	case bytecode.TDouble:
		return alloc.Allocate(t, object.NewDoubleArray(object.Null, length), 16+length*8)
	case bytecode.TByte:
		return alloc.Allocate(t, object.NewByteArray(object.Null, length), 16+length)
	case bytecode.TShort:
		return alloc.Allocate(t, object.NewShortArray(object.Null, length), 16+length*2)
	case bytecode.TInt:
		return alloc.Allocate(t, object.NewIntArray(object.Null, length), 16+length*4)
	case bytecode.TLong:
		return alloc.Allocate(t, object.NewLongArray(object.Null, length), 16+length*8)
	default:
		return object.Null
	}
}

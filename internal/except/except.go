// Package except implements §4.J: building the core's nine standard
// exception kinds with a backtrace captured at the throw point.
package except

import (
	"fmt"

	"corevm/internal/machine"
	"corevm/internal/object"
)

// Kind names the exception classes this core mints (§7.1).
type Kind string

const (
	NullPointerException           Kind = "NullPointerException"
	ArrayIndexOutOfBoundsException Kind = "ArrayIndexOutOfBoundsException"
	NegativeArrayStoreException    Kind = "NegativeArrayStoreException"
	ClassCastException             Kind = "ClassCastException"
	ClassNotFoundException         Kind = "ClassNotFoundException"
	NoSuchFieldError                Kind = "NoSuchFieldError"
	NoSuchMethodError               Kind = "NoSuchMethodError"
	StackOverflowError              Kind = "StackOverflowError"
	ArithmeticException             Kind = "ArithmeticException"
)

// ClassResolver looks up an already-loaded exception class by name, for use
// by makeX. It is the tiny slice of classloader's job that except needs;
// except takes it as a parameter rather than importing classloader, keeping
// the dependency arrow pointing the one direction classloader->except
// already goes.
type ClassResolver func(t *machine.Thread, name string) object.Ref

// TraceEntry is one (method, ip) record in a captured backtrace.
type TraceEntry struct {
	Method object.Ref
	IP     int
}

// MakeTrace snapshots the current frame chain (§4.J): the current frame's
// entry takes liveIP in place of the frame's stored IP (the live ip
// normally lives in the interpreter, not the frame, while that frame is
// executing — see object.Frame's doc; the frame itself is not written),
// then it walks Next links collecting (method, ip) pairs.
func MakeTrace(t *machine.Thread, heap interface {
	Resolve(object.Ref) object.Value
}, liveIP int) []TraceEntry {
	var trace []TraceEntry
	cur := t.Frame
	first := true
	for cur != object.Null {
		val := heap.Resolve(cur)
		f, ok := val.(*object.Frame)
		if !ok || f == nil {
			break
		}
		ip := f.IP
		if first {
			ip = liveIP
			first = false
		}
		trace = append(trace, TraceEntry{Method: f.Method, IP: ip})
		cur = f.Next
	}
	return trace
}

// Exception instance layout: MakeWithTrace creates every exception instance
// with exactly two fields, message (slot 0) and trace-methods (slot 1),
// whatever fields the exception class itself declares.
const (
	FieldMessage      = 0
	FieldTraceMethods = 1
)

// Make allocates an instance of the named exception kind, stores msg as its
// message field, and attaches a trace captured from t's current frame
// chain at liveIP. The message and trace array are each protected across
// the further allocations that follow them (§4.D protector discipline).
func Make(t *machine.Thread, resolve ClassResolver, allocate func(*machine.Thread, object.Value, int) object.Ref, kind Kind, msg string) object.Ref {
	return MakeWithTrace(t, resolve, allocate, kind, msg, t.IP)
}

// MakeWithTrace is Make with an explicit liveIP, for call sites (like the
// interpreter) that haven't written t.IP back to the current frame yet.
func MakeWithTrace(t *machine.Thread, resolve ClassResolver, allocate func(*machine.Thread, object.Value, int) object.Ref, kind Kind, msg string, liveIP int) object.Ref {
	classRef := resolve(t, string(kind))
	if t.HasException() {
		return object.Null
	}

	msgBytes := object.NewByteArray(object.Null, len(msg))
	for i := 0; i < len(msg); i++ {
		msgBytes.Elements[i] = int8(msg[i])
	}
	msgRef := allocate(t, msgBytes, len(msg))
	release := machine.Register(t, &msgRef)
	defer release()

	strRef := allocate(t, object.NewString(object.Null, msgRef, 0, int32(len(msg))), 16)
	release2 := machine.Register(t, &strRef)
	defer release2()

	trace := MakeTrace(t, t.Machine.Heap, liveIP)
	traceArr := object.NewObjectArray(object.Null, object.Null, len(trace))
	for i, e := range trace {
		traceArr.Elements[i] = e.Method
	}
	traceRef := allocate(t, traceArr, 16+8*len(trace))
	release3 := machine.Register(t, &traceRef)
	defer release3()

	inst := object.NewInstance(classRef, 2)
	instRef := allocate(t, inst, 32)
	inst.Set(FieldMessage, strRef)
	inst.Set(FieldTraceMethods, traceRef)

	return instRef
}

// Messagef is a convenience for the formatted messages §8's scenarios name
// literally (e.g. "5 not in [0,3]").
func Messagef(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

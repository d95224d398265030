package object

// Frame is one call activation. IP is the resume point for *this* frame —
// it is written back here when a callee is entered or when the thread
// suspends, and is meaningless while this frame is the one actively
// executing (the live ip lives in the interpreter then). §3: "frame.ip in
// the currently executing frame is undefined ... on suspend/unwind it is
// written back."
type Frame struct {
	Header
	Method     Ref // the owning Method
	Next       Ref // caller frame, Null for the outermost frame
	IP         int
	StackBase  int // base index into the thread's operand stack
	Locals     []Ref
}

func NewFrame(class, method, next Ref, stackBase, maxLocals int) *Frame {
	return &Frame{
		Header:    Header{Class: class},
		Method:    method,
		Next:      next,
		StackBase: stackBase,
		Locals:    make([]Ref, maxLocals),
	}
}

func (f *Frame) Kind() Kind { return KindFrame }

func (f *Frame) VisitRefs(fn func(*Ref)) {
	f.visitHeader(fn)
	fn(&f.Method)
	fn(&f.Next)
	for i := range f.Locals {
		fn(&f.Locals[i])
	}
}

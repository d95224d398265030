// Package machine defines the two process-wide hub types — Thread and
// Machine — that every other package above heap/platform/object/bytecode
// wires against. Nothing in this package knows how to interpret bytecode,
// resolve a class, or run a collection; it only carries the state those
// operations read and mutate (§3 Thread, §3 Machine).
package machine

import (
	"github.com/google/uuid"

	"corevm/internal/object"
)

// CoordState is the thread coordinator's six-state FSM (§4.F). It lives
// here, not in internal/coordinator, because it is the type of
// Thread.State, a field of the Thread struct defined in this package.
type CoordState int

const (
	None CoordState = iota
	Active
	Idle
	Exclusive
	Zombie
	Exit
)

func (s CoordState) String() string {
	switch s {
	case None:
		return "None"
	case Active:
		return "Active"
	case Idle:
		return "Idle"
	case Exclusive:
		return "Exclusive"
	case Zombie:
		return "Zombie"
	case Exit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// Protector is a stack-linked (thread, slot) registration protecting a
// local reference across a call that may allocate (§4.D "Protector
// discipline"). Protectors form an intrusive singly-linked list per thread;
// Register pushes an entry and the function it returns pops it.
type Protector struct {
	Slot *object.Ref
	Next *Protector
}

// Register pushes a new protector for slot onto t's protector list and
// returns a function that pops it — use as
// `defer machine.Register(t, &ref)()`. Protectors must be released in
// strict LIFO order; the returned closure enforces nothing beyond removing
// the head, so misuse (releasing out of order) is a caller bug, same as
// mismatched scoped-monitor acquisition.
func Register(t *Thread, slot *object.Ref) func() {
	p := &Protector{Slot: slot, Next: t.Protectors}
	t.Protectors = p
	return func() {
		t.Protectors = p.Next
	}
}

// RegisterAll protects every element of refs as a root for as long as the
// returned release function has not been called — the multi-ref form of
// Register for call sites protecting a whole batch (method-call arguments,
// a constant pool under construction) across a span of allocations, rather
// than a single value. refs must not be appended to while protected; the
// protectors track each element's address directly.
func RegisterAll(t *Thread, refs []object.Ref) func() {
	releases := make([]func(), len(refs))
	for i := range refs {
		releases[i] = Register(t, &refs[i])
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

// Thread is one mutator's state (§3 Thread). Every field the interpreter,
// allocator, and root scanner touch lives here so that a Thread is the sole
// object those packages need to carry through their call chains.
type Thread struct {
	ID uuid.UUID

	Machine *Machine

	// Sibling/child thread list links (§3: "list links to siblings/children").
	Parent   *Thread
	Children []*Thread

	State CoordState

	// Frame is a Ref into the heap rather than a raw pointer: Frame is one
	// of the relocatable Kinds (§9's tagged-sum list), so the current-frame
	// link must survive a collection the same way any other reference does.
	Frame object.Ref
	Code  *object.Code // current executing code (method or <clinit>); mirrors Frame.Method's Code, not itself relocatable

	Stack []object.Ref // fixed-size operand stack
	SP    int          // first free slot

	IP int // instruction pointer of the live (non-suspended) frame

	Exception object.Ref // current in-flight exception, object.Null when none

	Nursery    []byte // fixed-size per-thread bump arena
	NurseryPos int    // bump cursor ("heapIndex" in §4.D/§4.E)

	Protectors *Protector

	// UncaughtHandler is the method dispatched to when unwind exhausts the
	// frame chain (§4.I, §6 "Uncaught-exception handler method").
	UncaughtHandler object.Ref
}

// StackSize and NurserySize are the configured fixed sizes for every thread
// this core creates; §3 calls these "per-thread operand stack and nursery
// both of fixed, configured size" without mandating a number, so
// ThreadConfig carries them (Machine.Config holds the one in use).
type ThreadConfig struct {
	StackSize   int
	NurserySize int
}

// NewThread allocates a Thread with fixed-size stack and nursery per cfg and
// registers it as a child of parent (nil for the root thread).
func NewThread(m *Machine, parent *Thread, cfg ThreadConfig) *Thread {
	t := &Thread{
		ID:      uuid.New(),
		Machine: m,
		Parent:  parent,
		State:   None,
		Stack:   make([]object.Ref, cfg.StackSize),
		Nursery: make([]byte, cfg.NurserySize),
	}
	if parent != nil {
		parent.Children = append(parent.Children, t)
	}
	return t
}

// Push and Pop operate the operand stack; callers are responsible for
// checking §8's stack-discipline invariant (frame.stackBase <= sp <=
// frame.stackBase + maxStack) before calling — the interpreter does this at
// every opcode boundary, not here, matching §4.I's call-site responsibility.
func (t *Thread) Push(r object.Ref) {
	t.Stack[t.SP] = r
	t.SP++
}

func (t *Thread) Pop() object.Ref {
	t.SP--
	r := t.Stack[t.SP]
	t.Stack[t.SP] = object.Null
	return r
}

func (t *Thread) Top() object.Ref {
	return t.Stack[t.SP-1]
}

// HasException reports whether t currently carries an in-flight exception.
func (t *Thread) HasException() bool { return t.Exception != object.Null }

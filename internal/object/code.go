package object

import "corevm/internal/bytecode"

// Code is a Method's Code attribute: the bytecode body, its constant pool,
// its stack/locals sizing, and its exception-handler table (§3 Method).
// It is owned by exactly one Method and is never independently relocated —
// class-file bytecode is immutable once parsed, so it isn't one of the
// Kinds the collector tracks.
type Code struct {
	Body      []byte
	ConstPool []Ref // resolved slots hold a Class/Method/Field Ref; unresolved hold a Reference or raw-name Ref
	MaxStack  int
	MaxLocals int
	Handlers  []bytecode.ExceptionHandler
}

// Package classfile is the one ClassFileLoader this core ships (§1/§6: the
// binary class-file format itself is out of scope). Instead of parsing
// bytes off disk, callers build a class with a fluent Builder — in the
// style of the teacher's bytecode.Chunk (WriteOp/WriteByte/AddConstant) —
// and Encode it to the gob-serialized "bytes" form a ClassFinder hands
// back to classloader.ResolveClass. Loader reverses that encoding into the
// heap-resident Class/Method/Field graph classloader expects.
package classfile

import (
	"corevm/internal/bytecode"
	"corevm/internal/object"
)

// ConstKind tags one constant-pool entry a MethodBuilder recorded.
type ConstKind int

const (
	ConstClassRef  ConstKind = iota // bare class name, no member
	ConstMemberRef                  // class name + member name + descriptor
	ConstInt
	ConstLong
	ConstString
)

// ConstantDef is the serializable form of one constant-pool slot. A
// ConstClassRef/ConstMemberRef entry becomes an unresolved *object.Reference
// on load — classloader.ResolveConstant resolves it in place on first use,
// same as it would for a real class file's constant pool (§3).
type ConstantDef struct {
	Kind        ConstKind
	ClassName   string
	MemberName  string
	Descriptor  string
	IntValue    int32
	LongValue   int64
	StringValue string
}

// FieldDef is one instance or static field declaration.
type FieldDef struct {
	Name       string
	Descriptor string
}

// MethodDef is the serializable form of one method: its Code attribute
// plus the member signature it's filed under.
type MethodDef struct {
	Name           string
	Descriptor     string
	ParamCount     int
	Flags          object.AccessFlags
	MaxStack       int
	MaxLocals      int
	Body           []byte
	Pool           []ConstantDef
	Handlers       []bytecode.ExceptionHandler
}

// ClassDef is the serializable form Encode produces and Loader.Load
// consumes — the "class file" this core actually reads.
type ClassDef struct {
	Name         string
	Super        string // "" for the root class
	Interfaces   []string
	Flags        object.AccessFlags
	Fields       []FieldDef
	StaticFields []FieldDef
	Methods      []MethodDef
	Init         *MethodDef // <clinit>, or nil
}

// MethodBuilder accumulates one method's Code attribute, mirroring the
// teacher's Chunk: Emit appends an opcode, the EmitU*/EmitS* family append
// operand bytes, and Const interns a constant-pool entry.
type MethodBuilder struct {
	def MethodDef
}

// NewMethod starts a method builder for name/descriptor with paramCount
// declared parameters and the given access flags.
func NewMethod(name, descriptor string, paramCount int, flags object.AccessFlags) *MethodBuilder {
	return &MethodBuilder{def: MethodDef{Name: name, Descriptor: descriptor, ParamCount: paramCount, Flags: flags}}
}

func (b *MethodBuilder) MaxStack(n int) *MethodBuilder  { b.def.MaxStack = n; return b }
func (b *MethodBuilder) MaxLocals(n int) *MethodBuilder { b.def.MaxLocals = n; return b }

func (b *MethodBuilder) Emit(op bytecode.OpCode) *MethodBuilder {
	b.def.Body = append(b.def.Body, byte(op))
	return b
}

func (b *MethodBuilder) EmitU8(v uint8) *MethodBuilder {
	b.def.Body = append(b.def.Body, v)
	return b
}

func (b *MethodBuilder) EmitU16(v uint16) *MethodBuilder {
	b.def.Body = append(b.def.Body, byte(v>>8), byte(v))
	return b
}

func (b *MethodBuilder) EmitS16(v int16) *MethodBuilder { return b.EmitU16(uint16(v)) }

func (b *MethodBuilder) EmitS32(v int32) *MethodBuilder {
	b.def.Body = append(b.def.Body, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return b
}

// Const interns c and returns its 0-based constant-pool index, for
// immediate use with EmitU16 (invoke*/getfield/new and friends index the
// pool this way; ldc reads a one-byte index, so pair it with EmitU8).
func (b *MethodBuilder) Const(c ConstantDef) uint16 {
	b.def.Pool = append(b.def.Pool, c)
	return uint16(len(b.def.Pool) - 1)
}

// Handler appends one exception-handler row (§4.I unwind scans these in
// order). catchType is a pool index from Const(ClassRef(...)); 0 means
// catch-all, so a class constant at index 0 (the first Const call) cannot
// serve as a catch type.
func (b *MethodBuilder) Handler(startPC, endPC, handlerPC int, catchType uint16) *MethodBuilder {
	b.def.Handlers = append(b.def.Handlers, bytecode.ExceptionHandler{
		StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType,
	})
	return b
}

// Build returns the accumulated MethodDef. Most callers never call this
// directly — ClassBuilder.Method/Init does it for them.
func (b *MethodBuilder) Build() MethodDef { return b.def }

// ClassRef interns a bare class-name constant, for checkcast/instanceof/new
// operands.
func ClassRef(name string) ConstantDef { return ConstantDef{Kind: ConstClassRef, ClassName: name} }

// MemberRef interns a field-or-method reference; ResolveConstant
// disambiguates the two by descriptor shape (§4.G).
func MemberRef(className, memberName, descriptor string) ConstantDef {
	return ConstantDef{Kind: ConstMemberRef, ClassName: className, MemberName: memberName, Descriptor: descriptor}
}

func IntConst(v int32) ConstantDef   { return ConstantDef{Kind: ConstInt, IntValue: v} }
func LongConst(v int64) ConstantDef  { return ConstantDef{Kind: ConstLong, LongValue: v} }
func StringConst(v string) ConstantDef { return ConstantDef{Kind: ConstString, StringValue: v} }

// ClassBuilder accumulates one class's declaration.
type ClassBuilder struct {
	def ClassDef
}

// NewClass starts a class named name extending super ("" for the root
// class with no superclass).
func NewClass(name, super string) *ClassBuilder {
	return &ClassBuilder{def: ClassDef{Name: name, Super: super}}
}

func (c *ClassBuilder) AccessFlags(f object.AccessFlags) *ClassBuilder { c.def.Flags = f; return c }

func (c *ClassBuilder) Implements(iface string) *ClassBuilder {
	c.def.Interfaces = append(c.def.Interfaces, iface)
	return c
}

func (c *ClassBuilder) Field(name, descriptor string) *ClassBuilder {
	c.def.Fields = append(c.def.Fields, FieldDef{Name: name, Descriptor: descriptor})
	return c
}

func (c *ClassBuilder) StaticField(name, descriptor string) *ClassBuilder {
	c.def.StaticFields = append(c.def.StaticFields, FieldDef{Name: name, Descriptor: descriptor})
	return c
}

func (c *ClassBuilder) Method(m *MethodBuilder) *ClassBuilder {
	d := m.Build()
	c.def.Methods = append(c.def.Methods, d)
	return c
}

// Init sets the class's <clinit>-equivalent, interposed ahead of the first
// new/getstatic/putstatic/invokestatic that touches this class (§4.H).
func (c *ClassBuilder) Init(m *MethodBuilder) *ClassBuilder {
	d := m.Build()
	c.def.Init = &d
	return c
}

// Build returns the accumulated ClassDef without serializing it; it can be
// handed to Loader.LoadDef directly, skipping the encode/decode round trip.
func (c *ClassBuilder) Build() *ClassDef { return &c.def }

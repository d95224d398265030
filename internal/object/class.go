package object

// AccessFlags mirror the subset of class-file access flags this core cares
// about. AccSuper marks a class eligible for invokespecial super-dispatch
// (§4.H); AccInterface distinguishes interfaces for instanceOf and
// invokeinterface resolution.
type AccessFlags uint16

const (
	AccSuper     AccessFlags = 1 << 0
	AccInterface AccessFlags = 1 << 1
	AccStatic    AccessFlags = 1 << 2
	AccAbstract  AccessFlags = 1 << 3
)

// InterfaceEntry pairs an interface Class with the method vector a class
// uses to satisfy it — §3: "an interface table (pairs of (interface-class,
// method-vector) for all directly and transitively implemented interfaces)".
type InterfaceEntry struct {
	Interface Ref
	Methods   []Ref // Method refs, indexed by the interface method's offset
}

// Class is itself a heap value: its own Class field is the (bootstrap)
// metaclass, or Null while bootstrapping the very first classes.
type Class struct {
	Header
	TypeID         int32 // unique per class; O(1) identity comparison
	Flags          AccessFlags
	Super          Ref // Null only for the root class
	MethodTable    []Ref
	InterfaceTable []InterfaceEntry
	FieldTable     []Ref
	StaticTable    []Ref
	FixedSize      int // field-slot count for plain instances
	Initializers   Ref // head of a Pair list of pending <clinit>-style initialisers, or Null
	Name           string
}

func NewClass(metaclass Ref, name string) *Class {
	return &Class{Header: Header{Class: metaclass}, Name: name}
}

func (c *Class) Kind() Kind { return KindClass }

func (c *Class) VisitRefs(fn func(*Ref)) {
	c.visitHeader(fn)
	fn(&c.Super)
	for i := range c.MethodTable {
		fn(&c.MethodTable[i])
	}
	for i := range c.InterfaceTable {
		fn(&c.InterfaceTable[i].Interface)
		for j := range c.InterfaceTable[i].Methods {
			fn(&c.InterfaceTable[i].Methods[j])
		}
	}
	for i := range c.FieldTable {
		fn(&c.FieldTable[i])
	}
	for i := range c.StaticTable {
		fn(&c.StaticTable[i])
	}
	fn(&c.Initializers)
}

// IsInterface reports whether this class is an interface (§4.H instanceOf).
func (c *Class) IsInterface() bool { return c.Flags&AccInterface != 0 }

// Method is a record of owning class, name/descriptor, vtable offset,
// access flags, and a Code attribute (§3 Method).
type Method struct {
	Header
	Owning         Ref
	Name           string
	Descriptor     string
	ParameterCount int
	VtableOffset   int
	Flags          AccessFlags
	Code           *Code
}

func NewMethod(class, owning Ref, name, descriptor string, paramCount, vtableOffset int, flags AccessFlags, code *Code) *Method {
	return &Method{
		Header:         Header{Class: class},
		Owning:         owning,
		Name:           name,
		Descriptor:     descriptor,
		ParameterCount: paramCount,
		VtableOffset:   vtableOffset,
		Flags:          flags,
		Code:           code,
	}
}

func (m *Method) Kind() Kind { return KindMethod }

func (m *Method) VisitRefs(fn func(*Ref)) {
	m.visitHeader(fn)
	fn(&m.Owning)
	if m.Code != nil {
		for i := range m.Code.ConstPool {
			fn(&m.Code.ConstPool[i])
		}
	}
}

func (m *Method) IsStatic() bool { return m.Flags&AccStatic != 0 }

// Field is owning class, name/descriptor, and the instance or static slot
// offset it occupies (§3 Class: "a field table, a static-slot vector").
type Field struct {
	Header
	Owning     Ref
	Name       string
	Descriptor string
	Offset     int
	Flags      AccessFlags
}

func NewField(class, owning Ref, name, descriptor string, offset int, flags AccessFlags) *Field {
	return &Field{Header: Header{Class: class}, Owning: owning, Name: name, Descriptor: descriptor, Offset: offset, Flags: flags}
}

func (f *Field) Kind() Kind { return KindField }

func (f *Field) VisitRefs(fn func(*Ref)) {
	f.visitHeader(fn)
	fn(&f.Owning)
}

func (f *Field) IsStatic() bool { return f.Flags&AccStatic != 0 }

// Package object defines the core's tagged heap-value model.
//
// Every heap value the core manages — plain instances, arrays, classes,
// methods, fields, frames, boxed numbers — is addressed by a Ref, an opaque
// handle into a Heap's backing table rather than a raw Go pointer. That
// indirection is what lets a collector relocate live values: it walks every
// root and rewrites the Ref it finds in place, and nothing else needs to
// change. Null is the zero Ref and is always invalid as a table index.
package object

// Ref is a handle to a heap-resident Value. The zero Ref is Null.
type Ref uint32

// Null is the distinguished "no object" reference.
const Null Ref = 0

// Kind tags the concrete payload a Value carries.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInstance
	KindObjectArray
	KindByteArray
	KindCharArray
	KindShortArray
	KindIntArray
	KindLongArray
	KindBooleanArray
	KindFloatArray
	KindDoubleArray
	KindClass
	KindMethod
	KindField
	KindReference
	KindFrame
	KindTriple
	KindPair
	KindString
	KindInt
	KindLong
	KindByte
	KindShort
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "Instance"
	case KindObjectArray:
		return "ObjectArray"
	case KindByteArray:
		return "ByteArray"
	case KindCharArray:
		return "CharArray"
	case KindShortArray:
		return "ShortArray"
	case KindIntArray:
		return "IntArray"
	case KindLongArray:
		return "LongArray"
	case KindBooleanArray:
		return "BooleanArray"
	case KindFloatArray:
		return "FloatArray"
	case KindDoubleArray:
		return "DoubleArray"
	case KindClass:
		return "Class"
	case KindMethod:
		return "Method"
	case KindField:
		return "Field"
	case KindReference:
		return "Reference"
	case KindFrame:
		return "Frame"
	case KindTriple:
		return "Triple"
	case KindPair:
		return "Pair"
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindLong:
		return "Long"
	case KindByte:
		return "Byte"
	case KindShort:
		return "Short"
	default:
		return "Invalid"
	}
}

// IsArray reports whether k is one of the array kinds.
func (k Kind) IsArray() bool {
	return k >= KindObjectArray && k <= KindDoubleArray
}

// Value is satisfied by every heap-resident payload kind. VisitRefs calls fn
// once for every Ref-typed field the value holds — including its own class
// word — passing the field's address so a collector can overwrite it in
// place during relocation.
type Value interface {
	Kind() Kind
	VisitRefs(fn func(*Ref))
}

// Header is embedded by every Value; it carries the class word every heap
// value begins with (§3: "Every heap value is a record whose first word is
// a pointer to its Class").
type Header struct {
	Class Ref
}

func (h *Header) visitHeader(fn func(*Ref)) {
	fn(&h.Class)
}

package object

// Instance is a plain heap record: a class word plus a fixed-size vector of
// field slots. Every field slot holds a Ref, because the core boxes all
// scalars — an int field is a Ref to an Int record, same as an object field
// is a Ref to its referent (§4.I: "Numeric values are boxed as small heap
// records"). Accessors are bounds-checked; a debug build (or any build —
// the check is cheap) panics rather than running off the end of Fields.
type Instance struct {
	Header
	Fields []Ref
}

func NewInstance(class Ref, fieldCount int) *Instance {
	return &Instance{Header: Header{Class: class}, Fields: make([]Ref, fieldCount)}
}

func (i *Instance) Kind() Kind { return KindInstance }

func (i *Instance) VisitRefs(fn func(*Ref)) {
	i.visitHeader(fn)
	for idx := range i.Fields {
		fn(&i.Fields[idx])
	}
}

func (i *Instance) Get(offset int) Ref {
	if offset < 0 || offset >= len(i.Fields) {
		panic("object: instance field offset out of range")
	}
	return i.Fields[offset]
}

func (i *Instance) Set(offset int, v Ref) {
	if offset < 0 || offset >= len(i.Fields) {
		panic("object: instance field offset out of range")
	}
	i.Fields[offset] = v
}

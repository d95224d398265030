package object

// ObjectArray holds Ref elements (§4.I arraylength reads a distinct slot for
// this variant; every other array kind keeps its length as len(Elements)).
type ObjectArray struct {
	Header
	ElementClass Ref // the array's declared element type, for checkcast/instanceof on stores
	Elements     []Ref
}

func NewObjectArray(class, elementClass Ref, length int) *ObjectArray {
	return &ObjectArray{Header: Header{Class: class}, ElementClass: elementClass, Elements: make([]Ref, length)}
}

func (a *ObjectArray) Kind() Kind { return KindObjectArray }

func (a *ObjectArray) VisitRefs(fn func(*Ref)) {
	a.visitHeader(fn)
	fn(&a.ElementClass)
	for i := range a.Elements {
		fn(&a.Elements[i])
	}
}

func (a *ObjectArray) Length() int { return len(a.Elements) }

// primitive array kinds carry no nested Refs besides the class word.

type ByteArray struct {
	Header
	Elements []int8
}

func NewByteArray(class Ref, length int) *ByteArray {
	return &ByteArray{Header: Header{Class: class}, Elements: make([]int8, length)}
}
func (a *ByteArray) Kind() Kind             { return KindByteArray }
func (a *ByteArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *ByteArray) Length() int            { return len(a.Elements) }

type CharArray struct {
	Header
	Elements []uint16
}

func NewCharArray(class Ref, length int) *CharArray {
	return &CharArray{Header: Header{Class: class}, Elements: make([]uint16, length)}
}
func (a *CharArray) Kind() Kind             { return KindCharArray }
func (a *CharArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *CharArray) Length() int            { return len(a.Elements) }

type ShortArray struct {
	Header
	Elements []int16
}

func NewShortArray(class Ref, length int) *ShortArray {
	return &ShortArray{Header: Header{Class: class}, Elements: make([]int16, length)}
}
func (a *ShortArray) Kind() Kind             { return KindShortArray }
func (a *ShortArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *ShortArray) Length() int            { return len(a.Elements) }

type IntArray struct {
	Header
	Elements []int32
}

func NewIntArray(class Ref, length int) *IntArray {
	return &IntArray{Header: Header{Class: class}, Elements: make([]int32, length)}
}
func (a *IntArray) Kind() Kind             { return KindIntArray }
func (a *IntArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *IntArray) Length() int            { return len(a.Elements) }

type LongArray struct {
	Header
	Elements []int64
}

func NewLongArray(class Ref, length int) *LongArray {
	return &LongArray{Header: Header{Class: class}, Elements: make([]int64, length)}
}
func (a *LongArray) Kind() Kind             { return KindLongArray }
func (a *LongArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *LongArray) Length() int            { return len(a.Elements) }

type BooleanArray struct {
	Header
	Elements []bool
}

func NewBooleanArray(class Ref, length int) *BooleanArray {
	return &BooleanArray{Header: Header{Class: class}, Elements: make([]bool, length)}
}
func (a *BooleanArray) Kind() Kind             { return KindBooleanArray }
func (a *BooleanArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *BooleanArray) Length() int            { return len(a.Elements) }

type FloatArray struct {
	Header
	Elements []float32
}

func NewFloatArray(class Ref, length int) *FloatArray {
	return &FloatArray{Header: Header{Class: class}, Elements: make([]float32, length)}
}
func (a *FloatArray) Kind() Kind             { return KindFloatArray }
func (a *FloatArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *FloatArray) Length() int            { return len(a.Elements) }

type DoubleArray struct {
	Header
	Elements []float64
}

func NewDoubleArray(class Ref, length int) *DoubleArray {
	return &DoubleArray{Header: Header{Class: class}, Elements: make([]float64, length)}
}
func (a *DoubleArray) Kind() Kind             { return KindDoubleArray }
func (a *DoubleArray) VisitRefs(fn func(*Ref)) { a.visitHeader(fn) }
func (a *DoubleArray) Length() int            { return len(a.Elements) }

package object

// Boxed scalar records. §4.I: "Numeric values are boxed as small heap
// records (Int, Long, Byte, Short)." This is a known performance wart the
// base spec calls out deliberately — a reimplementation could tag small
// integers instead, but every opcode here behaves as if every int/long/
// byte/short on the operand stack is one of these.

type Int struct {
	Header
	Value int32
}

func NewInt(class Ref, v int32) *Int          { return &Int{Header: Header{Class: class}, Value: v} }
func (i *Int) Kind() Kind                     { return KindInt }
func (i *Int) VisitRefs(fn func(*Ref))        { i.visitHeader(fn) }

type Long struct {
	Header
	Value int64
}

func NewLong(class Ref, v int64) *Long        { return &Long{Header: Header{Class: class}, Value: v} }
func (l *Long) Kind() Kind                    { return KindLong }
func (l *Long) VisitRefs(fn func(*Ref))       { l.visitHeader(fn) }

type Byte struct {
	Header
	Value int8
}

func NewByte(class Ref, v int8) *Byte         { return &Byte{Header: Header{Class: class}, Value: v} }
func (b *Byte) Kind() Kind                    { return KindByte }
func (b *Byte) VisitRefs(fn func(*Ref))       { b.visitHeader(fn) }

type Short struct {
	Header
	Value int16
}

func NewShort(class Ref, v int16) *Short      { return &Short{Header: Header{Class: class}, Value: v} }
func (s *Short) Kind() Kind                   { return KindShort }
func (s *Short) VisitRefs(fn func(*Ref))      { s.visitHeader(fn) }

// String wraps a ByteArray reference with the UTF-8 offset/length window
// and a cached hash, mirroring how the original's makeString(t, bytes,
// offset, length, hash) composes a string atop a raw byte array instead of
// owning its bytes directly.
type String struct {
	Header
	Bytes  Ref // a ByteArray Ref
	Offset int32
	Length int32
	Hash   int32
}

func NewString(class, bytes Ref, offset, length int32) *String {
	return &String{Header: Header{Class: class}, Bytes: bytes, Offset: offset, Length: length}
}
func (s *String) Kind() Kind { return KindString }
func (s *String) VisitRefs(fn func(*Ref)) {
	s.visitHeader(fn)
	fn(&s.Bytes)
}

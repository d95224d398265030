package object

// Triple is the class map's chaining node: (key, value, next). §3's Class
// map is "a hash map from class-name bytes to Class ... with chaining via
// triples (key, value, next)".
type Triple struct {
	Header
	First, Second, Third Ref
}

func NewTriple(class, first, second, third Ref) *Triple {
	return &Triple{Header: Header{Class: class}, First: first, Second: second, Third: third}
}
func (t *Triple) Kind() Kind { return KindTriple }
func (t *Triple) VisitRefs(fn func(*Ref)) {
	t.visitHeader(fn)
	fn(&t.First)
	fn(&t.Second)
	fn(&t.Third)
}

// Pair is the pending-class-initialiser list node: (initialiser method,
// remaining list). §3: "pending class initialisers (see below)"; §4.H
// describes popping the head and rewinding on dispatch.
type Pair struct {
	Header
	First, Second Ref
}

func NewPair(class, first, second Ref) *Pair {
	return &Pair{Header: Header{Class: class}, First: first, Second: second}
}
func (p *Pair) Kind() Kind { return KindPair }
func (p *Pair) VisitRefs(fn func(*Ref)) {
	p.visitHeader(fn)
	fn(&p.First)
	fn(&p.Second)
}

// Reference is an unresolved constant-pool entry: (class-name, member-name,
// type-descriptor). §3: "On first use they are atomically replaced in-place
// with the resolved Class, Field, or Method; readers must tolerate either
// shape at the slot." The names/descriptor are host-native strings rather
// than heap ByteArrays — class-file metadata text doesn't need relocation
// once parsed, and the binary parser that would produce it is out of scope
// (§1/§6) here regardless.
type Reference struct {
	Header
	ClassName  string
	MemberName string
	Descriptor string
}

func NewReference(class Ref, className, memberName, descriptor string) *Reference {
	return &Reference{Header: Header{Class: class}, ClassName: className, MemberName: memberName, Descriptor: descriptor}
}
func (r *Reference) Kind() Kind             { return KindReference }
func (r *Reference) VisitRefs(fn func(*Ref)) { r.visitHeader(fn) }

package classfile

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"corevm/internal/alloc"
	"corevm/internal/classloader"
	"corevm/internal/machine"
	"corevm/internal/object"
)

// Loader implements classloader.ClassFileLoader by decoding the gob form
// Encode produces and materializing the Class/Method/Field graph it
// describes directly on the heap, resolving the superclass and any
// interfaces recursively through the same classloader.ResolveClass path a
// real binary loader would use.
type Loader struct{}

func NewLoader() *Loader { return &Loader{} }

// nextTypeID hands out the process-wide unique type ids §4.H's instanceOf
// relies on for O(1) identity comparison. Starts at 1 so the zero value of
// object.Class.TypeID never collides with a real class.
var typeIDCounter int32

func nextTypeID() int32 { return atomic.AddInt32(&typeIDCounter, 1) }

func (l *Loader) Load(t *machine.Thread, raw []byte) (object.Ref, error) {
	def, err := Decode(raw)
	if err != nil {
		return object.Null, err
	}
	return l.build(t, def)
}

// LoadDef builds directly from an already-constructed ClassDef, skipping
// the encode/decode round trip that Load performs, for a ClassBuilder's
// Build() result handed straight to a Loader in the same process.
func (l *Loader) LoadDef(t *machine.Thread, def *ClassDef) (object.Ref, error) {
	return l.build(t, def)
}

// build materializes def onto the heap. classRef is not reachable from any
// root until classloader.ResolveClass inserts it into the class map after
// Load returns, so build registers classRef itself as a protector (§4.D
// protector discipline) for its whole body: every helper below takes a
// *object.Ref rather than a plain object.Ref so that if a minor collection
// relocates the still-unlinked class mid-build, every reader of classRef
// sees the rewritten value rather than a stale index into the compacted
// table. The class's FieldTable and MethodTable are grown in place on the
// already-allocated class, rather than accumulated in a local slice and
// assigned once at the end, so that each new field/method becomes reachable
// from the protected classRef the moment it's created instead of sitting
// unrooted until the whole loop finishes; InterfaceTable is assigned once.
func (l *Loader) build(t *machine.Thread, def *ClassDef) (object.Ref, error) {
	m := t.Machine

	var super *object.Class
	var superRef object.Ref
	if def.Super != "" {
		superRef = classloader.ResolveClass(t, l, def.Super)
		if t.HasException() {
			return object.Null, errors.Errorf("classfile: resolve superclass %q", def.Super)
		}
		super, _ = m.Heap.Resolve(superRef).(*object.Class)
	}

	class := object.NewClass(object.Null, def.Name)
	class.TypeID = nextTypeID()
	class.Flags = def.Flags
	class.Super = superRef
	classRef := alloc.Allocate(t, class, 64)

	release := machine.Register(t, &classRef)
	defer release()

	l.buildFields(t, class, &classRef, super, def)
	if err := l.buildMethods(t, class, &classRef, super, def); err != nil {
		return object.Null, err
	}
	if err := l.buildInterfaces(t, class, super, def); err != nil {
		return object.Null, err
	}
	if def.Init != nil {
		if err := l.buildInitializer(t, class, &classRef, def.Init); err != nil {
			return object.Null, err
		}
	}

	return classRef, nil
}

func (l *Loader) buildFields(t *machine.Thread, class *object.Class, classRef *object.Ref, super *object.Class, def *ClassDef) {
	fixedSize := 0
	if super != nil {
		fixedSize = super.FixedSize
		class.FieldTable = append(class.FieldTable, super.FieldTable...)
		class.StaticTable = append(class.StaticTable, super.StaticTable...)
	}
	for _, fd := range def.Fields {
		f := object.NewField(object.Null, *classRef, fd.Name, fd.Descriptor, fixedSize, 0)
		class.FieldTable = append(class.FieldTable, alloc.Allocate(t, f, 32))
		fixedSize++
	}
	staticBase := len(class.StaticTable)
	for i, fd := range def.StaticFields {
		f := object.NewField(object.Null, *classRef, fd.Name, fd.Descriptor, staticBase+i, object.AccStatic)
		class.FieldTable = append(class.FieldTable, alloc.Allocate(t, f, 32))
		class.StaticTable = append(class.StaticTable, object.Null)
	}
	class.FixedSize = fixedSize
}

func (l *Loader) buildMethods(t *machine.Thread, class *object.Class, classRef *object.Ref, super *object.Class, def *ClassDef) error {
	if super != nil {
		class.MethodTable = append(class.MethodTable, super.MethodTable...)
	}
	for _, md := range def.Methods {
		code, release, err := l.buildCode(t, md)
		if err != nil {
			return err
		}
		offset := -1
		for i, mref := range class.MethodTable {
			existing, _ := t.Machine.Heap.Resolve(mref).(*object.Method)
			if existing != nil && existing.Name == md.Name && existing.Descriptor == md.Descriptor {
				offset = i
				break
			}
		}
		if offset < 0 {
			offset = len(class.MethodTable)
			class.MethodTable = append(class.MethodTable, object.Null)
		}
		meth := object.NewMethod(object.Null, *classRef, md.Name, md.Descriptor, md.ParamCount, offset, md.Flags, code)
		class.MethodTable[offset] = alloc.Allocate(t, meth, 48)
		release()
	}
	return nil
}

func (l *Loader) buildInterfaces(t *machine.Thread, class *object.Class, super *object.Class, def *ClassDef) error {
	var table []object.InterfaceEntry
	if super != nil {
		table = append(table, super.InterfaceTable...)
	}
	for _, name := range def.Interfaces {
		ifaceRef := classloader.ResolveClass(t, l, name)
		if t.HasException() {
			return errors.Errorf("classfile: resolve interface %q", name)
		}
		iface, _ := t.Machine.Heap.Resolve(ifaceRef).(*object.Class)
		methods := make([]object.Ref, len(iface.MethodTable))
		for i, ifmRef := range iface.MethodTable {
			ifm, _ := t.Machine.Heap.Resolve(ifmRef).(*object.Method)
			if ifm == nil {
				continue
			}
			for _, mref := range class.MethodTable {
				m, _ := t.Machine.Heap.Resolve(mref).(*object.Method)
				if m != nil && m.Name == ifm.Name && m.Descriptor == ifm.Descriptor {
					methods[i] = mref
					break
				}
			}
		}
		table = append(table, object.InterfaceEntry{Interface: ifaceRef, Methods: methods})
	}
	class.InterfaceTable = table
	return nil
}

// buildInitializer allocates the <clinit> method and wraps it in the
// single-element Pair list dispatch.Interpose drains from. methRef is
// unrooted the instant it's allocated (nothing but this local variable
// names it yet) and stays that way until the Pair holding it is itself
// attached to class.Initializers, so it is protected across the Pair's own
// allocation — the same two-allocations-with-one-unrooted-in-the-middle
// shape as the Pair/String construction in internal/except.Make.
func (l *Loader) buildInitializer(t *machine.Thread, class *object.Class, classRef *object.Ref, def *MethodDef) error {
	code, release, err := l.buildCode(t, *def)
	if err != nil {
		return err
	}
	meth := object.NewMethod(object.Null, *classRef, def.Name, def.Descriptor, 0, -1, def.Flags|object.AccStatic, code)
	methRef := alloc.Allocate(t, meth, 48)
	release()

	methRelease := machine.Register(t, &methRef)
	pairRef := alloc.Allocate(t, object.NewPair(object.Null, methRef, object.Null), 24)
	methRelease()

	class.Initializers = pairRef
	return nil
}

// buildCode resolves md's constant pool and returns the Code attribute plus
// a release function the caller must invoke once the Method owning this
// Code (and so its pool) has itself been allocated and attached somewhere
// rooted. pool's slots are protected from the moment the slice is created
// — before any constant has actually been resolved into it — so that each
// constant lands already covered by a root rather than sitting unrooted
// until the whole pool is built.
func (l *Loader) buildCode(t *machine.Thread, md MethodDef) (*object.Code, func(), error) {
	pool := make([]object.Ref, len(md.Pool))
	release := machine.RegisterAll(t, pool)
	for i, c := range md.Pool {
		pool[i] = l.buildConstant(t, c)
	}
	return &object.Code{
		Body:      md.Body,
		ConstPool: pool,
		MaxStack:  md.MaxStack,
		MaxLocals: md.MaxLocals,
		Handlers:  md.Handlers,
	}, release, nil
}

func (l *Loader) buildConstant(t *machine.Thread, c ConstantDef) object.Ref {
	switch c.Kind {
	case ConstClassRef:
		return alloc.Allocate(t, object.NewReference(object.Null, c.ClassName, "", ""), 48)
	case ConstMemberRef:
		return alloc.Allocate(t, object.NewReference(object.Null, c.ClassName, c.MemberName, c.Descriptor), 48)
	case ConstInt:
		return alloc.Allocate(t, object.NewInt(object.Null, c.IntValue), 8)
	case ConstLong:
		return alloc.Allocate(t, object.NewLong(object.Null, c.LongValue), 16)
	case ConstString:
		bs := []byte(c.StringValue)
		ba := object.NewByteArray(object.Null, len(bs))
		for i, b := range bs {
			ba.Elements[i] = int8(b)
		}
		baRef := alloc.Allocate(t, ba, 16+len(bs))
		release := machine.Register(t, &baRef)
		strRef := alloc.Allocate(t, object.NewString(object.Null, baRef, 0, int32(len(bs))), 16)
		release()
		return strRef
	default:
		return object.Null
	}
}

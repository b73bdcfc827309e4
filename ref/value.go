package ref

import "fmt"

type kind uint8

const (
	kindNull kind = iota
	kindI31
	kindObject
	kindExtern
)

// Object is a managed heap object. This core carries only its identity
// and its exact dynamic heap type; field contents are out of scope.
type Object struct {
	tag HeapType
	// Set when the object was produced by Internalize; host then holds
	// the wrapped external identity, which may itself be nil.
	wrapped bool
	host    any
}

// Value is a runtime reference value: null, a boxed 31-bit integer, a
// managed object, or an external handle. Values are immutable; every
// operation returns a new Value or passes its operand through.
//
// The managed (any) and external (extern) universes share this one
// tagged representation but are joined only by Internalize and
// Externalize, never by subtyping.
type Value struct {
	kind kind
	heap HeapType // nominal heap type of a null
	bits uint32   // i31 payload, low 31 bits
	obj  *Object
	host any // extern identity
}

// Null returns the null value of the given heap type. A null is
// hierarchy-polymorphic: for test and cast purposes it matches every
// nullable type of its hierarchy, not just ht.
func Null(ht HeapType) Value {
	return Value{kind: kindNull, heap: ht}
}

// NewI31 boxes the low 31 bits of x. The top bit of x is discarded and
// not retained anywhere.
func NewI31(x int32) Value {
	return Value{kind: kindI31, bits: uint32(x) & 0x7FFFFFFF}
}

// NewObject allocates a managed object with the given exact dynamic
// heap type, which must be a non-bottom type of the any hierarchy.
func NewObject(tag HeapType) Value {
	if tag.Hierarchy() != AnyHierarchy || tag.IsBottom() {
		panic(fmt.Sprintf("cannot allocate an object of heap type %s", tag))
	}
	return Value{kind: kindObject, obj: &Object{tag: tag}}
}

// NewExtern returns an external reference wrapping a host identity.
// The identity is opaque to this core; values compare by it.
func NewExtern(host any) Value {
	return Value{kind: kindExtern, host: host}
}

func (v Value) IsNull() bool {
	return v.kind == kindNull
}

// Heap returns the value's dynamic heap type. For a null this is its
// nominal heap type, which only pins down the hierarchy.
func (v Value) Heap() HeapType {
	switch v.kind {
	case kindNull:
		return v.heap
	case kindI31:
		return I31
	case kindObject:
		return v.obj.tag
	case kindExtern:
		return Extern
	}
	panic(fmt.Sprintf("corrupt value kind %d", v.kind))
}

func (v Value) Hierarchy() Hierarchy {
	return v.Heap().Hierarchy()
}

// Matches reports whether v belongs to rt: a null matches iff rt is
// nullable and in the null's hierarchy; anything else matches iff its
// dynamic heap type is a subtype of rt's. This one predicate backs both
// ref.test and ref.cast, and it never fails.
func (v Value) Matches(rt RefType) bool {
	if v.IsNull() {
		return rt.Nullable && v.Hierarchy() == rt.Heap.Hierarchy()
	}
	return Subtype(v.Heap(), rt.Heap)
}

// I31S returns the boxed payload sign-extended from bit 30. The value
// must be a non-null i31; callers check for null first.
func (v Value) I31S() int32 {
	v.mustBe(kindI31, "i31")
	if v.bits&0x40000000 != 0 {
		return int32(v.bits | 0x80000000)
	}
	return int32(v.bits)
}

// I31U returns the boxed payload zero-extended, always in
// [0, 0x7FFFFFFF]. The value must be a non-null i31.
func (v Value) I31U() int32 {
	v.mustBe(kindI31, "i31")
	return int32(v.bits)
}

// Extern returns the host identity of an external reference.
func (v Value) Extern() any {
	v.mustBe(kindExtern, "extern")
	return v.host
}

// Internalize converts a value of the extern hierarchy into the any
// hierarchy, wrapping the host identity in a managed object. Null
// converts to the null of the any hierarchy's bottom.
func Internalize(v Value) Value {
	switch v.kind {
	case kindNull:
		return Null(None)
	case kindExtern:
		return Value{kind: kindObject, obj: &Object{tag: Any, wrapped: true, host: v.host}}
	}
	panic(fmt.Sprintf("cannot internalize %s value", v.Heap()))
}

// Externalize undoes Internalize, restoring the original external
// reference with the same identity. Null converts to the null of the
// extern hierarchy's bottom. Applying it to a value that did not come
// from Internalize is a bug in the caller, not a runtime trap.
func Externalize(v Value) Value {
	if v.kind == kindNull {
		return Null(NoExtern)
	}
	if v.kind == kindObject && v.obj.wrapped {
		return Value{kind: kindExtern, host: v.obj.host}
	}
	panic(fmt.Sprintf("cannot externalize %s value: not produced by Internalize", v.Heap()))
}

func (v Value) String() string {
	switch v.kind {
	case kindNull:
		return fmt.Sprintf("(ref.null %s)", v.heap)
	case kindI31:
		return fmt.Sprintf("(ref.i31 %d)", v.I31U())
	case kindObject:
		return fmt.Sprintf("(%s %p)", v.obj.tag, v.obj)
	case kindExtern:
		return fmt.Sprintf("(extern %v)", v.host)
	}
	return fmt.Sprintf("value(%d)", v.kind)
}

func (v Value) mustBe(k kind, what string) {
	if v.kind != k {
		panic(fmt.Sprintf("value was not a non-null %s", what))
	}
}

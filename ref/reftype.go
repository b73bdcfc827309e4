package ref

import "fmt"

// RefType is a full reference type: a heap type plus nullability. A
// value typed with Nullable == false is never null.
type RefType struct {
	Nullable bool
	Heap     HeapType
}

// Shorthands for the common nullable reference types.
var (
	AnyRef        = RefType{Nullable: true, Heap: Any}
	EqRef         = RefType{Nullable: true, Heap: Eq}
	I31Ref        = RefType{Nullable: true, Heap: I31}
	StructRef     = RefType{Nullable: true, Heap: Struct}
	ArrayRef      = RefType{Nullable: true, Heap: Array}
	NullRef       = RefType{Nullable: true, Heap: None}
	FuncRef       = RefType{Nullable: true, Heap: Func}
	NullFuncRef   = RefType{Nullable: true, Heap: NoFunc}
	ExternRef     = RefType{Nullable: true, Heap: Extern}
	NullExternRef = RefType{Nullable: true, Heap: NoExtern}
)

// Ref returns the non-nullable reference type for ht.
func Ref(ht HeapType) RefType {
	return RefType{Heap: ht}
}

// NullableRef returns the nullable reference type for ht.
func NullableRef(ht HeapType) RefType {
	return RefType{Nullable: true, Heap: ht}
}

// SubtypeOf reports whether rt is a subtype of sup: the heap types must
// be subtype-related within one hierarchy, and a nullable type is never
// a subtype of a non-nullable one.
func (rt RefType) SubtypeOf(sup RefType) bool {
	if rt.Nullable && !sup.Nullable {
		return false
	}
	return Subtype(rt.Heap, sup.Heap)
}

func (rt RefType) String() string {
	if rt.Nullable {
		switch rt.Heap {
		case Any:
			return "anyref"
		case Eq:
			return "eqref"
		case I31:
			return "i31ref"
		case Struct:
			return "structref"
		case Array:
			return "arrayref"
		case None:
			return "nullref"
		case Func:
			return "funcref"
		case NoFunc:
			return "nullfuncref"
		case Extern:
			return "externref"
		case NoExtern:
			return "nullexternref"
		}
		return fmt.Sprintf("(ref null %s)", rt.Heap)
	}
	return fmt.Sprintf("(ref %s)", rt.Heap)
}

package ref

import "fmt"

// HeapType identifies the kind of heap object a reference points to.
// Only the abstract heap types are modeled; concrete (indexed) types
// would be positive values and are not supported.
type HeapType int8

const (
	// The hex bytes in here refer to the type's encoding in SLEB128.

	NoFunc   HeapType = -13 // 0x73
	NoExtern HeapType = -14 // 0x72
	None     HeapType = -15 // 0x71
	Func     HeapType = -16 // 0x70
	Extern   HeapType = -17 // 0x6F
	Any      HeapType = -18 // 0x6E
	Eq       HeapType = -19 // 0x6D
	I31      HeapType = -20 // 0x6C
	Struct   HeapType = -21 // 0x6B
	Array    HeapType = -22 // 0x6A

	ht__last  HeapType = NoFunc
	ht__first HeapType = Array
)

// Hierarchy is one of the three disjoint type hierarchies that abstract
// heap types belong to. Types in different hierarchies are never
// subtype-related; crossing between the any and extern hierarchies
// takes an explicit conversion.
type Hierarchy uint8

const (
	AnyHierarchy Hierarchy = iota
	FuncHierarchy
	ExternHierarchy
)

func (h Hierarchy) String() string {
	switch h {
	case AnyHierarchy:
		return "any"
	case FuncHierarchy:
		return "func"
	case ExternHierarchy:
		return "extern"
	}
	return fmt.Sprintf("hierarchy(%d)", uint8(h))
}

// Bottom returns the uninhabited bottom type of the hierarchy.
func (h Hierarchy) Bottom() HeapType {
	switch h {
	case AnyHierarchy:
		return None
	case FuncHierarchy:
		return NoFunc
	case ExternHierarchy:
		return NoExtern
	}
	panic(fmt.Sprintf("unknown hierarchy %d", uint8(h)))
}

func (ht HeapType) Known() bool {
	return ht__first <= ht && ht <= ht__last
}

func (ht HeapType) Hierarchy() Hierarchy {
	switch ht {
	case Any, Eq, I31, Struct, Array, None:
		return AnyHierarchy
	case Func, NoFunc:
		return FuncHierarchy
	case Extern, NoExtern:
		return ExternHierarchy
	}
	panic(fmt.Sprintf("unknown heap type %d", int8(ht)))
}

func (ht HeapType) IsBottom() bool {
	return ht == None || ht == NoFunc || ht == NoExtern
}

func (ht HeapType) String() string {
	switch ht {
	case Any:
		return "any"
	case Eq:
		return "eq"
	case I31:
		return "i31"
	case Struct:
		return "struct"
	case Array:
		return "array"
	case None:
		return "none"
	case Func:
		return "func"
	case NoFunc:
		return "nofunc"
	case Extern:
		return "extern"
	case NoExtern:
		return "noextern"
	}
	return fmt.Sprintf("heaptype(%d)", int8(ht))
}

// Subtype reports whether sub is a subtype of sup. The relation is the
// reflexive transitive closure of
//
//	none <: i31 <: eq <: any
//	none <: struct <: eq
//	none <: array <: eq
//	noextern <: extern
//	nofunc <: func
//
// and is always false across hierarchies.
func Subtype(sub, sup HeapType) bool {
	if sub.Hierarchy() != sup.Hierarchy() {
		return false
	}
	if sub == sup || sub.IsBottom() {
		return true
	}
	switch sup {
	case Any, Func, Extern:
		return true // top of its hierarchy
	case Eq:
		return sub == I31 || sub == Struct || sub == Array
	}
	return false
}

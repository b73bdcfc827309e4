// Package exec gives runtime semantics to the reference-type
// instruction set: i31 boxing, dynamic type tests and casts,
// branch-on-cast, conversion between the any and extern hierarchies,
// and table access. It consumes instructions one at a time with
// already-decoded immediates; decoding and validation live with the
// caller.
package exec

import "github.com/wasmutil/refrun/ref"

// Executor evaluates reference-type instructions against pre-resolved
// immediates. It holds the one piece of instance state the instruction
// set touches, the table. Every method either returns a result or a
// trap; nothing suspends or carries state between calls.
type Executor struct {
	table *Table
}

func New(table *Table) *Executor {
	return &Executor{table: table}
}

func (x *Executor) Table() *Table {
	return x.table
}

// Branch is the outcome of a branch-on-cast instruction: either a taken
// branch to Label or a fallthrough. Value is the operand as the
// successor path receives it; the caller's dispatch loop performs the
// actual jump.
type Branch struct {
	Taken bool
	Label uint32
	Value ref.Value
}

// RefNull evaluates ref.null ht.
func (x *Executor) RefNull(ht ref.HeapType) ref.Value {
	return ref.Null(ht)
}

// RefIsNull evaluates ref.is_null. It never traps.
func (x *Executor) RefIsNull(v ref.Value) int32 {
	return b2i(v.IsNull())
}

// RefI31 evaluates ref.i31, boxing the low 31 bits of n.
func (x *Executor) RefI31(n int32) ref.Value {
	return ref.NewI31(n)
}

// I31GetS evaluates i31.get_s, sign-extending the payload from bit 30.
func (x *Executor) I31GetS(v ref.Value) (int32, error) {
	if v.IsNull() {
		return 0, NullReferenceTrap
	}
	return v.I31S(), nil
}

// I31GetU evaluates i31.get_u, zero-extending the payload.
func (x *Executor) I31GetU(v ref.Value) (int32, error) {
	if v.IsNull() {
		return 0, NullReferenceTrap
	}
	return v.I31U(), nil
}

// RefTest evaluates ref.test rt. It is the total counterpart to
// RefCast and never traps.
func (x *Executor) RefTest(rt ref.RefType, v ref.Value) int32 {
	return b2i(v.Matches(rt))
}

// RefCast evaluates ref.cast rt, passing the operand through re-typed
// on success and trapping on mismatch.
func (x *Executor) RefCast(rt ref.RefType, v ref.Value) (ref.Value, error) {
	if !v.Matches(rt) {
		return ref.Value{}, CastFailureTrap
	}
	return v, nil
}

// BrOnCast evaluates br_on_cast: branch to label with the operand
// re-typed as to when the cast succeeds, fall through typed as from
// otherwise. Never traps.
func (x *Executor) BrOnCast(label uint32, from, to ref.RefType, v ref.Value) Branch {
	return Branch{
		Taken: v.Matches(to),
		Label: label,
		Value: v,
	}
}

// BrOnCastFail evaluates br_on_cast_fail: branch to label typed as from
// when the cast fails, fall through re-typed as to otherwise.
func (x *Executor) BrOnCastFail(label uint32, from, to ref.RefType, v ref.Value) Branch {
	return Branch{
		Taken: !v.Matches(to),
		Label: label,
		Value: v,
	}
}

// AnyConvertExtern evaluates any.convert_extern.
func (x *Executor) AnyConvertExtern(v ref.Value) ref.Value {
	return ref.Internalize(v)
}

// ExternConvertAny evaluates extern.convert_any.
func (x *Executor) ExternConvertAny(v ref.Value) ref.Value {
	return ref.Externalize(v)
}

// TableGet evaluates table.get on the instance's table.
func (x *Executor) TableGet(i int32) (ref.Value, error) {
	return x.table.Get(i)
}

// TableSet evaluates table.set on the instance's table.
func (x *Executor) TableSet(i int32, v ref.Value) error {
	return x.table.Set(i, v)
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

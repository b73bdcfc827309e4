package exec_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmutil/refrun/exec"
	"github.com/wasmutil/refrun/ref"
)

func newExecutor(tableLen int) *exec.Executor {
	return exec.New(exec.NewTable(tableLen, ref.AnyRef))
}

func TestI31Ops(t *testing.T) {
	x := newExecutor(0)

	t.Run("box and unbox", func(t *testing.T) {
		v := x.RefI31(42)
		u, err := x.I31GetU(v)
		require.NoError(t, err)
		require.Equal(t, int32(42), u)
		s, err := x.I31GetS(v)
		require.NoError(t, err)
		require.Equal(t, int32(42), s)
	})

	t.Run("sign extension from bit 30", func(t *testing.T) {
		v := x.RefI31(-1)
		u, err := x.I31GetU(v)
		require.NoError(t, err)
		require.Equal(t, int32(0x7FFFFFFF), u)
		s, err := x.I31GetS(v)
		require.NoError(t, err)
		require.Equal(t, int32(-1), s)
	})

	t.Run("null operand traps", func(t *testing.T) {
		_, err := x.I31GetS(x.RefNull(ref.I31))
		require.ErrorIs(t, err, exec.NullReferenceTrap)
		_, err = x.I31GetU(x.RefNull(ref.Any))
		require.ErrorIs(t, err, exec.NullReferenceTrap)
	})
}

func TestTestAndCast(t *testing.T) {
	x := newExecutor(0)

	values := []ref.Value{
		x.RefNull(ref.Any),
		x.RefNull(ref.None),
		x.RefNull(ref.Extern),
		x.RefI31(42),
		ref.NewObject(ref.Struct),
		ref.NewObject(ref.Array),
		ref.NewExtern("h"),
	}
	targets := []ref.RefType{
		ref.AnyRef, ref.Ref(ref.Any),
		ref.EqRef, ref.I31Ref, ref.Ref(ref.I31),
		ref.StructRef, ref.ArrayRef, ref.NullRef,
		ref.ExternRef, ref.Ref(ref.Extern), ref.NullExternRef,
	}

	t.Run("cast succeeds exactly when test says so", func(t *testing.T) {
		for _, v := range values {
			for _, rt := range targets {
				got := x.RefTest(rt, v)
				w, err := x.RefCast(rt, v)
				if got == 1 {
					require.NoError(t, err, "cast %s to %s", v, rt)
					require.Equal(t, v, w, "cast passes the value through")
				} else {
					require.ErrorIs(t, err, exec.CastFailureTrap, "cast %s to %s", v, rt)
				}
			}
		}
	})

	t.Run("null against i31 targets", func(t *testing.T) {
		null := x.RefNull(ref.Any)
		require.Equal(t, int32(1), x.RefTest(ref.I31Ref, null))
		require.Equal(t, int32(0), x.RefTest(ref.Ref(ref.I31), null))
	})

	t.Run("cast then unbox", func(t *testing.T) {
		v := x.RefI31(42)
		require.Equal(t, int32(1), x.RefTest(ref.I31Ref, v))
		w, err := x.RefCast(ref.I31Ref, v)
		require.NoError(t, err)
		u, err := x.I31GetU(w)
		require.NoError(t, err)
		require.Equal(t, int32(42), u)
	})
}

func TestBranchOnCast(t *testing.T) {
	x := newExecutor(0)

	t.Run("br_on_cast", func(t *testing.T) {
		br := x.BrOnCast(3, ref.AnyRef, ref.I31Ref, x.RefI31(7))
		require.True(t, br.Taken)
		require.Equal(t, uint32(3), br.Label)
		require.Equal(t, x.RefI31(7), br.Value)

		br = x.BrOnCast(3, ref.AnyRef, ref.I31Ref, ref.NewObject(ref.Struct))
		require.False(t, br.Taken)
	})

	t.Run("br_on_cast_fail on null", func(t *testing.T) {
		null := x.RefNull(ref.Any)
		br := x.BrOnCastFail(0, ref.AnyRef, ref.Ref(ref.I31), null)
		require.True(t, br.Taken, "null fails a cast to a non-nullable type")
		require.Equal(t, null, br.Value, "the failure path carries the original value")

		br = x.BrOnCastFail(0, ref.AnyRef, ref.I31Ref, null)
		require.False(t, br.Taken, "null passes a cast to a nullable type of its hierarchy")
	})
}

func TestIsNull(t *testing.T) {
	x := newExecutor(0)
	require.Equal(t, int32(1), x.RefIsNull(x.RefNull(ref.Extern)))
	require.Equal(t, int32(0), x.RefIsNull(x.RefI31(0)))
}

func TestTable(t *testing.T) {
	t.Run("slots start as null of the element heap type", func(t *testing.T) {
		tbl := exec.NewTable(4, ref.AnyRef)
		require.Equal(t, 4, tbl.Len())
		require.Equal(t, ref.AnyRef, tbl.Elem())
		for i := int32(0); i < 4; i++ {
			v, err := tbl.Get(i)
			require.NoError(t, err)
			require.True(t, v.IsNull())
			require.Equal(t, ref.Any, v.Heap())
		}
	})

	t.Run("out of bounds traps", func(t *testing.T) {
		x := newExecutor(2)
		_, err := x.TableGet(2)
		require.ErrorIs(t, err, exec.OutOfBoundsTrap)
		_, err = x.TableGet(-1)
		require.ErrorIs(t, err, exec.OutOfBoundsTrap)
		err = x.TableSet(2, x.RefNull(ref.Any))
		require.ErrorIs(t, err, exec.OutOfBoundsTrap)
	})

	t.Run("set then get", func(t *testing.T) {
		x := newExecutor(2)
		require.NoError(t, x.TableSet(1, x.RefI31(5)))
		v, err := x.TableGet(1)
		require.NoError(t, err)
		u, err := x.I31GetU(v)
		require.NoError(t, err)
		require.Equal(t, int32(5), u)
	})

	t.Run("an earlier set survives a later trap", func(t *testing.T) {
		x := newExecutor(2)
		require.NoError(t, x.TableSet(0, x.RefI31(9)))
		_, err := x.TableGet(99)
		require.Error(t, err)
		v, err := x.TableGet(0)
		require.NoError(t, err)
		require.Equal(t, x.RefI31(9), v)
	})
}

func TestConversionRoundTrip(t *testing.T) {
	x := newExecutor(1)

	t.Run("immediate", func(t *testing.T) {
		type handle struct{ fd int }
		h := &handle{fd: 3}
		e := ref.NewExtern(h)
		require.Same(t, h, x.ExternConvertAny(x.AnyConvertExtern(e)).Extern())
	})

	t.Run("through a table slot", func(t *testing.T) {
		type handle struct{ fd int }
		h := &handle{fd: 4}
		require.NoError(t, x.TableSet(0, x.AnyConvertExtern(ref.NewExtern(h))))
		v, err := x.TableGet(0)
		require.NoError(t, err)
		require.Same(t, h, x.ExternConvertAny(v).Extern())
	})

	t.Run("null handle", func(t *testing.T) {
		e := x.ExternConvertAny(x.AnyConvertExtern(x.RefNull(ref.Extern)))
		require.Equal(t, int32(1), x.RefIsNull(e))
		require.Equal(t, ref.ExternHierarchy, e.Hierarchy())
	})
}

func TestTrapCodes(t *testing.T) {
	require.Equal(t, "null reference", exec.NullReferenceTrap.Error())
	require.Equal(t, "cast failure", exec.CastFailureTrap.Error())
	require.Equal(t, "out of bounds table access", exec.OutOfBoundsTrap.Error())
	require.False(t, errors.Is(exec.CastFailureTrap, exec.NullReferenceTrap))
}

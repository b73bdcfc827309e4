package leb128_test

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmutil/refrun/leb128"
)

type errorReader struct{}

func (er *errorReader) Read(_ []byte) (int, error) {
	return 0, fmt.Errorf("test error")
}

func TestUnsigned(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		for _, v := range []uint64{0, 1, 63, 64, 127, 128, 255, 300, 0x7FFFFFFF, 0x80000000, math.MaxUint64} {
			buf := leb128.EncodeU64(v)
			require.NotEmpty(t, buf)
			res, n, err := leb128.DecodeU64(bytes.NewBuffer(buf))
			require.NoError(t, err)
			require.Equal(t, len(buf), n)
			require.Equal(t, v, res)
		}
	})

	t.Run("single-byte encodings", func(t *testing.T) {
		for v := uint64(0); v < 128; v++ {
			require.Equal(t, []byte{byte(v)}, leb128.EncodeU64(v))
		}
	})

	t.Run("max uint64", func(t *testing.T) {
		expected := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
		require.Equal(t, expected, leb128.EncodeU64(math.MaxUint64))
	})

	t.Run("empty buffer", func(t *testing.T) {
		res, n, err := leb128.DecodeU64(bytes.NewBuffer(nil))
		require.NoError(t, err)
		require.Equal(t, 0, n)
		require.Zero(t, res)
	})

	t.Run("read error", func(t *testing.T) {
		res, n, err := leb128.DecodeU64(&errorReader{})
		require.Error(t, err)
		require.Equal(t, 0, n)
		require.Zero(t, res)
	})

	t.Run("stops at the first unset continuation bit", func(t *testing.T) {
		input := []byte{0x78, 0x10, 0xf, 0xa, 0xb, 0x90, 0x01, 0, 0xff, 0xff, 0xff}
		res, n, err := leb128.DecodeU64(bytes.NewBuffer(input))
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, uint64(120), res)
	})

	t.Run("overflow after 10 bytes", func(t *testing.T) {
		input := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x0}
		res, n, err := leb128.DecodeU64(bytes.NewBuffer(input))
		require.ErrorIs(t, err, leb128.ErrOverflow)
		require.Equal(t, 10, n)
		require.Zero(t, res)
	})
}

func TestSigned(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		for _, v := range []int64{0, 1, -1, 63, -64, 64, -65, 127, -128, 0x3FFFFFFF, -0x40000000, math.MaxInt64, math.MinInt64} {
			buf := leb128.EncodeS64(v)
			require.NotEmpty(t, buf)
			res, n, err := leb128.DecodeS64(bytes.NewBuffer(buf))
			require.NoError(t, err)
			require.Equal(t, len(buf), n)
			require.Equal(t, v, res)
		}
	})

	t.Run("abstract heap type codes are single bytes", func(t *testing.T) {
		// -18 encodes as 0x6E, the wasm byte for the `any` heap type
		require.Equal(t, []byte{0x6E}, leb128.EncodeS64(-18))
		require.Equal(t, []byte{0x6C}, leb128.EncodeS64(-20))
		require.Equal(t, []byte{0x6F}, leb128.EncodeS64(-17))
	})

	t.Run("empty buffer", func(t *testing.T) {
		res, n, err := leb128.DecodeS64(bytes.NewBuffer(nil))
		require.NoError(t, err)
		require.Equal(t, 0, n)
		require.Zero(t, res)
	})

	t.Run("read error", func(t *testing.T) {
		res, n, err := leb128.DecodeS64(&errorReader{})
		require.Error(t, err)
		require.Equal(t, 0, n)
		require.Zero(t, res)
	})

	t.Run("overflow after 10 bytes", func(t *testing.T) {
		input := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
		res, n, err := leb128.DecodeS64(bytes.NewBuffer(input))
		require.ErrorIs(t, err, leb128.ErrOverflow)
		require.Equal(t, 10, n)
		require.Zero(t, res)
	})
}

package leb128

import (
	"errors"
	"io"
)

// ErrOverflow is returned when an encoded value does not terminate
// within the 10 bytes that can hold a 64-bit integer.
var ErrOverflow = errors.New("LEB128 value overflows a 64-bit integer")

const maxBytes = 10

// EncodeU64 encodes v as unsigned LEB128.
func EncodeU64(v uint64) []byte {
	var buf []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// EncodeS64 encodes v as signed LEB128.
func EncodeS64(v int64) []byte {
	var buf []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7 // arithmetic shift
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// DecodeU64 decodes an unsigned LEB128 value from r, returning the
// value and the number of bytes consumed. Immediate EOF is not an
// error; it simply consumes zero bytes.
func DecodeU64(r io.Reader) (uint64, int, error) {
	var res uint64
	n := 0
	for n < maxBytes {
		b, err := readByte(r)
		if err != nil {
			if errors.Is(err, io.EOF) && n == 0 {
				return 0, 0, nil
			}
			return 0, n, err
		}
		shift := 7 * n
		n++
		if shift == 63 && b&0x7F > 1 {
			return 0, n, ErrOverflow
		}
		res |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return res, n, nil
		}
	}
	return 0, n, ErrOverflow
}

// DecodeS64 decodes a signed LEB128 value from r, returning the value
// and the number of bytes consumed. Immediate EOF is not an error; it
// simply consumes zero bytes.
func DecodeS64(r io.Reader) (int64, int, error) {
	var res int64
	n := 0
	for n < maxBytes {
		b, err := readByte(r)
		if err != nil {
			if errors.Is(err, io.EOF) && n == 0 {
				return 0, 0, nil
			}
			return 0, n, err
		}
		shift := 7 * n
		n++
		res |= int64(b&0x7F) << shift
		if b&0x80 == 0 {
			if shift < 63 && b&0x40 != 0 {
				res |= -1 << (shift + 7)
			}
			return res, n, nil
		}
	}
	return 0, n, ErrOverflow
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	return b[0], err
}

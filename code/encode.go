package code

import (
	"fmt"
	"io"

	"github.com/wasmutil/refrun/leb128"
)

// Encode writes the binary form of instrs to w. Decode(Encode(instrs))
// yields instrs back.
func Encode(w io.Writer, instrs []Instr) error {
	var buf []byte
	for pc, in := range instrs {
		var err error
		buf, err = appendInstr(buf, in)
		if err != nil {
			return fmt.Errorf("encoding instruction %d (%s): %w", pc, in, err)
		}
	}
	_, err := w.Write(buf)
	return err
}

func appendInstr(buf []byte, in Instr) ([]byte, error) {
	buf = appendOpcode(buf, in.Op)
	switch in.Op {
	case OpBlock:
		return appendBlockType(buf, in.Block)
	case OpBr:
		return append(buf, leb128.EncodeU64(uint64(in.Label))...), nil
	case OpTableGet, OpTableSet:
		return append(buf, leb128.EncodeU64(uint64(in.Index))...), nil
	case OpI32Const:
		return append(buf, leb128.EncodeS64(int64(in.N))...), nil
	case OpRefNull:
		return append(buf, leb128.EncodeS64(int64(in.Heap))...), nil
	case OpRefTest, OpRefTestNull, OpRefCast, OpRefCastNull:
		return append(buf, leb128.EncodeS64(int64(in.Target.Heap))...), nil
	case OpBrOnCast, OpBrOnCastFail:
		var flags byte
		if in.From.Nullable {
			flags |= 0x01
		}
		if in.To.Nullable {
			flags |= 0x02
		}
		buf = append(buf, flags)
		buf = append(buf, leb128.EncodeU64(uint64(in.Label))...)
		buf = append(buf, leb128.EncodeS64(int64(in.From.Heap))...)
		buf = append(buf, leb128.EncodeS64(int64(in.To.Heap))...)
		return buf, nil
	case OpEnd, OpReturn, OpDrop, OpRefIsNull,
		OpAnyConvertExtern, OpExternConvertAny, OpRefI31, OpI31GetS, OpI31GetU:
		return buf, nil
	}
	return nil, fmt.Errorf("unsupported opcode 0x%X", uint16(in.Op))
}

func appendOpcode(buf []byte, op Opcode) []byte {
	if op>>8 == gcPrefix {
		buf = append(buf, gcPrefix)
		return append(buf, leb128.EncodeU64(uint64(op&0xFF))...)
	}
	return append(buf, byte(op))
}

func appendBlockType(buf []byte, bt BlockType) ([]byte, error) {
	switch bt.Kind {
	case BlockEmpty:
		return append(buf, leb128.EncodeS64(-64)...), nil
	case BlockI32:
		return append(buf, leb128.EncodeS64(-1)...), nil
	case BlockRef:
		if bt.Ref.Nullable {
			// nullable abstract refs use the one-byte shorthand
			return append(buf, leb128.EncodeS64(int64(bt.Ref.Heap))...), nil
		}
		buf = append(buf, leb128.EncodeS64(rtNonNull)...)
		return append(buf, leb128.EncodeS64(int64(bt.Ref.Heap))...), nil
	}
	return nil, fmt.Errorf("unsupported block type %d", bt.Kind)
}
